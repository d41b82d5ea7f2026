package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chargewatch/chargewatch/agent/internal/config"
	"github.com/chargewatch/chargewatch/agent/internal/metrics"
)

// hookServer records every POST it receives and answers with status.
type hookServer struct {
	*httptest.Server
	mu     sync.Mutex
	paths  []string
	bodies []map[string]string
	status int
}

func newHookServer(t *testing.T, status int) *hookServer {
	t.Helper()
	h := &hookServer{status: status}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		h.mu.Lock()
		h.paths = append(h.paths, r.URL.Path)
		h.bodies = append(h.bodies, body)
		h.mu.Unlock()
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		w.WriteHeader(h.status)
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *hookServer) requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.paths)
}

// writeKeyFile writes content to name inside a temp dir and returns its path.
func writeKeyFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

const iniKeys = `
[channel]
alerts = T000/B000/secret
ops = T000/B111/other
`

func TestWebhook_Send_Success(t *testing.T) {
	srv := newHookServer(t, http.StatusOK)
	keys := writeKeyFile(t, "slack.ini", iniKeys)

	w, err := NewWebhook(keys, "alerts", WithBaseURL(srv.URL+"/services/"))
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}

	msg := "Message from sensor sensor07\nNo \"communication\" with sensor!"
	if err := w.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if srv.requests() != 1 {
		t.Fatalf("requests = %d, want 1", srv.requests())
	}
	if got := srv.paths[0]; got != "/services/T000/B000/secret" {
		t.Errorf("path = %q, want /services/T000/B000/secret", got)
	}
	if got := srv.bodies[0]["text"]; got != msg {
		t.Errorf("text = %q, want %q", got, msg)
	}
}

func TestWebhook_Send_Non2xx_WithLogger(t *testing.T) {
	srv := newHookServer(t, http.StatusInternalServerError)
	keys := writeKeyFile(t, "slack.ini", iniKeys)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	w, err := NewWebhook(keys, "alerts",
		WithBaseURL(srv.URL+"/services/"),
		WithLogger(logger),
		WithMetrics(m),
	)
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}

	if err := w.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send() with logger should not return error, got %v", err)
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "HTTP 500") {
		t.Errorf("expected warning log mentioning HTTP 500, got %q", buf.String())
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("alerts", metrics.ResultFailed)); got != 1 {
		t.Errorf("failed deliveries = %v, want 1", got)
	}
	if srv.requests() != 1 {
		t.Errorf("requests = %d, want exactly one attempt", srv.requests())
	}
}

func TestWebhook_Send_Non2xx_WithoutLogger(t *testing.T) {
	srv := newHookServer(t, http.StatusForbidden)
	keys := writeKeyFile(t, "slack.ini", iniKeys)

	w, err := NewWebhook(keys, "alerts", WithBaseURL(srv.URL+"/services/"))
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}

	err = w.Send(context.Background(), "hello")
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("Send() error = %v, want *DeliveryError", err)
	}
	if derr.Channel != "alerts" {
		t.Errorf("DeliveryError.Channel = %q", derr.Channel)
	}
}

func TestWebhook_Send_TransportFailure(t *testing.T) {
	keys := writeKeyFile(t, "slack.ini", iniKeys)
	w, err := NewWebhook(keys, "alerts",
		WithBaseURL("http://127.0.0.1:1/services/"),
		WithTimeout(time.Second),
	)
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}
	var derr *DeliveryError
	if err := w.Send(context.Background(), "hello"); !errors.As(err, &derr) {
		t.Fatalf("Send() error = %v, want *DeliveryError", err)
	}
}

func TestWebhook_Send_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	keys := writeKeyFile(t, "slack.ini", iniKeys)
	w, err := NewWebhook(keys, "alerts",
		WithBaseURL(srv.URL+"/services/"),
		WithTimeout(50*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}

	start := time.Now()
	if err := w.Send(context.Background(), "hello"); err == nil {
		t.Fatal("Send() against a hanging server should fail")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Send() took %v, timeout not applied", elapsed)
	}
}

func TestNewWebhook_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name    string
		keyFile func(t *testing.T) string
		channel string
		want    error
	}{
		{
			name:    "missing file",
			keyFile: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.ini") },
			channel: "alerts",
			want:    ErrKeyFileNotFound,
		},
		{
			name:    "empty path",
			keyFile: func(*testing.T) string { return "" },
			channel: "alerts",
			want:    ErrKeyFileNotFound,
		},
		{
			name:    "undefined channel",
			keyFile: func(t *testing.T) string { return writeKeyFile(t, "slack.ini", iniKeys) },
			channel: "random",
			want:    ErrChannelUndefined,
		},
		{
			name:    "no channel section",
			keyFile: func(t *testing.T) string { return writeKeyFile(t, "slack.ini", "[other]\nalerts = x\n") },
			channel: "alerts",
			want:    ErrChannelUndefined,
		},
		{
			name:    "empty channel name",
			keyFile: func(t *testing.T) string { return writeKeyFile(t, "slack.ini", iniKeys) },
			channel: "",
			want:    ErrChannelUndefined,
		},
		{
			name:    "malformed toml",
			keyFile: func(t *testing.T) string { return writeKeyFile(t, "slack.toml", "[channel\nalerts = ") },
			channel: "alerts",
			want:    ErrKeyFileInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := NewWebhook(tc.keyFile(t), tc.channel)
			if !errors.Is(err, tc.want) {
				t.Fatalf("NewWebhook() error = %v, want %v", err, tc.want)
			}
			if w != nil {
				t.Errorf("NewWebhook() returned non-nil webhook on error")
			}
		})
	}
}

func TestNewWebhook_TOMLKeyFile(t *testing.T) {
	srv := newHookServer(t, http.StatusOK)
	keys := writeKeyFile(t, "slack.toml", "[channel]\nalerts = \"T000/B000/fromtoml\"\n")

	w, err := NewWebhook(keys, "Alerts", WithBaseURL(srv.URL+"/services/"))
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}
	if err := w.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := srv.paths[0]; got != "/services/T000/B000/fromtoml" {
		t.Errorf("path = %q", got)
	}
}

func TestNewWebhook_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "slack.ini"), []byte(iniKeys), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if _, err := NewWebhook("~/slack.ini", "ops"); err != nil {
		t.Fatalf("NewWebhook(~/slack.ini) error = %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	got, err := resolveURL(config.DefaultWebhookBaseURL, "/T1/B2/C3")
	if err != nil {
		t.Fatalf("resolveURL() error = %v", err)
	}
	if want := "https://hooks.slack.com/services/T1/B2/C3"; got != want {
		t.Errorf("resolveURL() = %q, want %q", got, want)
	}
}

func TestNew_SelectsByMethod(t *testing.T) {
	keys := writeKeyFile(t, "slack.ini", iniKeys)

	n, err := New(config.Monitor{})
	if err != nil {
		t.Fatalf("New(empty method) error = %v", err)
	}
	if _, ok := n.(Null); !ok {
		t.Errorf("New(empty method) = %T, want Null", n)
	}

	n, err = New(config.Monitor{Method: config.MethodSlack, KeyFile: keys, Channel: "alerts", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New(slack) error = %v", err)
	}
	if n.Name() != "alerts" {
		t.Errorf("Name() = %q, want alerts", n.Name())
	}

	if _, err := New(config.Monitor{Method: "pager"}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("New(pager) error = %v, want ErrUnknownMethod", err)
	}

	n, err = New(config.Monitor{Method: config.MethodWebhook, Channel: "alerts"})
	if !errors.Is(err, ErrKeyFileNotFound) {
		t.Errorf("New(webhook, no key file) error = %v, want ErrKeyFileNotFound", err)
	}
	if n != nil {
		t.Errorf("New() on error returned %T, want nil interface", n)
	}
}

func TestNull_Send(t *testing.T) {
	if err := (Null{}).Send(context.Background(), "anything"); err != nil {
		t.Errorf("Null.Send() error = %v", err)
	}
}
