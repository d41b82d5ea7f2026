package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chargewatch/chargewatch/agent/internal/config"
)

// exporterMetrics is a realistic subset of a charge controller exporter's output.
const exporterMetrics = `
# HELP sunsaver_adc_vl_f Load voltage, filtered.
# TYPE sunsaver_adc_vl_f gauge
sunsaver_adc_vl_f 13.21
# HELP sunsaver_adc_il_f Load current, filtered.
# TYPE sunsaver_adc_il_f gauge
sunsaver_adc_il_f 0.84
# HELP sunsaver_led_state Controller LED state code.
# TYPE sunsaver_led_state gauge
sunsaver_led_state{controller="ss-mppt-15l"} 3
# HELP ping Nonzero when the controller did not answer.
# TYPE ping gauge
ping 0
# HELP sunsaver_requests_total Modbus requests by result.
# TYPE sunsaver_requests_total counter
sunsaver_requests_total{result="ok"} 1200
sunsaver_requests_total{result="error"} 3
`

var exporterFields = map[string]string{
	"sunsaver_adc_vl_f":  "adc_vl_f",
	"sunsaver_adc_il_f":  "adc_il_f",
	"sunsaver_led_state": "led_state",
}

func TestPromSource_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(exporterMetrics))
	}))
	defer srv.Close()

	s := &promSource{
		src:    config.Source{ID: "sunsaver", Type: "prometheus", Endpoint: srv.URL, Fields: exporterFields},
		client: srv.Client(),
	}

	sample, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	tests := []struct {
		field string
		want  float64
	}{
		{"adc_vl_f", 13.21},
		{"adc_il_f", 0.84},
		{"led_state", 3},
		{"ping", 0},
		{"sunsaver_requests_total", 1203},
	}
	for _, tc := range tests {
		dv, ok := sample[tc.field]
		if !ok {
			t.Errorf("field %q missing from sample %v", tc.field, sample.Keys())
			continue
		}
		if got := dv.Value.(float64); got != tc.want {
			t.Errorf("%s = %v, want %v", tc.field, got, tc.want)
		}
	}

	if _, ok := sample["sunsaver_adc_vl_f"]; ok {
		t.Error("renamed family should not also appear under its original name")
	}
	if got := sample["adc_vl_f"].Unit; got != "V" {
		t.Errorf("adc_vl_f unit = %q, want V", got)
	}
	if got := sample["led_state"].Labels["controller"]; got != "ss-mppt-15l" {
		t.Errorf("led_state labels = %v", sample["led_state"].Labels)
	}
	if sample["sunsaver_requests_total"].Labels != nil {
		t.Error("multi-series family should not carry labels")
	}
}

func TestPromSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &promSource{src: config.Source{ID: "down", Endpoint: srv.URL}, client: srv.Client()}
	if _, err := s.Read(context.Background()); err == nil {
		t.Fatal("Read() should fail on HTTP 503")
	}
}

func TestPromSource_ConnectFailure(t *testing.T) {
	s := &promSource{
		src:    config.Source{ID: "gone", Endpoint: "http://127.0.0.1:1"},
		client: &http.Client{},
	}
	if _, err := s.Read(context.Background()); err == nil {
		t.Fatal("Read() should fail when the endpoint is unreachable")
	}
}

func TestPromSource_AuthHeaders(t *testing.T) {
	t.Setenv("EXPORTER_TOKEN", "tok123")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("ping 1\n"))
	}))
	defer srv.Close()

	src, err := New(config.Source{
		ID:       "auth",
		Type:     "prometheus",
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "bearer", TokenEnv: "EXPORTER_TOKEN"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sample, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
	if got := sample["ping"].Value.(float64); got != 1 {
		t.Errorf("ping = %v, want 1", got)
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	if _, err := New(config.Source{ID: "x", Type: "modbus"}); err == nil {
		t.Fatal("New() should reject unsupported source types")
	}
}
