package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chargewatch/chargewatch/agent/internal/config"
	"github.com/chargewatch/chargewatch/agent/internal/metrics"
)

// Webhook posts messages to a chat webhook (Slack incoming-webhook format).
type Webhook struct {
	channel string
	url     string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithLogger attaches a logger. With a logger, failed deliveries are logged
// as warnings and Send returns nil; without one Send returns a *DeliveryError.
func WithLogger(l *slog.Logger) Option {
	return func(w *Webhook) {
		w.logger = l
	}
}

// WithBaseURL overrides the URL the channel suffix is resolved against.
func WithBaseURL(base string) Option {
	return func(w *Webhook) {
		if base != "" {
			w.baseURL = base
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithMetrics records every delivery attempt in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Webhook) {
		w.metrics = m
	}
}

// NewWebhook resolves channel in keyFile and returns a ready Webhook.
// It fails with ErrKeyFileNotFound, ErrKeyFileInvalid or ErrChannelUndefined.
func NewWebhook(keyFile, channel string, opts ...Option) (*Webhook, error) {
	w := &Webhook{
		channel: channel,
		baseURL: config.DefaultWebhookBaseURL,
		client:  &http.Client{Timeout: config.DefaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(w)
	}

	suffix, err := lookupChannel(keyFile, channel)
	if err != nil {
		return nil, err
	}
	u, err := resolveURL(w.baseURL, suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFileInvalid, err)
	}
	w.url = u
	return w, nil
}

// Name implements Notifier.
func (w *Webhook) Name() string { return w.channel }

// Send implements Notifier. It makes one POST of {"text": msg}.
func (w *Webhook) Send(ctx context.Context, msg string) error {
	err := w.post(ctx, msg)
	w.metrics.Delivery(w.channel, err)
	if err == nil {
		slog.Debug("notify: webhook delivered", "channel", w.channel)
		return nil
	}
	if w.logger != nil {
		w.logger.Warn("notify: webhook delivery failed",
			"channel", w.channel,
			"message", msg,
			"err", err,
		)
		return nil
	}
	return &DeliveryError{Channel: w.channel, Err: err}
}

func (w *Webhook) post(ctx context.Context, msg string) error {
	body, err := json.Marshal(map[string]string{"text": msg})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// resolveURL joins the secret suffix onto base the way a browser resolves a
// relative link: base should end in "/" for the suffix to be appended.
func resolveURL(base, suffix string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimPrefix(suffix, "/"))
	if err != nil {
		return "", fmt.Errorf("parse channel suffix: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}
