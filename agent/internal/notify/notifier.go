package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chargewatch/chargewatch/agent/internal/config"
)

// Construction errors. Callers test them with errors.Is.
var (
	ErrKeyFileNotFound  = errors.New("notify: key file not found")
	ErrKeyFileInvalid   = errors.New("notify: key file invalid")
	ErrChannelUndefined = errors.New("notify: channel not defined in key file")
	ErrUnknownMethod    = errors.New("notify: unknown delivery method")
)

// Notifier delivers one finished message.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	// Send makes exactly one delivery attempt.
	Send(ctx context.Context, msg string) error
}

// DeliveryError reports a failed delivery attempt.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: delivery to %q failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Null is the notifier used when no delivery channel is configured or the
// configured one could not be built. Messages are only logged.
type Null struct{}

// Name implements Notifier.
func (Null) Name() string { return config.MethodNone }

// Send implements Notifier.
func (Null) Send(_ context.Context, msg string) error {
	slog.Debug("notify: no delivery channel, message logged only", "message", msg)
	return nil
}

// New builds the Notifier selected by cfg.Method.
// An empty method or "none" yields Null. opts are applied to a Webhook after
// the settings taken from cfg.
func New(cfg config.Monitor, opts ...Option) (Notifier, error) {
	switch cfg.Method {
	case "", config.MethodNone:
		return Null{}, nil
	case config.MethodWebhook, config.MethodSlack:
		base := []Option{WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout)}
		w, err := NewWebhook(cfg.KeyFile, cfg.Channel, append(base, opts...)...)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, cfg.Method)
	}
}
