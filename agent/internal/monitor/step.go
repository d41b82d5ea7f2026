package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chargewatch/chargewatch/agent/internal/config"
	"github.com/chargewatch/chargewatch/agent/internal/metrics"
	"github.com/chargewatch/chargewatch/agent/internal/notify"
	"github.com/chargewatch/chargewatch/agent/internal/pipeline"
)

// DefaultStepName is the step name used in logs when none is given.
const DefaultStepName = "state_monitor"

// State is the monitor's lifecycle state.
type State int

const (
	// StateUninitialized: no tick has completed, there is no baseline.
	StateUninitialized State = iota
	// StateBaselined: a previous Sample is stored. Terminal for the step's lifetime.
	StateBaselined
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBaselined:
		return "baselined"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step is the state monitor pipeline step. It observes each Sample and
// returns it unchanged.
//
// Execute holds a mutex for the whole tick, so the previous-sample
// read-modify-write is atomic even if a pipeline shares the Step.
type Step struct {
	name      string
	evaluator *Evaluator
	formatter Formatter
	notifier  notify.Notifier
	logger    *slog.Logger
	escalate  bool
	metrics   *metrics.Metrics

	mu       sync.Mutex
	state    State
	previous pipeline.Sample
}

type stepOptions struct {
	name     string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier notify.Notifier
	rules    []Rule
}

// StepOption configures a Step.
type StepOption func(*stepOptions)

// WithName sets the step name used in logs.
func WithName(name string) StepOption {
	return func(o *stepOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger attaches a logger. It is also handed to the delivery channel,
// which then logs failed deliveries instead of returning them. Without a
// logger the step logs through slog.Default and Execute returns delivery
// failures to the caller.
func WithLogger(l *slog.Logger) StepOption {
	return func(o *stepOptions) {
		o.logger = l
	}
}

// WithMetrics records ticks, events, evaluation errors and deliveries in m.
func WithMetrics(m *metrics.Metrics) StepOption {
	return func(o *stepOptions) {
		o.metrics = m
	}
}

// WithNotifier uses n instead of building a notifier from the config.
func WithNotifier(n notify.Notifier) StepOption {
	return func(o *stepOptions) {
		o.notifier = n
	}
}

// WithRules replaces DefaultRules(cfg.PowerThreshold).
func WithRules(rules ...Rule) StepOption {
	return func(o *stepOptions) {
		o.rules = rules
	}
}

// NewStep builds the monitor for cfg, identifying itself as unit.
//
// If the configured delivery channel cannot be built (missing key file,
// undefined channel, unknown method) the error is logged once and the step
// falls back to notify.Null for its whole lifetime.
func NewStep(cfg config.Monitor, unit config.Unit, opts ...StepOption) *Step {
	o := stepOptions{name: DefaultStepName}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	rules := o.rules
	if rules == nil {
		rules = DefaultRules(cfg.PowerThreshold)
	}

	n := o.notifier
	if n == nil {
		built, err := notify.New(cfg,
			notify.WithLogger(o.logger),
			notify.WithMetrics(o.metrics),
		)
		if err != nil {
			logger.Error("monitor: could not build notifier, notifications will only be logged",
				"step", o.name,
				"method", cfg.Method,
				"channel", cfg.Channel,
				"key_file", cfg.KeyFile,
				"err", err,
			)
			built = notify.Null{}
		}
		n = built
	}
	_, isNull := n.(notify.Null)
	o.metrics.ChannelAvailable(!isNull)

	return &Step{
		name:      o.name,
		evaluator: NewEvaluator(rules...),
		formatter: NewFormatter(unit),
		notifier:  n,
		logger:    logger,
		escalate:  o.logger == nil,
		metrics:   o.metrics,
	}
}

// Name implements pipeline.Step.
func (s *Step) Name() string { return s.name }

// Notifier returns the delivery channel in use.
func (s *Step) Notifier() notify.Notifier { return s.notifier }

// State returns the current lifecycle state.
func (s *Step) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Execute implements pipeline.Step. It returns in unchanged.
//
// The returned error is non-nil only when the step has no logger attached and
// a delivery failed; evaluation problems are always logged, never returned.
func (s *Step) Execute(ctx context.Context, in pipeline.Sample) (pipeline.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Tick()

	var previous pipeline.Sample
	if s.state == StateBaselined {
		previous = s.previous
		if previous == nil {
			previous = pipeline.Sample{}
		}
	}

	events, evalErr := s.evaluate(in, previous)

	var sendErrs []error
	for _, ev := range events {
		s.metrics.Event(ev.Rule)
		if err := s.dispatch(ctx, ev); err != nil {
			sendErrs = append(sendErrs, err)
		}
	}

	if evalErr != nil {
		s.metrics.EvaluationError()
		s.logger.Error("monitor: evaluation failed",
			"step", s.name,
			"err", evalErr,
			"current", in.Strings(),
			"previous", previous.Strings(),
		)
	}

	s.previous = in
	s.state = StateBaselined

	if len(sendErrs) > 0 && s.escalate {
		return in, errors.Join(sendErrs...)
	}
	return in, nil
}

// evaluate shields the tick from a panicking rule set.
func (s *Step) evaluate(current, previous pipeline.Sample) (events []Event, err error) {
	defer func() {
		if p := recover(); p != nil {
			events = nil
			err = &EvaluationError{
				Errs:     []*RuleError{{Rule: "*", Err: fmt.Errorf("panic: %v", p)}},
				Current:  current,
				Previous: previous,
			}
		}
	}()
	return s.evaluator.Evaluate(current, previous)
}

// dispatch formats ev and makes one delivery attempt.
func (s *Step) dispatch(ctx context.Context, ev Event) (err error) {
	msg := s.formatter.Format(ev.Message)
	s.logger.Info("monitor: condition triggered",
		"step", s.name,
		"rule", ev.Rule,
		"channel", s.notifier.Name(),
		"notification", msg,
	)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("monitor: %s: notifier %q panicked: %v", ev.Rule, s.notifier.Name(), p)
			s.logger.Error("monitor: delivery panicked", "rule", ev.Rule, "err", err)
		}
	}()

	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("monitor: delivery failed",
			"step", s.name,
			"rule", ev.Rule,
			"channel", s.notifier.Name(),
			"err", err,
		)
		return fmt.Errorf("monitor: %s: %w", ev.Rule, err)
	}
	return nil
}
