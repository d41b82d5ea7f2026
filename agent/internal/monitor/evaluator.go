package monitor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chargewatch/chargewatch/agent/internal/pipeline"
)

// ErrMissingField is wrapped by rule errors for fields absent from a Sample.
var ErrMissingField = errors.New("missing field")

// ErrBadValue is wrapped by rule errors for values that are not numeric or bool.
var ErrBadValue = errors.New("value is not numeric")

// Event is a triggered condition.
type Event struct {
	Rule    string
	Message string
}

// RuleError is the failure of a single rule on one tick.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string { return e.Rule + ": " + e.Err.Error() }

func (e *RuleError) Unwrap() error { return e.Err }

// EvaluationError aggregates every rule failure of one Evaluate call together
// with the samples that caused them.
type EvaluationError struct {
	Errs     []*RuleError
	Current  pipeline.Sample
	Previous pipeline.Sample
}

func (e *EvaluationError) Error() string {
	parts := make([]string, len(e.Errs))
	for i, re := range e.Errs {
		parts[i] = re.Error()
	}
	return fmt.Sprintf("monitor: %d rule(s) failed: %s", len(e.Errs), strings.Join(parts, "; "))
}

// Unwrap exposes the individual rule errors to errors.Is and errors.As.
func (e *EvaluationError) Unwrap() []error {
	out := make([]error, len(e.Errs))
	for i, re := range e.Errs {
		out[i] = re
	}
	return out
}

// Evaluator checks a fixed rule list against consecutive samples.
// It holds no state of its own.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator returns an Evaluator running rules in the given order.
func NewEvaluator(rules ...Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Rules returns the rules in evaluation order.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Evaluate runs every rule against current and previous.
//
// previous == nil means there is no baseline yet: current is still read, so a
// malformed first sample is reported, but no rule fires. Every rule runs even
// when an earlier one fails; failures come back as one *EvaluationError next
// to the events that did fire.
func (e *Evaluator) Evaluate(current, previous pipeline.Sample) ([]Event, error) {
	var (
		events []Event
		errs   []*RuleError
	)
	for _, r := range e.rules {
		ev, err := evaluateRule(r, current, previous)
		if err != nil {
			errs = append(errs, &RuleError{Rule: r.Name, Err: err})
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	if len(errs) > 0 {
		return events, &EvaluationError{Errs: errs, Current: current, Previous: previous}
	}
	return events, nil
}

func evaluateRule(r Rule, current, previous pipeline.Sample) (ev *Event, err error) {
	defer func() {
		if p := recover(); p != nil {
			ev, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()

	now, err := readFields(current, r.Keys)
	if err != nil {
		return nil, fmt.Errorf("current sample: %w", err)
	}
	if previous == nil {
		return nil, nil
	}
	then, err := readFields(previous, r.Keys)
	if err != nil {
		return nil, fmt.Errorf("previous sample: %w", err)
	}

	if !r.Fires(now, then) {
		return nil, nil
	}
	return &Event{Rule: r.Name, Message: r.Message(now, then)}, nil
}

func readFields(s pipeline.Sample, keys []string) ([]float64, error) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		dv, ok := s[k]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingField, k)
		}
		v, err := toFloat(dv.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[i] = v
	}
	return out, nil
}

// toFloat converts the numeric and bool payloads a DataValue may carry.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrBadValue, v)
	}
}
