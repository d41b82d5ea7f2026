package pipeline

import (
	"context"
	"log/slog"
)

// Step is one stage of the per-tick processing chain.
//
// Execute receives the Sample produced by the previous step and returns the
// Sample for the next one. A non-nil error is reported by the Pipeline; the
// returned Sample is still passed on.
type Step interface {
	Name() string
	Execute(ctx context.Context, in Sample) (Sample, error)
}

// Pipeline runs a fixed, ordered list of steps once per tick.
type Pipeline struct {
	steps []Step
}

// New returns a Pipeline that runs steps in the given order.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the number of registered steps.
func (p *Pipeline) Steps() int {
	return len(p.steps)
}

// Tick feeds in through every step and returns the final Sample.
// Step errors are logged; they never abort the tick.
func (p *Pipeline) Tick(ctx context.Context, in Sample) Sample {
	data := in
	for _, s := range p.steps {
		out, err := s.Execute(ctx, data)
		if err != nil {
			slog.Error("pipeline: step reported error", "step", s.Name(), "err", err)
		}
		if out != nil {
			data = out
		}
	}
	return data
}
