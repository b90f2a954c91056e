package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SagaStep is one forward action with an optional compensating action. The
// compensation runs only when a later step fails, never for the step that
// failed itself.
type SagaStep struct {
	Name         string
	Action       Task
	Compensation Task
}

// Saga executes its steps in order against the shared context. When a step
// fails, the compensations of all previously completed steps run in strict
// reverse completion order, steps without a compensation are skipped, and
// the terminal FAILED result carries the original action error regardless
// of any compensation errors.
type Saga struct {
	Base
	steps []SagaStep
}

// NewSaga builds a "[Saga]" over the given steps. Every step needs an
// action; blank step names are replaced with a positional one.
func NewSaga(name string, steps ...SagaStep) (*Saga, error) {
	for i, st := range steps {
		if st.Action == nil {
			return nil, fmt.Errorf("saga %q: step %d (%q) has no action", name, i, st.Name)
		}
	}
	copied := append([]SagaStep(nil), steps...)
	for i := range copied {
		if strings.TrimSpace(copied[i].Name) == "" {
			copied[i].Name = fmt.Sprintf("step-%d", i)
		}
	}
	return &Saga{Base: NewBase(name, "[Saga]"), steps: copied}, nil
}

// Steps returns a copy of the configured steps.
func (s *Saga) Steps() []SagaStep {
	return append([]SagaStep(nil), s.steps...)
}

// Execute runs the steps forward and compensates backward on the first
// failure.
func (s *Saga) Execute(ctx context.Context, wctx *Context) *Result {
	return s.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		for i, st := range s.steps {
			err := runTask(ctx, wctx, st.Action)
			if err == nil {
				continue
			}
			s.Logger().Warn("saga step failed, compensating",
				zap.String("workflow", s.Name()),
				zap.String("step", st.Name),
				zap.Int("completed_steps", i),
				zap.Error(err),
			)
			s.compensate(ctx, wctx, i-1)
			return exec.Failure(err)
		}
		return exec.Success()
	})
}

// compensate runs the compensations of steps [0, from] in reverse order.
// A failing compensation is logged and the remaining ones still run.
func (s *Saga) compensate(ctx context.Context, wctx *Context, from int) {
	for j := from; j >= 0; j-- {
		st := s.steps[j]
		if st.Compensation == nil {
			continue
		}
		if cerr := runTask(ctx, wctx, st.Compensation); cerr != nil {
			s.Logger().Warn("saga compensation failed",
				zap.String("workflow", s.Name()),
				zap.String("step", st.Name),
				zap.Error(cerr),
			)
		}
	}
}
