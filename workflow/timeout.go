package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/stepflow/policy"
)

// Timeout bounds the execution of its inner workflow to a wall-clock
// budget. The inner workflow runs on a separate goroutine and receives a
// context that is canceled when the budget expires; cancellation is
// best-effort, an inner workflow that ignores its context keeps running in
// the background while the combinator returns the timeout failure.
//
// A budget of zero or below disables the asynchronous machinery entirely
// and runs the inner workflow synchronously on the caller's goroutine.
type Timeout struct {
	Base
	inner  Workflow
	budget time.Duration
}

// NewTimeout builds a "[Timeout]" enforcing p on inner.
func NewTimeout(name string, inner Workflow, p policy.TimeoutPolicy) (*Timeout, error) {
	if inner == nil {
		return nil, fmt.Errorf("timeout %q: inner workflow is required", name)
	}
	return &Timeout{Base: NewBase(name, "[Timeout]"), inner: inner, budget: p.Duration()}, nil
}

// Budget returns the configured time budget.
func (t *Timeout) Budget() time.Duration { return t.budget }

// SubWorkflows returns the inner workflow.
func (t *Timeout) SubWorkflows() []Workflow {
	return []Workflow{t.inner}
}

// Execute runs the inner workflow under the budget. An inner result that
// arrives in time is returned verbatim, whatever its status.
func (t *Timeout) Execute(ctx context.Context, wctx *Context) *Result {
	return t.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		if t.budget <= 0 {
			res := t.inner.Execute(ctx, wctx)
			if res == nil {
				return nilResultFailure(exec, t.inner)
			}
			return res
		}

		cctx, cancel := context.WithTimeout(ctx, t.budget)
		defer cancel()

		done := make(chan *Result, 1)
		go func() {
			done <- safeExecute(cctx, wctx, t.inner)
		}()

		select {
		case res := <-done:
			if res == nil {
				return nilResultFailure(exec, t.inner)
			}
			return res
		case <-cctx.Done():
			if errors.Is(cctx.Err(), context.DeadlineExceeded) {
				return exec.Failure(fmt.Errorf("workflow %q timed out after %s", t.inner.Name(), t.budget))
			}
			return exec.Failure(cctx.Err())
		}
	})
}
