package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/policy"
)

// Retry re-executes its inner workflow under a retry policy, sleeping per
// the backoff strategy between attempts. Only FAILED results are retried;
// SUCCESS and SKIPPED return immediately. When the policy declines a
// further attempt the last failure is returned verbatim.
type Retry struct {
	Base
	inner   Workflow
	policy  policy.RetryPolicy
	backoff policy.BackoffStrategy
	onRetry func(attempt int, err error, delay time.Duration)
}

// NewRetry builds a "[Retry]" around inner. A nil backoff means no delay
// between attempts.
func NewRetry(name string, inner Workflow, pol policy.RetryPolicy, backoff policy.BackoffStrategy) (*Retry, error) {
	if inner == nil {
		return nil, fmt.Errorf("retry %q: inner workflow is required", name)
	}
	if backoff == nil {
		backoff = policy.NoBackoff()
	}
	return &Retry{Base: NewBase(name, "[Retry]"), inner: inner, policy: pol, backoff: backoff}, nil
}

// WithOnRetry installs a hook invoked before each retry delay, receiving
// the 1-based attempt number, the error being retried and the upcoming
// delay. Configure before the first Execute.
func (r *Retry) WithOnRetry(fn func(attempt int, err error, delay time.Duration)) *Retry {
	r.onRetry = fn
	return r
}

// SubWorkflows returns the inner workflow.
func (r *Retry) SubWorkflows() []Workflow {
	return []Workflow{r.inner}
}

// Execute runs the inner workflow until it stops failing or the policy is
// exhausted. Context cancellation during a backoff sleep aborts with
// FAILED.
func (r *Retry) Execute(ctx context.Context, wctx *Context) *Result {
	return r.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		var res *Result
		for attempt := 0; ; attempt++ {
			if attempt > 0 {
				delay := r.backoff.Delay(attempt)
				r.Logger().Debug("retrying workflow",
					zap.String("workflow", r.Name()),
					zap.Int("attempt", attempt),
					zap.Int("max_retries", r.policy.MaxRetries()),
					zap.Duration("delay", delay),
				)
				if r.onRetry != nil {
					r.onRetry(attempt, res.Err(), delay)
				}
				if delay > 0 {
					select {
					case <-ctx.Done():
						return exec.Failure(fmt.Errorf("retry canceled: %w", ctx.Err()))
					case <-time.After(delay):
					}
				}
			}
			res = safeExecute(ctx, wctx, r.inner)
			if res == nil {
				return nilResultFailure(exec, r.inner)
			}
			if !res.IsFailure() {
				return res
			}
			if !r.policy.ShouldRetry(attempt+1, res.Err()) {
				return res
			}
		}
	})
}
