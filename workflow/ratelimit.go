package workflow

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter grants permission to proceed, blocking until a slot is available
// or ctx is done. *rate.Limiter satisfies Limiter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimited gates one workflow behind a blocking limiter. Each Execute
// performs exactly one acquisition before delegating; the inner workflow
// never runs when the acquisition fails. Nested rate limiters apply
// independently, outermost first.
type RateLimited struct {
	Base
	inner   Workflow
	limiter Limiter
}

// NewRateLimited builds a "[RateLimited]" gating inner behind limiter.
func NewRateLimited(name string, inner Workflow, limiter Limiter) (*RateLimited, error) {
	if inner == nil {
		return nil, fmt.Errorf("rate limited %q: inner workflow is required", name)
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limited %q: limiter is required", name)
	}
	return &RateLimited{Base: NewBase(name, "[RateLimited]"), inner: inner, limiter: limiter}, nil
}

// NewRateLimitedPerSecond gates inner behind a token bucket admitting rps
// events per second with the given burst capacity.
func NewRateLimitedPerSecond(name string, inner Workflow, rps float64, burst int) (*RateLimited, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("rate limited %q: rps must be positive, got %v", name, rps)
	}
	if burst < 1 {
		return nil, fmt.Errorf("rate limited %q: burst must be at least 1, got %d", name, burst)
	}
	return NewRateLimited(name, inner, rate.NewLimiter(rate.Limit(rps), burst))
}

// SubWorkflows returns the inner workflow.
func (r *RateLimited) SubWorkflows() []Workflow {
	return []Workflow{r.inner}
}

// Execute blocks on the limiter, then delegates and returns the inner
// result verbatim. A failed acquisition, typically context cancellation,
// yields FAILED with the limiter's error.
func (r *RateLimited) Execute(ctx context.Context, wctx *Context) *Result {
	return r.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		if err := r.limiter.Wait(ctx); err != nil {
			return exec.Failure(fmt.Errorf("rate limit acquisition failed: %w", err))
		}
		res := r.inner.Execute(ctx, wctx)
		if res == nil {
			return nilResultFailure(exec, r.inner)
		}
		return res
	})
}
