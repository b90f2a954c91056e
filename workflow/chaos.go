package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// ChaosError is the failure injected by a chaos strategy. Metadata carries
// strategy-specific detail such as the configured probability or the
// simulated resource type.
type ChaosError struct {
	Strategy string
	Metadata map[string]any
	Cause    error
}

func (e *ChaosError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chaos %s: %v", e.Strategy, e.Cause)
	}
	return fmt.Sprintf("chaos %s injected", e.Strategy)
}

// Unwrap exposes the wrapped cause for errors.Is and errors.As.
func (e *ChaosError) Unwrap() error { return e.Cause }

// ChaosStrategy inspects the live execution and either passes through,
// possibly after a delay, or aborts the wrapped workflow by returning an
// error, normally a *ChaosError.
type ChaosStrategy interface {
	Name() string
	Apply(ctx context.Context, wctx *Context) error
}

// Chaos wraps one workflow with an ordered list of fault-injection
// strategies applied before delegation. The first strategy that aborts
// produces the combinator's FAILED result; later strategies and the inner
// workflow do not run. When every strategy passes, the inner result is
// returned verbatim.
type Chaos struct {
	Base
	inner      Workflow
	strategies []ChaosStrategy
}

// NewChaos builds a "[Chaos]" around inner with the given strategies.
func NewChaos(name string, inner Workflow, strategies ...ChaosStrategy) (*Chaos, error) {
	if inner == nil {
		return nil, fmt.Errorf("chaos %q: inner workflow is required", name)
	}
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("chaos %q: strategy %d is nil", name, i)
		}
	}
	return &Chaos{
		Base:       NewBase(name, "[Chaos]"),
		inner:      inner,
		strategies: append([]ChaosStrategy(nil), strategies...),
	}, nil
}

// Strategies returns the strategies in application order.
func (c *Chaos) Strategies() []ChaosStrategy {
	return append([]ChaosStrategy(nil), c.strategies...)
}

// SubWorkflows returns the inner workflow.
func (c *Chaos) SubWorkflows() []Workflow {
	return []Workflow{c.inner}
}

// Execute applies the strategies in order, then delegates.
func (c *Chaos) Execute(ctx context.Context, wctx *Context) *Result {
	return c.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		for _, s := range c.strategies {
			if err := s.Apply(ctx, wctx); err != nil {
				c.Logger().Debug("chaos strategy aborted execution",
					zap.String("workflow", c.Name()),
					zap.String("strategy", s.Name()),
					zap.Error(err),
				)
				return exec.Failure(err)
			}
		}
		res := c.inner.Execute(ctx, wctx)
		if res == nil {
			return nilResultFailure(exec, c.inner)
		}
		return res
	})
}

// FailureInjection aborts execution with a fixed probability. Probability 0
// never aborts, 1 always does.
type FailureInjection struct {
	probability float64
	rnd         func() float64
}

// NewFailureInjection builds the strategy; probability must lie in [0, 1].
func NewFailureInjection(probability float64) (*FailureInjection, error) {
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("failure injection: probability must be in [0,1], got %v", probability)
	}
	return &FailureInjection{probability: probability, rnd: rand.Float64}, nil
}

func (f *FailureInjection) Name() string { return "failure_injection" }

func (f *FailureInjection) Apply(ctx context.Context, wctx *Context) error {
	if f.rnd() >= f.probability {
		return nil
	}
	return &ChaosError{
		Strategy: f.Name(),
		Metadata: map[string]any{"probability": f.probability},
	}
}

// LatencyInjection delays execution by a fixed or uniformly random duration
// before passing through. It never aborts on its own but honors context
// cancellation while waiting.
type LatencyInjection struct {
	min, max time.Duration
	rnd      func() float64
}

// NewLatencyInjection builds a fixed-delay strategy.
func NewLatencyInjection(d time.Duration) (*LatencyInjection, error) {
	return NewLatencyInjectionRange(d, d)
}

// NewLatencyInjectionRange builds a strategy delaying uniformly within
// [min, max].
func NewLatencyInjectionRange(min, max time.Duration) (*LatencyInjection, error) {
	if min < 0 || max < 0 {
		return nil, fmt.Errorf("latency injection: delays must be non-negative, got [%s, %s]", min, max)
	}
	if max < min {
		return nil, fmt.Errorf("latency injection: max %s below min %s", max, min)
	}
	return &LatencyInjection{min: min, max: max, rnd: rand.Float64}, nil
}

func (l *LatencyInjection) Name() string { return "latency_injection" }

func (l *LatencyInjection) Apply(ctx context.Context, wctx *Context) error {
	d := l.min
	if l.max > l.min {
		d += time.Duration(l.rnd() * float64(l.max-l.min))
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExceptionInjection always aborts with the configured error wrapped in a
// ChaosError.
type ExceptionInjection struct {
	err error
}

// NewExceptionInjection builds the strategy around err.
func NewExceptionInjection(err error) (*ExceptionInjection, error) {
	if err == nil {
		return nil, errors.New("exception injection: error is required")
	}
	return &ExceptionInjection{err: err}, nil
}

func (e *ExceptionInjection) Name() string { return "exception_injection" }

func (e *ExceptionInjection) Apply(ctx context.Context, wctx *Context) error {
	return &ChaosError{Strategy: e.Name(), Cause: e.err}
}

// ResourceType identifies the pressure source a ResourceExhaustion
// simulates.
type ResourceType string

const (
	ResourceMemory ResourceType = "MEMORY"
	ResourceCPU    ResourceType = "CPU"
)

// ResourceExhaustion simulates short-lived memory or CPU pressure scaled by
// intensity, then optionally aborts with the resource type recorded in the
// error metadata.
type ResourceExhaustion struct {
	resource  ResourceType
	intensity float64
	failProb  float64
	rnd       func() float64
}

// NewResourceExhaustion builds the strategy; intensity must lie in [0, 1].
func NewResourceExhaustion(resource ResourceType, intensity float64) (*ResourceExhaustion, error) {
	switch resource {
	case ResourceMemory, ResourceCPU:
	default:
		return nil, fmt.Errorf("resource exhaustion: unknown resource type %q", resource)
	}
	if intensity < 0 || intensity > 1 {
		return nil, fmt.Errorf("resource exhaustion: intensity must be in [0,1], got %v", intensity)
	}
	return &ResourceExhaustion{resource: resource, intensity: intensity, rnd: rand.Float64}, nil
}

// WithFailureProbability makes the strategy abort with probability p after
// the pressure phase. Out-of-range values are clamped.
func (r *ResourceExhaustion) WithFailureProbability(p float64) *ResourceExhaustion {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	r.failProb = p
	return r
}

func (r *ResourceExhaustion) Name() string { return "resource_exhaustion" }

func (r *ResourceExhaustion) Apply(ctx context.Context, wctx *Context) error {
	r.simulate()
	if r.failProb > 0 && r.rnd() < r.failProb {
		return &ChaosError{
			Strategy: r.Name(),
			Metadata: map[string]any{
				"resource_type": string(r.resource),
				"intensity":     r.intensity,
			},
		}
	}
	return nil
}

// simulate applies bounded transient pressure: memory pressure allocates
// and touches a buffer of up to 4 MiB, CPU pressure spins for up to 2ms.
func (r *ResourceExhaustion) simulate() {
	if r.intensity <= 0 {
		return
	}
	switch r.resource {
	case ResourceMemory:
		buf := make([]byte, int(r.intensity*float64(4<<20)))
		for i := 0; i < len(buf); i += 4096 {
			buf[i] = 1
		}
		runtime.KeepAlive(buf)
	case ResourceCPU:
		deadline := time.Now().Add(time.Duration(r.intensity * float64(2*time.Millisecond)))
		for time.Now().Before(deadline) {
		}
	}
}
