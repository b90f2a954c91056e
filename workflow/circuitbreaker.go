package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is the cause carried by FAILED results for executions the
// circuit breaker rejected without running the inner workflow.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState is the breaker's position in its state machine.
type CircuitState int

const (
	// CircuitClosed admits every execution.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects every execution until the open timeout elapses.
	CircuitOpen
	// CircuitHalfOpen admits a limited number of probe executions.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes the breaker state machine. Zero or negative
// fields fall back to the defaults.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from closed to open.
	FailureThreshold int `json:"failure_threshold"`
	// OpenTimeout is how long the breaker stays open before admitting
	// half-open probes.
	OpenTimeout time.Duration `json:"open_timeout"`
	// HalfOpenMaxCalls bounds the number of probe executions admitted
	// while half-open.
	HalfOpenMaxCalls int `json:"half_open_max_calls"`
	// SuccessThreshold is the number of consecutive half-open successes
	// that closes the breaker again.
	SuccessThreshold int `json:"success_threshold"`
}

// DefaultCircuitBreakerConfig returns the default tuning.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.HalfOpenMaxCalls < 1 {
		c.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if c.SuccessThreshold < 1 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	return c
}

// CircuitBreaker guards one workflow with a closed/open/half-open state
// machine. Consecutive failures trip it open; while open every execution is
// rejected with a FAILED result carrying ErrCircuitOpen and the inner
// workflow never runs. After the open timeout a bounded number of probes is
// admitted, and enough consecutive probe successes close the breaker again.
// SKIPPED results move no counters.
type CircuitBreaker struct {
	Base
	inner  Workflow
	config CircuitBreakerConfig

	mu            sync.RWMutex
	state         CircuitState
	failures      int
	successes     int
	probes        int
	lastFailureAt time.Time
	onStateChange func(from, to CircuitState, reason string)
}

// NewCircuitBreaker builds a "[CircuitBreaker]" guarding inner.
func NewCircuitBreaker(name string, inner Workflow, cfg CircuitBreakerConfig) (*CircuitBreaker, error) {
	if inner == nil {
		return nil, fmt.Errorf("circuit breaker %q: inner workflow is required", name)
	}
	return &CircuitBreaker{
		Base:   NewBase(name, "[CircuitBreaker]"),
		inner:  inner,
		config: cfg.withDefaults(),
		state:  CircuitClosed,
	}, nil
}

// WithOnStateChange installs a hook invoked asynchronously on every state
// transition. Configure before the first Execute.
func (cb *CircuitBreaker) WithOnStateChange(fn func(from, to CircuitState, reason string)) *CircuitBreaker {
	cb.onStateChange = fn
	return cb
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset forces the breaker back to closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitClosed {
		cb.transitionTo(CircuitClosed, "manual reset")
	}
	cb.failures = 0
	cb.successes = 0
	cb.probes = 0
}

// SubWorkflows returns the guarded workflow.
func (cb *CircuitBreaker) SubWorkflows() []Workflow {
	return []Workflow{cb.inner}
}

// Execute admits or rejects per the state machine, delegates when admitted,
// and feeds the outcome back into the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, wctx *Context) *Result {
	return cb.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		if err := cb.allow(); err != nil {
			return exec.Failure(err)
		}
		res := safeExecute(ctx, wctx, cb.inner)
		if res == nil {
			cb.recordFailure()
			return nilResultFailure(exec, cb.inner)
		}
		switch {
		case res.IsSuccess():
			cb.recordSuccess()
		case res.IsFailure():
			cb.recordFailure()
		}
		return res
	})
}

// allow decides whether the current execution may proceed.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil

	case CircuitOpen:
		if time.Since(cb.lastFailureAt) >= cb.config.OpenTimeout {
			cb.transitionTo(CircuitHalfOpen, "open timeout elapsed")
			cb.successes = 0
			cb.probes = 1
			return nil
		}
		return fmt.Errorf("%w: workflow %q rejected after %d consecutive failures, retry in %s",
			ErrCircuitOpen, cb.inner.Name(), cb.failures,
			cb.config.OpenTimeout-time.Since(cb.lastFailureAt))

	case CircuitHalfOpen:
		if cb.probes < cb.config.HalfOpenMaxCalls {
			cb.probes++
			return nil
		}
		return fmt.Errorf("%w: workflow %q half-open, probe budget (%d) exhausted",
			ErrCircuitOpen, cb.inner.Name(), cb.config.HalfOpenMaxCalls)

	default:
		return fmt.Errorf("unknown circuit state: %d", cb.state)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0

	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed, fmt.Sprintf("%d consecutive successes in half-open", cb.successes))
			cb.failures = 0
			cb.successes = 0
			cb.probes = 0
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureAt = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen, fmt.Sprintf("%d consecutive failures", cb.failures))
		}

	case CircuitHalfOpen:
		cb.successes = 0
		cb.transitionTo(CircuitOpen, "failure in half-open state")
	}
}

// transitionTo must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(to CircuitState, reason string) {
	from := cb.state
	cb.state = to

	cb.Logger().Info("circuit breaker state change",
		zap.String("workflow", cb.Name()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason),
		zap.Int("failures", cb.failures),
	)
	if cb.onStateChange != nil {
		// Asynchronous so a hook touching the breaker cannot deadlock.
		go cb.onStateChange(from, to, reason)
	}
}
