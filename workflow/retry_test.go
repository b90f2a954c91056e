package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/stepflow/policy"
)

// flakyLeaf fails until it has been executed failures times, then succeeds.
type flakyLeaf struct {
	Base
	failures int
	calls    int
	cause    error
}

func newFlakyLeaf(failures int, cause error) *flakyLeaf {
	return &flakyLeaf{Base: NewBase("flaky", "[Stub]"), failures: failures, cause: cause}
}

func (f *flakyLeaf) Execute(ctx context.Context, wctx *Context) *Result {
	return f.Run(ctx, wctx, func(_ context.Context, _ *Context, exec *Execution) *Result {
		f.calls++
		if f.calls <= f.failures {
			return exec.Failure(f.cause)
		}
		return exec.Success()
	})
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		leaf := newFlakyLeaf(2, errors.New("transient"))
		r := Must(NewRetry("stubborn", leaf, policy.LimitedRetries(3), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.Equal(t, 3, leaf.calls)
	})

	t.Run("exhausted budget returns the last failure verbatim", func(t *testing.T) {
		cause := errors.New("permanent")
		leaf := newFlakyLeaf(100, cause)
		r := Must(NewRetry("stubborn", leaf, policy.LimitedRetries(2), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
		// Initial attempt plus two retries.
		assert.Equal(t, 3, leaf.calls)
	})

	t.Run("no retries policy runs once", func(t *testing.T) {
		leaf := newFlakyLeaf(100, errors.New("always"))
		r := Must(NewRetry("oneshot", leaf, policy.NoRetries(), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.Equal(t, 1, leaf.calls)
	})

	t.Run("error filter blocks non-matching failures", func(t *testing.T) {
		errTransient := errors.New("transient")
		errFatal := errors.New("fatal")

		leaf := newFlakyLeaf(100, errFatal)
		r := Must(NewRetry("filtered", leaf,
			policy.LimitedRetriesFor(5, errTransient), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), errFatal)
		assert.Equal(t, 1, leaf.calls)
	})

	t.Run("error filter retries matching failures", func(t *testing.T) {
		errTransient := errors.New("transient")
		leaf := newFlakyLeaf(2, errTransient)
		r := Must(NewRetry("filtered", leaf,
			policy.LimitedRetriesFor(5, errTransient), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.Equal(t, 3, leaf.calls)
	})

	t.Run("skipped result returns immediately", func(t *testing.T) {
		leaf := newCountingLeaf("gate", StatusSkipped, nil)
		r := Must(NewRetry("no-retry-on-skip", leaf, policy.LimitedRetries(5), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.Equal(t, StatusSkipped, res.Status())
		assert.Equal(t, 1, leaf.Calls())
	})

	t.Run("on retry hook observes attempts and delays", func(t *testing.T) {
		var attempts []int
		var errs []error
		leaf := newFlakyLeaf(2, errors.New("transient"))
		r := Must(NewRetry("observed", leaf, policy.LimitedRetries(3),
			policy.ConstantBackoff(time.Millisecond))).
			WithOnRetry(func(attempt int, err error, delay time.Duration) {
				attempts = append(attempts, attempt)
				errs = append(errs, err)
			})

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.Equal(t, []int{1, 2}, attempts)
		require.Len(t, errs, 2)
		assert.ErrorContains(t, errs[0], "transient")
	})

	t.Run("cancellation during backoff aborts", func(t *testing.T) {
		leaf := newFlakyLeaf(100, errors.New("always"))
		r := Must(NewRetry("canceled", leaf, policy.LimitedRetries(10),
			policy.ConstantBackoff(time.Second)))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		started := time.Now()
		res := r.Execute(ctx, NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "retry canceled")
		assert.ErrorIs(t, res.Err(), context.DeadlineExceeded)
		assert.Less(t, time.Since(started), time.Second)
		assert.Equal(t, 1, leaf.calls)
	})

	t.Run("panicking inner workflow is retried", func(t *testing.T) {
		cause := errors.New("flaky panic")
		calls := 0
		leaf := &rawWorkflow{name: "wild", kind: "[Stub]", fn: func(context.Context, *Context) *Result {
			calls++
			if calls == 1 {
				panic(cause)
			}
			return newExecution(time.Now()).Success()
		}}
		r := Must(NewRetry("panic-retry", leaf, policy.LimitedRetries(2), policy.NoBackoff()))

		res := r.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.Equal(t, 2, calls)
	})

	t.Run("constructor validation", func(t *testing.T) {
		_, err := NewRetry("broken", nil, policy.NoRetries(), nil)
		assert.ErrorContains(t, err, "inner workflow is required")
	})
}
