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

func sleepTask(name string, d time.Duration) Workflow {
	return &rawWorkflow{name: name, kind: "[Stub]", fn: func(ctx context.Context, _ *Context) *Result {
		exec := newExecution(time.Now())
		select {
		case <-time.After(d):
			return exec.Success()
		case <-ctx.Done():
			return exec.Failure(ctx.Err())
		}
	}}
}

func TestTimeout(t *testing.T) {
	t.Run("fast inner result returned verbatim", func(t *testing.T) {
		inner := successTask(t, "quick")
		to := Must(NewTimeout("bounded", inner, policy.OfMillis(500)))
		wctx := NewContext()

		res := to.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"quick"}, traceOf(wctx))
	})

	t.Run("inner failure within budget returned verbatim", func(t *testing.T) {
		cause := errors.New("fast failure")
		to := Must(NewTimeout("bounded", failureTask(t, "quick", cause), policy.OfMillis(500)))

		res := to.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
	})

	t.Run("expiry produces a timeout failure", func(t *testing.T) {
		to := Must(NewTimeout("bounded", sleepTask("slow", 300*time.Millisecond), policy.OfMillis(30)))

		started := time.Now()
		res := to.Execute(context.Background(), NewContext())
		elapsed := time.Since(started)

		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "timed out after")
		assert.Less(t, elapsed, 250*time.Millisecond, "combinator must not wait for the slow inner workflow")
	})

	t.Run("zero budget bypasses the goroutine and never times out", func(t *testing.T) {
		inner := sleepTask("slowish", 20*time.Millisecond)
		to := Must(NewTimeout("unbounded", inner, policy.NoTimeout()))

		res := to.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
	})

	t.Run("negative budget also bypasses", func(t *testing.T) {
		to := Must(NewTimeout("unbounded", successTask(t, "quick"), policy.OfMillis(-100)))
		res := to.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
	})

	t.Run("parent cancellation fails with the context error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		to := Must(NewTimeout("bounded", sleepTask("slow", 500*time.Millisecond), policy.OfMillis(5000)))

		res := to.Execute(ctx, NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), context.Canceled)
	})

	t.Run("inner panic within budget surfaces as the direct cause", func(t *testing.T) {
		cause := errors.New("exploded under budget")
		to := Must(NewTimeout("bounded", panicLeaf("volatile", cause), policy.OfMillis(500)))

		res := to.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.Same(t, cause, res.Err())
	})

	t.Run("inner observes the budget deadline", func(t *testing.T) {
		var sawDeadline bool
		inner := Must(NewTask("probe", func(ctx context.Context, _ *Context) error {
			_, sawDeadline = ctx.Deadline()
			return nil
		}))
		to := Must(NewTimeout("bounded", inner, policy.OfMillis(100)))

		res := to.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.True(t, sawDeadline)
	})

	t.Run("constructor validation", func(t *testing.T) {
		_, err := NewTimeout("bounded", nil, policy.OfMillis(10))
		assert.ErrorContains(t, err, "inner workflow is required")
	})
}
