package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPredicate(v bool) Predicate {
	return func(context.Context, *Context) (bool, error) { return v, nil }
}

func TestConditional(t *testing.T) {
	t.Run("true runs the true branch", func(t *testing.T) {
		wctx := NewContext()
		cond := Must(NewConditional("gate", boolPredicate(true),
			successTask(t, "yes"), successTask(t, "no")))

		res := cond.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"yes"}, traceOf(wctx))
	})

	t.Run("false runs the false branch", func(t *testing.T) {
		wctx := NewContext()
		cond := Must(NewConditional("gate", boolPredicate(false),
			successTask(t, "yes"), successTask(t, "no")))

		res := cond.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"no"}, traceOf(wctx))
	})

	t.Run("branch result returned verbatim", func(t *testing.T) {
		cause := errors.New("branch broke")
		cond := Must(NewConditional("gate", boolPredicate(true),
			failureTask(t, "yes", cause), nil))

		res := cond.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
	})

	t.Run("absent branch is skipped", func(t *testing.T) {
		cond := Must(NewConditional("gate", boolPredicate(false),
			successTask(t, "yes"), nil))

		res := cond.Execute(context.Background(), NewContext())
		require.NotNil(t, res)
		assert.Equal(t, StatusSkipped, res.Status())
		assert.NoError(t, res.Err())
	})

	t.Run("predicate error fails without running a branch", func(t *testing.T) {
		cause := errors.New("lookup exploded")
		pred := func(context.Context, *Context) (bool, error) { return false, cause }
		wctx := NewContext()
		cond := Must(NewConditional("gate", pred,
			successTask(t, "yes"), successTask(t, "no")))

		res := cond.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "condition evaluation failed")
		assert.ErrorIs(t, res.Err(), cause)
		assert.Empty(t, traceOf(wctx))
	})

	t.Run("predicate reads the live context", func(t *testing.T) {
		pred := func(_ context.Context, wctx *Context) (bool, error) {
			return ValueOr(wctx, "count", 0) > 3, nil
		}
		wctx := NewContext()
		wctx.Put("count", 5)
		cond := Must(NewConditional("gate", pred, successTask(t, "yes"), successTask(t, "no")))

		res := cond.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"yes"}, traceOf(wctx))
	})

	t.Run("constructor validation", func(t *testing.T) {
		_, err := NewConditional("gate", nil, successTask(t, "yes"), nil)
		assert.ErrorContains(t, err, "predicate is required")

		_, err = NewConditional("gate", boolPredicate(true), nil, nil)
		assert.ErrorContains(t, err, "at least one branch is required")
	})
}
