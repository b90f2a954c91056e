package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	t.Run("iterates a slice in order", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("files", []string{"a.csv", "b.csv", "c.csv"})

		body := Must(NewTask("record", func(_ context.Context, wctx *Context) error {
			appendTrace(wctx, ValueOr(wctx, "file", ""))
			return nil
		}))
		fe := Must(NewForEach("ingest", "files", "file", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"a.csv", "b.csv", "c.csv"}, traceOf(wctx))
	})

	t.Run("failure stops iteration and keeps loop variables", func(t *testing.T) {
		cause := errors.New("refused")
		wctx := NewContext()
		wctx.Put("items", []string{"A", "B", "C"})

		body := Must(NewTask("check", func(_ context.Context, wctx *Context) error {
			item := ValueOr(wctx, "item", "")
			appendTrace(wctx, item)
			if item == "B" {
				return cause
			}
			return nil
		}))
		fe := Must(NewForEach("scan", "items", "item", body)).WithIndexVar("idx")

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
		assert.Equal(t, []string{"A", "B"}, traceOf(wctx))
		assert.Equal(t, "B", ValueOr(wctx, "item", ""))
		assert.Equal(t, 1, ValueOr(wctx, "idx", -1))
	})

	t.Run("missing collection succeeds with zero runs", func(t *testing.T) {
		body := newCountingLeaf("body", StatusSuccess, nil)
		fe := Must(NewForEach("scan", "absent", "item", body))

		res := fe.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
		assert.Equal(t, 0, body.Calls())
	})

	t.Run("nil collection succeeds with zero runs", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("items", nil)
		body := newCountingLeaf("body", StatusSuccess, nil)
		fe := Must(NewForEach("scan", "items", "item", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, 0, body.Calls())
	})

	t.Run("empty collection succeeds with zero runs", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("items", []int{})
		body := newCountingLeaf("body", StatusSuccess, nil)
		fe := Must(NewForEach("scan", "items", "item", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, 0, body.Calls())
	})

	t.Run("array works like a slice", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("nums", [3]int{10, 20, 30})
		sum := 0
		body := Must(NewTask("sum", func(_ context.Context, wctx *Context) error {
			sum += ValueOr(wctx, "n", 0)
			return nil
		}))
		fe := Must(NewForEach("total", "nums", "n", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, 60, sum)
	})

	t.Run("non-collection value fails", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("items", "not a slice")
		body := newCountingLeaf("body", StatusSuccess, nil)
		fe := Must(NewForEach("scan", "items", "item", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "want slice or array")
		assert.Equal(t, 0, body.Calls())
	})

	t.Run("index variable only written when configured", func(t *testing.T) {
		wctx := NewContext()
		wctx.Put("items", []int{1, 2})
		body := Must(NewTask("noop", func(context.Context, *Context) error { return nil }))
		fe := Must(NewForEach("scan", "items", "item", body))

		res := fe.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.False(t, wctx.Has("idx"))
	})

	t.Run("constructor validation", func(t *testing.T) {
		body := Must(NewTask("noop", func(context.Context, *Context) error { return nil }))
		cases := []struct {
			name     string
			itemsKey string
			itemVar  string
			body     Workflow
			wantErr  string
		}{
			{"blank items key", " ", "item", body, "items key is required"},
			{"blank item var", "items", "", body, "item variable is required"},
			{"nil body", "items", "item", nil, "body workflow is required"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewForEach("scan", tc.itemsKey, tc.itemVar, tc.body)
				assert.ErrorContains(t, err, tc.wantErr)
			})
		}
	})
}

func TestForEachNestedComposition(t *testing.T) {
	// A ForEach whose body is itself a Sequential, mirroring how trees nest.
	wctx := NewContext()
	wctx.Put("batches", []int{1, 2})

	inner := Must(NewSequential("per-batch",
		Must(NewTask("label", func(_ context.Context, wctx *Context) error {
			appendTrace(wctx, fmt.Sprintf("batch-%d", ValueOr(wctx, "batch", 0)))
			return nil
		})),
	))
	fe := Must(NewForEach("batches", "batches", "batch", inner))

	res := fe.Execute(context.Background(), wctx)
	require.True(t, res.IsSuccess())
	assert.Equal(t, []string{"batch-1", "batch-2"}, traceOf(wctx))
}
