package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putTask(t *testing.T, name, key string, value any) Workflow {
	t.Helper()
	task, err := NewTask(name, func(_ context.Context, wctx *Context) error {
		wctx.Put(key, value)
		return nil
	})
	require.NoError(t, err)
	return task
}

func TestParallel(t *testing.T) {
	t.Run("successful branch writes merge back", func(t *testing.T) {
		p := Must(NewParallel("fanout",
			putTask(t, "a", "from-a", 1),
			putTask(t, "b", "from-b", 2),
		))
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, 1, ValueOr(wctx, "from-a", 0))
		assert.Equal(t, 2, ValueOr(wctx, "from-b", 0))
	})

	t.Run("isolation hides concurrent sibling writes", func(t *testing.T) {
		sawSibling := false
		probe := Must(NewTask("probe", func(_ context.Context, wctx *Context) error {
			// Give the sibling time to write its own clone.
			time.Sleep(20 * time.Millisecond)
			sawSibling = wctx.Has("from-writer")
			return nil
		}))
		p := Must(NewParallel("fanout", putTask(t, "writer", "from-writer", 1), probe))
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.False(t, sawSibling, "clones must not leak between branches")
		assert.True(t, wctx.Has("from-writer"), "merge still lands in the parent")
	})

	t.Run("failed branch does not merge", func(t *testing.T) {
		failing := Must(NewTask("failing", func(_ context.Context, wctx *Context) error {
			wctx.Put("poison", true)
			return errors.New("branch failed")
		}))
		p := Must(NewParallel("fanout", putTask(t, "ok", "good", 1), failing))
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.False(t, wctx.Has("poison"))
		assert.True(t, wctx.Has("good"), "successful siblings still merge")
	})

	t.Run("first non-success in registration order wins", func(t *testing.T) {
		errFirst := errors.New("first error")
		errSecond := errors.New("second error")
		p := Must(NewParallel("fanout",
			statusLeaf("a", StatusFailed, errFirst),
			statusLeaf("b", StatusFailed, errSecond),
			statusLeaf("c", StatusSuccess, nil),
		))

		res := p.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), errFirst)
	})

	t.Run("all branches run to completion despite a failure", func(t *testing.T) {
		var ran atomic.Int32
		mk := func(fail bool) Workflow {
			return Must(NewTask("branch", func(context.Context, *Context) error {
				ran.Add(1)
				if fail {
					return errors.New("nope")
				}
				return nil
			}))
		}
		p := Must(NewParallel("fanout", mk(true), mk(false), mk(false), mk(true)))

		res := p.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.Equal(t, int32(4), ran.Load())
	})

	t.Run("share context exposes sibling writes to the parent handle", func(t *testing.T) {
		p := Must(NewParallel("fanout",
			putTask(t, "a", "from-a", 1),
			putTask(t, "b", "from-b", 2),
		)).WithIsolation(ShareContext)
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.True(t, wctx.Has("from-a"))
		assert.True(t, wctx.Has("from-b"))
	})

	t.Run("isolate and discard drops all branch writes", func(t *testing.T) {
		p := Must(NewParallel("fanout",
			putTask(t, "a", "from-a", 1),
		)).WithIsolation(IsolateAndDiscard)
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.False(t, wctx.Has("from-a"))
	})

	t.Run("merge error strategy fails on collision", func(t *testing.T) {
		p := Must(NewParallel("fanout",
			putTask(t, "a", "shared", 1),
			putTask(t, "b", "shared", 2),
		)).WithMergeStrategy(MergeError)
		wctx := NewContext()
		wctx.Put("shared", 0)

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "merging branch")
	})

	t.Run("panicking branch contained", func(t *testing.T) {
		cause := errors.New("branch exploded")
		p := Must(NewParallel("fanout", panicLeaf("wild", cause), putTask(t, "ok", "good", 1)))
		wctx := NewContext()

		res := p.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.Same(t, cause, res.Err())
		assert.True(t, wctx.Has("good"))
	})

	t.Run("nil branch result synthesized", func(t *testing.T) {
		p := Must(NewParallel("fanout", nilLeaf("void")))
		res := p.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "nil result")
	})

	t.Run("empty parallel succeeds", func(t *testing.T) {
		p := Must(NewParallel("empty"))
		res := p.Execute(context.Background(), NewContext())
		require.True(t, res.IsSuccess())
	})

	t.Run("nil branch rejected at construction", func(t *testing.T) {
		_, err := NewParallel("fanout", nil)
		assert.ErrorContains(t, err, "branch 0 is nil")
	})
}
