package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keySelector(key string) Selector {
	return func(context.Context, *Context) (string, error) { return key, nil }
}

func TestSwitch(t *testing.T) {
	t.Run("routes to the matching case", func(t *testing.T) {
		wctx := NewContext()
		sw := Must(NewSwitch("router", keySelector("csv"), []Case{
			{Key: "csv", Workflow: successTask(t, "parse-csv")},
			{Key: "json", Workflow: successTask(t, "parse-json")},
		}, nil))

		res := sw.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"parse-csv"}, traceOf(wctx))
	})

	t.Run("matches case-insensitively", func(t *testing.T) {
		for _, key := range []string{"ABC", "abc", "aBc"} {
			wctx := NewContext()
			sw := Must(NewSwitch("router", keySelector(key), []Case{
				{Key: "Abc", Workflow: successTask(t, "abc-branch")},
			}, nil))

			res := sw.Execute(context.Background(), wctx)
			require.True(t, res.IsSuccess(), "selector key %q", key)
			assert.Equal(t, []string{"abc-branch"}, traceOf(wctx))
		}
	})

	t.Run("last registration wins for equal folded keys", func(t *testing.T) {
		wctx := NewContext()
		sw := Must(NewSwitch("router", keySelector("abc"), []Case{
			{Key: "ABC", Workflow: successTask(t, "first")},
			{Key: "abc", Workflow: successTask(t, "second")},
		}, nil))

		res := sw.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"second"}, traceOf(wctx))
	})

	t.Run("unmatched key falls back to default", func(t *testing.T) {
		wctx := NewContext()
		sw := Must(NewSwitch("router", keySelector("xml"), []Case{
			{Key: "csv", Workflow: successTask(t, "parse-csv")},
		}, successTask(t, "default")))

		res := sw.Execute(context.Background(), wctx)
		require.True(t, res.IsSuccess())
		assert.Equal(t, []string{"default"}, traceOf(wctx))
	})

	t.Run("unmatched key without default is skipped", func(t *testing.T) {
		sw := Must(NewSwitch("router", keySelector("xml"), []Case{
			{Key: "csv", Workflow: successTask(t, "parse-csv")},
		}, nil))

		res := sw.Execute(context.Background(), NewContext())
		require.NotNil(t, res)
		assert.Equal(t, StatusSkipped, res.Status())
	})

	t.Run("selector error fails without running a branch", func(t *testing.T) {
		cause := errors.New("no key available")
		sel := func(context.Context, *Context) (string, error) { return "", cause }
		wctx := NewContext()
		sw := Must(NewSwitch("router", sel, []Case{
			{Key: "csv", Workflow: successTask(t, "parse-csv")},
		}, successTask(t, "default")))

		res := sw.Execute(context.Background(), wctx)
		require.True(t, res.IsFailure())
		assert.ErrorContains(t, res.Err(), "branch selector evaluation failed")
		assert.ErrorIs(t, res.Err(), cause)
		assert.Empty(t, traceOf(wctx))
	})

	t.Run("branch result returned verbatim", func(t *testing.T) {
		cause := errors.New("branch failed")
		sw := Must(NewSwitch("router", keySelector("bad"), []Case{
			{Key: "bad", Workflow: failureTask(t, "bad-branch", cause)},
		}, nil))

		res := sw.Execute(context.Background(), NewContext())
		require.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
	})

	t.Run("traversal omits shadowed cases", func(t *testing.T) {
		first := successTask(t, "first")
		second := successTask(t, "second")
		def := successTask(t, "default")
		sw := Must(NewSwitch("router", keySelector("abc"), []Case{
			{Key: "ABC", Workflow: first},
			{Key: "abc", Workflow: second},
		}, def))

		subs := sw.SubWorkflows()
		require.Len(t, subs, 2)
		assert.Equal(t, "second", subs[0].Name())
		assert.Equal(t, "default", subs[1].Name())
	})

	t.Run("constructor validation", func(t *testing.T) {
		_, err := NewSwitch("router", nil, nil, nil)
		assert.ErrorContains(t, err, "selector is required")

		_, err = NewSwitch("router", keySelector("a"), []Case{{Key: "a"}}, nil)
		assert.ErrorContains(t, err, "has no workflow")
	})
}

// mangleCase flips the case of the letters of s selected by mask.
func mangleCase(s string, mask int) string {
	var sb strings.Builder
	for i, r := range s {
		if mask&(1<<uint(i%31)) != 0 {
			sb.WriteString(strings.ToUpper(string(r)))
		} else {
			sb.WriteString(strings.ToLower(string(r)))
		}
	}
	return sb.String()
}

func TestProperty_SwitchMatchesAnyCasing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("any casing of a registered key selects its branch",
		prop.ForAll(func(mask int) bool {
			hit := newCountingLeaf("hit", StatusSuccess, nil)
			sw := Must(NewSwitch("router", keySelector(mangleCase("ingest", mask)), []Case{
				{Key: "Ingest", Workflow: hit},
			}, nil))

			res := sw.Execute(context.Background(), NewContext())
			return res != nil && res.IsSuccess() && hit.Calls() == 1
		}, gen.IntRange(0, 1<<6-1)),
	)

	properties.TestingRun(t)
}
