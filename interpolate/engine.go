package interpolate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/BaSui01/stepflow/workflow"
)

// Engine parses and renders templates with a fixed function map.
type Engine struct {
	funcs template.FuncMap
}

// New creates an engine with the Sprig function map. Functions that access
// the environment the engine runs in are removed, since templates typically
// come from flow definitions written by someone else.
func New() *Engine {
	f := sprig.TxtFuncMap()
	for _, fn := range []string{"env", "expandenv", "base", "dir", "clean", "ext", "isAbs"} {
		delete(f, fn)
	}
	return &Engine{funcs: f}
}

// Render parses tpl in strict mode and renders it against data. Missing
// keys are errors, not "<no value>".
func (e *Engine) Render(name, tpl string, data map[string]any) (string, error) {
	t := template.New(name).Option("missingkey=error").Funcs(e.funcs)
	if _, err := t.Parse(tpl); err != nil {
		return "", fmt.Errorf("parsing template %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return buf.String(), nil
}

// defaultEngine backs the package-level helpers.
var defaultEngine = New()

// Render renders tpl against data on the shared default engine.
func Render(tpl string, data map[string]any) (string, error) {
	return defaultEngine.Render("inline", tpl, data)
}

// RenderContext renders tpl against a snapshot of the workflow context.
func RenderContext(tpl string, wctx *workflow.Context) (string, error) {
	if wctx == nil {
		return Render(tpl, nil)
	}
	return Render(tpl, wctx.Snapshot())
}
