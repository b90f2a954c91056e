package interpolate

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/stepflow/workflow"
)

// TemplateWorkflow is a "[Template]" leaf rendering a template against the
// live workflow context and writing the resolved string back under a
// configured key.
type TemplateWorkflow struct {
	workflow.Base
	engine    *Engine
	tpl       string
	outputKey string
}

// NewWorkflow builds a template leaf writing its rendition to outputKey.
func NewWorkflow(name, tpl, outputKey string) (*TemplateWorkflow, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, fmt.Errorf("template %q: template text is required", name)
	}
	if strings.TrimSpace(outputKey) == "" {
		return nil, fmt.Errorf("template %q: output key is required", name)
	}
	return &TemplateWorkflow{
		Base:      workflow.NewBase(name, "[Template]"),
		engine:    New(),
		tpl:       tpl,
		outputKey: outputKey,
	}, nil
}

// Execute renders against a context snapshot; render errors, including
// missing keys, surface as FAILED results.
func (t *TemplateWorkflow) Execute(ctx context.Context, wctx *workflow.Context) *workflow.Result {
	return t.Run(ctx, wctx, func(_ context.Context, wctx *workflow.Context, exec *workflow.Execution) *workflow.Result {
		out, err := t.engine.Render(t.Name(), t.tpl, wctx.Snapshot())
		if err != nil {
			return exec.Failure(err)
		}
		wctx.Put(t.outputKey, out)
		return exec.Success()
	})
}
