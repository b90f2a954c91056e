// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/stepflow/workflow"
)

// Traced is a transparent tracing decorator: it keeps the inner workflow's
// identity and traversal and opens one span per execution, recording the
// outcome status and any failure cause on the span.
type Traced struct {
	inner  workflow.Workflow
	tracer trace.Tracer
}

// Trace decorates inner with the global tracer. A nil inner panics; the
// decorator has no identity of its own to report the error under.
func Trace(inner workflow.Workflow) *Traced {
	if inner == nil {
		panic("observability: nil workflow")
	}
	return &Traced{
		inner:  inner,
		tracer: otel.Tracer(instrumentationName),
	}
}

// Name forwards the inner workflow's name.
func (t *Traced) Name() string { return t.inner.Name() }

// Type forwards the inner workflow's type tag.
func (t *Traced) Type() string { return t.inner.Type() }

// SubWorkflows forwards traversal when the inner workflow is a Container.
func (t *Traced) SubWorkflows() []workflow.Workflow {
	if c, ok := t.inner.(workflow.Container); ok {
		return c.SubWorkflows()
	}
	return nil
}

// Execute runs the inner workflow inside a span named after it.
func (t *Traced) Execute(ctx context.Context, wctx *workflow.Context) *workflow.Result {
	ctx, span := t.tracer.Start(ctx, t.inner.Name(),
		trace.WithAttributes(
			attribute.String("workflow.name", t.inner.Name()),
			attribute.String("workflow.type", t.inner.Type()),
		),
	)
	defer span.End()

	started := time.Now()
	res := t.inner.Execute(ctx, wctx)
	if res == nil {
		res = workflow.NewExecution(started).Failure(
			fmt.Errorf("workflow %q returned nil result", t.inner.Name()))
	}

	span.SetAttributes(
		attribute.String("workflow.status", res.Status().String()),
		attribute.Float64("workflow.duration_ms", float64(res.Duration().Milliseconds())),
	)
	if err := res.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if res.IsSuccess() {
		span.SetStatus(codes.Ok, "")
	}

	return res
}
