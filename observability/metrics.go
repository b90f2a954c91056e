// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/stepflow/workflow"
)

const instrumentationName = "github.com/BaSui01/stepflow"

// Metrics records workflow executions through the global OpenTelemetry
// meter. It satisfies workflow.ExecutionRecorder, so it plugs into
// workflow.NewInstrumented the same way the Prometheus collector does.
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter

	executionTotal    metric.Int64Counter
	executionDuration metric.Float64Histogram
}

var _ workflow.ExecutionRecorder = (*Metrics)(nil)

// NewMetrics builds the execution instruments against the global providers.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	var err error

	m.executionTotal, err = m.meter.Int64Counter("workflow.execution.total",
		metric.WithDescription("Total number of workflow executions"),
		metric.WithUnit("{execution}"))
	if err != nil {
		return nil, err
	}

	m.executionDuration, err = m.meter.Float64Histogram("workflow.execution.duration",
		metric.WithDescription("Workflow execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordExecution counts one execution and observes its duration.
func (m *Metrics) RecordExecution(name, kind string, status workflow.Status, duration time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("workflow.name", name),
		attribute.String("workflow.type", kind),
		attribute.String("workflow.status", status.String()),
	)
	m.executionTotal.Add(ctx, 1, attrs)
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("workflow.name", name),
		attribute.String("workflow.type", kind),
	))
}

// Tracer exposes the instrumentation tracer.
func (m *Metrics) Tracer() trace.Tracer {
	return m.tracer
}
