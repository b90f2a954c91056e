// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/workflow"
)

// DefaultNamespace prefixes metric names when no namespace is configured.
const DefaultNamespace = "stepflow"

// Collector records workflow execution outcomes as Prometheus metrics. It
// satisfies workflow.ExecutionRecorder, so any workflow wrapped in
// workflow.NewInstrumented reports through it.
type Collector struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec

	logger *zap.Logger
}

var _ workflow.ExecutionRecorder = (*Collector)(nil)

// NewCollector registers the execution metrics under namespace on the
// default registry. Registering the same namespace twice panics, as usual
// for promauto.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"workflow", "type", "status"},
	)

	c.executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_execution_duration_seconds",
			Help:      "Workflow execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"workflow", "type"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordExecution counts one execution and observes its duration.
func (c *Collector) RecordExecution(name, kind string, status workflow.Status, duration time.Duration) {
	c.executionsTotal.WithLabelValues(name, kind, status.String()).Inc()
	c.executionDuration.WithLabelValues(name, kind).Observe(duration.Seconds())
}
