// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package telemetry wraps OpenTelemetry SDK setup for traces and metrics.
// When telemetry is disabled no exporters are created and the global
// providers remain noop. This package is internal and should not be
// imported by external projects.
package telemetry
