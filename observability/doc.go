// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package observability provides OpenTelemetry instrumentation for workflow
// executions: a metric recorder backed by the global meter and a tracing
// decorator that opens one span per execution. Both read the global
// providers, so they are noop until an SDK is installed, for example via
// internal/telemetry.
package observability
