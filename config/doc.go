// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package config loads engine configuration from YAML with environment
// variable override. Precedence: built-in defaults, then the config file,
// then STEPFLOW_* environment variables applied through env struct tags.
package config
