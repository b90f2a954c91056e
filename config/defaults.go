// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

package config

// DefaultConfig returns the built-in defaults. They are complete enough to
// run without any config file.
func DefaultConfig() *Config {
	return &Config{
		App:       DefaultAppConfig(),
		Logging:   DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Engine:    DefaultEngineConfig(),
	}
}

// DefaultAppConfig returns the default application identity.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Name:        "stepflow",
		Environment: "development",
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
// Export is off until explicitly enabled.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "stepflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig returns the default metrics configuration. The
// collector records, but no listener starts until an address is set.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "stepflow",
		Addr:      "",
	}
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultTimeout: 0,
	}
}
