package telemetry

import (
	"io"
)

type options struct {
	instanceID string
	output     io.Writer
	configure  []func(*Config)
}

// Option overrides part of the environment configuration.
type Option func(*options)

// WithInstanceID sets the id identifying this process in traces. A random UUID is used otherwise.
func WithInstanceID(id string) Option {
	return func(o *options) { o.instanceID = id }
}

// WithOutput sends log output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithLogLevel overrides FASTECS_LOG_LEVEL.
func WithLogLevel(level string) Option {
	return func(o *options) {
		o.configure = append(o.configure, func(cfg *Config) { cfg.Log.Level = level })
	}
}

// WithLogFormat overrides FASTECS_LOG_FORMAT.
func WithLogFormat(format LogFormat) Option {
	return func(o *options) {
		o.configure = append(o.configure, func(cfg *Config) { cfg.Log.Format = format })
	}
}

// WithTracing overrides the FASTECS_OTEL_* settings.
func WithTracing(trace TraceConfig) Option {
	return func(o *options) {
		o.configure = append(o.configure, func(cfg *Config) { cfg.Trace = trace })
	}
}

// WithSentry overrides the FASTECS_SENTRY_* settings.
func WithSentry(cfg SentryConfig) Option {
	return func(o *options) {
		o.configure = append(o.configure, func(c *Config) { c.Sentry = cfg })
	}
}
