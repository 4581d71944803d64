// Package telemetry builds the process logger, tracer and crash reporter from FASTECS_* environment
// variables.
package telemetry

import (
	"context"
	"time"

	"github.com/argus-labs/fastecs/pkg/telemetry/sentry"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const sentryFlushTimeout = 2 * time.Second

type Telemetry struct {
	Logger     zerolog.Logger
	Tracer     trace.Tracer
	InstanceID string

	serviceName string
	shutdown    func(context.Context) error
}

// New loads the environment configuration, applies opts on top of it, and sets up logging, tracing
// and crash reporting for the named service.
func New(ctx context.Context, serviceName string, opts ...Option) (Telemetry, error) {
	if serviceName == "" {
		return Telemetry{}, eris.New("service name cannot be empty")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.instanceID == "" {
		o.instanceID = uuid.NewString()
	}

	cfg, err := loadConfig()
	if err != nil {
		return Telemetry{}, err
	}
	for _, fn := range o.configure {
		fn(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Telemetry{}, eris.Wrap(err, "invalid telemetry config")
	}

	err = sentry.New(sentry.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Tags:        map[string]string{"service": serviceName, "instance_id": o.instanceID},
	})
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup crash reporting")
	}

	logger := newLogger(cfg.Log, o.output)
	tracer, shutdown, err := newTracer(ctx, serviceName, o.instanceID, cfg.Trace)
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup tracing")
	}
	if cfg.Trace.Enabled {
		logger.Debug().Str("endpoint", cfg.Trace.Endpoint).Float64("sample_rate", cfg.Trace.SampleRate).
			Msg("tracing enabled")
	}

	return Telemetry{
		Logger:      logger,
		Tracer:      tracer,
		InstanceID:  o.instanceID,
		serviceName: serviceName,
		shutdown:    shutdown,
	}, nil
}

// Shutdown flushes pending crash reports, then flushes and stops the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	sentry.Shutdown(ctx, sentryFlushTimeout)
	return shutdownTracer(ctx, t.shutdown)
}

func shutdownTracer(ctx context.Context, shutdown func(context.Context) error) error {
	if shutdown == nil {
		return nil
	}
	return eris.Wrap(shutdown(ctx), "failed to shut down tracer provider")
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// WithTrace adds the trace and span ids of the span recording in ctx, if any, to logger.
func WithTrace(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return logger
	}
	sc := span.SpanContext()
	return logger.With().Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String()).Logger()
}
