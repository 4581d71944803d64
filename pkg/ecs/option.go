package ecs

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures a World.
type Option func(*worldOptions)

type worldOptions struct {
	config    *Config
	logger    zerolog.Logger
	tracer    trace.Tracer
	allocator Allocator
}

func newDefaultOptions() worldOptions {
	return worldOptions{
		config:    nil,
		logger:    zerolog.Nop(),
		tracer:    noop.NewTracerProvider().Tracer("fastecs"),
		allocator: HeapAllocator{},
	}
}

// WithConfig uses the given limits instead of loading them from the environment.
func WithConfig(cfg Config) Option {
	return func(opt *worldOptions) {
		opt.config = &cfg
	}
}

// WithLogger sets the logger of the world's debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(opt *worldOptions) {
		opt.logger = logger
	}
}

// WithTracer sets the tracer used to trace job runs.
func WithTracer(tracer trace.Tracer) Option {
	return func(opt *worldOptions) {
		if tracer != nil {
			opt.tracer = tracer
		}
	}
}

// WithAllocator sets the allocator of chunk memory.
func WithAllocator(allocator Allocator) Option {
	return func(opt *worldOptions) {
		if allocator != nil {
			opt.allocator = allocator
		}
	}
}
