package telemetry

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config is the environment configuration of the logger and the tracer.
type Config struct {
	Log    LogConfig    `envPrefix:"FASTECS_LOG_"`
	Trace  TraceConfig  `envPrefix:"FASTECS_OTEL_"`
	Sentry SentryConfig `envPrefix:"FASTECS_SENTRY_"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `env:"LEVEL" envDefault:"info"`

	// Format is "json" or "pretty".
	Format LogFormat `env:"FORMAT" envDefault:"json"`
}

// TraceConfig configures the OTLP trace exporter.
type TraceConfig struct {
	// Enabled when false installs a noop tracer.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `env:"ENDPOINT" envDefault:"localhost:4317"`

	// SampleRate is the fraction of root spans recorded, between 0 and 1.
	SampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// Insecure disables TLS to the collector.
	Insecure bool `env:"INSECURE" envDefault:"true"`
}

// SentryConfig configures crash reporting. Reporting is disabled without a DSN.
type SentryConfig struct {
	DSN string `env:"DSN"`

	// Environment separates development from production events (DEV/PROD).
	Environment string `env:"ENV" envDefault:"DEV"`
}

// loadConfig reads the configuration from the environment.
func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse telemetry config")
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil || cfg.Log.Level == "" {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.Log.Level)
	}
	if cfg.Log.Format == LogFormatUndefined {
		return eris.New("log format must be 'json' or 'pretty'")
	}

	if !cfg.Trace.Enabled {
		return nil
	}
	if cfg.Trace.Endpoint == "" {
		return eris.New("OTLP endpoint cannot be empty when tracing is enabled")
	}
	if cfg.Trace.SampleRate < 0 || cfg.Trace.SampleRate > 1 {
		return eris.Errorf("trace sample rate %v is outside [0, 1]", cfg.Trace.SampleRate)
	}
	return nil
}

// LogFormat is the log output encoding.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota
	LogFormatJSON                // Structured JSON lines
	LogFormatPretty              // Human-readable console output
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatJSON:
		return "json"
	case LogFormatPretty:
		return "pretty"
	case LogFormatUndefined:
		return "undefined"
	default:
		return "undefined"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *LogFormat) UnmarshalText(text []byte) error {
	*f = ParseLogFormat(string(text))
	if *f == LogFormatUndefined {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", text)
	}
	return nil
}

// ParseLogFormat converts a format name, case-insensitively, to a LogFormat.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	case "pretty":
		return LogFormatPretty
	default:
		return LogFormatUndefined
	}
}
