// Package sentry reports panics and failed runs to Sentry. Every function is a no-op until New is
// called with a DSN.
package sentry

import (
	"context"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"
)

// flushTimeout bounds how long a recovered panic waits for its event to be delivered.
const flushTimeout = 5 * time.Second

type Options struct {
	DSN         string
	Environment string
	Tags        map[string]string

	transport sentrygo.Transport // Replaces the HTTP transport in tests
}

// New initializes the global Sentry client. Reporting stays disabled when the DSN is empty.
func New(opt Options) error {
	if opt.DSN == "" {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         opt.DSN,
		Environment: opt.Environment,
		Tags:        opt.Tags,
		Transport:   opt.transport,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize sentry")
	}
	return nil
}

// RecoverAndFlush reports a panic in progress and flushes pending events. It must be deferred
// directly. With repanic set the panic resumes after the flush. When reporting is disabled the
// panic is left alone.
func RecoverAndFlush(repanic bool) {
	if !enabled() {
		return
	}
	r := recover()
	if r != nil {
		sentrygo.CurrentHub().Recover(r)
	}
	sentrygo.Flush(flushTimeout)
	if r != nil && repanic {
		panic(r)
	}
}

// CaptureException reports a handled error, tagged with the trace and span of ctx if any.
func CaptureException(ctx context.Context, err error) {
	if !enabled() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			scope.SetTag("trace_id", sc.TraceID().String())
			scope.SetTag("span_id", sc.SpanID().String())
		}
		sentrygo.CaptureException(err)
	})
}

// Shutdown flushes pending events, waiting at most timeout or until the ctx deadline, whichever
// comes first.
func Shutdown(ctx context.Context, timeout time.Duration) {
	if !enabled() {
		return
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	sentrygo.Flush(timeout)
}

func enabled() bool {
	return sentrygo.CurrentHub().Client() != nil
}
