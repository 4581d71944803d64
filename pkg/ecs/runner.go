package ecs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Run prepares the job on the context and executes it on workers goroutines that exit once the
// cycle completes. Goroutine i passes locals[i], if present, to Execute. Worker indices are claimed
// in start order, so a local is not tied to a particular set of segments. A panic inside a callback
// is returned as an error, and the job is then left executing and must be discarded.
func Run(ctx context.Context, c *Context, job Executor, workers int, locals ...any) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "job run cancelled")
	}
	if len(locals) > workers {
		return eris.Errorf("got %d local arguments for %d workers", len(locals), workers)
	}

	_, span := c.world.tracer.Start(ctx, "ecs.job.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("context", int(c.id)),
			attribute.Int("workers", workers),
		))
	defer span.End()

	job.Prepare(c, workers)

	g := new(errgroup.Group)
	for i := range workers {
		var local any
		if i < len(locals) {
			local = locals[i]
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = eris.Errorf("job worker panicked: %v", r)
				}
			}()
			job.Execute(local)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return eris.Wrap(err, "job run failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
