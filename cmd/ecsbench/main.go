// Command ecsbench populates a world with moving entities and advances them with parallel jobs.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/argus-labs/fastecs/pkg/ecs"
	"github.com/argus-labs/fastecs/pkg/telemetry"
	"github.com/argus-labs/fastecs/pkg/telemetry/sentry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	entities  int
	contexts  int
	frames    int
	workers   int
	partition string
	seed      uint64
	stats     bool
	profile   string
	profDir   string
}

func main() {
	var opts options
	flag.IntVarP(&opts.entities, "entities", "n", 100_000, "entities created in every context")
	flag.IntVarP(&opts.contexts, "contexts", "c", 1, "number of contexts")
	flag.IntVarP(&opts.frames, "frames", "f", 60, "frames to simulate")
	flag.IntVarP(&opts.workers, "workers", "w", runtime.GOMAXPROCS(0), "workers per job")
	flag.StringVar(&opts.partition, "partition", "", "partition method override (split or whole)")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed of the initial state")
	flag.BoolVar(&opts.stats, "stats", false, "print the world stats as JSON when done")
	flag.StringVar(&opts.profile, "profile", "", "pprof profile to record (cpu, mem, allocs, mutex or trace)")
	flag.StringVar(&opts.profDir, "profile-dir", ".", "directory the profile is written to")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, true))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	tel, err := telemetry.New(ctx, "ecsbench")
	if err != nil {
		return eris.Wrap(err, "failed to initialize telemetry")
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			tel.Logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()
	defer sentry.RecoverAndFlush(true)
	logger := tel.GetLogger("bench").With().Str("run", tel.InstanceID).Logger()

	cfg, err := ecs.LoadConfig()
	if err != nil {
		return eris.Wrap(err, "failed to load engine config")
	}
	if opts.partition != "" {
		if err := cfg.Partition.UnmarshalText([]byte(opts.partition)); err != nil {
			return eris.Wrap(err, "invalid --partition")
		}
	}
	if opts.workers < 1 || opts.workers > cfg.MaxWorkers {
		return eris.Errorf("--workers must be between 1 and %d", cfg.MaxWorkers)
	}

	world, err := ecs.NewWorld(
		ecs.WithConfig(cfg),
		ecs.WithLogger(tel.GetLogger("ecs")),
		ecs.WithTracer(tel.Tracer),
	)
	if err != nil {
		return eris.Wrap(err, "failed to create world")
	}
	defer world.Release()

	prof, err := startProfile(opts.profile, opts.profDir)
	if err != nil {
		return err
	}
	defer prof.Stop()

	contexts, ages, err := populate(world, opts)
	if err != nil {
		return err
	}
	logger.Info().Int("contexts", opts.contexts).Int("entities", opts.entities).
		Int("archetypes", world.Catalog().Len()).Int64("age_sum", ages).Msg("world populated")

	if err := simulate(ctx, world, contexts, opts, tel.Tracer, logger); err != nil {
		return err
	}

	var check int64
	ecs.Each1(world, func(_ *ecs.Entity, p *Profile) { check += int64(p.Age) })
	if check != ages {
		return eris.Errorf("age sum changed from %d to %d", ages, check)
	}

	if opts.stats {
		data, err := world.StatsJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data)) //nolint:forbidigo // command output
	}
	return nil
}

// populate creates the contexts and their entities. Every fourth entity has no velocity and is
// skipped by the movement job.
func populate(world *ecs.World, opts options) ([]*ecs.Context, int64, error) {
	position := ecs.MustRegister[Position](world)
	velocity := ecs.MustRegister[Velocity](world)
	profile := ecs.MustRegister[Profile](world)

	moving := world.CreateArchetype(profile, position, velocity)
	static := world.CreateArchetype(profile, position)

	r := rand.New(rand.NewPCG(opts.seed, opts.seed)) //nolint:gosec // benchmark data
	var ages int64
	contexts := make([]*ecs.Context, 0, opts.contexts)
	for range opts.contexts {
		c, err := world.CreateContext()
		if err != nil {
			return nil, 0, eris.Wrap(err, "failed to create context")
		}
		contexts = append(contexts, c)

		for i := range opts.entities {
			p := Profile{Age: r.Int32N(100)}
			ages += int64(p.Age)
			pos := Position{Vec3{X: r.Float32() * 100, Y: r.Float32() * 100}}
			if i%4 == 3 {
				c.CreateEntity(static, ecs.With(p), ecs.With(pos))
				continue
			}
			vel := Velocity{Vec3{X: r.Float32() - 0.5, Y: r.Float32() - 0.5}}
			c.CreateEntity(moving, ecs.With(p), ecs.With(pos), ecs.With(vel))
		}
	}
	return contexts, ages, nil
}

// simulate advances every moving entity once per frame. Each frame is traced as the parent of its
// job runs.
func simulate(
	ctx context.Context, world *ecs.World, contexts []*ecs.Context, opts options,
	tracer trace.Tracer, logger zerolog.Logger,
) error {
	const dt = 1.0 / 60

	job := ecs.NewParallelJob(ecs.Query2[Position, Velocity](world), func(_ *ecs.Entity, row ecs.Row) {
		pos := ecs.Field[Position](row, 0)
		vel := ecs.Field[Velocity](row, 1)
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		pos.Z += vel.Z * dt
		row.Local.(*Stats).Moved++
	})

	locals := make([]any, opts.workers)
	stats := make([]Stats, opts.workers)
	for i := range stats {
		locals[i] = &stats[i]
	}

	start := time.Now()
	for frame := range opts.frames {
		if err := runFrame(ctx, tracer, logger, frame, contexts, job, opts.workers, locals); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	moved := 0
	for _, s := range stats {
		moved += s.Moved
	}
	perFrame := time.Duration(0)
	if opts.frames > 0 {
		perFrame = elapsed / time.Duration(opts.frames)
	}
	logger.Info().Int("frames", opts.frames).Int("workers", opts.workers).Int("updates", moved).
		Dur("elapsed", elapsed).Dur("per_frame", perFrame).Msg("simulation done")
	return nil
}

func runFrame(
	ctx context.Context, tracer trace.Tracer, logger zerolog.Logger, frame int,
	contexts []*ecs.Context, job ecs.Executor, workers int, locals []any,
) error {
	ctx, span := tracer.Start(ctx, "ecsbench.frame", trace.WithAttributes(attribute.Int("frame", frame)))
	defer span.End()

	start := time.Now()
	for _, c := range contexts {
		if err := ecs.Run(ctx, c, job, workers, locals...); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			sentry.CaptureException(ctx, err)
			return eris.Wrapf(err, "frame %d failed", frame)
		}
	}
	frameLogger := telemetry.WithTrace(ctx, logger)
	frameLogger.Debug().Int("frame", frame).Dur("elapsed", time.Since(start)).Msg("frame done")
	return nil
}
