package ecs

import (
	"sync/atomic"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// JobState is the phase of a parallel job.
type JobState int32

const (
	// JobUnprepared is the state of a new job and of a job whose workers have all completed.
	JobUnprepared JobState = iota
	// JobPrepared is the state between Prepare and the first Execute.
	JobPrepared
	// JobExecuting is the state while at least one worker runs.
	JobExecuting
)

func (s JobState) String() string {
	switch s {
	case JobUnprepared:
		return "unprepared"
	case JobPrepared:
		return "prepared"
	case JobExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// Executor is a job that can be prepared on a context and executed by a fixed number of workers.
type Executor interface {
	Prepare(ctx *Context, workers int)
	Execute(local any)
	State() JobState
}

// jobBase partitions the matching chunks of a context between workers and gates the workers with
// two atomic counters. Prepare must complete before any Execute of the same cycle, and every worker
// calls Execute exactly once per cycle.
type jobBase struct {
	query     Query
	state     atomic.Int32
	started   atomic.Int32 // Number of Execute calls that started this cycle
	completed atomic.Int32 // Number of Execute calls that completed this cycle
	workers   int
	segments  [][]Segment // Worker -> assigned ranges
}

// Prepare partitions the context's matching chunks between workers. It must not be called while
// the job is executing.
func (j *jobBase) Prepare(ctx *Context, workers int) {
	cfg := &ctx.world.config
	assert.That(workers >= 1 && workers <= cfg.MaxWorkers, "worker count %d is outside [1, %d]", workers, cfg.MaxWorkers)
	assert.That(j.State() != JobExecuting, "prepare of an executing job")

	j.workers = workers
	j.started.Store(0)
	j.completed.Store(0)

	storages, positions := matchingStorages(ctx, j.query)
	switch cfg.Partition {
	case PartitionWholeChunks:
		j.segments = partitionWholeChunks(storages, positions, workers)
	case PartitionSplitChunks:
		j.segments = partitionSplitChunks(storages, positions, workers)
	default:
		j.segments = partitionSplitChunks(storages, positions, workers)
	}
	j.state.Store(int32(JobPrepared))

	if e := ctx.world.logger.Debug(); e.Enabled() {
		total := 0
		for _, segs := range j.segments {
			total += len(segs)
		}
		e.Uint8("context", uint8(ctx.id)).Int("workers", workers).Int("storages", len(storages)).
			Int("segments", total).Str("method", cfg.Partition.String()).Msg("prepared job")
	}
}

// State returns the current phase of the job.
func (j *jobBase) State() JobState {
	return JobState(j.state.Load())
}

// Workers returns the worker count of the last Prepare.
func (j *jobBase) Workers() int { return j.workers }

// Segments returns the ranges assigned to a worker by the last Prepare. The slice must not be
// modified.
func (j *jobBase) Segments(worker int) []Segment {
	return j.segments[worker]
}

// begin claims a worker index for the calling Execute.
func (j *jobBase) begin() int {
	worker := int(j.started.Add(1) - 1)
	assert.That(worker < j.workers, "execute called more than %d times after prepare", j.workers)
	j.state.Store(int32(JobExecuting))
	return worker
}

// end records the completion of an Execute. The last worker returns the job to unprepared.
func (j *jobBase) end() {
	if int(j.completed.Add(1)) == j.workers {
		j.state.Store(int32(JobUnprepared))
	}
}

// ParallelJob runs an EachFunc over every matching entity of a context, split between workers.
type ParallelJob struct {
	jobBase
	fn EachFunc
}

var _ Executor = (*ParallelJob)(nil)

// NewParallelJob creates a job calling fn for every entity matching the query.
func NewParallelJob(q Query, fn EachFunc) *ParallelJob {
	return &ParallelJob{jobBase: jobBase{query: q}, fn: fn}
}

// Execute runs the ranges of one worker. Each of the prepared workers calls it once, from any
// goroutine. local is passed to the callback as Row.Local.
func (j *ParallelJob) Execute(local any) {
	worker := j.begin()
	for _, seg := range j.segments[worker] {
		seg.Chunk.forEach(seg.Start, seg.End, seg.positions, j.fn, local)
	}
	j.end()
}

// ParallelBatchJob runs a BatchFunc over every range assigned to each worker.
type ParallelBatchJob struct {
	jobBase
	fn BatchFunc
}

var _ Executor = (*ParallelBatchJob)(nil)

// NewParallelBatchJob creates a job calling fn once per assigned range.
func NewParallelBatchJob(q Query, fn BatchFunc) *ParallelBatchJob {
	return &ParallelBatchJob{jobBase: jobBase{query: q}, fn: fn}
}

// Execute runs the ranges of one worker. local is passed to the callback as Batch.Local.
func (j *ParallelBatchJob) Execute(local any) {
	worker := j.begin()
	for _, seg := range j.segments[worker] {
		seg.Chunk.forEachBatch(seg.Start, seg.End, seg.positions, j.fn, local)
	}
	j.end()
}

// -------------------------------------------------------------------------------------------------
// Deferred jobs
// -------------------------------------------------------------------------------------------------

// DeferredJob runs an EachFunc over a whole context or world on the calling goroutine.
type DeferredJob struct {
	query Query
	fn    EachFunc
}

// NewDeferredJob creates a deferred job.
func NewDeferredJob(q Query, fn EachFunc) *DeferredJob {
	return &DeferredJob{query: q, fn: fn}
}

// Execute runs the job over it. local is passed to the callback as Row.Local.
func (j *DeferredJob) Execute(it Iterable, local any) {
	it.forEach(j.query, j.fn, local)
}

// DeferredBatchJob runs a BatchFunc over every non-empty chunk of a context or world on the
// calling goroutine.
type DeferredBatchJob struct {
	query Query
	fn    BatchFunc
}

// NewDeferredBatchJob creates a deferred batch job.
func NewDeferredBatchJob(q Query, fn BatchFunc) *DeferredBatchJob {
	return &DeferredBatchJob{query: q, fn: fn}
}

// Execute runs the job over it. local is passed to the callback as Batch.Local.
func (j *DeferredBatchJob) Execute(it Iterable, local any) {
	it.forEachBatch(j.query, j.fn, local)
}
