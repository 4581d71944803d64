package ecs

import (
	"fmt"
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// span is the comparable form of a Segment.
type span struct {
	Storage uint32
	Chunk   uint32
	Start   int
	End     int
}

func spans(segments [][]Segment) [][]span {
	out := make([][]span, len(segments))
	for w, segs := range segments {
		out[w] = []span{}
		for _, seg := range segs {
			out[w] = append(out[w], span{
				Storage: seg.Chunk.storage.index,
				Chunk:   seg.Chunk.index,
				Start:   seg.Start,
				End:     seg.End,
			})
		}
	}
	return out
}

// chunks64 limits chunks to 64 entities.
func chunks64(cfg *Config) {
	cfg.SlotBits = 6
}

func TestPartitionSplitChunks_Layout(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, chunks64)
	ctx := newTestContext(t, w)
	createN(ctx, w.CreateArchetype(ids.profile), 3*64)
	q := NewQuery(ids.profile)

	tests := []struct {
		workers int
		want    [][]span
	}{
		{
			workers: 1,
			want: [][]span{
				{{0, 0, 0, 64}, {0, 1, 0, 64}, {0, 2, 0, 64}},
			},
		},
		{
			workers: 2,
			want: [][]span{
				{{0, 0, 32, 64}, {0, 1, 32, 64}, {0, 2, 32, 64}},
				{{0, 0, 0, 32}, {0, 1, 0, 32}, {0, 2, 0, 32}},
			},
		},
		{
			// perWorker rounds 21 down to 16, the selected worker takes [32, 64).
			workers: 3,
			want: [][]span{
				{{0, 0, 32, 64}, {0, 1, 0, 16}, {0, 2, 0, 16}},
				{{0, 0, 0, 16}, {0, 1, 32, 64}, {0, 2, 16, 32}},
				{{0, 0, 16, 32}, {0, 1, 16, 32}, {0, 2, 32, 64}},
			},
		},
		{
			// perWorker rounds to zero, so each chunk goes whole to the least loaded worker.
			workers: 8,
			want: [][]span{
				{{0, 0, 0, 64}},
				{{0, 1, 0, 64}},
				{{0, 2, 0, 64}},
				{}, {}, {}, {}, {},
			},
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("workers=%d", tt.workers), func(t *testing.T) {
			storages, positions := matchingStorages(ctx, q)
			got := spans(partitionSplitChunks(storages, positions, tt.workers))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPartitionWholeChunks_LargestStoragesFirst(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, func(cfg *Config) {
		cfg.SlotBits = 15
		cfg.MaxChunkBytes = 4096
	})
	ctx := newTestContext(t, w)
	wide := w.CreateArchetype(ids.counter, ids.transform)
	narrow := w.CreateArchetype(ids.flag)

	wideStorage := ctx.Storage(wide)
	narrowStorage := ctx.Storage(narrow)
	require.Greater(t, narrowStorage.EntitiesPerChunk(), wideStorage.EntitiesPerChunk())

	for range 2 * wideStorage.EntitiesPerChunk() {
		ctx.CreateEntity(wide)
	}
	for range narrowStorage.EntitiesPerChunk() + 1 {
		ctx.CreateEntity(narrow)
	}

	storages, positions := matchingStorages(ctx, NewQuery())
	segments := partitionWholeChunks(storages, positions, 2)

	narrowPer, widePer := narrowStorage.EntitiesPerChunk(), wideStorage.EntitiesPerChunk()
	want := [][]span{
		{{1, 0, 0, narrowPer}, {0, 0, 0, widePer}},
		{{1, 1, 0, narrowPer}, {0, 1, 0, widePer}},
	}
	if diff := cmp.Diff(want, spans(segments)); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestLeastLoaded(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, leastLoaded([]int{0, 0, 0}))
	assert.Equal(t, 1, leastLoaded([]int{5, 2, 2}))
	assert.Equal(t, 2, leastLoaded([]int{5, 3, 1}))
}

// TestPartition_Coverage checks that for every worker count and both methods the prepared workers
// together visit every live matching entity exactly once.
func TestPartition_Coverage(t *testing.T) {
	t.Parallel()

	methods := []PartitionMethod{PartitionSplitChunks, PartitionWholeChunks}
	g := NewGen()
	for !g.Done() {
		method := Pick(g, methods)
		workers := g.Range(1, 6)
		fullChunks := g.Intn(2)
		tail := Pick(g, []int{0, 1, 17, 63})
		holes := g.Bool()

		name := fmt.Sprintf("%s/workers=%d/chunks=%d/tail=%d/holes=%t", method, workers, fullChunks, tail, holes)
		t.Run(name, func(t *testing.T) {
			w, ids := newTestWorld(t, chunks64, func(cfg *Config) { cfg.Partition = method })
			ctx := newTestContext(t, w)

			// A second matching storage and a non-matching one.
			entities := createN(ctx, w.CreateArchetype(ids.profile, ids.health), fullChunks*64+tail)
			entities = append(entities, createN(ctx, w.CreateArchetype(ids.health, ids.profile, ids.tag), 5)...)
			createN(ctx, w.CreateArchetype(ids.profile), 9)

			if holes {
				for i := 0; i < len(entities); i += 3 {
					ctx.ReleaseEntity(entities[i])
				}
			}
			want := make(map[*Entity]bool)
			for _, e := range entities {
				if e.Valid() {
					want[e] = true
				}
			}

			visits := make(map[*Entity]int)
			perWorker := make([]int, workers)
			job := NewParallelJob(NewQuery(ids.health), func(e *Entity, row Row) {
				visits[e]++
				perWorker[row.Local.(int)]++
			})
			job.Prepare(ctx, workers)
			for i := range workers {
				job.Execute(i)
			}

			total := 0
			for _, n := range perWorker {
				total += n
			}
			assert.Equal(t, len(want), total)
			assert.Len(t, visits, len(want))
			for e, n := range visits {
				assert.True(t, want[e], "visited entity outside the query")
				assert.Equal(t, 1, n)
			}
		})
	}
}
