package ecs

import (
	"slices"
)

// segmentAlignment is the granularity of the per-worker ranges cut from a chunk.
const segmentAlignment = 16

// Segment is a slot range of one chunk assigned to a worker.
type Segment struct {
	Chunk *Chunk
	Start int
	End   int

	positions []int // Archetype positions of the queried components
}

// Len returns the number of slots in the segment.
func (s Segment) Len() int { return s.End - s.Start }

// matchingStorages returns the storages of the context whose archetype matches the query, with the
// query's column positions resolved.
func matchingStorages(ctx *Context, q Query) ([]*Storage, [][]int) {
	var storages []*Storage
	var positions [][]int
	for _, s := range ctx.storages {
		if q.Matches(s.archetype) {
			storages = append(storages, s)
			positions = append(positions, q.columns(s.archetype))
		}
	}
	return storages, positions
}

// partitionSplitChunks cuts each chunk into workers ranges. Every worker but the least loaded one
// gets the next aligned range of perWorker slots, and the least loaded worker gets the trailing
// remainder up to the chunk's capacity.
func partitionSplitChunks(storages []*Storage, positions [][]int, workers int) [][]Segment {
	segments := make([][]Segment, workers)
	loads := make([]int, workers)

	for si, s := range storages {
		perChunk := s.perChunk
		perWorker := (perChunk / workers) / segmentAlignment * segmentAlignment

		for _, chunk := range s.chunks {
			selected := leastLoaded(loads)
			cur := 0
			for j := range workers {
				seg := Segment{Chunk: chunk, positions: positions[si]}
				if j == selected {
					seg.Start = perWorker * (workers - 1)
					seg.End = perChunk
				} else {
					seg.Start = cur
					seg.End = cur + perWorker
					cur += perWorker
				}
				if n := seg.Len(); n > 0 {
					segments[j] = append(segments[j], seg)
					loads[j] += n
				}
			}
		}
	}
	return segments
}

// partitionWholeChunks gives whole chunks to the least loaded worker, visiting the storages with
// the largest chunks first.
func partitionWholeChunks(storages []*Storage, positions [][]int, workers int) [][]Segment {
	segments := make([][]Segment, workers)
	loads := make([]int, workers)

	order := make([]int, len(storages))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return storages[b].perChunk - storages[a].perChunk
	})

	for _, si := range order {
		s := storages[si]
		for _, chunk := range s.chunks {
			selected := leastLoaded(loads)
			segments[selected] = append(segments[selected], Segment{
				Chunk:     chunk,
				Start:     0,
				End:       s.perChunk,
				positions: positions[si],
			})
			loads[selected] += s.perChunk
		}
	}
	return segments
}

// leastLoaded returns the index of the smallest load, the lowest index on ties.
func leastLoaded(loads []int) int {
	selected := 0
	for i, load := range loads {
		if load < loads[selected] {
			selected = i
		}
	}
	return selected
}
