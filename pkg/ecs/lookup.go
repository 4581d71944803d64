package ecs

import (
	"strings"

	"github.com/rotisserie/eris"
)

// LookupStrategy selects the table an archetype uses to map a component ID to its column.
type LookupStrategy uint8

const (
	// LookupLinear scans the archetype's component list. Fastest for the small component counts
	// most archetypes have.
	LookupLinear LookupStrategy = iota
	// LookupHash uses a map keyed by component ID.
	LookupHash
	// LookupDirect uses an array indexed by component ID, sized to the component type limit.
	LookupDirect
)

func (s LookupStrategy) String() string {
	switch s {
	case LookupLinear:
		return "linear"
	case LookupHash:
		return "hash"
	case LookupDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *LookupStrategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "linear":
		*s = LookupLinear
	case "hash":
		*s = LookupHash
	case "direct":
		*s = LookupDirect
	default:
		return eris.Errorf("invalid lookup strategy: %s (must be 'linear', 'hash' or 'direct')", text)
	}
	return nil
}

// componentIndex maps a component ID to its position in an archetype.
type componentIndex interface {
	find(id ComponentTypeID) (int, bool)
}

// newComponentIndex builds the lookup table for the given ordered component IDs.
func newComponentIndex(strategy LookupStrategy, ids []ComponentTypeID, maxTypes int) componentIndex {
	switch strategy {
	case LookupHash:
		index := make(hashIndex, len(ids))
		for i, id := range ids {
			index[id] = i
		}
		return index
	case LookupDirect:
		index := make(directIndex, maxTypes)
		for i := range index {
			index[i] = -1
		}
		for i, id := range ids {
			index[id] = int16(i) //nolint:gosec // bounded by MaxComponentsPerEntity
		}
		return index
	case LookupLinear:
		return linearIndex(ids)
	default:
		return linearIndex(ids)
	}
}

type linearIndex []ComponentTypeID

func (l linearIndex) find(id ComponentTypeID) (int, bool) {
	for i, cid := range l {
		if cid == id {
			return i, true
		}
	}
	return -1, false
}

type hashIndex map[ComponentTypeID]int

func (h hashIndex) find(id ComponentTypeID) (int, bool) {
	i, ok := h[id]
	if !ok {
		return -1, false
	}
	return i, true
}

type directIndex []int16

func (d directIndex) find(id ComponentTypeID) (int, bool) {
	if int(id) >= len(d) || d[id] < 0 {
		return -1, false
	}
	return int(d[id]), true
}
