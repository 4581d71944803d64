package ecs

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// WorldStats is a snapshot of the world's entity counts and memory use.
type WorldStats struct {
	ComponentTypes int            `json:"component_types"`
	Archetypes     int            `json:"archetypes"`
	Entities       int            `json:"entities"`
	Contexts       []ContextStats `json:"contexts"`
}

// ContextStats is a snapshot of one context.
type ContextStats struct {
	ID       ContextID      `json:"id"`
	Entities int            `json:"entities"`
	Storages []StorageStats `json:"storages"`
}

// StorageStats is a snapshot of one storage.
type StorageStats struct {
	Index            uint32      `json:"index"`
	Archetype        ArchetypeID `json:"archetype"`
	Components       []string    `json:"components"`
	Entities         int         `json:"entities"`
	Chunks           int         `json:"chunks"`
	EntitiesPerChunk int         `json:"entities_per_chunk"`
	PageBytes        int         `json:"page_bytes"`
}

// Stats returns a snapshot of every live context.
func (w *World) Stats() WorldStats {
	stats := WorldStats{
		ComponentTypes: len(w.registry.descriptors),
		Archetypes:     w.catalog.Len(),
		Contexts:       make([]ContextStats, 0, w.used.Count()),
	}
	for _, ctx := range w.Contexts() {
		cs := ctx.stats()
		stats.Entities += cs.Entities
		stats.Contexts = append(stats.Contexts, cs)
	}
	return stats
}

// StatsJSON returns the Stats snapshot encoded as JSON.
func (w *World) StatsJSON() ([]byte, error) {
	data, err := json.Marshal(w.Stats())
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal world stats")
	}
	return data, nil
}

func (c *Context) stats() ContextStats {
	cs := ContextStats{ID: c.id, Storages: make([]StorageStats, 0, len(c.storages))}
	for _, s := range c.storages {
		names := make([]string, len(s.archetype.components))
		for i, desc := range s.archetype.components {
			names[i] = desc.Name
		}
		cs.Storages = append(cs.Storages, StorageStats{
			Index:            s.index,
			Archetype:        s.archetype.id,
			Components:       names,
			Entities:         s.count,
			Chunks:           len(s.chunks),
			EntitiesPerChunk: s.perChunk,
			PageBytes:        s.pageBytes,
		})
		cs.Entities += s.count
	}
	return cs
}
