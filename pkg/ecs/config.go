package ecs

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

const (
	// maxSlotBits keeps a chunk's capacity and its free-list sentinel inside a uint16.
	maxSlotBits = 15
	// maxIndexBits bounds the chunk and storage index widths so their limits fit in a uint32.
	maxIndexBits = 16
	// locationBits is the part of an EntityID below the context id.
	locationBits = 40
	// maxContextCount is the number of ids an 8-bit context field can hold.
	maxContextCount = 256
	// maxComponentsPerEntityLimit is the width of the per-entity construction mask.
	maxComponentsPerEntityLimit = 64
)

// Config holds the engine limits. Every field can be set through the environment with the
// FASTECS_ prefix. The limits are fixed once a World is created.
type Config struct {
	// MaxChunkBytes bounds the memory of a single chunk.
	MaxChunkBytes int `env:"FASTECS_MAX_CHUNK_BYTES" envDefault:"67108864"`

	// SlotBits is the width of the slot index in an EntityID. A chunk holds at most 1<<SlotBits
	// entities.
	SlotBits uint8 `env:"FASTECS_SLOT_BITS" envDefault:"10"`

	// ChunkBits is the width of the chunk index in an EntityID.
	ChunkBits uint8 `env:"FASTECS_CHUNK_BITS" envDefault:"15"`

	// StorageBits is the width of the storage index in an EntityID.
	StorageBits uint8 `env:"FASTECS_STORAGE_BITS" envDefault:"10"`

	// MaxWorkers is the largest worker count a parallel job accepts.
	MaxWorkers int `env:"FASTECS_MAX_WORKERS" envDefault:"32"`

	// MaxComponentsPerEntity is the largest number of components in one archetype.
	MaxComponentsPerEntity int `env:"FASTECS_MAX_COMPONENTS_PER_ENTITY" envDefault:"32"`

	// MaxComponentTypes is the largest number of component types a world can register.
	MaxComponentTypes int `env:"FASTECS_MAX_COMPONENT_TYPES" envDefault:"128"`

	// MaxEventTypes is the largest number of distinct event types an event manager dispatches.
	MaxEventTypes int `env:"FASTECS_MAX_EVENT_TYPES" envDefault:"16"`

	// MaxContexts is the largest number of live contexts in a world.
	MaxContexts int `env:"FASTECS_MAX_CONTEXTS" envDefault:"256"`

	// Lookup selects the archetype component lookup table ("linear", "hash" or "direct").
	Lookup LookupStrategy `env:"FASTECS_LOOKUP" envDefault:"linear"`

	// Partition selects how parallel jobs divide chunks between workers ("split" or "whole").
	Partition PartitionMethod `env:"FASTECS_PARTITION" envDefault:"split"`
}

// DefaultConfig returns the default limits without reading the environment.
func DefaultConfig() Config {
	return Config{
		MaxChunkBytes:          64 * 1024 * 1024,
		SlotBits:               10,
		ChunkBits:              15,
		StorageBits:            10,
		MaxWorkers:             32,
		MaxComponentsPerEntity: 32,
		MaxComponentTypes:      128,
		MaxEventTypes:          16,
		MaxContexts:            maxContextCount,
		Lookup:                 LookupLinear,
		Partition:              PartitionSplitChunks,
	}
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse engine config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate engine config")
	}

	return cfg, nil
}

// validate performs validation on the configuration.
func (cfg *Config) validate() error {
	if cfg.MaxChunkBytes <= 0 {
		return eris.Wrap(ErrInvalidConfig, "max chunk bytes must be positive")
	}
	if cfg.SlotBits == 0 || cfg.SlotBits > maxSlotBits {
		return eris.Wrapf(ErrInvalidConfig, "slot bits must be between 1 and %d", maxSlotBits)
	}
	if cfg.ChunkBits == 0 || cfg.ChunkBits > maxIndexBits {
		return eris.Wrapf(ErrInvalidConfig, "chunk bits must be between 1 and %d", maxIndexBits)
	}
	if cfg.StorageBits == 0 || cfg.StorageBits > maxIndexBits {
		return eris.Wrapf(ErrInvalidConfig, "storage bits must be between 1 and %d", maxIndexBits)
	}
	if total := int(cfg.SlotBits) + int(cfg.ChunkBits) + int(cfg.StorageBits); total > locationBits {
		return eris.Wrapf(ErrInvalidConfig, "slot, chunk and storage bits use %d bits, at most %d are available",
			total, locationBits)
	}
	if cfg.MaxWorkers <= 0 {
		return eris.Wrap(ErrInvalidConfig, "max workers must be positive")
	}
	if cfg.MaxComponentsPerEntity <= 0 || cfg.MaxComponentsPerEntity > maxComponentsPerEntityLimit {
		return eris.Wrapf(ErrInvalidConfig, "max components per entity must be between 1 and %d",
			maxComponentsPerEntityLimit)
	}
	if cfg.MaxComponentTypes <= 0 {
		return eris.Wrap(ErrInvalidConfig, "max component types must be positive")
	}
	if cfg.MaxEventTypes < 2 {
		return eris.Wrap(ErrInvalidConfig, "max event types must leave room for the entity events")
	}
	if cfg.MaxContexts <= 0 || cfg.MaxContexts > maxContextCount {
		return eris.Wrapf(ErrInvalidConfig, "max contexts must be between 1 and %d", maxContextCount)
	}
	if cfg.Lookup > LookupDirect {
		return eris.Wrapf(ErrInvalidConfig, "unknown lookup strategy %d", cfg.Lookup)
	}
	if cfg.Partition > PartitionWholeChunks {
		return eris.Wrapf(ErrInvalidConfig, "unknown partition method %d", cfg.Partition)
	}
	return nil
}

// layout returns the EntityID layout described by the configuration.
func (cfg *Config) layout() IDLayout {
	return IDLayout{SlotBits: cfg.SlotBits, ChunkBits: cfg.ChunkBits, StorageBits: cfg.StorageBits}
}

// -------------------------------------------------------------------------------------------------
// Partition method
// -------------------------------------------------------------------------------------------------

// PartitionMethod is the strategy parallel jobs use to divide chunks between workers.
type PartitionMethod uint8

const (
	// PartitionSplitChunks cuts every chunk into one range per worker and gives the trailing
	// remainder to the least loaded worker.
	PartitionSplitChunks PartitionMethod = iota
	// PartitionWholeChunks hands out whole chunks, largest storages first, to the least loaded
	// worker.
	PartitionWholeChunks
)

func (m PartitionMethod) String() string {
	switch m {
	case PartitionSplitChunks:
		return "split"
	case PartitionWholeChunks:
		return "whole"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PartitionMethod) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "split":
		*m = PartitionSplitChunks
	case "whole":
		*m = PartitionWholeChunks
	default:
		return eris.Errorf("invalid partition method: %s (must be 'split' or 'whole')", text)
	}
	return nil
}
