package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent engram configuration stored as
// config.toml in the .engram/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Memory      MemoryConfig      `toml:"memory"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds structured store settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector index settings. Path applies to embedded
// providers (sqlitevec, chromem); Target applies to remote providers
// (qdrant).
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Path     string `toml:"path,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// MemoryConfig holds coordinator settings.
type MemoryConfig struct {
	DefaultProject      string  `toml:"default_project,omitempty"`
	SearchLimit         int     `toml:"search_limit,omitempty"`
	SimilarityThreshold float64 `toml:"similarity_threshold,omitempty"`
}

// EventsConfig holds eventstream publisher settings. Provider "nop"
// disables publishing.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.path": {
		get: func(c *Config) string { return c.VectorStore.Path },
		set: func(c *Config, v string) error { c.VectorStore.Path = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"memory.default_project": {
		get: func(c *Config) string { return c.Memory.DefaultProject },
		set: func(c *Config, v string) error { c.Memory.DefaultProject = v; return nil },
	},
	"memory.search_limit": {
		get: func(c *Config) string {
			if c.Memory.SearchLimit == 0 {
				return ""
			}
			return strconv.Itoa(c.Memory.SearchLimit)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for memory.search_limit: %w", err)
			}
			c.Memory.SearchLimit = n
			return nil
		},
	},
	"memory.similarity_threshold": {
		get: func(c *Config) string {
			if c.Memory.SimilarityThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Memory.SimilarityThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.similarity_threshold: %w", err)
			}
			c.Memory.SimilarityThreshold = f
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			c.Events.Brokers = strings.Split(v, ",")
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
