// Package config loads service configuration from a TOML file with
// environment variable overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when the file or a field is absent.
const (
	DefaultAddr               = ":3002"
	DefaultRequestTimeout     = 15 * time.Second
	DefaultRateLimit          = 50.0
	DefaultRateBurst          = 100
	DefaultBackend            = "sqlite"
	DefaultMetadataCollection = "dataset_metadata"
	DefaultContentCollection  = "dataset_content"
	DefaultChunkMaxLen        = 500
	DefaultEmbeddingProvider  = "ollama"
)

// Server holds HTTP listener settings.
type Server struct {
	// Addr is the listen address (default ":3002").
	Addr string `toml:"addr"`

	// RequestTimeoutSecs bounds each search request; an expired timeout
	// aborts both index queries.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`

	// RateLimit is the sustained request rate per second (0 disables).
	RateLimit float64 `toml:"rate_limit"`

	// RateBurst is the burst allowance for the rate limiter.
	RateBurst int `toml:"rate_burst"`
}

// Index selects and configures the collection backend.
type Index struct {
	// Backend is one of "memory", "sqlite" or "qdrant".
	Backend string `toml:"backend"`

	// DataDir is the sqlite data directory (default ~/.bioindex/data).
	DataDir string `toml:"data_dir"`

	// MetadataCollection names the whole-document index.
	MetadataCollection string `toml:"metadata_collection"`

	// ContentCollection names the chunk index.
	ContentCollection string `toml:"content_collection"`

	// QdrantURL is the remote engine base URL.
	QdrantURL string `toml:"qdrant_url"`

	// QdrantAPIKey authenticates against the remote engine.
	QdrantAPIKey string `toml:"qdrant_api_key"`
}

// Chunker configures content chunking.
type Chunker struct {
	// MaxLen is the maximum chunk length in characters.
	MaxLen int `toml:"max_len"`
}

// Embedding selects and configures the embedding provider used by the
// embedded backends (the remote backend embeds server-side).
type Embedding struct {
	// Provider is one of "ollama" or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// APIKey authenticates against hosted providers.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions"`
}

// Config is the root configuration document.
type Config struct {
	Server    Server    `toml:"server"`
	Index     Index     `toml:"index"`
	Chunker   Chunker   `toml:"chunker"`
	Embedding Embedding `toml:"embedding"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the TOML file at path, falling back to defaults for absent
// fields. If path is empty, ~/.bioindex/config.toml is used when present.
// Environment variables override file values afterwards.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".bioindex", "config.toml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// No file is fine, defaults apply.
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RequestTimeoutSecs <= 0 {
		c.Server.RequestTimeoutSecs = int(DefaultRequestTimeout / time.Second)
	}
	if c.Server.RateLimit < 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateLimit == 0 && c.Server.RateBurst == 0 {
		c.Server.RateLimit = DefaultRateLimit
		c.Server.RateBurst = DefaultRateBurst
	}
	if c.Index.Backend == "" {
		c.Index.Backend = DefaultBackend
	}
	if c.Index.MetadataCollection == "" {
		c.Index.MetadataCollection = DefaultMetadataCollection
	}
	if c.Index.ContentCollection == "" {
		c.Index.ContentCollection = DefaultContentCollection
	}
	if c.Chunker.MaxLen <= 0 {
		c.Chunker.MaxLen = DefaultChunkMaxLen
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultEmbeddingProvider
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BIOINDEX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("BIOINDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	if v := os.Getenv("BIOINDEX_DATA_DIR"); v != "" {
		c.Index.DataDir = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.Index.QdrantURL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Index.QdrantAPIKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" && c.Embedding.Provider == "ollama" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = v
	}
}
