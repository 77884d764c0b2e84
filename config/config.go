// Package config loads the dashboard configuration from a TOML file and POKEDEX_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Pabloo22/pokedex-dashboard/projection"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "POKEDEX_"

// Config represents the application configuration.
type Config struct {
	Data      DataConfig      `toml:"data"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Cache     CacheConfig     `toml:"cache"`
	Server    ServerConfig    `toml:"server"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Log       LogConfig       `toml:"log"`
}

// DataConfig locates the dataset files.
type DataConfig struct {
	Dir            string `toml:"dir"`             // Base directory for relative paths
	PokemonFile    string `toml:"pokemon_file"`    // Source table
	EvolutionsFile string `toml:"evolutions_file"` // Evolution table
	ImagesDir      string `toml:"images_dir"`      // One NNN.png per creature
	Watch          bool   `toml:"watch"`           // Reload when the CSV files change
	Debounce       string `toml:"debounce"`        // Quiet period before a reload (e.g., "500ms")
}

// EmbeddingConfig holds the default projection settings.
type EmbeddingConfig struct {
	Method             string  `toml:"method"` // "umap" or "pca"
	NNeighbors         int     `toml:"n_neighbors"`
	MinDist            float64 `toml:"min_dist"`
	Spread             float64 `toml:"spread"`
	Metric             string  `toml:"metric"`
	NEpochs            int     `toml:"n_epochs"`
	LearningRate       float64 `toml:"learning_rate"`
	NegativeSampleRate float64 `toml:"negative_sample_rate"`
	Seed               int64   `toml:"seed"`
	RejectDegenerate   bool    `toml:"reject_degenerate"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr"` // Empty disables the Redis tier
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
	TTL           string `toml:"ttl"`         // Redis entry TTL (e.g., "24h")
	MaxEntries    int    `toml:"max_entries"` // Embeddings kept in memory; 0 means unbounded
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RateLimit      float64  `toml:"rate_limit"` // Requests per second per client; 0 disables
	Burst          int      `toml:"burst"`
	AllowedOrigins []string `toml:"allowed_origins"`
	ReadTimeout    string   `toml:"read_timeout"`
	WriteTimeout   string   `toml:"write_timeout"`
}

// QdrantConfig contains vector store export settings.
type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Collection string `toml:"collection"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // trace, debug, info, warn, error
	Format string `toml:"format"` // "console" or "json"
	File   string `toml:"file"`   // TUI log destination; empty discards TUI logs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	embedding := projection.DefaultConfig()
	return &Config{
		Data: DataConfig{
			Dir:            "data",
			PokemonFile:    "pokemon.csv",
			EvolutionsFile: "evolutions.csv",
			ImagesDir:      "images",
			Watch:          true,
			Debounce:       "500ms",
		},
		Embedding: EmbeddingConfig{
			Method:             string(embedding.Method),
			NNeighbors:         embedding.NNeighbors,
			MinDist:            embedding.MinDist,
			Spread:             embedding.Spread,
			Metric:             embedding.Metric,
			NEpochs:            embedding.NEpochs,
			LearningRate:       embedding.LearningRate,
			NegativeSampleRate: embedding.NegativeSampleRate,
			Seed:               embedding.Seed,
			RejectDegenerate:   embedding.RejectDegenerate,
		},
		Cache: CacheConfig{
			KeyPrefix:  "pokedex:",
			TTL:        "24h",
			MaxEntries: 32,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RateLimit:      20,
			Burst:          40,
			AllowedOrigins: []string{"*"},
			ReadTimeout:    "10s",
			WriteTimeout:   "60s",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "pokemon",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies environment
// overrides. A missing file is not an error when path is empty or equals DefaultPath.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultPath is read when no --config flag is given.
const DefaultPath = "pokedex.toml"

// LoadFromEnv applies POKEDEX_* overrides. Malformed numbers are reported rather than
// ignored.
func (c *Config) LoadFromEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	// Data
	str("DATA_DIR", &c.Data.Dir)
	str("POKEMON_FILE", &c.Data.PokemonFile)
	str("EVOLUTIONS_FILE", &c.Data.EvolutionsFile)
	str("IMAGES_DIR", &c.Data.ImagesDir)
	boolean("WATCH", &c.Data.Watch)

	// Embedding
	str("METHOD", &c.Embedding.Method)
	integer("N_NEIGHBORS", &c.Embedding.NNeighbors)
	float("MIN_DIST", &c.Embedding.MinDist)
	str("METRIC", &c.Embedding.Metric)
	integer("N_EPOCHS", &c.Embedding.NEpochs)
	if v, ok := os.LookupEnv(EnvPrefix + "SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Embedding.Seed = seed
		}
	}

	// Cache
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	integer("REDIS_DB", &c.Cache.RedisDB)
	str("CACHE_TTL", &c.Cache.TTL)
	integer("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)

	// Server
	str("ADDR", &c.Server.Addr)
	float("RATE_LIMIT", &c.Server.RateLimit)
	integer("BURST", &c.Server.Burst)
	if v, ok := os.LookupEnv(EnvPrefix + "ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}

	// Qdrant
	str("QDRANT_HOST", &c.Qdrant.Host)
	integer("QDRANT_PORT", &c.Qdrant.Port)
	str("QDRANT_COLLECTION", &c.Qdrant.Collection)
	str("QDRANT_API_KEY", &c.Qdrant.APIKey)

	// Logging
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	return errors.Join(errs...)
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Data.PokemonFile == "" {
		return fmt.Errorf("data.pokemon_file is required")
	}
	if c.Data.EvolutionsFile == "" {
		return fmt.Errorf("data.evolutions_file is required")
	}
	if _, err := time.ParseDuration(c.Data.Debounce); err != nil {
		return fmt.Errorf("invalid data.debounce %q: %w", c.Data.Debounce, err)
	}

	if err := c.Projection().Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative: %d", c.Cache.MaxEntries)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative: %g", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be at least 1 when rate limiting, got %d", c.Server.Burst)
	}
	for _, field := range []struct{ name, value string }{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}

	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant.port out of range: %d", c.Qdrant.Port)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Projection converts the embedding section into projection settings.
func (c *Config) Projection() projection.Config {
	return projection.Config{
		Method:             projection.Method(c.Embedding.Method),
		NNeighbors:         c.Embedding.NNeighbors,
		MinDist:            c.Embedding.MinDist,
		Spread:             c.Embedding.Spread,
		Metric:             c.Embedding.Metric,
		NEpochs:            c.Embedding.NEpochs,
		LearningRate:       c.Embedding.LearningRate,
		NegativeSampleRate: c.Embedding.NegativeSampleRate,
		Seed:               c.Embedding.Seed,
		RejectDegenerate:   c.Embedding.RejectDegenerate,
	}
}

// PokemonPath returns the source table path.
func (c *Config) PokemonPath() string { return c.resolve(c.Data.PokemonFile) }

// EvolutionsPath returns the evolution table path.
func (c *Config) EvolutionsPath() string { return c.resolve(c.Data.EvolutionsFile) }

// ImagesPath returns the image directory.
func (c *Config) ImagesPath() string { return c.resolve(c.Data.ImagesDir) }

// DebounceInterval returns the watcher quiet period.
func (c *Config) DebounceInterval() time.Duration {
	d, _ := time.ParseDuration(c.Data.Debounce)
	return d
}

// CacheTTL returns the Redis entry TTL.
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// ServerTimeouts returns the read and write timeouts.
func (c *Config) ServerTimeouts() (read, write time.Duration) {
	read, _ = time.ParseDuration(c.Server.ReadTimeout)
	write, _ = time.ParseDuration(c.Server.WriteTimeout)
	return read, write
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.Data.Dir == "" {
		return path
	}
	return filepath.Join(c.Data.Dir, path)
}
