// Package main provides the entry point for pokedex, a dashboard for exploring a
// Pokémon dataset. It projects the creatures' numeric features to a 2-D map, ranks
// them by similarity on that map and resolves evolution lines, either in a terminal
// UI or behind an HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/cache"
	"github.com/Pabloo22/pokedex-dashboard/config"
	"github.com/Pabloo22/pokedex-dashboard/metrics"
	"github.com/Pabloo22/pokedex-dashboard/pokedex"
)

// version is set at build time via ldflags, defaults to "dev" for local builds
var version = "dev"

// processMetrics registers the collectors with the default registry once per process.
var processMetrics = sync.OnceValue(func() *metrics.Registry {
	return metrics.New(prometheus.DefaultRegisterer)
})

// Global flags
var (
	configPath string
	logLevel   string
	dataDir    string
)

// rootCmd runs the terminal dashboard when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "pokedex",
	Short: "Explore the Pokédex as a similarity map",
	Long: `pokedex loads a table of Pokémon, projects their battle stats and type
matchups onto a 2-D map with UMAP or PCA, and lets you browse similar creatures
and evolution lines.

Examples:
  pokedex                          # terminal dashboard
  pokedex serve                    # HTTP API on :8080
  pokedex similar Pikachu --limit 5
  pokedex evolution Eevee
  pokedex chart map.html --color pop-out --ref Charizard`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the TOML config file (default: "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the CSV files and images")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	return cfg, nil
}

// newLogger builds the process logger. Console output is meant for humans on stderr,
// JSON for log collectors.
func newLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if cfg.Log.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("version", version).Logger(), nil
}

// app bundles what every subcommand needs.
type app struct {
	config  *config.Config
	logger  zerolog.Logger
	metrics *metrics.Registry
	service *pokedex.Service
	assets  *assets.Store
	closers []io.Closer
}

// newApp loads the configuration and the dataset. Redis is used as a shared cache
// tier when configured; a Redis that cannot be reached is logged and skipped.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		config:  cfg,
		logger:  logger,
		metrics: processMetrics(),
		assets:  assets.NewStore(cfg.ImagesPath()),
	}

	var backend cache.Backend
	if cfg.Cache.RedisAddr != "" {
		redisBackend, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.KeyPrefix)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching in memory only")
		} else {
			backend = redisBackend
			a.closers = append(a.closers, redisBackend)
		}
	}

	service, err := pokedex.New(pokedex.Options{
		PokemonPath:    cfg.PokemonPath(),
		EvolutionsPath: cfg.EvolutionsPath(),
		Projection:     cfg.Projection(),
		Debounce:       cfg.DebounceInterval(),
		Backend:        backend,
		CacheTTL:       cfg.CacheTTL(),
		CacheCapacity:  cfg.Cache.MaxEntries,
		Metrics:        a.metrics,
		Logger:         logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = service
	return a, nil
}

// watch reloads the dataset on file changes until ctx is done, when enabled.
func (a *app) watch(ctx context.Context) {
	if !a.config.Data.Watch {
		return
	}
	go func() {
		if err := a.service.Watch(ctx); err != nil {
			a.logger.Error().Err(err).Msg("file watcher stopped")
		}
	}()
}

func (a *app) Close() {
	for _, closer := range a.closers {
		if err := closer.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing")
		}
	}
}

// setup is the common prologue of the non-interactive subcommands.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger)
}
