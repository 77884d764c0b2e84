// Package pokedex serves the dashboard's operations over an immutable dataset snapshot.
//
// The Service loads both CSV files into a Snapshot and publishes it atomically; readers
// never lock. Feature matrices and embeddings are memoized per (dataset version,
// projection config) and the memory tier is purged whenever a reload brings a new
// dataset version.
package pokedex

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Pabloo22/pokedex-dashboard/cache"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/evolution"
	"github.com/Pabloo22/pokedex-dashboard/metrics"
	"github.com/Pabloo22/pokedex-dashboard/projection"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

// Snapshot is one loaded dataset. It is never modified after publication.
type Snapshot struct {
	// Version identifies the pokemon table content; embeddings are keyed by it.
	Version string
	// EvolutionsVersion identifies the evolution table content.
	EvolutionsVersion string
	// Generation is unique per successful load, even when content is unchanged.
	Generation uuid.UUID

	Table      *dataset.Table
	Evolutions *evolution.Table
	LoadedAt   time.Time
}

// Options configures a Service.
type Options struct {
	PokemonPath    string
	EvolutionsPath string

	// Projection is used when a caller does not pass its own config.
	Projection projection.Config

	// Debounce is the quiet period Watch waits for before reloading.
	Debounce time.Duration

	// Backend optionally adds a shared cache tier for embeddings.
	Backend  cache.Backend
	CacheTTL time.Duration

	// CacheCapacity bounds the embeddings kept in memory. Zero means unbounded.
	CacheCapacity int

	Metrics *metrics.Registry
	Logger  zerolog.Logger
}

// Service answers dashboard queries against the current snapshot.
type Service struct {
	opts   Options
	logger zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex

	features   *cache.Cache[projection.FeatureMatrix]
	embeddings *cache.Cache[projection.Embedding]
}

// New loads the dataset and returns a ready service.
func New(opts Options) (*Service, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if err := opts.Projection.Validate(); err != nil {
		return nil, fmt.Errorf("default projection: %w", err)
	}

	logger := opts.Logger.With().Str("component", "pokedex").Logger()
	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	if opts.Metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithRecorder(opts.Metrics))
	}
	embeddingOpts := append(cacheOpts[:len(cacheOpts):len(cacheOpts)], cache.WithCapacity(opts.CacheCapacity))
	if opts.Backend != nil {
		embeddingOpts = append(embeddingOpts[:len(embeddingOpts):len(embeddingOpts)], cache.WithBackend(opts.Backend, opts.CacheTTL))
	}

	s := &Service{
		opts:       opts,
		logger:     logger,
		features:   cache.New[projection.FeatureMatrix]("features", cacheOpts...),
		embeddings: cache.New[projection.Embedding]("embedding", embeddingOpts...),
	}

	snapshot, err := s.load()
	s.recordReload(snapshot, err)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(snapshot)
	s.logger.Info().
		Str("version", snapshot.Version).
		Int("rows", snapshot.Table.Len()).
		Int("families", len(snapshot.Evolutions.Families)).
		Msg("dataset loaded")
	return s, nil
}

// Snapshot returns the current dataset snapshot.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// DefaultProjection returns the projection config used when none is given.
func (s *Service) DefaultProjection() projection.Config {
	return s.opts.Projection
}

func (s *Service) load() (*Snapshot, error) {
	pokemonData, err := os.ReadFile(s.opts.PokemonPath)
	if err != nil {
		return nil, fmt.Errorf("reading pokemon table: %w", err)
	}
	version := dataset.Fingerprint(pokemonData)
	table, err := dataset.ParseTable(bytes.NewReader(pokemonData), version)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.opts.PokemonPath, err)
	}

	evolutionData, err := os.ReadFile(s.opts.EvolutionsPath)
	if err != nil {
		return nil, fmt.Errorf("reading evolution table: %w", err)
	}
	evolutions, err := evolution.Parse(bytes.NewReader(evolutionData), table.Names())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.opts.EvolutionsPath, err)
	}

	return &Snapshot{
		Version:           version,
		EvolutionsVersion: dataset.Fingerprint(evolutionData),
		Generation:        uuid.New(),
		Table:             table,
		Evolutions:        evolutions,
		LoadedAt:          time.Now(),
	}, nil
}

// Reload reads both files again and publishes a new snapshot. changed reports whether
// either file's content differs from the previous snapshot. A failed reload keeps the
// previous snapshot.
func (s *Service) Reload(ctx context.Context) (snapshot *Snapshot, changed bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	next, err := s.load()
	s.recordReload(next, err)
	if err != nil {
		s.logger.Error().Err(err).Msg("dataset reload failed; keeping previous snapshot")
		return s.Snapshot(), false, err
	}

	previous := s.snapshot.Swap(next)
	changed = previous == nil ||
		previous.Version != next.Version ||
		previous.EvolutionsVersion != next.EvolutionsVersion
	if previous != nil && previous.Version != next.Version {
		s.features.Purge()
		s.embeddings.Purge()
	}

	s.logger.Info().
		Str("version", next.Version).
		Str("generation", next.Generation.String()).
		Bool("changed", changed).
		Int("rows", next.Table.Len()).
		Msg("dataset reloaded")
	return next, changed, nil
}

func (s *Service) recordReload(snapshot *Snapshot, err error) {
	if s.opts.Metrics == nil {
		return
	}
	rows := 0
	if snapshot != nil {
		rows = snapshot.Table.Len()
	}
	s.opts.Metrics.RecordReload(err, rows)
}

// Lookup resolves a name or pokedex number in the current snapshot.
func (s *Service) Lookup(key string) (*dataset.Entity, error) {
	return s.Snapshot().Table.Lookup(key)
}

// Features returns the normalized feature matrix of the current snapshot.
func (s *Service) Features(ctx context.Context) (*projection.FeatureMatrix, error) {
	return s.featuresOf(ctx, s.Snapshot())
}

func (s *Service) featuresOf(ctx context.Context, snapshot *Snapshot) (*projection.FeatureMatrix, error) {
	return s.features.Get(ctx, snapshot.Version, func(context.Context) (*projection.FeatureMatrix, error) {
		return projection.NormalizeFeatures(snapshot.Table)
	})
}

// Embedding returns the embedding of the current snapshot under config. Equal configs
// on an unchanged dataset return the same *Embedding.
func (s *Service) Embedding(ctx context.Context, config projection.Config) (*projection.Embedding, error) {
	return s.embeddingOf(ctx, s.Snapshot(), config)
}

// EmbeddingCached reports whether the embedding for config on the current snapshot is
// already in memory. It never computes.
func (s *Service) EmbeddingCached(config projection.Config) bool {
	_, ok := s.embeddings.Peek(s.Snapshot().Version + "|" + config.Key())
	return ok
}

func (s *Service) embeddingOf(ctx context.Context, snapshot *Snapshot, config projection.Config) (*projection.Embedding, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	key := snapshot.Version + "|" + config.Key()
	return s.embeddings.Get(ctx, key, func(ctx context.Context) (*projection.Embedding, error) {
		features, err := s.featuresOf(ctx, snapshot)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		embedding, err := projection.Project(features, config)
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveProjection(string(config.Method), elapsed)
		}
		s.logger.Debug().
			Str("key", key).
			Int("points", len(embedding.Points)).
			Dur("elapsed", elapsed).
			Msg("embedding computed")
		return embedding, nil
	})
}

// Similar ranks every creature against the one named by key (name or pokedex number)
// on the default embedding.
func (s *Service) Similar(ctx context.Context, key string, mode similarity.Mode) ([]similarity.Ranked, error) {
	return s.SimilarWith(ctx, key, mode, s.opts.Projection)
}

// SimilarWith is Similar on the embedding computed with config.
func (s *Service) SimilarWith(ctx context.Context, key string, mode similarity.Mode, config projection.Config) ([]similarity.Ranked, error) {
	snapshot := s.Snapshot()
	entity, err := snapshot.Table.Lookup(key)
	if err != nil {
		return nil, err
	}
	embedding, err := s.embeddingOf(ctx, snapshot, config)
	if err != nil {
		return nil, err
	}
	return similarity.Rank(embedding, similarity.ByID(entity.ID), mode)
}

// EvolutionLine resolves the evolution line of name in the current snapshot.
func (s *Service) EvolutionLine(name string, opts ...evolution.Option) (evolution.Line, error) {
	return evolution.Resolve(s.Snapshot().Evolutions, name, opts...)
}
