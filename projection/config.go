package projection

import (
	"fmt"
	"math"
)

// Method selects the reduction technique.
type Method string

const (
	MethodUMAP Method = "umap"
	MethodPCA  Method = "pca"
)

// Config holds the hyperparameters of a projection. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	Method Method

	NNeighbors         int     // neighbors in the kNN graph (default: 5)
	MinDist            float64 // how tightly points may pack in the layout (default: 0.3)
	Spread             float64 // effective scale of embedded points (default: 1.0)
	Metric             string  // distance between feature vectors (default: correlation)
	NEpochs            int     // layout optimization epochs (default: 500)
	LearningRate       float64 // initial SGD step (default: 1.0)
	NegativeSampleRate float64 // negative samples per positive edge (default: 5)
	Seed               int64   // random seed; equal seeds give equal layouts

	// RejectDegenerate makes zero-variance feature columns fatal instead of
	// projecting them as all-zero columns.
	RejectDegenerate bool
}

// DefaultConfig returns the dashboard's projection settings.
func DefaultConfig() Config {
	return Config{
		Method:             MethodUMAP,
		NNeighbors:         5,
		MinDist:            0.3,
		Spread:             1.0,
		Metric:             MetricCorrelation,
		NEpochs:            500,
		LearningRate:       1.0,
		NegativeSampleRate: 5,
		Seed:               0,
	}
}

// Validate reports the first invalid hyperparameter as a *ConfigError.
func (c Config) Validate() error {
	switch c.Method {
	case MethodUMAP, MethodPCA:
	default:
		return &ConfigError{Field: "method", Reason: fmt.Sprintf("unknown method %q", c.Method)}
	}
	if c.Method == MethodPCA {
		return nil
	}

	if c.NNeighbors < 2 {
		return &ConfigError{Field: "n_neighbors", Reason: "must be at least 2"}
	}
	if _, ok := metricByName(c.Metric); !ok {
		return &ConfigError{Field: "metric", Reason: fmt.Sprintf("unknown metric %q", c.Metric)}
	}
	if !(c.Spread > 0) || math.IsInf(c.Spread, 0) {
		return &ConfigError{Field: "spread", Reason: "must be positive and finite"}
	}
	if !(c.MinDist >= 0 && c.MinDist <= c.Spread) {
		return &ConfigError{Field: "min_dist", Reason: "must be in [0, spread]"}
	}
	if c.NEpochs < 1 {
		return &ConfigError{Field: "n_epochs", Reason: "must be at least 1"}
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0) {
		return &ConfigError{Field: "learning_rate", Reason: "must be positive and finite"}
	}
	if !(c.NegativeSampleRate >= 0) || math.IsInf(c.NegativeSampleRate, 0) {
		return &ConfigError{Field: "negative_sample_rate", Reason: "must be finite and not negative"}
	}
	return nil
}

// Key identifies the configuration inside a cache key. Two configs with equal keys
// produce equal embeddings for the same features.
func (c Config) Key() string {
	if c.Method == MethodPCA {
		return fmt.Sprintf("pca:strict=%t", c.RejectDegenerate)
	}
	return fmt.Sprintf("umap:k=%d:metric=%s:min_dist=%g:spread=%g:epochs=%d:lr=%g:neg=%g:seed=%d:strict=%t",
		c.NNeighbors, c.Metric, c.MinDist, c.Spread, c.NEpochs,
		c.LearningRate, c.NegativeSampleRate, c.Seed, c.RejectDegenerate)
}
