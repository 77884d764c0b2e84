package projection

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "../testdata/pokemon.csv"

func loadFixture(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.LoadTable(fixturePath)
	require.NoError(t, err)
	return table
}

// syntheticFeatures builds two interleaved groups of rows with varied feature profiles.
func syntheticFeatures(n, d int) *FeatureMatrix {
	features := &FeatureMatrix{Version: "synthetic"}
	for j := 0; j < d; j++ {
		features.Columns = append(features.Columns, fmt.Sprintf("f%d", j))
	}
	for i := 0; i < n; i++ {
		offset := 0.0
		if i%2 == 1 {
			offset = 0.5
		}
		row := make([]float64, d)
		for j := range row {
			row[j] = offset + 0.4*float64((i*7+j*13)%17)/16
		}
		features.IDs = append(features.IDs, i+1)
		features.Names = append(features.Names, fmt.Sprintf("mon-%d", i+1))
		features.Rows = append(features.Rows, row)
	}
	return features
}

func assertUnitSquare(t *testing.T, embedding *Embedding) {
	t.Helper()
	xs := make([]float64, len(embedding.Points))
	ys := make([]float64, len(embedding.Points))
	for i, p := range embedding.Points {
		require.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y), "point %d has NaN coordinates", i)
		xs[i], ys[i] = p.X, p.Y
	}
	for axis, values := range map[string][]float64{"x": xs, "y": ys} {
		assert.Equal(t, 0.0, slices.Min(values), "%s min", axis)
		assert.Equal(t, 1.0, slices.Max(values), "%s max", axis)
	}
}

func TestComputeEmbedding_Fixture(t *testing.T) {
	table := loadFixture(t)

	embedding, err := ComputeEmbedding(table, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, embedding.Points, table.Len())
	for i, p := range embedding.Points {
		assert.Equal(t, i+1, p.ID)
		assert.Equal(t, table.Entities()[i].Name, p.Name)
	}
	assert.Equal(t, table.Version, embedding.Version)
	assert.Equal(t, DefaultConfig(), embedding.Config)
	assertUnitSquare(t, embedding)
}

func TestProject_Reproducibility(t *testing.T) {
	features := syntheticFeatures(20, 6)
	config := DefaultConfig()
	config.NEpochs = 100

	first, err := Project(features, config)
	require.NoError(t, err)
	second, err := Project(features, config)
	require.NoError(t, err)

	assert.Equal(t, first.Points, second.Points)
}

func TestProject_EveryMetricFillsUnitSquare(t *testing.T) {
	features := syntheticFeatures(24, 5)
	for _, metric := range Metrics() {
		t.Run(metric, func(t *testing.T) {
			config := DefaultConfig()
			config.Metric = metric
			config.NEpochs = 60

			embedding, err := Project(features, config)
			require.NoError(t, err)
			assertUnitSquare(t, embedding)
		})
	}
}

func TestProject_SpectralInitialization(t *testing.T) {
	features := syntheticFeatures(spectralMinSamples+10, 8)
	config := DefaultConfig()
	config.NEpochs = 30

	embedding, err := Project(features, config)
	require.NoError(t, err)
	require.Len(t, embedding.Points, spectralMinSamples+10)
	assertUnitSquare(t, embedding)
}

func TestProject_InsufficientData(t *testing.T) {
	features := syntheticFeatures(5, 4)
	config := DefaultConfig()
	config.NNeighbors = 10

	_, err := Project(features, config)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 5, insufficient.Rows)
	assert.Equal(t, 10, insufficient.Need)
}

func TestProject_NeighborsEqualToRows(t *testing.T) {
	features := syntheticFeatures(5, 4)

	embedding, err := Project(features, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, embedding.Points, 5)
}

func TestProject_DegenerateColumns(t *testing.T) {
	table := loadFixture(t)
	features, err := NormalizeFeatures(table)
	require.NoError(t, err)

	strict := DefaultConfig()
	strict.RejectDegenerate = true
	_, err = Project(features, strict)

	var degenerate *DegenerateColumnError
	require.True(t, errors.As(err, &degenerate), "got %v", err)
	assert.Equal(t, []string{"is_legendary"}, degenerate.Columns)

	_, err = Project(features, DefaultConfig())
	assert.NoError(t, err)
}

func TestProject_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown method", func(c *Config) { c.Method = "tsne" }, "method"},
		{"one neighbor", func(c *Config) { c.NNeighbors = 1 }, "n_neighbors"},
		{"unknown metric", func(c *Config) { c.Metric = "chebyshev" }, "metric"},
		{"negative min dist", func(c *Config) { c.MinDist = -0.1 }, "min_dist"},
		{"min dist above spread", func(c *Config) { c.MinDist = 2 }, "min_dist"},
		{"zero spread", func(c *Config) { c.Spread = 0 }, "spread"},
		{"zero epochs", func(c *Config) { c.NEpochs = 0 }, "n_epochs"},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }, "learning_rate"},
		{"NaN min dist", func(c *Config) { c.MinDist = math.NaN() }, "min_dist"},
		{"NaN spread", func(c *Config) { c.Spread = math.NaN() }, "spread"},
		{"infinite spread", func(c *Config) { c.Spread = math.Inf(1) }, "spread"},
		{"NaN learning rate", func(c *Config) { c.LearningRate = math.NaN() }, "learning_rate"},
		{"infinite learning rate", func(c *Config) { c.LearningRate = math.Inf(1) }, "learning_rate"},
		{"NaN negative sample rate", func(c *Config) { c.NegativeSampleRate = math.NaN() }, "negative_sample_rate"},
		{"negative sample rate", func(c *Config) { c.NegativeSampleRate = -1 }, "negative_sample_rate"},
	}

	features := syntheticFeatures(10, 3)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)

			_, err := Project(features, config)

			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "got %v", err)
			assert.Equal(t, tc.field, configErr.Field)
		})
	}
}

func TestProject_PCA(t *testing.T) {
	features := &FeatureMatrix{Columns: []string{"a", "b", "c"}}
	for i := 0; i < 5; i++ {
		x := float64(i)
		features.IDs = append(features.IDs, i+1)
		features.Names = append(features.Names, fmt.Sprint(i+1))
		features.Rows = append(features.Rows, []float64{x / 4, x / 8, x * x / 16})
	}

	config := DefaultConfig()
	config.Method = MethodPCA
	embedding, err := Project(features, config)
	require.NoError(t, err)
	assertUnitSquare(t, embedding)

	// Every feature grows with i, so the first component orders the rows.
	increasing, decreasing := true, true
	for i := 1; i < len(embedding.Points); i++ {
		increasing = increasing && embedding.Points[i].X > embedding.Points[i-1].X
		decreasing = decreasing && embedding.Points[i].X < embedding.Points[i-1].X
	}
	assert.True(t, increasing || decreasing, "first axis not monotonic: %+v", embedding.Points)
}

func TestConfigKey(t *testing.T) {
	base := DefaultConfig()
	reseeded := DefaultConfig()
	reseeded.Seed = 7

	assert.Equal(t, base.Key(), DefaultConfig().Key())
	assert.NotEqual(t, base.Key(), reseeded.Key())
	assert.True(t, strings.HasPrefix(base.Key(), "umap:"))

	pca := DefaultConfig()
	pca.Method = MethodPCA
	pca.Seed = 99
	other := pca
	other.Seed = 1
	assert.Equal(t, pca.Key(), other.Key())
}

func TestNormalizeAxes_ConstantAxis(t *testing.T) {
	coordinates := [][]float64{{1, 5}, {3, 5}, {2, 5}}
	normalizeAxes(coordinates)
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {0.5, 0}}, coordinates)
}
