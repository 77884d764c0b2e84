package projection

import (
	"errors"
	"strings"
	"testing"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFeatures_Fixture(t *testing.T) {
	table := loadFixture(t)

	features, err := NormalizeFeatures(table)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"against_electric", "against_fire", "against_flying", "against_grass",
		"against_ground", "against_ice", "against_psychic", "against_water",
		"attack", "base_total", "defense", "hp",
		"sp_attack", "sp_defense", "speed", "is_legendary",
	}, features.Columns)
	assert.Equal(t, []string{"is_legendary"}, features.Degenerate)
	assert.Equal(t, table.Version, features.Version)
	require.Len(t, features.Rows, table.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, features.IDs)

	degenerate := map[string]bool{"is_legendary": true}
	for j, column := range features.Columns {
		minValue, maxValue := 1.0, 0.0
		for _, row := range features.Rows {
			minValue = min(minValue, row[j])
			maxValue = max(maxValue, row[j])
		}
		if degenerate[column] {
			assert.Equal(t, 0.0, minValue, column)
			assert.Equal(t, 0.0, maxValue, column)
			continue
		}
		assert.Equal(t, 0.0, minValue, column)
		assert.Equal(t, 1.0, maxValue, column)
	}
}

func TestNormalizeFeatures_ExcludesMetaAndIncompleteColumns(t *testing.T) {
	table := loadFixture(t)

	features, err := NormalizeFeatures(table)
	require.NoError(t, err)

	for _, column := range []string{
		"pokedex_number", "generation", "percentage_male", "height_m", "weight_kg",
		"base_happiness", // Caterpie's cell is empty
		"capture_rate",   // not numeric
	} {
		assert.NotContains(t, features.Columns, column)
	}
}

func TestNormalizeFeatures_Scaling(t *testing.T) {
	csv := strings.Join([]string{
		"pokedex_number,name,type1,hp,speed",
		"1,A,grass,10,50",
		"2,B,fire,20,50",
		"3,C,water,30,50",
	}, "\n")
	table, err := dataset.ParseTable(strings.NewReader(csv), "v1")
	require.NoError(t, err)

	features, err := NormalizeFeatures(table)
	require.NoError(t, err)

	assert.Equal(t, []string{"hp", "speed"}, features.Columns)
	assert.Equal(t, [][]float64{{0, 0}, {0.5, 0}, {1, 0}}, features.Rows)
	assert.Equal(t, []string{"speed"}, features.Degenerate)
}

func TestNormalizeFeatures_Empty(t *testing.T) {
	table, err := dataset.ParseTable(strings.NewReader("pokedex_number,name,type1,hp\n"), "empty")
	require.NoError(t, err)

	_, err = NormalizeFeatures(table)

	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestDistanceMetrics(t *testing.T) {
	tests := []struct {
		metric string
		a, b   []float64
		want   float64
	}{
		{MetricEuclidean, []float64{0, 0, 0}, []float64{3, 4, 0}, 5},
		{MetricManhattan, []float64{0, 0, 0}, []float64{3, 4, 0}, 7},
		{MetricCosine, []float64{1, 2}, []float64{2, 4}, 0},
		{MetricCosine, []float64{1, 0}, []float64{0, 1}, 1},
		{MetricCosine, []float64{0, 0}, []float64{0, 0}, 0},
		{MetricCosine, []float64{0, 0}, []float64{1, 0}, 1},
		{MetricCorrelation, []float64{1, 2, 3}, []float64{2, 4, 6}, 0},
		{MetricCorrelation, []float64{1, 2, 3}, []float64{3, 2, 1}, 2},
		{MetricCorrelation, []float64{1, 1, 1}, []float64{2, 2, 2}, 0},
		{MetricCorrelation, []float64{1, 1, 1}, []float64{1, 2, 3}, 1},
	}

	for _, tc := range tests {
		distance, ok := metricByName(tc.metric)
		require.True(t, ok, tc.metric)
		assert.InDelta(t, tc.want, distance(tc.a, tc.b), 1e-9, "%s(%v, %v)", tc.metric, tc.a, tc.b)
	}
}
