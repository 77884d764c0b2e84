package projection

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Supported distance metrics for the neighbor graph.
const (
	MetricEuclidean   = "euclidean"
	MetricManhattan   = "manhattan"
	MetricCosine      = "cosine"
	MetricCorrelation = "correlation"
)

// DistanceFunc measures the dissimilarity of two equal-length feature vectors.
type DistanceFunc func(a, b []float64) float64

var metrics = map[string]DistanceFunc{
	MetricEuclidean:   euclideanDistance,
	MetricManhattan:   manhattanDistance,
	MetricCosine:      cosineDistance,
	MetricCorrelation: correlationDistance,
}

// Metrics returns the names of the supported metrics.
func Metrics() []string {
	return []string{MetricEuclidean, MetricManhattan, MetricCosine, MetricCorrelation}
}

func metricByName(name string) (DistanceFunc, bool) {
	distance, ok := metrics[name]
	return distance, ok
}

func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func manhattanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// cosineDistance is 1 - cos(a, b). Two zero vectors are identical (0); a zero vector
// against a non-zero one is treated as orthogonal (1).
func cosineDistance(a, b []float64) float64 {
	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	switch {
	case normA == 0 && normB == 0:
		return 0
	case normA == 0 || normB == 0:
		return 1
	}
	return clampDistance(1-floats.Dot(a, b)/(normA*normB), 2)
}

// correlationDistance is 1 - pearson(a, b), in [0, 2]. Constant vectors follow the same
// convention as zero vectors in cosineDistance.
func correlationDistance(a, b []float64) float64 {
	centeredA := centered(a)
	centeredB := centered(b)
	return cosineDistance(centeredA, centeredB)
}

func centered(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	floats.AddConst(-stat.Mean(values, nil), out)
	return out
}

// clampDistance removes the tiny negative values and overshoots rounding leaves behind.
func clampDistance(distance, upper float64) float64 {
	return math.Max(0, math.Min(upper, distance))
}
