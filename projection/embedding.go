package projection

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
)

// Point is one creature's position on the map. X and Y lie in [0,1].
type Point struct {
	ID   int
	Name string
	X, Y float64
}

// Embedding is the 2-D map of a whole table, in table order.
type Embedding struct {
	Points []Point
	Config Config

	// Version is the dataset version the embedding was computed from.
	Version string
}

// ComputeEmbedding normalizes the table's features and projects them.
func ComputeEmbedding(table *dataset.Table, config Config) (*Embedding, error) {
	features, err := NormalizeFeatures(table)
	if err != nil {
		return nil, fmt.Errorf("normalizing features: %w", err)
	}
	return Project(features, config)
}

// Project reduces a feature matrix to two dimensions and rescales each output axis to
// [0,1] independently. An axis on which every point coincides maps to all zeros.
func Project(features *FeatureMatrix, config Config) (*Embedding, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.RejectDegenerate && len(features.Degenerate) > 0 {
		return nil, &DegenerateColumnError{Columns: features.Degenerate}
	}

	nSamples := len(features.Rows)
	need := 2
	if config.Method == MethodUMAP && config.NNeighbors > need {
		need = config.NNeighbors
	}
	if nSamples < need {
		return nil, &InsufficientDataError{Rows: nSamples, Need: need}
	}

	var coordinates [][]float64
	switch config.Method {
	case MethodPCA:
		var err error
		if coordinates, err = runPCA(features.Rows); err != nil {
			return nil, fmt.Errorf("pca: %w", err)
		}
	default:
		coordinates = runUMAP(features.Rows, config)
	}
	normalizeAxes(coordinates)

	points := make([]Point, nSamples)
	for i, coords := range coordinates {
		points[i] = Point{X: coords[0], Y: coords[1]}
		if i < len(features.IDs) {
			points[i].ID = features.IDs[i]
		}
		if i < len(features.Names) {
			points[i].Name = features.Names[i]
		}
	}

	return &Embedding{Points: points, Config: config, Version: features.Version}, nil
}

// normalizeAxes rescales every column of coordinates to [0,1] in place.
func normalizeAxes(coordinates [][]float64) {
	if len(coordinates) == 0 {
		return
	}
	column := make([]float64, len(coordinates))
	for d := range coordinates[0] {
		for i := range coordinates {
			column[i] = coordinates[i][d]
		}
		minVal, maxVal := minMax(column)
		scale := maxVal - minVal
		for i := range coordinates {
			if scale == 0 {
				coordinates[i][d] = 0
				continue
			}
			coordinates[i][d] = (coordinates[i][d] - minVal) / scale
		}
	}
}

func minMax(values []float64) (minVal, maxVal float64) {
	return floats.Min(values), floats.Max(values)
}
