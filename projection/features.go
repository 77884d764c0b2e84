package projection

import (
	"math"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"gonum.org/v1/gonum/floats"
)

// ExcludedColumns are numeric columns that describe the record rather than the creature's
// battle profile, so they never enter the feature matrix.
var ExcludedColumns = []string{
	"percentage_male",
	dataset.ColumnGeneration,
	dataset.ColumnID,
	dataset.ColumnHeight,
	dataset.ColumnWeight,
}

// FeatureMatrix is the min-max scaled numeric view of a table, one row per entity in
// table order. Every value lies in [0,1].
type FeatureMatrix struct {
	IDs     []int
	Names   []string
	Columns []string
	Rows    [][]float64

	// Degenerate lists the zero-variance columns. They are kept as all-zero columns.
	Degenerate []string

	// Version is the dataset version the matrix was derived from.
	Version string
}

// NormalizeFeatures selects the usable numeric columns of the table and rescales each one
// independently to [0,1].
//
// A column is used when it is numeric, not in ExcludedColumns and has no missing value.
// A column whose min equals its max cannot be rescaled; it becomes all zeros and is
// reported in FeatureMatrix.Degenerate.
func NormalizeFeatures(table *dataset.Table) (*FeatureMatrix, error) {
	entities := table.Entities()
	if len(entities) == 0 {
		return nil, &InsufficientDataError{Rows: 0, Need: 1}
	}

	excluded := make(map[string]bool, len(ExcludedColumns))
	for _, column := range ExcludedColumns {
		excluded[column] = true
	}

	var columns []string
	var sourceIndexes []int
	for columnIndex, column := range table.NumericColumns {
		if excluded[column] || columnHasMissing(entities, columnIndex) {
			continue
		}
		columns = append(columns, column)
		sourceIndexes = append(sourceIndexes, columnIndex)
	}
	if len(columns) == 0 {
		return nil, &InsufficientDataError{Rows: len(entities), Need: 1, Reason: "no complete numeric column"}
	}

	ids := make([]int, len(entities))
	names := make([]string, len(entities))
	rows := make([][]float64, len(entities))
	for i := range rows {
		ids[i] = entities[i].ID
		names[i] = entities[i].Name
		rows[i] = make([]float64, len(columns))
	}

	var degenerate []string
	columnValues := make([]float64, len(entities))
	for j, sourceIndex := range sourceIndexes {
		for i := range entities {
			columnValues[i] = entities[i].Values[sourceIndex]
		}
		minValue, maxValue := floats.Min(columnValues), floats.Max(columnValues)
		valueRange := maxValue - minValue
		if valueRange == 0 {
			degenerate = append(degenerate, columns[j])
			continue // rows are already zero
		}
		for i := range entities {
			rows[i][j] = (columnValues[i] - minValue) / valueRange
		}
	}

	return &FeatureMatrix{
		IDs:        ids,
		Names:      names,
		Columns:    columns,
		Rows:       rows,
		Degenerate: degenerate,
		Version:    table.Version,
	}, nil
}

func columnHasMissing(entities []dataset.Entity, columnIndex int) bool {
	for i := range entities {
		if math.IsNaN(entities[i].Values[columnIndex]) {
			return true
		}
	}
	return false
}
