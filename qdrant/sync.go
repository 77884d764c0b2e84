package qdrant

import (
	"context"
	"fmt"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/projection"
)

// BuildPoints pairs every feature row with its creature's types and embedding
// coordinates. features and embedding must come from the same table.
func BuildPoints(table *dataset.Table, features *projection.FeatureMatrix, embedding *projection.Embedding) ([]Point, error) {
	if len(features.Rows) != len(embedding.Points) {
		return nil, fmt.Errorf("features have %d rows but the embedding has %d points", len(features.Rows), len(embedding.Points))
	}

	coordinates := make(map[int]projection.Point, len(embedding.Points))
	for _, p := range embedding.Points {
		coordinates[p.ID] = p
	}

	points := make([]Point, len(features.Rows))
	for i, row := range features.Rows {
		id := features.IDs[i]
		entity, err := table.ByID(id)
		if err != nil {
			return nil, err
		}
		coordinate, ok := coordinates[id]
		if !ok {
			return nil, fmt.Errorf("pokemon %d missing from embedding", id)
		}

		vector := make([]float32, len(row))
		for j, v := range row {
			vector[j] = float32(v)
		}
		points[i] = Point{
			ID:     id,
			Name:   entity.Name,
			Type1:  entity.Type1,
			Type2:  entity.Type2,
			X:      coordinate.X,
			Y:      coordinate.Y,
			Vector: vector,
		}
	}
	return points, nil
}

// Store is the part of Client that Sync needs.
type Store interface {
	Upsert(ctx context.Context, points []Point) error
	GetAll(ctx context.Context) ([]Point, error)
	Delete(ctx context.Context, ids ...int) error
}

// SyncResult counts what Sync changed in the collection.
type SyncResult struct {
	Written int
	Removed int
}

// Sync upserts every creature into the collection, then deletes stored points whose
// pokedex number is no longer in the table.
func Sync(ctx context.Context, store Store, table *dataset.Table, features *projection.FeatureMatrix, embedding *projection.Embedding) (SyncResult, error) {
	points, err := BuildPoints(table, features, embedding)
	if err != nil {
		return SyncResult{}, err
	}
	if err := store.Upsert(ctx, points); err != nil {
		return SyncResult{}, err
	}
	result := SyncResult{Written: len(points)}

	stored, err := store.GetAll(ctx)
	if err != nil {
		return result, err
	}
	stale := staleIDs(stored, table)
	if len(stale) == 0 {
		return result, nil
	}
	if err := store.Delete(ctx, stale...); err != nil {
		return result, err
	}
	result.Removed = len(stale)
	return result, nil
}

// staleIDs returns the ids of stored points missing from table, in stored order.
func staleIDs(stored []Point, table *dataset.Table) []int {
	var stale []int
	for _, point := range stored {
		if _, err := table.ByID(point.ID); err != nil {
			stale = append(stale, point.ID)
		}
	}
	return stale
}
