package qdrant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/projection"
)

func TestToPointStruct_RoundTripsPayload(t *testing.T) {
	point := Point{ID: 6, Name: "Charizard", Type1: "fire", Type2: "flying", X: 0.25, Y: 0.75, Vector: []float32{0.1, 0.9}}

	wire := toPointStruct(point)

	assert.Equal(t, uint64(6), wire.Id.GetNum())
	assert.Equal(t, []float32{0.1, 0.9}, wire.Vectors.GetVector().GetData())
	assert.Equal(t, "flying", wire.Payload["type2"].GetStringValue())

	back := fromPayload(wire.Id, wire.Payload)
	point.Vector = nil
	assert.Equal(t, point, back)
}

func TestBuildPoints(t *testing.T) {
	table, err := dataset.LoadTable("../testdata/pokemon.csv")
	require.NoError(t, err)
	features, err := projection.NormalizeFeatures(table)
	require.NoError(t, err)

	embedding := &projection.Embedding{Version: table.Version}
	for i, id := range features.IDs {
		embedding.Points = append(embedding.Points, projection.Point{ID: id, Name: features.Names[i], X: float64(i), Y: -float64(i)})
	}

	points, err := BuildPoints(table, features, embedding)
	require.NoError(t, err)
	require.Len(t, points, table.Len())

	charizard := points[5]
	assert.Equal(t, 6, charizard.ID)
	assert.Equal(t, "Charizard", charizard.Name)
	assert.Equal(t, "fire", charizard.Type1)
	assert.Equal(t, "flying", charizard.Type2)
	assert.Equal(t, 5.0, charizard.X)
	assert.Equal(t, -5.0, charizard.Y)
	require.Len(t, charizard.Vector, len(features.Columns))
	for j, v := range features.Rows[5] {
		assert.InDelta(t, v, float64(charizard.Vector[j]), 1e-6)
	}
}

func TestBuildPoints_Mismatch(t *testing.T) {
	table, err := dataset.LoadTable("../testdata/pokemon.csv")
	require.NoError(t, err)
	features, err := projection.NormalizeFeatures(table)
	require.NoError(t, err)

	_, err = BuildPoints(table, features, &projection.Embedding{})
	assert.Error(t, err)
}

type fakeStore struct {
	points  map[int]Point
	deleted []int
	getErr  error
}

func (f *fakeStore) Upsert(_ context.Context, points []Point) error {
	for _, point := range points {
		f.points[point.ID] = point
	}
	return nil
}

func (f *fakeStore) GetAll(context.Context) ([]Point, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	all := make([]Point, 0, len(f.points))
	for _, point := range f.points {
		all = append(all, point)
	}
	return all, nil
}

func (f *fakeStore) Delete(_ context.Context, ids ...int) error {
	for _, id := range ids {
		delete(f.points, id)
		f.deleted = append(f.deleted, id)
	}
	return nil
}

func syncInputs(t *testing.T) (*dataset.Table, *projection.FeatureMatrix, *projection.Embedding) {
	t.Helper()
	table, err := dataset.LoadTable("../testdata/pokemon.csv")
	require.NoError(t, err)
	features, err := projection.NormalizeFeatures(table)
	require.NoError(t, err)
	embedding := &projection.Embedding{Version: table.Version}
	for i, id := range features.IDs {
		embedding.Points = append(embedding.Points, projection.Point{ID: id, Name: features.Names[i]})
	}
	return table, features, embedding
}

func TestSync_RemovesStalePoints(t *testing.T) {
	table, features, embedding := syncInputs(t)
	store := &fakeStore{points: map[int]Point{
		6:   {ID: 6, Name: "Charizard"},
		150: {ID: 150, Name: "Mewtwo"},
		151: {ID: 151, Name: "Mew"},
	}}

	result, err := Sync(context.Background(), store, table, features, embedding)
	require.NoError(t, err)

	assert.Equal(t, table.Len(), result.Written)
	assert.Equal(t, 2, result.Removed)
	assert.ElementsMatch(t, []int{150, 151}, store.deleted)
	assert.Len(t, store.points, table.Len())
}

func TestSync_NothingStale(t *testing.T) {
	table, features, embedding := syncInputs(t)
	store := &fakeStore{points: map[int]Point{}}

	result, err := Sync(context.Background(), store, table, features, embedding)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Written: table.Len()}, result)
	assert.Empty(t, store.deleted)
}

func TestSync_ScrollFailureKeepsWrittenCount(t *testing.T) {
	table, features, embedding := syncInputs(t)
	boom := errors.New("scroll failed")
	store := &fakeStore{points: map[int]Point{}, getErr: boom}

	result, err := Sync(context.Background(), store, table, features, embedding)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, table.Len(), result.Written)
	assert.Empty(t, store.deleted)
}

func TestStaleIDs(t *testing.T) {
	table, _, _ := syncInputs(t)
	stored := []Point{{ID: 1}, {ID: 999}, {ID: 12}, {ID: 0}}
	assert.Equal(t, []int{999, 0}, staleIDs(stored, table))
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, Options{Host: "127.0.0.1", Port: 1, Collection: "pokemon"}, 16)
	assert.Error(t, err)
}
