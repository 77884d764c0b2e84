package projection

import (
	"math"
	"testing"
)

func TestComputeKNN(t *testing.T) {
	data := [][]float64{
		{0.0, 0.0},
		{1.0, 0.0},
		{2.0, 0.0},
		{3.0, 0.0},
	}

	knn := computeKNN(data, 2, euclideanDistance)

	if len(knn.Indices) != 4 {
		t.Fatalf("expected 4 index sets, got %d", len(knn.Indices))
	}

	// Point 0's nearest neighbor should be point 1
	if knn.Indices[0][0] != 1 {
		t.Errorf("point 0's nearest should be 1, got %d", knn.Indices[0][0])
	}

	// Point 1 is equally far from 0 and 2; the lower index comes first.
	if knn.Indices[1][0] != 0 || knn.Indices[1][1] != 2 {
		t.Errorf("point 1 neighbors should be [0 2], got %v", knn.Indices[1])
	}

	for i, row := range knn.Indices {
		for _, neighbor := range row {
			if neighbor == i {
				t.Errorf("point %d lists itself as a neighbor", i)
			}
		}
	}
}

func TestSmoothKNNDist(t *testing.T) {
	distances := [][]float64{
		{1.0, 2.0, 3.0},
		{0.5, 1.5, 2.5},
		{2.0, 4.0, 6.0},
	}

	sigmas, rhos := smoothKNNDist(distances, 3.0)

	if len(sigmas) != 3 || len(rhos) != 3 {
		t.Fatalf("wrong output lengths")
	}

	for i, s := range sigmas {
		if s <= 0 {
			t.Errorf("sigma[%d] should be positive, got %f", i, s)
		}
	}

	wantRhos := []float64{1.0, 0.5, 2.0}
	for i := range rhos {
		if rhos[i] != wantRhos[i] {
			t.Errorf("rho[%d] = %f, expected %f", i, rhos[i], wantRhos[i])
		}
	}
}

func TestFuzzySetUnion(t *testing.T) {
	graph := COOMatrix{
		Rows: []int{0, 1, 1},
		Cols: []int{1, 0, 2},
		Data: []float64{0.5, 0.5, 1.0},
		NRow: 3,
		NCol: 3,
	}

	union := fuzzySetUnion(graph)

	wantRows := []int{0, 1, 1, 2}
	wantCols := []int{1, 0, 2, 1}
	wantData := []float64{0.75, 0.75, 1.0, 1.0}
	if len(union.Rows) != len(wantRows) {
		t.Fatalf("expected %d edges, got %d", len(wantRows), len(union.Rows))
	}
	for i := range wantRows {
		if union.Rows[i] != wantRows[i] || union.Cols[i] != wantCols[i] {
			t.Errorf("edge %d = (%d,%d), expected (%d,%d)", i, union.Rows[i], union.Cols[i], wantRows[i], wantCols[i])
		}
		if math.Abs(union.Data[i]-wantData[i]) > 1e-12 {
			t.Errorf("edge %d weight = %f, expected %f", i, union.Data[i], wantData[i])
		}
	}
}

func TestFindABParams(t *testing.T) {
	for _, minDist := range []float64{0.1, 0.3} {
		a, b := findABParams(1.0, minDist)

		if a <= 0 || b <= 0 {
			t.Errorf("min_dist=%g: a and b should be positive, got a=%f, b=%f", minDist, a, b)
		}

		// Check the curve at min_dist should be close to 1
		atMinDist := 1.0 / (1.0 + a*math.Pow(minDist, 2*b))
		if atMinDist < 0.8 {
			t.Errorf("min_dist=%g: curve at min_dist should be close to 1, got %f", minDist, atMinDist)
		}
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0.0, 0.0},
		{3.0, 3.0},
		{5.0, 4.0},
		{-5.0, -4.0},
		{100.0, 4.0},
	}

	for _, tc := range tests {
		result := clip(tc.input)
		if result != tc.expected {
			t.Errorf("clip(%f) = %f, expected %f", tc.input, result, tc.expected)
		}
	}
}

func TestSpectralLayout_SmallGraphFallsBack(t *testing.T) {
	graph := COOMatrix{Rows: []int{0, 1}, Cols: []int{1, 0}, Data: []float64{1, 1}, NRow: 2, NCol: 2}
	if layout := spectralLayout(graph, 2, 2); layout != nil {
		t.Errorf("expected nil layout below %d samples, got %v", spectralMinSamples, layout)
	}
}

func BenchmarkProjectUMAP(b *testing.B) {
	features := syntheticFeatures(150, 32)

	config := DefaultConfig()
	config.NEpochs = 50
	config.NNeighbors = 10

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Project(features, config); err != nil {
			b.Fatal(err)
		}
	}
}
