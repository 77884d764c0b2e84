// Package projection turns the Pokédex table into a 2-D map.
//
// # Pipeline
//
// NormalizeFeatures picks the complete numeric columns of the table and rescales each to
// [0,1]. Project then reduces that matrix to two coordinates per creature and rescales
// both axes to [0,1] independently, so creatures with similar stat profiles land close
// together.
//
// # UMAP (Uniform Manifold Approximation and Projection) Overview
//
// UMAP is a nonlinear dimensionality reduction technique that preserves local structure
// better than linear methods like PCA. It works by:
//
//  1. Constructing a k-nearest neighbor graph in feature space
//  2. Converting distances to fuzzy membership strengths (fuzzy simplicial set)
//  3. Initializing a low-dimensional embedding via spectral methods
//  4. Optimizing the embedding via stochastic gradient descent with negative sampling
//
// Reference: McInnes, L., Healy, J., & Melville, J. (2018). UMAP: Uniform Manifold
// Approximation and Projection for Dimension Reduction. https://arxiv.org/abs/1802.03426
//
// Every step is deterministic for a fixed input and Config: neighbor ties break on row
// index, edges are kept in sorted order and all randomness comes from Config.Seed.
package projection

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// spectralMinSamples is the smallest dataset that gets a spectral initialization.
// Below it a seeded random layout works as well and is much cheaper.
const spectralMinSamples = 50

// COOMatrix represents a sparse matrix in coordinate (COO) format.
type COOMatrix struct {
	Rows []int
	Cols []int
	Data []float64
	NRow int
	NCol int
}

// knnResult holds k-nearest neighbor indices and distances for all points.
type knnResult struct {
	Indices [][]int     // [nSamples][k] neighbor indices
	Dists   [][]float64 // [nSamples][k] distances to neighbors
}

// runUMAP lays out rows in two dimensions. The caller has validated the config and
// checked that there are at least NNeighbors rows.
func runUMAP(rows [][]float64, config Config) [][]float64 {
	nSamples := len(rows)
	distance, _ := metricByName(config.Metric)

	// A point is never its own neighbor, so at most n-1 neighbors exist.
	k := config.NNeighbors
	if k >= nSamples {
		k = nSamples - 1
	}

	// Step 1: Build k-NN graph
	knn := computeKNN(rows, k, distance)

	// Step 2: Compute fuzzy simplicial set
	sigmas, rhos := smoothKNNDist(knn.Dists, float64(k))
	graph := computeFuzzySimplicialSet(knn, sigmas, rhos, nSamples)

	// Step 3: Find output manifold parameters
	a, b := findABParams(config.Spread, config.MinDist)

	// Step 4: Initialize embedding (spectral or random)
	embedding := initializeEmbedding(graph, nSamples, 2, config.Seed)

	// Step 5: Optimize via SGD with its own RNG so initialization and layout draws
	// never interleave.
	rng := rand.New(rand.NewSource(config.Seed + 1))
	return optimizeLayout(
		embedding, graph, a, b,
		config.NEpochs, config.LearningRate,
		config.NegativeSampleRate, rng,
	)
}

// computeKNN computes k-nearest neighbors using brute force (O(n²)).
// Equal distances are ordered by row index.
func computeKNN(data [][]float64, k int, distance DistanceFunc) knnResult {
	n := len(data)
	indices := make([][]int, n)
	dists := make([][]float64, n)

	type distIdx struct {
		dist float64
		idx  int
	}

	neighbors := make([]distIdx, 0, n)
	for i := 0; i < n; i++ {
		neighbors = neighbors[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			neighbors = append(neighbors, distIdx{dist: distance(data[i], data[j]), idx: j})
		}
		sort.Slice(neighbors, func(a, b int) bool {
			if neighbors[a].dist != neighbors[b].dist {
				return neighbors[a].dist < neighbors[b].dist
			}
			return neighbors[a].idx < neighbors[b].idx
		})

		indices[i] = make([]int, k)
		dists[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			indices[i][j] = neighbors[j].idx
			dists[i][j] = neighbors[j].dist
		}
	}

	return knnResult{Indices: indices, Dists: dists}
}

// smoothKNNDist computes sigma (bandwidth) and rho (local connectivity distance) for each point.
// Uses binary search to find sigma such that the sum of fuzzy memberships equals log2(k).
func smoothKNNDist(distances [][]float64, k float64) (sigmas, rhos []float64) {
	const (
		nIter            = 64
		smoothKTolerance = 1e-5
		minKDistScale    = 1e-3
	)

	n := len(distances)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)
	target := math.Log2(k)

	for i := 0; i < n; i++ {
		dists := distances[i]

		// rho is the distance to the nearest neighbor that is not a duplicate point.
		for _, d := range dists {
			if d > 0 {
				rhos[i] = d
				break
			}
		}

		// Binary search for sigma
		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < nIter; iter++ {
			psum := 0.0
			for _, dist := range dists {
				d := dist - rhos[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum += 1.0
				}
			}

			if math.Abs(psum-target) < smoothKTolerance {
				break
			}

			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		sigmas[i] = mid

		// Enforce minimum sigma
		if minSigma := minKDistScale * stat.Mean(dists, nil); sigmas[i] < minSigma {
			sigmas[i] = minSigma
		}
	}

	return sigmas, rhos
}

// computeFuzzySimplicialSet constructs the symmetric fuzzy graph from k-NN data.
func computeFuzzySimplicialSet(knn knnResult, sigmas, rhos []float64, nSamples int) COOMatrix {
	rows, cols, vals := computeMembershipStrengths(knn, sigmas, rhos)

	graph := COOMatrix{
		Rows: rows,
		Cols: cols,
		Data: vals,
		NRow: nSamples,
		NCol: nSamples,
	}

	return fuzzySetUnion(graph)
}

// computeMembershipStrengths computes fuzzy membership values for each directed edge.
func computeMembershipStrengths(knn knnResult, sigmas, rhos []float64) (rows, cols []int, vals []float64) {
	n := len(knn.Indices)
	k := len(knn.Indices[0])

	rows = make([]int, 0, n*k)
	cols = make([]int, 0, n*k)
	vals = make([]float64, 0, n*k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			dist := knn.Dists[i][j]

			var val float64
			if dist-rhos[i] <= 0 || sigmas[i] == 0 {
				val = 1.0
			} else {
				val = math.Exp(-(dist - rhos[i]) / sigmas[i])
			}

			rows = append(rows, i)
			cols = append(cols, knn.Indices[i][j])
			vals = append(vals, val)
		}
	}

	return rows, cols, vals
}

// fuzzySetUnion symmetrizes the graph using fuzzy set union.
// Union formula: P(A ∪ B) = P(A) + P(B) - P(A)P(B)
//
// An edge present in one direction only gets its mirror with the same weight.
func fuzzySetUnion(graph COOMatrix) COOMatrix {
	type edge struct{ r, c int }
	directed := make(map[edge]float64, len(graph.Rows))
	for i := range graph.Rows {
		directed[edge{graph.Rows[i], graph.Cols[i]}] = graph.Data[i]
	}

	union := make(map[edge]float64, 2*len(directed))
	for e, v := range directed {
		vt := directed[edge{e.c, e.r}]
		w := v + vt - v*vt
		if w > 0 {
			union[e] = w
			union[edge{e.c, e.r}] = w
		}
	}

	// Sort edges for reproducibility
	edges := make([]edge, 0, len(union))
	for e := range union {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].r != edges[j].r {
			return edges[i].r < edges[j].r
		}
		return edges[i].c < edges[j].c
	})

	result := COOMatrix{
		Rows: make([]int, len(edges)),
		Cols: make([]int, len(edges)),
		Data: make([]float64, len(edges)),
		NRow: graph.NRow,
		NCol: graph.NCol,
	}
	for i, e := range edges {
		result.Rows[i] = e.r
		result.Cols[i] = e.c
		result.Data[i] = union[e]
	}
	return result
}

// findABParams fits curve parameters for the low-dimensional membership function.
// Fits: f(x) = 1 / (1 + a * x^(2b)) to approximate the target distribution.
//
// A coarse grid search picks the starting point and Nelder-Mead refines it. The grid
// answer is kept whenever the refinement fails or lands outside a, b > 0.
func findABParams(spread, minDist float64) (a, b float64) {
	const nPoints = 300
	xv := make([]float64, nPoints)
	yv := make([]float64, nPoints)

	for i := 0; i < nPoints; i++ {
		xv[i] = float64(i) / float64(nPoints-1) * spread * 3
		if xv[i] < minDist {
			yv[i] = 1.0
		} else {
			yv[i] = math.Exp(-(xv[i] - minDist) / spread)
		}
	}

	curveError := func(params []float64) float64 {
		aTest, bTest := params[0], params[1]
		if aTest <= 0 || bTest <= 0 {
			return math.Inf(1)
		}
		sum := 0.0
		for i := 0; i < nPoints; i++ {
			diff := 1.0/(1.0+aTest*math.Pow(xv[i], 2*bTest)) - yv[i]
			sum += diff * diff
		}
		return sum
	}

	bestA, bestB := 1.0, 1.0
	bestError := math.Inf(1)
	for ai := 1; ai <= 100; ai++ {
		for bi := 2; bi <= 40; bi++ {
			aTest, bTest := float64(ai)*0.1, float64(bi)*0.05
			if err := curveError([]float64{aTest, bTest}); err < bestError {
				bestError = err
				bestA, bestB = aTest, bTest
			}
		}
	}

	problem := optimize.Problem{Func: curveError}
	result, err := optimize.Minimize(problem, []float64{bestA, bestB}, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return bestA, bestB
	}
	if result.F < bestError && result.X[0] > 0 && result.X[1] > 0 {
		return result.X[0], result.X[1]
	}
	return bestA, bestB
}

// initializeEmbedding creates the initial low-dimensional embedding.
// Uses spectral initialization when possible, falls back to random.
func initializeEmbedding(graph COOMatrix, nSamples, nDims int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))

	embedding := spectralLayout(graph, nSamples, nDims)
	if embedding != nil {
		// Add small noise so coincident eigenvector entries separate.
		for i := range embedding {
			for j := range embedding[i] {
				embedding[i][j] += (rng.Float64() - 0.5) * 0.0001
			}
		}
		return embedding
	}

	embedding = make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		embedding[i] = make([]float64, nDims)
		for j := 0; j < nDims; j++ {
			embedding[i][j] = (rng.Float64() - 0.5) * 10
		}
	}
	return embedding
}

// spectralLayout computes initial embedding using eigenvectors of the symmetric
// normalized graph Laplacian. Returns nil for small datasets or when the
// decomposition fails.
func spectralLayout(graph COOMatrix, nSamples, nDims int) [][]float64 {
	if nSamples < spectralMinSamples {
		return nil
	}

	degrees := make([]float64, nSamples)
	for i := range graph.Rows {
		degrees[graph.Rows[i]] += graph.Data[i]
	}

	// L = I - D^(-1/2) * A * D^(-1/2)
	laplacian := mat.NewSymDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		laplacian.SetSym(i, i, 1.0)
	}
	for i := range graph.Rows {
		r, c := graph.Rows[i], graph.Cols[i]
		if r >= c || degrees[r] == 0 || degrees[c] == 0 {
			continue // the graph is symmetric; set each pair once
		}
		laplacian.SetSym(r, c, -graph.Data[i]/math.Sqrt(degrees[r]*degrees[c]))
	}

	var eigen mat.EigenSym
	if ok := eigen.Factorize(laplacian, true); !ok {
		return nil
	}
	values := eigen.Values(nil)
	var vectors mat.Dense
	eigen.VectorsTo(&vectors)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	// Skip the trivial eigenvector belonging to the smallest eigenvalue.
	embedding := make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		embedding[i] = make([]float64, nDims)
		for j := 0; j < nDims && j+1 < len(order); j++ {
			embedding[i][j] = vectors.At(i, order[j+1])
		}
	}

	// Scale to [0, 10] per axis.
	for d := 0; d < nDims; d++ {
		column := make([]float64, nSamples)
		for i := range embedding {
			column[i] = embedding[i][d]
		}
		minVal, maxVal := minMax(column)
		if scale := maxVal - minVal; scale > 0 {
			for i := range embedding {
				embedding[i][d] = (embedding[i][d] - minVal) / scale * 10
			}
		}
	}

	return embedding
}

// optimizeLayout performs SGD optimization to refine the embedding. Both endpoints of
// an edge move during attraction; only the head moves during repulsion.
func optimizeLayout(
	embedding [][]float64,
	graph COOMatrix,
	a, b float64,
	nEpochs int,
	initialAlpha float64,
	negativeSampleRate float64,
	rng *rand.Rand,
) [][]float64 {
	nSamples := len(embedding)
	nEdges := len(graph.Rows)

	if nEdges == 0 || nSamples < 2 {
		return embedding
	}

	maxWeight := 0.0
	for _, w := range graph.Data {
		maxWeight = math.Max(maxWeight, w)
	}
	if maxWeight == 0 {
		maxWeight = 1.0
	}

	// Each edge is sampled proportionally to its weight; edges too weak to be sampled
	// even once over the whole run are dropped.
	epochsPerSample := make([]float64, nEdges)
	for i, w := range graph.Data {
		if w < maxWeight/float64(nEpochs) {
			epochsPerSample[i] = -1
			continue
		}
		epochsPerSample[i] = maxWeight / w
	}

	epochOfNextSample := make([]float64, nEdges)
	copy(epochOfNextSample, epochsPerSample)

	nNegPerPos := int(negativeSampleRate)

	for epoch := 0; epoch < nEpochs; epoch++ {
		alpha := initialAlpha * (1.0 - float64(epoch)/float64(nEpochs))

		for i := 0; i < nEdges; i++ {
			if epochsPerSample[i] < 0 || epochOfNextSample[i] > float64(epoch) {
				continue
			}

			j := graph.Rows[i]
			k := graph.Cols[i]
			current := embedding[j]
			other := embedding[k]

			// Positive sample (attraction)
			distSq := squaredEuclidean(current, other)
			if distSq > 0 {
				gradCoeff := -2.0 * a * b * math.Pow(distSq, b-1.0)
				gradCoeff /= a*math.Pow(distSq, b) + 1.0

				for d := range current {
					grad := clip(gradCoeff * (current[d] - other[d]))
					current[d] += grad * alpha
					other[d] -= grad * alpha
				}
			}

			// Negative samples (repulsion)
			for p := 0; p < nNegPerPos; p++ {
				negIdx := rng.Intn(nSamples)
				if negIdx == j {
					continue
				}

				negPoint := embedding[negIdx]
				distSq := squaredEuclidean(current, negPoint)
				if distSq <= 0 {
					continue
				}

				gradCoeff := 2.0 * b
				gradCoeff /= (0.001 + distSq) * (a*math.Pow(distSq, b) + 1)
				for d := range current {
					grad := clip(gradCoeff * (current[d] - negPoint[d]))
					current[d] += grad * alpha
				}
			}

			epochOfNextSample[i] += epochsPerSample[i]
		}
	}

	return embedding
}

// squaredEuclidean computes the squared Euclidean distance.
func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// clip constrains gradient values to prevent explosive updates.
func clip(val float64) float64 {
	return math.Max(-4.0, math.Min(4.0, val))
}
