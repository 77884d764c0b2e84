package projection

// # Principal Component Analysis (PCA)
//
// PCA is the linear alternative to UMAP. It finds the two directions along which the
// normalized stats vary the most and projects every creature onto them.
//
// While PCA can be computed by finding eigenvectors of the covariance matrix, SVD is
// numerically more stable. For a centered data matrix X:
//   - X = U * Σ * V^T  (SVD decomposition)
//   - The columns of V are the principal components, ordered by captured variance
//   - Projecting data: X_projected = X * V[:, 0:2] gives the 2-D representation

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// runPCA projects rows onto their first two principal components.
func runPCA(rows [][]float64) ([][]float64, error) {
	numberOfRows := len(rows)
	numberOfColumns := len(rows[0])
	if numberOfColumns < 2 {
		return nil, &InsufficientDataError{Rows: numberOfRows, Need: 2, Reason: "PCA needs at least two feature columns"}
	}

	// Step 1: Convert rows to a matrix and center each column on its mean.
	dataMatrix := mat.NewDense(numberOfRows, numberOfColumns, nil)
	for rowIndex, row := range rows {
		dataMatrix.SetRow(rowIndex, row)
	}
	for columnIndex := 0; columnIndex < numberOfColumns; columnIndex++ {
		columnValues := mat.Col(nil, columnIndex, dataMatrix)
		columnMean := stat.Mean(columnValues, nil)
		for rowIndex := 0; rowIndex < numberOfRows; rowIndex++ {
			dataMatrix.Set(rowIndex, columnIndex, columnValues[rowIndex]-columnMean)
		}
	}

	// Step 2: Thin SVD; the first two columns of V are the top principal components.
	var svdDecomposition mat.SVD
	if ok := svdDecomposition.Factorize(dataMatrix, mat.SVDThin); !ok {
		return nil, errors.New("SVD factorization failed")
	}
	var rightSingularVectors mat.Dense
	svdDecomposition.VTo(&rightSingularVectors)
	if _, components := rightSingularVectors.Dims(); components < 2 {
		return nil, &InsufficientDataError{Rows: numberOfRows, Need: 2}
	}
	principalComponents := rightSingularVectors.Slice(0, numberOfColumns, 0, 2)

	// Step 3: Project the centered data onto the 2-D subspace.
	var projected mat.Dense
	projected.Mul(dataMatrix, principalComponents)

	coordinates := make([][]float64, numberOfRows)
	for rowIndex := range coordinates {
		coordinates[rowIndex] = []float64{projected.At(rowIndex, 0), projected.At(rowIndex, 1)}
	}
	return coordinates, nil
}
