package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"biocompare/domain/compare"
)

// ordinate runs principal coordinates analysis (classical MDS) on a
// distance matrix: square the distances, double-center
// (B = -1/2 * J * D² * J with J = I - 11ᵀ/n), eigendecompose the symmetric
// B, and scale the top eigenvectors by sqrt(max(λ, 0)). Variance explained
// is each retained eigenvalue over the sum of all non-negative eigenvalues.
func (a *Analyzer) ordinate(dist *compare.Matrix) *compare.OrdinationResult {
	n := dist.NRows()
	k := a.cfg.Components
	if k > n {
		k = n
	}

	result := &compare.OrdinationResult{
		SampleIDs:         append([]string(nil), dist.RowIDs...),
		Coordinates:       make([][]float64, n),
		VarianceExplained: make([]float64, k),
	}
	for i := range result.Coordinates {
		result.Coordinates[i] = make([]float64, k)
	}
	if n < 2 {
		return result
	}

	// Gower centering of squared distances without materialising J:
	// B_ij = -1/2 (d²_ij - rowMean_i - rowMean_j + grandMean)
	d2 := make([][]float64, n)
	rowMeans := make([]float64, n)
	grand := 0.0
	for i := 0; i < n; i++ {
		d2[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			v := dist.At(i, j)
			d2[i][j] = v * v
			rowMeans[i] += d2[i][j]
		}
		rowMeans[i] /= float64(n)
		grand += rowMeans[i]
	}
	grand /= float64(n)

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(d2[i][j]-rowMeans[i]-rowMeans[j]+grand))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(b, true) {
		a.log.Warn("[analysis] PCoA eigendecomposition failed, returning zero coordinates")
		return result
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// EigenSym yields ascending eigenvalues; sort indices descending
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool { return values[order[x]] > values[order[y]] })

	totalVar := 0.0
	for _, v := range values {
		if v > 0 {
			totalVar += v
		}
	}

	for c := 0; c < k; c++ {
		idx := order[c]
		scale := math.Sqrt(math.Max(values[idx], 0))
		for i := 0; i < n; i++ {
			result.Coordinates[i][c] = vectors.At(i, idx) * scale
		}
		if totalVar > 0 && values[idx] > 0 {
			result.VarianceExplained[c] = values[idx] / totalVar
		}
	}

	return result
}
