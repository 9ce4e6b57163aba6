package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"biocompare/domain/compare"
)

// lfcPseudocount keeps log2 fold changes finite for taxa absent in one group
const lfcPseudocount = 1e-6

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// differential computes two-group differential abundance between exactly
// two runs: per-taxon group means, log2 fold change with a pseudocount, a
// two-sided Mann-Whitney U test, and Benjamini-Hochberg FDR correction.
// Output is sorted by absolute log2 fold change descending. With a run
// count other than two the result is a skip, not an error.
func (a *Analyzer) differential(h *compare.HarmonisedMatrix, runs []string) *compare.DifferentialResult {
	if len(runs) != 2 {
		reason := "differential analysis requires exactly 2 runs"
		a.log.Warn("[analysis] %s (have %d)", reason, len(runs))
		return &compare.DifferentialResult{Computed: false, Reason: reason}
	}

	m := h.Abundance
	rowsA := h.RowsForRun(runs[0])
	rowsB := h.RowsForRun(runs[1])

	taxa := make([]compare.DifferentialTaxon, m.NCols())
	pValues := make([]float64, m.NCols())

	for j, taxon := range m.ColIDs {
		valuesA := make([]float64, len(rowsA))
		valuesB := make([]float64, len(rowsB))
		sumA, sumB := 0.0, 0.0
		for k, i := range rowsA {
			valuesA[k] = m.At(i, j)
			sumA += valuesA[k]
		}
		for k, i := range rowsB {
			valuesB[k] = m.At(i, j)
			sumB += valuesB[k]
		}

		meanA, meanB := 0.0, 0.0
		if len(valuesA) > 0 {
			meanA = sumA / float64(len(valuesA))
		}
		if len(valuesB) > 0 {
			meanB = sumB / float64(len(valuesB))
		}

		// Taxa absent from both groups get p=1 by convention
		p := 1.0
		if sumA > 0 || sumB > 0 {
			p = mannWhitneyU(valuesA, valuesB)
		}
		pValues[j] = p

		taxa[j] = compare.DifferentialTaxon{
			Taxon:          taxon,
			MeanA:          meanA,
			MeanB:          meanB,
			Log2FoldChange: math.Log2((meanB + lfcPseudocount) / (meanA + lfcPseudocount)),
			PValue:         p,
		}
	}

	fdr := benjaminiHochberg(pValues)
	for j := range taxa {
		taxa[j].FDR = fdr[j]
	}

	sort.SliceStable(taxa, func(x, y int) bool {
		ax, ay := math.Abs(taxa[x].Log2FoldChange), math.Abs(taxa[y].Log2FoldChange)
		if ax != ay {
			return ax > ay
		}
		return taxa[x].Taxon < taxa[y].Taxon
	})

	return &compare.DifferentialResult{
		Computed: true,
		RunA:     runs[0],
		RunB:     runs[1],
		Taxa:     taxa,
	}
}

// mannWhitneyU runs a two-sided Mann-Whitney U test using the
// tie-corrected normal approximation with continuity correction. Degenerate
// inputs (empty groups, all values tied) return p=1.
func mannWhitneyU(x, y []float64) float64 {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return 1.0
	}

	combined := make([]float64, 0, n1+n2)
	combined = append(combined, x...)
	combined = append(combined, y...)
	ranks := rankData(combined)

	r1 := 0.0
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}
	u1 := r1 - float64(n1*(n1+1))/2

	n := float64(n1 + n2)
	mu := float64(n1) * float64(n2) / 2

	// Tie correction term: sum of t³-t over tie groups
	tieSum := 0.0
	counts := make(map[float64]int)
	for _, v := range combined {
		counts[v]++
	}
	for _, t := range counts {
		if t > 1 {
			tf := float64(t)
			tieSum += tf*tf*tf - tf
		}
	}

	variance := float64(n1) * float64(n2) / 12 * ((n + 1) - tieSum/(n*(n-1)))
	if variance <= 0 {
		return 1.0
	}

	z := u1 - mu
	// Continuity correction toward the mean
	switch {
	case z > 0:
		z -= 0.5
	case z < 0:
		z += 0.5
	}
	z /= math.Sqrt(variance)

	p := 2 * (1 - stdNormal.CDF(math.Abs(z)))
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// benjaminiHochberg applies FDR correction: q_i = p_i * n / rank_i with a
// running minimum from the largest rank down, mapped back to input order
func benjaminiHochberg(pValues []float64) []float64 {
	n := len(pValues)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return pValues[order[x]] < pValues[order[y]]
	})

	adjusted := make([]float64, n)
	running := math.Inf(1)
	for rank := n; rank >= 1; rank-- {
		idx := order[rank-1]
		q := pValues[idx] * float64(n) / float64(rank)
		if q < running {
			running = q
		}
		adjusted[idx] = math.Min(running, 1.0)
	}
	return adjusted
}
