package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"biocompare/domain/compare"
)

// runProfiles aggregates the matrix to one mean profile per run: rows are
// grouped by run label and averaged column-wise. Runs come back in
// first-seen row order, profiles parallel to runs.
func runProfiles(h *compare.HarmonisedMatrix) ([]string, [][]float64) {
	runs := h.RunIDs()
	m := h.Abundance

	profiles := make([][]float64, len(runs))
	for k, run := range runs {
		rows := h.RowsForRun(run)
		profile := make([]float64, m.NCols())
		for _, i := range rows {
			for j, v := range m.Row(i) {
				profile[j] += v
			}
		}
		if len(rows) > 0 {
			for j := range profile {
				profile[j] /= float64(len(rows))
			}
		}
		profiles[k] = profile
	}
	return runs, profiles
}

// similarityMetrics computes the scalar similarity summary across all
// unordered run pairs. Metrics that cannot be computed for a pair (fewer
// than 3 co-present taxa for Spearman, zero-sum profiles for Bray-Curtis)
// are omitted from that metric's aggregate rather than failing the call.
func (a *Analyzer) similarityMetrics(h *compare.HarmonisedMatrix, runs []string, profiles [][]float64) map[string]float64 {
	metrics := make(map[string]float64)
	m := h.Abundance

	if len(runs) >= 2 {
		var jaccard, sorensen, spearman, bray []float64

		for i := 0; i < len(runs); i++ {
			for j := i + 1; j < len(runs); j++ {
				p1, p2 := profiles[i], profiles[j]

				intersection, union := 0, 0
				present1, present2 := 0, 0
				sum1, sum2 := 0.0, 0.0
				var common1, common2 []float64
				for t := range p1 {
					sum1 += p1[t]
					sum2 += p2[t]
					in1, in2 := p1[t] > 0, p2[t] > 0
					if in1 {
						present1++
					}
					if in2 {
						present2++
					}
					if in1 && in2 {
						intersection++
						common1 = append(common1, p1[t])
						common2 = append(common2, p2[t])
					}
					if in1 || in2 {
						union++
					}
				}

				if union > 0 {
					jaccard = append(jaccard, float64(intersection)/float64(union))
				}
				if present1+present2 > 0 {
					sorensen = append(sorensen, 2*float64(intersection)/float64(present1+present2))
				}
				if len(common1) >= 3 {
					if rho, ok := spearmanRho(common1, common2); ok {
						spearman = append(spearman, rho)
					}
				}
				// Bray-Curtis enters the aggregate only when both profiles
				// have a nonzero total
				if sum1 > 0 && sum2 > 0 {
					if bc, ok := brayCurtis(p1, p2); ok {
						bray = append(bray, 1-bc)
					}
				}
			}
		}

		putMeanStd(metrics, "jaccard", jaccard, true)
		putMeanStd(metrics, "sorensen", sorensen, false)
		putMeanStd(metrics, "spearman", spearman, true)
		putMeanStd(metrics, "bray_curtis_similarity", bray, false)
	}

	metrics["total_taxa"] = float64(m.NCols())

	observed := 0
	for j := 0; j < m.NCols(); j++ {
		if m.ColPrevalence(j) > 0 {
			observed++
		}
	}
	metrics["total_taxa_observed"] = float64(observed)

	return metrics
}

// putMeanStd stores "<name>_mean" (and optionally "<name>_std") for a
// non-empty series; empty series leave the metric out of the map
func putMeanStd(metrics map[string]float64, name string, values []float64, withStd bool) {
	if len(values) == 0 {
		return
	}
	mean, _ := stats.Mean(values)
	metrics[name+"_mean"] = mean
	if withStd {
		std, _ := stats.StandardDeviation(values)
		metrics[name+"_std"] = std
	}
}

// pairwiseSimilarity builds the full run x run Bray-Curtis similarity
// matrix over mean run profiles. Diagonal is 1.0; pairs where either
// profile sums to zero are 0.0.
func pairwiseSimilarity(runs []string, profiles [][]float64) *compare.Matrix {
	sim := compare.NewMatrix(runs, runs)
	for i := range runs {
		for j := range runs {
			if i == j {
				sim.Set(i, j, 1.0)
				continue
			}
			if bc, ok := brayCurtis(profiles[i], profiles[j]); ok {
				sim.Set(i, j, 1-bc)
			} else {
				sim.Set(i, j, 0.0)
			}
		}
	}
	return sim
}

// brayCurtis returns the Bray-Curtis dissimilarity between two profiles.
// The second return is false when the statistic is undefined (both
// profiles sum to zero).
func brayCurtis(a, b []float64) (float64, bool) {
	var num, den float64
	for i := range a {
		num += math.Abs(a[i] - b[i])
		den += a[i] + b[i]
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// spearmanRho computes Spearman's rank correlation as the Pearson
// correlation of tie-averaged ranks. The second return is false when the
// correlation is undefined (constant input).
func spearmanRho(x, y []float64) (float64, bool) {
	return pearson(rankData(x), rankData(y))
}

// pearson computes the Pearson correlation coefficient
func pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, false
	}

	n := float64(len(x))
	sumX, sumY := 0.0, 0.0
	sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0

	for i := 0; i < len(x); i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 {
		return 0, false
	}
	return numerator / denominator, true
}

// rankData assigns ranks to data, handling ties by averaging
func rankData(data []float64) []float64 {
	n := len(data)
	ranks := make([]float64, n)

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{v, i}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	i := 0
	for i < n {
		j := i
		// Find group of equal values
		for j < n-1 && pairs[j+1].value == pairs[i].value {
			j++
		}

		// Assign average rank to tied values
		avgRank := float64(i+j)/2.0 + 1
		for k := i; k <= j; k++ {
			ranks[pairs[k].index] = avgRank
		}

		i = j + 1
	}

	return ranks
}
