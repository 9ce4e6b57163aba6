package analysis

import (
	"sort"

	"github.com/montanaflynn/stats"

	"biocompare/domain/compare"
)

// runSummaries builds one summary record per run: sample count, taxa
// observed at least once, mean richness, mean total abundance, and the
// top-N taxa by mean abundance
func (a *Analyzer) runSummaries(h *compare.HarmonisedMatrix, runs []string) map[string]compare.RunSummary {
	m := h.Abundance
	summaries := make(map[string]compare.RunSummary, len(runs))

	for _, run := range runs {
		rows := h.RowsForRun(run)

		richness := make([]float64, len(rows))
		totals := make([]float64, len(rows))
		colSums := make([]float64, m.NCols())
		observed := make([]bool, m.NCols())

		for k, i := range rows {
			for j, v := range m.Row(i) {
				colSums[j] += v
				if v > 0 {
					richness[k]++
					observed[j] = true
				}
				totals[k] += v
			}
		}

		taxaObserved := 0
		for _, seen := range observed {
			if seen {
				taxaObserved++
			}
		}

		meanRichness, _ := stats.Mean(richness)
		meanTotal, _ := stats.Mean(totals)

		summaries[run] = compare.RunSummary{
			Samples:            len(rows),
			TaxaObserved:       taxaObserved,
			MeanRichness:       meanRichness,
			MeanTotalAbundance: meanTotal,
			TopTaxa:            topTaxa(m.ColIDs, colSums, len(rows), a.cfg.TopN),
		}
	}
	return summaries
}

// topTaxa returns the n taxa with the highest mean abundance as a
// name to mean-value mapping
func topTaxa(names []string, colSums []float64, samples, n int) map[string]float64 {
	if samples == 0 || n <= 0 {
		return map[string]float64{}
	}

	type taxonMean struct {
		name string
		mean float64
	}
	means := make([]taxonMean, len(names))
	for j, name := range names {
		means[j] = taxonMean{name: name, mean: colSums[j] / float64(samples)}
	}
	sort.SliceStable(means, func(x, y int) bool {
		if means[x].mean != means[y].mean {
			return means[x].mean > means[y].mean
		}
		return means[x].name < means[y].name
	})

	if n > len(means) {
		n = len(means)
	}
	top := make(map[string]float64, n)
	for _, tm := range means[:n] {
		top[tm.name] = tm.mean
	}
	return top
}
