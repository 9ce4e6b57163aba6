package analysis

import (
	"math"

	"biocompare/domain/compare"
)

// alphaDiversity computes per-sample diversity indices: Shannon entropy,
// Simpson's index, observed richness and Pielou evenness, with the source
// run attached for downstream grouping
func alphaDiversity(h *compare.HarmonisedMatrix) []compare.AlphaDiversityRecord {
	m := h.Abundance
	records := make([]compare.AlphaDiversityRecord, m.NRows())

	for i := range m.RowIDs {
		row := m.Row(i)

		total := 0.0
		richness := 0
		for _, v := range row {
			if v > 0 {
				total += v
				richness++
			}
		}

		var shannon, simpson float64
		if total > 0 {
			sumSq := 0.0
			for _, v := range row {
				if v > 0 {
					p := v / total
					shannon -= p * math.Log(p)
					sumSq += p * p
				}
			}
			simpson = 1 - sumSq
		}

		// richness <= 1 makes ln(max(richness,1)) zero; evenness stays 0
		evenness := 0.0
		if richness > 1 {
			evenness = shannon / math.Log(float64(richness))
		}

		records[i] = compare.AlphaDiversityRecord{
			SampleID:       m.RowIDs[i],
			Run:            h.RunLabels[i],
			Shannon:        shannon,
			Simpson:        simpson,
			ObservedTaxa:   richness,
			PielouEvenness: evenness,
		}
	}
	return records
}

// betaDistance computes the full sample x sample Bray-Curtis distance
// matrix. Pairs of all-zero samples have an undefined dissimilarity and
// are assigned distance 0 (identical compositions).
func betaDistance(m *compare.Matrix) *compare.Matrix {
	dist := compare.NewMatrix(m.RowIDs, m.RowIDs)
	for i := 0; i < m.NRows(); i++ {
		for j := i + 1; j < m.NRows(); j++ {
			d, ok := brayCurtis(m.Row(i), m.Row(j))
			if !ok {
				d = 0
			}
			dist.Set(i, j, d)
			dist.Set(j, i, d)
		}
	}
	return dist
}
