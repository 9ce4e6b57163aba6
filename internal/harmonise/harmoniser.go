package harmonise

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"biocompare/domain/compare"
	"biocompare/domain/core"
	"biocompare/internal"
)

// clrPseudocount is added to every value before the CLR log transform
const clrPseudocount = 0.5

// Harmoniser turns heterogeneous per-run abundance tables into one aligned
// sample-by-taxon matrix: aggregate to rank, standardise names, align taxa
// and samples, normalise, filter.
type Harmoniser struct {
	cfg compare.HarmoniseConfig
	log *internal.Logger
}

// New creates a Harmoniser, normalising defaults in the config
func New(cfg compare.HarmoniseConfig) (*Harmoniser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Harmoniser{cfg: cfg, log: internal.DefaultLogger}, nil
}

// SetLogger replaces the default logger
func (h *Harmoniser) SetLogger(l *internal.Logger) {
	if l != nil {
		h.log = l
	}
}

// processedRun is one run's table after orientation, aggregation and relabelling
type processedRun struct {
	runID  string
	matrix *compare.Matrix
}

// Harmonise aligns the given runs into a single HarmonisedMatrix.
// Runs without usable abundance data are skipped with a warning; fewer than
// two supplied runs is a configuration error, zero usable runs a data error,
// and a structurally inconsistent table aborts with a validation error.
func (h *Harmoniser) Harmonise(runs []compare.RunTable) (*compare.HarmonisedMatrix, error) {
	if len(runs) < 2 {
		return nil, core.NewConfigurationError("need at least 2 runs to harmonise")
	}

	var processed []processedRun
	var mappings []compare.TaxonMapping
	var warnings []string

	for _, run := range runs {
		if run.Abundance.IsEmpty() {
			msg := fmt.Sprintf("skipping run %s: no abundance data", run.RunID)
			h.log.Warn("[harmonise] %s", msg)
			warnings = append(warnings, msg)
			continue
		}
		if err := run.Abundance.Validate(); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.RunID, err)
		}

		m := h.orient(run.Abundance)
		m, mapping := h.aggregateToRank(run.RunID, m, run.Taxonomy)
		mappings = append(mappings, mapping...)

		// Prefix sample ids with the run id to guarantee global uniqueness
		for i, sample := range m.RowIDs {
			m.RowIDs[i] = run.RunID + ":" + sample
		}

		processed = append(processed, processedRun{runID: run.RunID, matrix: m})
	}

	if len(processed) == 0 {
		h.log.Error("[harmonise] all runs were skipped")
		return nil, core.NewDataError("all runs were skipped")
	}

	aligned, runLabels := alignTaxa(processed)

	if h.cfg.SampleAlign == compare.AlignIntersection {
		var warn string
		aligned, runLabels, warn = h.alignSamplesIntersection(aligned, runLabels, len(processed))
		if warn != "" {
			warnings = append(warnings, warn)
		}
	}

	switch h.cfg.Norm {
	case compare.NormRelative:
		normaliseRelative(aligned)
	case compare.NormCLR:
		normaliseCLR(aligned)
	}

	aligned = h.filterTaxa(aligned)

	settings := compare.Settings{
		ComparisonID:     core.NewComparisonID(),
		CreatedAt:        core.Now(),
		Rank:             h.cfg.Rank,
		Norm:             h.cfg.Norm,
		SampleAlign:      h.cfg.SampleAlign,
		MinPrevalence:    h.cfg.MinPrevalence,
		MinMeanAbundance: h.cfg.MinMeanAbundance,
		NRuns:            len(runs),
		NSamplesFinal:    aligned.NRows(),
		NTaxaFinal:       aligned.NCols(),
	}

	h.log.Info("[harmonise] %d samples x %d taxa at rank %s",
		aligned.NRows(), aligned.NCols(), h.cfg.Rank)

	return &compare.HarmonisedMatrix{
		Abundance:   aligned,
		RunLabels:   runLabels,
		TaxaMapping: mappings,
		Settings:    settings,
		Warnings:    warnings,
	}, nil
}

// orient ensures samples are rows. Under OrientationAuto a table with
// strictly more columns than rows is treated as features-as-rows and
// transposed; square tables are left as-is.
func (h *Harmoniser) orient(m *compare.Matrix) *compare.Matrix {
	switch h.cfg.Orientation {
	case compare.OrientationFeaturesAsRows:
		return m.Transpose()
	case compare.OrientationSamplesAsRows:
		return m.Clone()
	default:
		if m.NCols() > m.NRows() {
			return m.Transpose()
		}
		return m.Clone()
	}
}

// aggregateToRank re-buckets every column to its taxon name at the target
// rank and sums columns sharing a resolved name. With a taxonomy mapping
// the lineage comes from the mapping; otherwise column names themselves are
// parsed as lineage strings. Bucket order follows first appearance.
func (h *Harmoniser) aggregateToRank(runID string, m *compare.Matrix, taxonomy map[string]string) (*compare.Matrix, []compare.TaxonMapping) {
	mappings := make([]compare.TaxonMapping, 0, m.NCols())

	var order []string
	buckets := make(map[string]int)
	data := make([][]float64, m.NRows())
	for i := range data {
		data[i] = make([]float64, 0, m.NCols())
	}

	for j, col := range m.ColIDs {
		var lineage, resolved string
		if len(taxonomy) > 0 {
			if lin, ok := taxonomy[col]; ok {
				lineage = lin
				resolved = CleanTaxonName(ExtractRank(lin, h.cfg.Rank))
			} else {
				// Feature without a taxonomy entry keeps its own (cleaned) name
				resolved = CleanTaxonName(col)
			}
		} else {
			resolved = CleanTaxonName(ExtractRank(col, h.cfg.Rank))
		}

		mappings = append(mappings, compare.TaxonMapping{
			Run:      runID,
			Original: col,
			Lineage:  lineage,
			Rank:     h.cfg.Rank,
			Cleaned:  resolved,
		})

		k, exists := buckets[resolved]
		if !exists {
			k = len(order)
			buckets[resolved] = k
			order = append(order, resolved)
			for i := range data {
				data[i] = append(data[i], 0)
			}
		}
		for i := range data {
			data[i][k] += m.At(i, j)
		}
	}

	agg := compare.NewMatrix(m.RowIDs, order)
	for i := range data {
		copy(agg.Data[i], data[i])
	}
	return agg, mappings
}

// alignTaxa reindexes every run's table to the sorted union of taxon names,
// zero-filling absent taxa, and concatenates rows in run order
func alignTaxa(processed []processedRun) (*compare.Matrix, []string) {
	union := make(map[string]bool)
	for _, p := range processed {
		for _, col := range p.matrix.ColIDs {
			union[col] = true
		}
	}
	cols := make([]string, 0, len(union))
	for col := range union {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var rowIDs []string
	var runLabels []string
	for _, p := range processed {
		rowIDs = append(rowIDs, p.matrix.RowIDs...)
		for range p.matrix.RowIDs {
			runLabels = append(runLabels, p.runID)
		}
	}

	aligned := compare.NewMatrix(rowIDs, cols)
	row := 0
	for _, p := range processed {
		for i := range p.matrix.RowIDs {
			for j, col := range p.matrix.ColIDs {
				k, _ := aligned.ColIndex(col)
				aligned.Set(row, k, p.matrix.At(i, j))
			}
			row++
		}
	}
	return aligned, runLabels
}

// alignSamplesIntersection keeps rows whose bare sample id (suffix after the
// last relabel separator) appears in every contributing run. An empty
// intersection degrades to keeping all rows, reported as a warning.
func (h *Harmoniser) alignSamplesIntersection(m *compare.Matrix, runLabels []string, nRuns int) (*compare.Matrix, []string, string) {
	runsPerSample := make(map[string]map[string]bool)
	for i, rowID := range m.RowIDs {
		bare := bareSampleID(rowID)
		if runsPerSample[bare] == nil {
			runsPerSample[bare] = make(map[string]bool)
		}
		runsPerSample[bare][runLabels[i]] = true
	}

	var keep []int
	for i, rowID := range m.RowIDs {
		if len(runsPerSample[bareSampleID(rowID)]) >= nRuns {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		msg := "no common samples across runs, keeping all samples"
		h.log.Warn("[harmonise] %s", msg)
		return m, runLabels, msg
	}

	labels := make([]string, len(keep))
	for k, i := range keep {
		labels[k] = runLabels[i]
	}
	return m.SelectRows(keep), labels, ""
}

// bareSampleID strips the "{run_id}:" relabel prefix
func bareSampleID(rowID string) string {
	if idx := strings.LastIndex(rowID, ":"); idx >= 0 {
		return rowID[idx+1:]
	}
	return rowID
}

// normaliseRelative divides each row by its sum; all-zero rows stay zero
func normaliseRelative(m *compare.Matrix) {
	for i := range m.Data {
		sum := m.RowSum(i)
		if sum == 0 {
			continue
		}
		for j := range m.Data[i] {
			m.Data[i][j] /= sum
		}
	}
}

// normaliseCLR applies the centered log-ratio transform: add a pseudocount,
// take logs, subtract the per-row mean of the logs
func normaliseCLR(m *compare.Matrix) {
	for i := range m.Data {
		row := m.Data[i]
		mean := 0.0
		for j := range row {
			row[j] = math.Log(row[j] + clrPseudocount)
			mean += row[j]
		}
		if len(row) > 0 {
			mean /= float64(len(row))
		}
		for j := range row {
			row[j] -= mean
		}
	}
}

// filterTaxa drops taxa below the prevalence or mean-abundance thresholds.
// Both are per-column threshold tests on quantities unaffected by each
// other, so application order does not matter.
func (h *Harmoniser) filterTaxa(m *compare.Matrix) *compare.Matrix {
	if h.cfg.MinPrevalence <= 0 && h.cfg.MinMeanAbundance <= 0 {
		return m
	}
	var keep []int
	for j := range m.ColIDs {
		if h.cfg.MinPrevalence > 0 && m.ColPrevalence(j) < h.cfg.MinPrevalence {
			continue
		}
		if h.cfg.MinMeanAbundance > 0 && m.ColMean(j) < h.cfg.MinMeanAbundance {
			continue
		}
		keep = append(keep, j)
	}
	filtered := m.SelectCols(keep)
	h.log.Debug("[harmonise] filters kept %d of %d taxa", filtered.NCols(), m.NCols())
	return filtered
}
