package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biocompare/domain/compare"
	"biocompare/internal/harmonise"
)

func harmoniseRuns(t *testing.T, cfg compare.HarmoniseConfig, runs []compare.RunTable) *compare.HarmonisedMatrix {
	t.Helper()
	h, err := harmonise.New(cfg)
	require.NoError(t, err)
	result, err := h.Harmonise(runs)
	require.NoError(t, err)
	return result
}

func runTable(runID string, samples []string, taxa []string, data [][]float64) compare.RunTable {
	m := compare.NewMatrix(samples, taxa)
	for i := range data {
		copy(m.Data[i], data[i])
	}
	return compare.RunTable{RunID: runID, Abundance: m}
}

// Two runs, three samples each, identical single-taxon profiles
func TestAnalyze_EndToEnd_IdenticalRuns(t *testing.T) {
	runs := []compare.RunTable{
		runTable("run1", []string{"s1", "s2", "s3"}, []string{"TaxonX"},
			[][]float64{{10}, {10}, {10}}),
		runTable("run2", []string{"s1", "s2", "s3"}, []string{"TaxonX"},
			[][]float64{{10}, {10}, {10}}),
	}
	harmonised := harmoniseRuns(t, compare.HarmoniseConfig{}, runs)

	a := mustAnalyzer(t, compare.AnalyzeConfig{})
	results, err := a.Analyze(harmonised, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, results.SimilarityMetrics["jaccard_mean"], 1e-9)
	assert.InDelta(t, 1.0, results.SimilarityMetrics["bray_curtis_similarity_mean"], 1e-9)
	assert.NotContains(t, results.SimilarityMetrics, "spearman_mean",
		"spearman is undefined with a single co-present taxon")

	require.NotNil(t, results.PairwiseSimilarity)
	assert.Equal(t, 1.0, results.PairwiseSimilarity.At(0, 1))

	require.Len(t, results.AlphaDiversity, 6)
	for _, record := range results.AlphaDiversity {
		assert.Equal(t, 0.0, record.Shannon, "single-taxon samples have zero entropy")
		assert.Equal(t, 1, record.ObservedTaxa)
	}

	require.NotNil(t, results.BetaDistance)
	for i := 0; i < results.BetaDistance.NRows(); i++ {
		for j := 0; j < results.BetaDistance.NCols(); j++ {
			assert.Equal(t, 0.0, results.BetaDistance.At(i, j),
				"identical samples are at zero distance")
		}
	}

	// No metadata: the grouped test reports a skip reason, never an error
	require.NotNil(t, results.Permanova)
	assert.False(t, results.Permanova.Computed)
	assert.NotEmpty(t, results.Permanova.Reason)

	// Differential not requested
	assert.Nil(t, results.Differential)

	require.Len(t, results.RunSummaries, 2)
	for _, summary := range results.RunSummaries {
		assert.Equal(t, 3, summary.Samples)
		assert.Equal(t, 1, summary.TaxaObserved)
		assert.InDelta(t, 1.0, summary.MeanRichness, 1e-9)
	}
}

// Two runs with disjoint taxon sets
func TestAnalyze_EndToEnd_DisjointRuns(t *testing.T) {
	runs := []compare.RunTable{
		runTable("run1", []string{"s1", "s2", "s3"}, []string{"A"},
			[][]float64{{5}, {5}, {5}}),
		runTable("run2", []string{"s1", "s2", "s3"}, []string{"B"},
			[][]float64{{5}, {5}, {5}}),
	}
	harmonised := harmoniseRuns(t, compare.HarmoniseConfig{}, runs)

	a := mustAnalyzer(t, compare.AnalyzeConfig{EnableDifferential: true})
	results, err := a.Analyze(harmonised, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, results.SimilarityMetrics["jaccard_mean"])
	assert.Equal(t, 0.0, results.SimilarityMetrics["bray_curtis_similarity_mean"])

	require.NotNil(t, results.Differential)
	require.True(t, results.Differential.Computed)
	require.Len(t, results.Differential.Taxa, 2)

	wantMag := math.Log2((1 + 1e-6) / 1e-6)
	for _, taxon := range results.Differential.Taxa {
		assert.InDelta(t, wantMag, math.Abs(taxon.Log2FoldChange), 1e-6,
			"fold change magnitude is capped by the pseudocount")
		assert.Less(t, taxon.FDR, 0.1, "disjoint taxa should stay significant after FDR")
	}
}

// Full pipeline with grouped metadata and differential abundance
func TestAnalyze_EndToEnd_GroupedComparison(t *testing.T) {
	runs := []compare.RunTable{
		runTable("run1", []string{"s1", "s2", "s3", "s4"},
			[]string{"Lactobacillus", "Gardnerella", "Prevotella"},
			[][]float64{
				{80, 15, 5},
				{75, 20, 5},
				{20, 70, 10},
				{15, 75, 10},
			}),
		runTable("run2", []string{"s1", "s2", "s3", "s4"},
			[]string{"Lactobacillus", "Gardnerella", "Prevotella"},
			[][]float64{
				{78, 17, 5},
				{72, 22, 6},
				{22, 68, 10},
				{18, 72, 10},
			}),
	}
	harmonised := harmoniseRuns(t, compare.HarmoniseConfig{}, runs)

	metadata := compare.Metadata{}
	for _, id := range harmonised.Abundance.RowIDs {
		group := "healthy"
		if id == "run1:s3" || id == "run1:s4" || id == "run2:s3" || id == "run2:s4" {
			group = "dysbiotic"
		}
		metadata[id] = map[string]string{"condition": group}
	}

	cfg := compare.AnalyzeConfig{
		GroupColumn:        "condition",
		EnableDifferential: true,
		Seed:               99,
	}
	a := mustAnalyzer(t, cfg)
	results, err := a.Analyze(harmonised, metadata)
	require.NoError(t, err)

	require.NotNil(t, results.Permanova)
	require.True(t, results.Permanova.Computed, "reason: %s", results.Permanova.Reason)
	assert.Greater(t, results.Permanova.FStatistic, 1.0)
	assert.Greater(t, results.Permanova.PValue, 0.0)
	assert.LessOrEqual(t, results.Permanova.PValue, 1.0)
	assert.ElementsMatch(t, []string{"healthy", "dysbiotic"}, results.Permanova.Groups)

	// Same seed, same result
	b := mustAnalyzer(t, cfg)
	again, err := b.Analyze(harmonised, metadata)
	require.NoError(t, err)
	assert.Equal(t, results.Permanova.FStatistic, again.Permanova.FStatistic)
	assert.Equal(t, results.Permanova.PValue, again.Permanova.PValue)

	require.NotNil(t, results.Ordination)
	require.Len(t, results.Ordination.VarianceExplained, 2)
	assert.GreaterOrEqual(t, results.Ordination.VarianceExplained[0],
		results.Ordination.VarianceExplained[1])

	require.NotNil(t, results.Differential)
	assert.True(t, results.Differential.Computed)

	require.Len(t, results.RunSummaries, 2)
	summary := results.RunSummaries["run1"]
	assert.Equal(t, 4, summary.Samples)
	assert.Equal(t, 3, summary.TaxaObserved)
	assert.Len(t, summary.TopTaxa, 3, "top-N capped at taxon count")
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(compare.AnalyzeConfig{Permutations: -1})
	assert.Error(t, err)

	_, err = New(compare.AnalyzeConfig{TopN: -1})
	assert.Error(t, err)

	a, err := New(compare.AnalyzeConfig{})
	require.NoError(t, err)
	require.NotNil(t, a)
}
