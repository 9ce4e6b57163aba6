package compare

// ComparisonResults aggregates every derived statistic for one comparison.
// Sections that could not be computed carry an explicit reason instead of
// forcing callers to parse log output.
type ComparisonResults struct {
	// Flat scalar metrics over the whole comparison
	SimilarityMetrics map[string]float64 `json:"similarity_metrics"`

	// Run x run Bray-Curtis similarity, unit diagonal
	PairwiseSimilarity *Matrix `json:"pairwise_similarity"`

	// One record per sample row
	AlphaDiversity []AlphaDiversityRecord `json:"alpha_diversity"`

	// Sample x sample Bray-Curtis distance, zero diagonal
	BetaDistance *Matrix `json:"beta_distance"`

	// PCoA coordinates with variance explained
	Ordination *OrdinationResult `json:"ordination"`

	// Grouped significance test, always present with Computed/Reason
	Permanova *PermanovaResult `json:"permanova,omitempty"`

	// Two-group differential abundance, always present with Computed/Reason
	Differential *DifferentialResult `json:"differential,omitempty"`

	// One summary per run
	RunSummaries map[string]RunSummary `json:"run_summaries"`
}

// AlphaDiversityRecord holds per-sample diversity indices
type AlphaDiversityRecord struct {
	SampleID       string  `json:"sample_id"`
	Run            string  `json:"run"`
	Shannon        float64 `json:"shannon"`
	Simpson        float64 `json:"simpson"`
	ObservedTaxa   int     `json:"observed_taxa"`
	PielouEvenness float64 `json:"pielou_evenness"`
}

// OrdinationResult holds low-dimensional PCoA coordinates per sample
type OrdinationResult struct {
	SampleIDs         []string    `json:"sample_ids"`
	Coordinates       [][]float64 `json:"coordinates"` // samples x components
	VarianceExplained []float64   `json:"variance_explained"`
}

// PermanovaResult is the grouped significance test outcome. When the test
// could not run, Computed is false and Reason explains why.
type PermanovaResult struct {
	Computed          bool     `json:"computed"`
	Reason            string   `json:"reason,omitempty"`
	FStatistic        float64  `json:"f_statistic"`
	PValue            float64  `json:"p_value"`
	Permutations      int      `json:"n_permutations"`
	ValidPermutations int      `json:"n_permutations_valid"`
	Groups            []string `json:"groups,omitempty"`
}

// DifferentialResult is the two-group differential abundance outcome.
// When skipped, Computed is false and Reason explains why.
type DifferentialResult struct {
	Computed bool               `json:"computed"`
	Reason   string             `json:"reason,omitempty"`
	RunA     string             `json:"run_a,omitempty"`
	RunB     string             `json:"run_b,omitempty"`
	Taxa     []DifferentialTaxon `json:"taxa,omitempty"`
}

// DifferentialTaxon is one row of the differential abundance table,
// sorted by absolute log2 fold change descending
type DifferentialTaxon struct {
	Taxon          string  `json:"taxon"`
	MeanA          float64 `json:"mean_a"`
	MeanB          float64 `json:"mean_b"`
	Log2FoldChange float64 `json:"log2_fold_change"`
	PValue         float64 `json:"p_value"`
	FDR            float64 `json:"fdr"`
}

// RunSummary describes one run's slice of the harmonised matrix
type RunSummary struct {
	Samples            int                `json:"n_samples"`
	TaxaObserved       int                `json:"n_taxa_observed"`
	MeanRichness       float64            `json:"mean_richness"`
	MeanTotalAbundance float64            `json:"mean_total_abundance"`
	TopTaxa            map[string]float64 `json:"top_taxa"`
}
