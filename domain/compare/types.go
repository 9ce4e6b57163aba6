package compare

import (
	"fmt"

	"biocompare/domain/core"
)

// Rank is a taxonomic classification level at which abundances are aggregated
type Rank string

const (
	RankDomain  Rank = "domain"
	RankKingdom Rank = "kingdom"
	RankPhylum  Rank = "phylum"
	RankClass   Rank = "class"
	RankOrder   Rank = "order"
	RankFamily  Rank = "family"
	RankGenus   Rank = "genus"
	RankSpecies Rank = "species"
)

// Ranks lists the recognised ranks in lineage order, used for positional parsing
var Ranks = []Rank{
	RankDomain, RankKingdom, RankPhylum, RankClass,
	RankOrder, RankFamily, RankGenus, RankSpecies,
}

// Normalisation selects the abundance transform applied after alignment
type Normalisation string

const (
	NormRelative Normalisation = "relative"
	NormCLR      Normalisation = "clr"
)

// AlignmentMode selects how samples are aligned across runs
type AlignmentMode string

const (
	AlignIntersection AlignmentMode = "intersection"
	AlignUnion        AlignmentMode = "union"
)

// Orientation declares which axis of a run table holds samples
type Orientation string

const (
	// OrientationAuto transposes a table when it has strictly more columns
	// than rows. Square tables are left untouched.
	OrientationAuto           Orientation = "auto"
	OrientationSamplesAsRows  Orientation = "samples_as_rows"
	OrientationFeaturesAsRows Orientation = "features_as_rows"
)

// RunTable is the per-run output of the upstream parsing collaborator:
// a numeric table of samples by features plus an optional feature to
// lineage mapping
type RunTable struct {
	RunID     string
	Abundance *Matrix
	Taxonomy  map[string]string // feature id -> lineage string
}

// Metadata maps a harmonised row id ("run:sample") to column values
type Metadata map[string]map[string]string

// HarmoniseConfig declares how runs are harmonised into one matrix
type HarmoniseConfig struct {
	Rank             Rank
	Norm             Normalisation
	SampleAlign      AlignmentMode
	Orientation      Orientation
	MinPrevalence    float64
	MinMeanAbundance float64
}

// Validate normalises defaults and rejects out-of-range settings
func (c *HarmoniseConfig) Validate() error {
	if c.Rank == "" {
		c.Rank = RankGenus
	}
	if c.Norm == "" {
		c.Norm = NormRelative
	}
	if c.SampleAlign == "" {
		c.SampleAlign = AlignIntersection
	}
	if c.Orientation == "" {
		c.Orientation = OrientationAuto
	}
	if !validRank(c.Rank) {
		return core.NewConfigurationError(fmt.Sprintf("unknown rank %q", c.Rank))
	}
	switch c.Norm {
	case NormRelative, NormCLR:
	default:
		return core.NewConfigurationError(fmt.Sprintf("unknown normalisation %q", c.Norm))
	}
	switch c.SampleAlign {
	case AlignIntersection, AlignUnion:
	default:
		return core.NewConfigurationError(fmt.Sprintf("unknown sample alignment %q", c.SampleAlign))
	}
	switch c.Orientation {
	case OrientationAuto, OrientationSamplesAsRows, OrientationFeaturesAsRows:
	default:
		return core.NewConfigurationError(fmt.Sprintf("unknown orientation %q", c.Orientation))
	}
	if c.MinPrevalence < 0 || c.MinPrevalence > 1 {
		return core.NewConfigurationError("min prevalence must be in [0,1]")
	}
	if c.MinMeanAbundance < 0 {
		return core.NewConfigurationError("min mean abundance must be >= 0")
	}
	return nil
}

func validRank(r Rank) bool {
	for _, known := range Ranks {
		if known == r {
			return true
		}
	}
	return false
}

// AnalyzeConfig declares which derived statistics are computed. The zero
// value of every numeric field selects its documented default; an explicit
// zero cannot be distinguished from unset.
type AnalyzeConfig struct {
	GroupColumn        string
	EnableDifferential bool
	TopN               int   // taxa per run summary; 0 applies the default of 5
	Permutations       int   // permutation count for the grouped test; 0 applies the default of 999
	Components         int   // retained ordination axes; 0 applies the default of 2
	Seed               int64 // 0 means unseeded (non-reproducible)
}

// Validate normalises defaults and rejects out-of-range settings
func (c *AnalyzeConfig) Validate() error {
	if c.TopN == 0 {
		c.TopN = 5
	}
	if c.Permutations == 0 {
		c.Permutations = 999
	}
	if c.Components == 0 {
		c.Components = 2
	}
	if c.TopN < 0 {
		return core.NewConfigurationError("top N must be >= 0")
	}
	if c.Permutations < 1 {
		return core.NewConfigurationError("permutations must be >= 1")
	}
	if c.Components < 1 {
		return core.NewConfigurationError("components must be >= 1")
	}
	return nil
}

// TaxonMapping records how one original feature resolved to a rank-level
// name, kept for auditability whether or not the taxon survived filtering
type TaxonMapping struct {
	Run      string `json:"run"`
	Original string `json:"original"`
	Lineage  string `json:"lineage,omitempty"`
	Rank     Rank   `json:"rank"`
	Cleaned  string `json:"cleaned"`
}

// Settings captures the resolved configuration and final shape for provenance
type Settings struct {
	ComparisonID     core.ComparisonID `json:"comparison_id"`
	CreatedAt        core.Timestamp    `json:"created_at"`
	Rank             Rank              `json:"rank"`
	Norm             Normalisation     `json:"norm"`
	SampleAlign      AlignmentMode     `json:"sample_align"`
	MinPrevalence    float64           `json:"min_prevalence"`
	MinMeanAbundance float64           `json:"min_mean_abundance"`
	NRuns            int               `json:"n_runs"`
	NSamplesFinal    int               `json:"n_samples_final"`
	NTaxaFinal       int               `json:"n_taxa_final"`
}

// HarmonisedMatrix is the aligned sample-by-taxon table produced by the
// Harmoniser. Row ids are "{run_id}:{sample_id}"; RunLabels holds the
// source run per row, parallel to Abundance.RowIDs.
type HarmonisedMatrix struct {
	Abundance   *Matrix
	RunLabels   []string
	TaxaMapping []TaxonMapping
	Settings    Settings
	Warnings    []string
}

// RunIDs returns the distinct run labels in first-seen row order
func (h *HarmonisedMatrix) RunIDs() []string {
	seen := make(map[string]bool)
	var runs []string
	for _, label := range h.RunLabels {
		if !seen[label] {
			seen[label] = true
			runs = append(runs, label)
		}
	}
	return runs
}

// RowsForRun returns the row positions belonging to one run
func (h *HarmonisedMatrix) RowsForRun(run string) []int {
	var rows []int
	for i, label := range h.RunLabels {
		if label == run {
			rows = append(rows, i)
		}
	}
	return rows
}
