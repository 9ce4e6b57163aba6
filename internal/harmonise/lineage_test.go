package harmonise

import (
	"testing"

	"biocompare/domain/compare"
)

func TestExtractRank_PrefixMatch(t *testing.T) {
	lineage := "d__Bacteria;p__Firmicutes;c__Bacilli;o__Lactobacillales;f__Lactobacillaceae;g__Lactobacillus;s__crispatus"

	cases := []struct {
		rank compare.Rank
		want string
	}{
		{compare.RankDomain, "Bacteria"},
		{compare.RankPhylum, "Firmicutes"},
		{compare.RankGenus, "Lactobacillus"},
		{compare.RankSpecies, "crispatus"},
	}
	for _, tc := range cases {
		if got := ExtractRank(lineage, tc.rank); got != tc.want {
			t.Errorf("ExtractRank(%s) = %q, want %q", tc.rank, got, tc.want)
		}
	}
}

func TestExtractRank_PipeSeparator(t *testing.T) {
	lineage := "d__Bacteria|p__Proteobacteria|g__Escherichia"
	if got := ExtractRank(lineage, compare.RankGenus); got != "Escherichia" {
		t.Errorf("ExtractRank = %q, want Escherichia", got)
	}
}

func TestExtractRank_PositionalFallback(t *testing.T) {
	// No rank prefixes at all: fall back to position in lineage order
	lineage := "A;B;C;D;E;F;G;H"
	cases := []struct {
		rank compare.Rank
		want string
	}{
		{compare.RankDomain, "A"},
		{compare.RankClass, "D"},
		{compare.RankGenus, "G"},
	}
	for _, tc := range cases {
		if got := ExtractRank(lineage, tc.rank); got != tc.want {
			t.Errorf("ExtractRank(%s) = %q, want %q", tc.rank, got, tc.want)
		}
	}
}

func TestExtractRank_ReverseScanFallback(t *testing.T) {
	// Genus slot is a placeholder; the last meaningful token wins
	lineage := "d__Bacteria;p__Firmicutes;c__Bacilli;o__Lactobacillales;f__Lactobacillaceae;g__;s__"
	if got := ExtractRank(lineage, compare.RankGenus); got != "Lactobacillaceae" {
		t.Errorf("ExtractRank = %q, want Lactobacillaceae", got)
	}
}

func TestExtractRank_SkipsUnclassifiedOnReverseScan(t *testing.T) {
	lineage := "d__Bacteria;p__Proteobacteria;unclassified;__"
	if got := ExtractRank(lineage, compare.RankSpecies); got != "Proteobacteria" {
		t.Errorf("ExtractRank = %q, want Proteobacteria", got)
	}
}

func TestExtractRank_NothingUsable(t *testing.T) {
	for _, lineage := range []string{"", ";;", "__;__", "unclassified"} {
		if got := ExtractRank(lineage, compare.RankGenus); got != "Unclassified" {
			t.Errorf("ExtractRank(%q) = %q, want Unclassified", lineage, got)
		}
	}
}

func TestCleanTaxonName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"g__Lactobacillus", "Lactobacillus"},
		{"Lactobacillus_", "Lactobacillus"},
		{"Escherichia   coli", "Escherichia coli"},
		{"  padded  ", "padded"},
		{"__", "Unclassified"},
		{"", "Unclassified"},
		{"s__", "Unclassified"},
	}
	for _, tc := range cases {
		if got := CleanTaxonName(tc.in); got != tc.want {
			t.Errorf("CleanTaxonName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanTaxonName_Idempotent(t *testing.T) {
	inputs := []string{"g__Lactobacillus_", "  Escherichia   coli ", "__", "Bacteroides", "s__muciniphila"}
	for _, in := range inputs {
		once := CleanTaxonName(in)
		twice := CleanTaxonName(once)
		if once != twice {
			t.Errorf("cleaning not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
