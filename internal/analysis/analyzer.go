package analysis

import (
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"biocompare/domain/compare"
	"biocompare/internal"
)

// Analyzer computes derived statistics from a harmonised matrix: similarity
// metrics, alpha/beta diversity, ordination, grouped significance testing
// and differential abundance. It is a pure computation pipeline; every call
// returns freshly constructed results.
type Analyzer struct {
	cfg compare.AnalyzeConfig
	log *internal.Logger
	rng *rand.Rand
}

// New creates an Analyzer, normalising defaults in the config. A non-zero
// Seed makes the permutation test reproducible; with Seed 0 the generator
// is seeded from the clock and results vary between calls.
func New(cfg compare.AnalyzeConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Analyzer{
		cfg: cfg,
		log: internal.DefaultLogger,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// SetLogger replaces the default logger
func (a *Analyzer) SetLogger(l *internal.Logger) {
	if l != nil {
		a.log = l
	}
}

// Analyze runs every comparison analysis on the harmonised matrix.
// Missing metadata never fails the call: the grouped significance test and
// differential abundance carry explicit skip reasons instead.
func (a *Analyzer) Analyze(h *compare.HarmonisedMatrix, metadata compare.Metadata) (*compare.ComparisonResults, error) {
	results := &compare.ComparisonResults{}

	m := h.Abundance
	a.log.Info("[analysis] analyzing %d samples, %d taxa", m.NRows(), m.NCols())

	runs, profiles := runProfiles(h)

	// The leading sections are independent of each other
	var g errgroup.Group
	g.Go(func() error {
		results.SimilarityMetrics = a.similarityMetrics(h, runs, profiles)
		return nil
	})
	g.Go(func() error {
		results.PairwiseSimilarity = pairwiseSimilarity(runs, profiles)
		return nil
	})
	g.Go(func() error {
		results.AlphaDiversity = alphaDiversity(h)
		return nil
	})
	g.Wait() //nolint:errcheck // sections never return errors

	results.BetaDistance = betaDistance(m)
	results.Ordination = a.ordinate(results.BetaDistance)

	results.Permanova = a.permanova(results.BetaDistance, metadata)

	if a.cfg.EnableDifferential {
		results.Differential = a.differential(h, runs)
	}

	results.RunSummaries = a.runSummaries(h, runs)

	return results, nil
}
