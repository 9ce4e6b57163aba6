package analysis

import (
	"math"

	"golang.org/x/sync/errgroup"

	"biocompare/domain/compare"
)

// permanovaWorkers bounds the parallel pseudo-F evaluation fan-out
const permanovaWorkers = 4

// permanova runs the grouped significance test (PERMANOVA-style pseudo-F
// with a label permutation test) on the beta distance matrix. When the
// test cannot run the result carries Computed=false and a reason instead
// of an error.
//
// All label shuffles are drawn sequentially from the analyzer's seeded
// generator before any parallel evaluation, so a fixed seed always yields
// the same F-statistic and p-value.
func (a *Analyzer) permanova(dist *compare.Matrix, metadata compare.Metadata) *compare.PermanovaResult {
	skip := func(reason string) *compare.PermanovaResult {
		a.log.Warn("[analysis] permanova skipped: %s", reason)
		return &compare.PermanovaResult{Computed: false, Reason: reason}
	}

	if a.cfg.GroupColumn == "" {
		return skip("no group column configured")
	}
	if len(metadata) == 0 {
		return skip("no sample metadata supplied")
	}

	// Restrict to samples present in both the distance matrix and metadata
	// with a populated group value, preserving matrix order
	var keep []int
	var labels []string
	for i, id := range dist.RowIDs {
		if row, ok := metadata[id]; ok {
			if group, ok := row[a.cfg.GroupColumn]; ok && group != "" {
				keep = append(keep, i)
				labels = append(labels, group)
			}
		}
	}
	if len(keep) < 3 {
		return skip("not enough samples with metadata")
	}

	groups := uniqueStrings(labels)
	if len(groups) < 2 {
		return skip("need at least 2 groups")
	}

	n := len(keep)
	d2 := make([][]float64, n)
	for x, i := range keep {
		d2[x] = make([]float64, n)
		for y, j := range keep {
			v := dist.At(i, j)
			d2[x][y] = v * v
		}
	}

	observed, ok := pseudoF(d2, labels, groups)
	if !ok {
		return skip("observed pseudo-F is undefined (zero within-group variance)")
	}

	// Pre-generate every permutation from the single seeded source
	perms := make([][]string, a.cfg.Permutations)
	for p := range perms {
		shuffled := append([]string(nil), labels...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := a.rng.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		perms[p] = shuffled
	}

	permF := make([]float64, len(perms))
	var g errgroup.Group
	g.SetLimit(permanovaWorkers)
	chunk := (len(perms) + permanovaWorkers - 1) / permanovaWorkers
	for start := 0; start < len(perms); start += chunk {
		end := start + chunk
		if end > len(perms) {
			end = len(perms)
		}
		start, end := start, end
		g.Go(func() error {
			for p := start; p < end; p++ {
				if f, ok := pseudoF(d2, perms[p], groups); ok {
					permF[p] = f
				} else {
					permF[p] = math.NaN()
				}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	valid, extreme := 0, 0
	for _, f := range permF {
		if math.IsNaN(f) {
			continue
		}
		valid++
		if f >= observed {
			extreme++
		}
	}

	return &compare.PermanovaResult{
		Computed:          true,
		FStatistic:        observed,
		PValue:            float64(extreme+1) / float64(valid+1),
		Permutations:      a.cfg.Permutations,
		ValidPermutations: valid,
		Groups:            groups,
	}
}

// pseudoF computes the PERMANOVA pseudo-F statistic from squared
// distances: (SS_between/df_between) / (SS_within/df_within), with total
// SS = ΣD²/(2n) and within-group SS summed over group submatrices. Groups
// with fewer than 2 members contribute no within-group SS. The second
// return is false when the statistic is undefined.
func pseudoF(d2 [][]float64, labels []string, groups []string) (float64, bool) {
	n := len(labels)

	ssTotal := 0.0
	for i := range d2 {
		for j := range d2[i] {
			ssTotal += d2[i][j]
		}
	}
	ssTotal /= 2 * float64(n)

	ssWithin := 0.0
	for _, group := range groups {
		var members []int
		for i, label := range labels {
			if label == group {
				members = append(members, i)
			}
		}
		if len(members) < 2 {
			continue
		}
		sum := 0.0
		for _, i := range members {
			for _, j := range members {
				sum += d2[i][j]
			}
		}
		ssWithin += sum / (2 * float64(len(members)))
	}

	dfBetween := float64(len(groups) - 1)
	dfWithin := float64(n - len(groups))
	if dfWithin <= 0 || ssWithin == 0 {
		return 0, false
	}

	ssBetween := ssTotal - ssWithin
	return (ssBetween / dfBetween) / (ssWithin / dfWithin), true
}

// uniqueStrings returns distinct values in first-seen order
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
