package analysis

import (
	"math"
	"testing"

	"biocompare/domain/compare"
)

// distanceMatrix builds a symmetric distance matrix from explicit values
func distanceMatrix(ids []string, d [][]float64) *compare.Matrix {
	m := compare.NewMatrix(ids, ids)
	for i := range d {
		copy(m.Data[i], d[i])
	}
	return m
}

func TestOrdinate_RecoversLineGeometry(t *testing.T) {
	// Euclidean distances between points at 0, 1 and 3 on a line:
	// classical MDS must recover the pairwise distances on the first axis
	dist := distanceMatrix(
		[]string{"p0", "p1", "p3"},
		[][]float64{
			{0, 1, 3},
			{1, 0, 2},
			{3, 2, 0},
		},
	)

	a := mustAnalyzer(t, compare.AnalyzeConfig{})
	ord := a.ordinate(dist)

	if len(ord.Coordinates) != 3 || len(ord.Coordinates[0]) != 2 {
		t.Fatalf("coordinates shape = %dx%d, want 3x2", len(ord.Coordinates), len(ord.Coordinates[0]))
	}

	pc1 := func(i int) float64 { return ord.Coordinates[i][0] }
	pairs := []struct {
		i, j int
		want float64
	}{{0, 1, 1}, {1, 2, 2}, {0, 2, 3}}
	for _, p := range pairs {
		got := math.Abs(pc1(p.i) - pc1(p.j))
		if math.Abs(got-p.want) > 1e-6 {
			t.Errorf("|PC1 %d-%d| = %f, want %f", p.i, p.j, got, p.want)
		}
	}

	// One-dimensional geometry: first axis explains everything
	if ord.VarianceExplained[0] < 0.999 {
		t.Errorf("PC1 variance explained = %f, want ~1", ord.VarianceExplained[0])
	}
}

func TestOrdinate_VarianceExplainedProperties(t *testing.T) {
	dist := distanceMatrix(
		[]string{"a", "b", "c", "d"},
		[][]float64{
			{0, 0.2, 0.9, 0.8},
			{0.2, 0, 0.85, 0.9},
			{0.9, 0.85, 0, 0.1},
			{0.8, 0.9, 0.1, 0},
		},
	)

	a := mustAnalyzer(t, compare.AnalyzeConfig{Components: 3})
	ord := a.ordinate(dist)

	total := 0.0
	for c, v := range ord.VarianceExplained {
		if v < 0 {
			t.Errorf("variance explained [%d] = %f, must be non-negative", c, v)
		}
		if c > 0 && v > ord.VarianceExplained[c-1]+1e-12 {
			t.Errorf("variance explained not descending: %v", ord.VarianceExplained)
		}
		total += v
	}
	if total > 1+1e-9 {
		t.Errorf("variance explained sums to %f, must be <= 1", total)
	}
}

func TestOrdinate_SeparatesClusters(t *testing.T) {
	// Two tight clusters: {a,b} and {c,d}
	dist := distanceMatrix(
		[]string{"a", "b", "c", "d"},
		[][]float64{
			{0, 0.05, 0.9, 0.9},
			{0.05, 0, 0.9, 0.9},
			{0.9, 0.9, 0, 0.05},
			{0.9, 0.9, 0.05, 0},
		},
	)

	a := mustAnalyzer(t, compare.AnalyzeConfig{})
	ord := a.ordinate(dist)

	within := math.Abs(ord.Coordinates[0][0] - ord.Coordinates[1][0])
	between := math.Abs(ord.Coordinates[0][0] - ord.Coordinates[2][0])
	if between <= within {
		t.Errorf("PC1 does not separate clusters: within=%f between=%f", within, between)
	}
}

func TestOrdinate_DegenerateInputs(t *testing.T) {
	a := mustAnalyzer(t, compare.AnalyzeConfig{})

	single := a.ordinate(distanceMatrix([]string{"only"}, [][]float64{{0}}))
	if len(single.Coordinates) != 1 {
		t.Fatalf("single sample coordinates = %v", single.Coordinates)
	}
	if single.Coordinates[0][0] != 0 {
		t.Errorf("single sample coordinate = %f, want 0", single.Coordinates[0][0])
	}

	// All-identical samples: zero distances, zero variance
	zeros := a.ordinate(distanceMatrix(
		[]string{"a", "b"},
		[][]float64{{0, 0}, {0, 0}},
	))
	for _, v := range zeros.VarianceExplained {
		if v != 0 {
			t.Errorf("zero-distance variance explained = %v, want zeros", zeros.VarianceExplained)
		}
	}
}
