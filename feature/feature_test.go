package feature

import (
	"math"
	"testing"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/stats"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func neighbors(checkins int, categories ...string) []point.Point {
	ns := make([]point.Point, len(categories))
	for i, c := range categories {
		ns[i] = point.Point{ID: int64(i + 1), Category: c, Checkins: checkins}
	}
	return ns
}

func testStatistics() *stats.Statistics {
	mean := map[string]map[string]float64{
		"A": {"A": 1, "B": 0.5},
		"B": {"A": 1, "B": 2},
	}
	coefficient := map[string]map[string]float64{
		"A": {"A": 1, "B": 2},
		"B": {"A": math.E, "B": 0},
	}
	return stats.FromMaps(mean, coefficient, point.Counts{"A": 2, "B": 2})
}

func TestVectorizeEmptyNeighborSet(t *testing.T) {
	st := testStatistics()
	v := Vectorize(nil, "A", st)
	if len(v) != 5 {
		t.Fatalf("expected 5 features, got %d", len(v))
	}
	// ln(1)*(0-1) + ln(e)*(0-1)
	expectedQuality := -1.0
	expected := Vector{0, 0, 0, expectedQuality, 0}
	for i := range expected {
		if !approxEqual(v[i], expected[i]) {
			t.Errorf("expected %s to be %v, got %v", Names[i], expected[i], v[i])
		}
	}
}

func TestVectorizeEntropy(t *testing.T) {
	testCases := []struct {
		name       string
		categories []string
		expected   float64
	}{
		{"single category", []string{"A", "A", "A"}, 0},
		{"even split of 2", []string{"A", "B"}, math.Ln2},
		{"even split of 8", []string{"A", "B", "A", "B", "A", "B", "A", "B"}, math.Ln2},
		{"uneven split", []string{"A", "A", "A", "B"}, -(0.75*math.Log(0.75) + 0.25*math.Log(0.25))},
	}
	for _, tc := range testCases {
		v := Vectorize(neighbors(0, tc.categories...), "A", nil)
		if !approxEqual(v[Entropy], tc.expected) {
			t.Errorf("%s: expected entropy %v, got %v", tc.name, tc.expected, v[Entropy])
		}
	}
}

func TestVectorizeCompetitiveness(t *testing.T) {
	v := Vectorize(neighbors(0, "A", "B", "B", "B"), "A", nil)
	if !approxEqual(v[Competitiveness], -0.25) {
		t.Errorf("expected competitiveness -0.25, got %v", v[Competitiveness])
	}
	v = Vectorize(neighbors(0, "B", "B"), "A", nil)
	if v[Competitiveness] != 0 || math.Signbit(v[Competitiveness]) {
		t.Errorf("expected competitiveness 0 without target neighbors, got %v", v[Competitiveness])
	}
}

func TestVectorizeQualityAndPopularity(t *testing.T) {
	st := testStatistics()
	ns := append(neighbors(3, "A", "A"), neighbors(4, "B")...)
	v := Vectorize(ns, "B", st)
	// coefficient[B][B] is 0 and skipped: ln(2)*(2-0.5)
	if expected := math.Ln2 * 1.5; !approxEqual(v[Quality], expected) {
		t.Errorf("expected quality %v, got %v", expected, v[Quality])
	}
	if v[Popularity] != 10 {
		t.Errorf("expected popularity 10, got %v", v[Popularity])
	}
	if v[Density] != 3 {
		t.Errorf("expected density 3, got %v", v[Density])
	}
}

func TestScenarioFeatureVector(t *testing.T) {
	a := stats.NewAccumulator([]string{"A", "B", "C"})
	for i := int64(1); i <= 2; i++ {
		ns := []point.Point{{ID: 10 * i, Category: "A", Checkins: 7}, {ID: 10*i + 1, Category: "B", Checkins: 5}}
		if err := a.Observe(point.Point{ID: i, Category: "A"}, ns); err != nil {
			t.Fatal(err)
		}
	}
	st := a.Finalize(point.Counts{"A": 2, "B": 2, "C": 0})
	ns := []point.Point{{ID: 10, Category: "A", Checkins: 7}, {ID: 11, Category: "B", Checkins: 5}}
	v := Vectorize(ns, "A", st)
	if v[Density] != 2 {
		t.Errorf("expected density 2, got %v", v[Density])
	}
	if !approxEqual(v[Entropy], math.Ln2) {
		t.Errorf("expected entropy ln(2), got %v", v[Entropy])
	}
	if v[Popularity] != 12 {
		t.Errorf("expected popularity 12, got %v", v[Popularity])
	}
}

func TestNewLabel(t *testing.T) {
	l := NewLabel(point.Point{Checkins: 42})
	if len(l) != 1 || l[0] != 42 {
		t.Errorf("expected label [42], got %v", l)
	}
}
