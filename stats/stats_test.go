package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/pbanos/ranknear/point"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func neighborsOf(categories ...string) []point.Point {
	neighbors := make([]point.Point, len(categories))
	for i, c := range categories {
		neighbors[i] = point.Point{ID: int64(100 + i), Category: c}
	}
	return neighbors
}

func TestScenarioTwoPointsOfA(t *testing.T) {
	categories := []string{"A", "B", "C"}
	counts := point.Counts{"A": 2, "B": 2, "C": 0}
	a := NewAccumulator(categories)
	for i := 0; i < 2; i++ {
		p := point.Point{ID: int64(i + 1), Category: "A"}
		if err := a.Observe(p, neighborsOf("A", "B")); err != nil {
			t.Fatalf("observing point %d: %v", i, err)
		}
	}
	st := a.Finalize(counts)
	if got := st.Mean("B", "A"); !approxEqual(got, 1) {
		t.Errorf("expected mean[B][A] to be 1, got %v", got)
	}
	if got := st.Mean("A", "A"); !approxEqual(got, 1) {
		t.Errorf("expected mean[A][A] to be 1, got %v", got)
	}
	for _, p := range categories {
		if got := st.Coefficient(p, "C"); got != 0 {
			t.Errorf("expected coefficient[%s][C] to be 0, got %v", p, got)
		}
		if got := st.Mean("C", p); got != 0 {
			t.Errorf("expected mean[C][%s] to be 0, got %v", p, got)
		}
	}
	// k_suffix[A][B] = 2, k_prefix = (4-2)/(2*2)
	if got := st.Coefficient("A", "B"); !approxEqual(got, 1) {
		t.Errorf("expected coefficient[A][B] to be 1, got %v", got)
	}
}

func TestZeroCountGuard(t *testing.T) {
	a := NewAccumulator([]string{"A", "B"})
	// neighbors of a category with no global count must not divide by zero
	if err := a.Observe(point.Point{ID: 1, Category: "A"}, neighborsOf("B", "B")); err != nil {
		t.Fatal(err)
	}
	st := a.Finalize(point.Counts{"A": 1})
	if got := st.Coefficient("A", "B"); got != 0 {
		t.Errorf("expected coefficient[A][B] to be 0, got %v", got)
	}
	if got := st.Mean("B", "A"); !approxEqual(got, 2) {
		t.Errorf("expected mean[B][A] to be 2, got %v", got)
	}
	for _, v := range []float64{st.Mean("A", "B"), st.Mean("B", "B"), st.Coefficient("B", "A")} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != 0 {
			t.Errorf("expected guarded entry to be 0, got %v", v)
		}
	}
}

func TestCoefficientIsAsymmetric(t *testing.T) {
	categories := []string{"bar", "cafe", "park"}
	a := NewAccumulator(categories)
	observations := []struct {
		p         point.Point
		neighbors []point.Point
	}{
		{point.Point{ID: 1, Category: "bar"}, neighborsOf("cafe", "cafe", "park")},
		{point.Point{ID: 2, Category: "bar"}, neighborsOf("cafe")},
		{point.Point{ID: 3, Category: "cafe"}, neighborsOf("bar", "park", "park", "park")},
		{point.Point{ID: 4, Category: "park"}, neighborsOf("park")},
		{point.Point{ID: 5, Category: "park"}, nil},
	}
	for _, o := range observations {
		if err := a.Observe(o.p, o.neighbors); err != nil {
			t.Fatal(err)
		}
	}
	st := a.Finalize(point.Counts{"bar": 2, "cafe": 1, "park": 2})
	barCafe := st.Coefficient("bar", "cafe")
	cafeBar := st.Coefficient("cafe", "bar")
	if approxEqual(barCafe, cafeBar) {
		t.Errorf("expected coefficient to be asymmetric, got %v both ways", barCafe)
	}
	// bar suffix for cafe: 2/3 + 1/1, prefix (5-2)/(2*1)
	if expected := (2.0/3 + 1) * 3 / 2; !approxEqual(barCafe, expected) {
		t.Errorf("expected coefficient[bar][cafe] to be %v, got %v", expected, barCafe)
	}
	// cafe suffix for bar: 1/4, prefix (5-1)/(1*2)
	if expected := 0.25 * 4 / 2; !approxEqual(cafeBar, expected) {
		t.Errorf("expected coefficient[cafe][bar] to be %v, got %v", expected, cafeBar)
	}
	for p, row := range st.CoefficientMap() {
		for l, v := range row {
			if v < 0 {
				t.Errorf("expected coefficient[%s][%s] to be non-negative, got %v", p, l, v)
			}
		}
	}
}

func TestObserveUnknownCategory(t *testing.T) {
	a := NewAccumulator([]string{"A"})
	err := a.Observe(point.Point{ID: 1, Category: "A"}, neighborsOf("A", "Z"))
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	for i, v := range a.sums {
		if v != 0 {
			t.Errorf("expected sums[%d] to be untouched, got %v", i, v)
		}
	}
	err = a.Observe(point.Point{ID: 2, Category: "Z"}, nil)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	categories := []string{"A", "B"}
	counts := point.Counts{"A": 3, "B": 2}
	points := []point.Point{
		{ID: 1, Category: "A"}, {ID: 2, Category: "A"}, {ID: 3, Category: "A"},
		{ID: 4, Category: "B"}, {ID: 5, Category: "B"},
	}
	neighborhoods := [][]point.Point{
		neighborsOf("A", "B", "B"),
		neighborsOf("B"),
		neighborsOf("A", "A"),
		neighborsOf("A", "B", "A"),
		neighborsOf("A"),
	}
	whole := NewAccumulator(categories)
	partials := make([]*Accumulator, len(points))
	for i, p := range points {
		if err := whole.Observe(p, neighborhoods[i]); err != nil {
			t.Fatal(err)
		}
		partials[i] = NewAccumulator(categories)
		if err := partials[i].Observe(p, neighborhoods[i]); err != nil {
			t.Fatal(err)
		}
	}
	forward, err := Merge(categories, partials...)
	if err != nil {
		t.Fatal(err)
	}
	backward, err := Merge(categories, partials[4], partials[3], partials[2], partials[1], partials[0])
	if err != nil {
		t.Fatal(err)
	}
	expected := whole.Finalize(counts)
	for _, merged := range []*Accumulator{forward, backward} {
		st := merged.Finalize(counts)
		for _, p := range categories {
			for _, l := range categories {
				if !approxEqual(st.Mean(l, p), expected.Mean(l, p)) {
					t.Errorf("expected mean[%s][%s] to be %v, got %v", l, p, expected.Mean(l, p), st.Mean(l, p))
				}
				if !approxEqual(st.Coefficient(p, l), expected.Coefficient(p, l)) {
					t.Errorf("expected coefficient[%s][%s] to be %v, got %v", p, l, expected.Coefficient(p, l), st.Coefficient(p, l))
				}
			}
		}
	}
	if got := partials[1].sums[1*2+0]; got != 1 {
		t.Errorf("expected Merge to leave its inputs untouched, got %v B neighbors around A in partial", got)
	}
}

func TestMergeCategoryMismatch(t *testing.T) {
	_, err := Merge([]string{"A", "B"}, NewAccumulator([]string{"A"}))
	if !errors.Is(err, ErrCategoryMismatch) {
		t.Errorf("expected ErrCategoryMismatch, got %v", err)
	}
}

func TestFromMapsRoundTrip(t *testing.T) {
	a := NewAccumulator([]string{"A", "B"})
	if err := a.Observe(point.Point{ID: 1, Category: "A"}, neighborsOf("A", "B")); err != nil {
		t.Fatal(err)
	}
	st := a.Finalize(point.Counts{"A": 1, "B": 1})
	restored := FromMaps(st.MeanMap(), st.CoefficientMap(), st.Counts())
	for _, p := range st.Categories() {
		for _, l := range st.Categories() {
			if restored.Mean(l, p) != st.Mean(l, p) || restored.Coefficient(p, l) != st.Coefficient(p, l) {
				t.Errorf("expected restored statistics to match for (%s, %s)", p, l)
			}
		}
	}
	if restored.Total() != 2 {
		t.Errorf("expected total 2, got %d", restored.Total())
	}
	if restored.Mean("Z", "A") != 0 || restored.Has("Z") {
		t.Errorf("expected unknown categories to read as 0")
	}
}
