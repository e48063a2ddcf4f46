/*
Package stats computes the dataset-wide category statistics the feature
vectors depend on: the mean number of neighbors of each category around
points of each category and the co-location coefficient of every pair of
categories.

Workers accumulate partial sums over their share of the points into an
Accumulator. Accumulators are combined with Merge, which is a pure
elementwise sum and thus independent of the order in which partial
results arrive, and the merged one is turned into an immutable
Statistics value with Finalize.
*/
package stats

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pbanos/ranknear/point"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrUnknownCategory is returned when a point or one of its neighbors
	// has a category the accumulator was not built for
	ErrUnknownCategory = errors.New("unknown category")
	// ErrCategoryMismatch is returned when merging accumulators built for
	// different category sets
	ErrCategoryMismatch = errors.New("accumulators built for different categories")
)

/*
Accumulator holds the partial sums of a share of the points of a dataset:
the number of neighbors of each category found around points of each
category, and the coefficient suffixes.

An Accumulator is not safe for concurrent use. Each worker should use
its own.
*/
type Accumulator struct {
	categories []string
	index      map[string]int
	// sums[l*n+p] counts neighbors of category l around points of category p
	sums []float64
	// suffixes[p*n+l] adds h[l]/(|N|-h[p]) over points of category p
	suffixes []float64
}

/*
NewAccumulator takes the categories of a dataset and returns an empty
Accumulator for them.
*/
func NewAccumulator(categories []string) *Accumulator {
	sorted := append([]string{}, categories...)
	sort.Strings(sorted)
	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		index[c] = i
	}
	n := len(sorted)
	return &Accumulator{
		categories: sorted,
		index:      index,
		sums:       make([]float64, n*n),
		suffixes:   make([]float64, n*n),
	}
}

/*
Observe takes a point and its neighbor set and adds their contribution
to the accumulator.

Every neighbor of category l adds 1 to the count of l neighbors around
points of the category p of the given point. If the point has neighbors
of a category other than p, every category l in the neighborhood adds
h[l]/(|N|-h[p]) to the suffix of (p, l), with h being the histogram of
the neighbor set. Points whose neighbors all share their category only
contribute to the counts, and points without neighbors contribute nothing.

An error is returned, and nothing is added, when the point or any of its
neighbors has a category unknown to the accumulator.
*/
func (a *Accumulator) Observe(p point.Point, neighbors []point.Point) error {
	pi, ok := a.index[p.Category]
	if !ok {
		return fmt.Errorf("observing point %d: %w %q", p.ID, ErrUnknownCategory, p.Category)
	}
	h := point.Histogram(neighbors)
	for c := range h {
		if _, ok := a.index[c]; !ok {
			return fmt.Errorf("observing neighbors of point %d: %w %q", p.ID, ErrUnknownCategory, c)
		}
	}
	n := len(a.categories)
	for c, count := range h {
		a.sums[a.index[c]*n+pi] += float64(count)
	}
	denom := len(neighbors) - h[p.Category]
	if denom == 0 {
		return nil
	}
	for c, count := range h {
		a.suffixes[pi*n+a.index[c]] += float64(count) / float64(denom)
	}
	return nil
}

// Categories returns the sorted categories of the accumulator
func (a *Accumulator) Categories() []string {
	return append([]string{}, a.categories...)
}

/*
Merge takes the categories of a dataset and any number of accumulators
built for them and returns a new accumulator with the elementwise sum of
their partial sums. The given accumulators are not modified. The result
does not depend on the order of the accumulators.
*/
func Merge(categories []string, partials ...*Accumulator) (*Accumulator, error) {
	result := NewAccumulator(categories)
	for i, a := range partials {
		if !sameCategories(result.categories, a.categories) {
			return nil, fmt.Errorf("merging accumulator %d: %w", i, ErrCategoryMismatch)
		}
		floats.Add(result.sums, a.sums)
		floats.Add(result.suffixes, a.suffixes)
	}
	return result, nil
}

/*
Finalize takes the counts of points per category over the whole dataset
and returns the Statistics for the accumulated sums.

The mean number of l neighbors around p points is the accumulated count
divided by counts[p]. The coefficient of (p, l) is the accumulated suffix
multiplied by (total-counts[p])/(counts[p]*counts[l]), with total being
the sum of all counts. Entries whose divisor involves a zero count are
left at 0.
*/
func (a *Accumulator) Finalize(counts point.Counts) *Statistics {
	st := newStatistics(a.categories, counts)
	n := len(a.categories)
	total := float64(st.total)
	for i, ci := range a.categories {
		for j, cj := range a.categories {
			nj := counts[cj]
			if nj == 0 {
				continue
			}
			st.mean[i*n+j] = a.sums[i*n+j] / float64(nj)
			ni := counts[ci]
			if ni == 0 {
				continue
			}
			st.coefficient[i*n+j] = a.suffixes[i*n+j] * (total - float64(ni)) / (float64(ni) * float64(nj))
		}
	}
	return st
}

func sameCategories(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
