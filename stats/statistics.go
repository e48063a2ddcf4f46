package stats

import (
	"sort"

	"github.com/pbanos/ranknear/point"
)

/*
Statistics holds the category statistics of a dataset. It is immutable
once built, so it can be shared by any number of goroutines.

Both matrices are indexed by pairs of categories:
  * Mean(l, p) is the average number of neighbors of category l found
    around points of category p.
  * Coefficient(p, l) is the co-location coefficient of category l
    neighbors around category p points. It is not symmetric.
*/
type Statistics struct {
	categories  []string
	index       map[string]int
	counts      point.Counts
	total       int
	mean        []float64
	coefficient []float64
}

func newStatistics(categories []string, counts point.Counts) *Statistics {
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}
	cc := make(point.Counts, len(counts))
	for c, n := range counts {
		cc[c] = n
	}
	n := len(categories)
	return &Statistics{
		categories:  categories,
		index:       index,
		counts:      cc,
		total:       cc.Total(),
		mean:        make([]float64, n*n),
		coefficient: make([]float64, n*n),
	}
}

/*
FromMaps takes a mean category number matrix, a category coefficient
matrix, both as nested maps, and the category counts, and returns the
Statistics they describe. The categories of the result are the union of
the categories found in the three arguments. Missing entries are 0.
No consistency checks are performed between the arguments.
*/
func FromMaps(mean, coefficient map[string]map[string]float64, counts point.Counts) *Statistics {
	seen := make(map[string]struct{})
	for c := range counts {
		seen[c] = struct{}{}
	}
	for _, m := range []map[string]map[string]float64{mean, coefficient} {
		for outer, row := range m {
			seen[outer] = struct{}{}
			for inner := range row {
				seen[inner] = struct{}{}
			}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	st := newStatistics(categories, counts)
	n := len(categories)
	for i, ci := range categories {
		for j, cj := range categories {
			st.mean[i*n+j] = mean[ci][cj]
			st.coefficient[i*n+j] = coefficient[ci][cj]
		}
	}
	return st
}

// Categories returns the sorted categories of the statistics
func (st *Statistics) Categories() []string {
	return append([]string{}, st.categories...)
}

// Has returns whether the given category is known to the statistics
func (st *Statistics) Has(category string) bool {
	_, ok := st.index[category]
	return ok
}

// Counts returns a copy of the counts of points per category
func (st *Statistics) Counts() point.Counts {
	cc := make(point.Counts, len(st.counts))
	for c, n := range st.counts {
		cc[c] = n
	}
	return cc
}

// Total returns the number of points over all categories
func (st *Statistics) Total() int {
	return st.total
}

/*
Mean returns the average number of neighbors of category l around points
of category p, or 0 if any of them is unknown.
*/
func (st *Statistics) Mean(l, p string) float64 {
	return st.at(st.mean, l, p)
}

/*
Coefficient returns the co-location coefficient of category l neighbors
around points of category p, or 0 if any of them is unknown.
*/
func (st *Statistics) Coefficient(p, l string) float64 {
	return st.at(st.coefficient, p, l)
}

// MeanMap returns the mean category number matrix as nested maps
func (st *Statistics) MeanMap() map[string]map[string]float64 {
	return st.toMap(st.mean)
}

// CoefficientMap returns the category coefficient matrix as nested maps
func (st *Statistics) CoefficientMap() map[string]map[string]float64 {
	return st.toMap(st.coefficient)
}

func (st *Statistics) at(m []float64, a, b string) float64 {
	i, ok := st.index[a]
	if !ok {
		return 0
	}
	j, ok := st.index[b]
	if !ok {
		return 0
	}
	return m[i*len(st.categories)+j]
}

func (st *Statistics) toMap(m []float64) map[string]map[string]float64 {
	n := len(st.categories)
	result := make(map[string]map[string]float64, n)
	for i, ci := range st.categories {
		row := make(map[string]float64, n)
		for j, cj := range st.categories {
			row[cj] = m[i*n+j]
		}
		result[ci] = row
	}
	return result
}
