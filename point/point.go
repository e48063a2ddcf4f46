/*
Package point defines the geotagged check-in points the pipeline works on,
the per-category counts of a dataset and the helpers used to summarize
the neighborhood of a point.
*/
package point

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

/*
Point is a geotagged place with a category and a popularity count
(its number of check-ins).

ID identifies the point in its source and is used to exclude a point
from its own neighbor set, so it must be unique and non-zero for points
coming from the same source.
*/
type Point struct {
	ID       int64   `json:"id"`
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	Geohash  string  `json:"geohash,omitempty"`
	Category string  `json:"category"`
	Checkins int     `json:"checkins"`
}

/*
Counts maps every category of a dataset to the number of points of that
category in the whole dataset.
*/
type Counts map[string]int

// Location returns the position of the point as an orb.Point
func (p Point) Location() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p Point) String() string {
	return fmt.Sprintf("{Point %d %s (%f, %f)}", p.ID, p.Category, p.Lng, p.Lat)
}

// Total returns the number of points over all categories
func (c Counts) Total() int {
	var total int
	for _, n := range c {
		total += n
	}
	return total
}

/*
Categories returns the categories in the counts sorted in ascending order.
Categories with a zero count are included.
*/
func (c Counts) Categories() []string {
	categories := make([]string, 0, len(c))
	for category := range c {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

/*
Histogram takes a neighbor set and returns the number of neighbors
of each category in it. Categories without neighbors are not present
in the result.
*/
func Histogram(neighbors []Point) map[string]int {
	h := make(map[string]int)
	for _, n := range neighbors {
		h[n.Category]++
	}
	return h
}
