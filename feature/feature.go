/*
Package feature condenses the neighbor set of a point into the fixed size
numeric vector used as model input, and the point itself into its label.
*/
package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/stats"
	"gonum.org/v1/gonum/stat"
)

// Positions of each feature in a Vector
const (
	Density = iota
	Entropy
	Competitiveness
	Quality
	Popularity
	// Size is the number of features in a Vector
	Size
)

// Names holds the name of each feature in Vector order
var Names = [Size]string{"density", "entropy", "competitiveness", "quality", "popularity"}

/*
Vector is the feature vector of a point:
[density, entropy, competitiveness, quality, popularity]
*/
type Vector [Size]float64

/*
Label is the observed popularity of a point. It is a slice to leave room
for additional targets.
*/
type Label []int

/*
NewLabel takes a point and returns its label.
*/
func NewLabel(p point.Point) Label {
	return Label{p.Checkins}
}

// String returns a representation of the vector naming each feature
func (v Vector) String() string {
	s := "["
	for i, f := range v {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", Names[i], f)
	}
	return s + "]"
}

/*
Vectorize takes the neighbor set of a point, the target category and the
dataset statistics and returns the feature vector of the point.

  * density is the number of neighbors.
  * entropy is the Shannon entropy (natural log) of the distribution of
    neighbor categories.
  * competitiveness is minus the share of neighbors of the target
    category, or 0 if there are none.
  * quality adds ln(coefficient[c][target]) * (n_c - mean[c][target]) over
    the categories c of the statistics, skipping those with a coefficient
    of 0. It is computed even for an empty neighbor set.
  * popularity is the sum of the check-ins of the neighbors.

Vectorize never modifies the statistics, so it can be called concurrently
with the same Statistics value.
*/
func Vectorize(neighbors []point.Point, target string, st *stats.Statistics) Vector {
	var v Vector
	h := point.Histogram(neighbors)
	n := len(neighbors)
	v[Density] = float64(n)
	if n > 0 {
		categories := make([]string, 0, len(h))
		for c := range h {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		shares := make([]float64, len(categories))
		for i, c := range categories {
			shares[i] = float64(h[c]) / float64(n)
		}
		v[Entropy] = stat.Entropy(shares)
		if t := h[target]; t > 0 {
			v[Competitiveness] = -float64(t) / float64(n)
		}
	}
	if st != nil {
		for _, c := range st.Categories() {
			k := st.Coefficient(c, target)
			if k == 0 {
				continue
			}
			v[Quality] += math.Log(k) * (float64(h[c]) - st.Mean(c, target))
		}
	}
	for _, p := range neighbors {
		v[Popularity] += float64(p.Checkins)
	}
	return v
}
