/*
Package report describes prepared feature vectors: per feature summary
statistics and histogram plots.
*/
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pbanos/ranknear/feature"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary holds the summary statistics of a feature over a set of vectors
type Summary struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%-16s mean=%-12.6g stddev=%-12.6g min=%-12.6g max=%.6g", s.Name, s.Mean, s.StdDev, s.Min, s.Max)
}

/*
Summarize takes a slice of feature vectors and returns the summary of
each feature in vector order. Summaries of an empty slice are all 0,
and the standard deviation of a single vector is 0.
*/
func Summarize(vectors []feature.Vector) []Summary {
	summaries := make([]Summary, feature.Size)
	for i := range summaries {
		summaries[i].Name = feature.Names[i]
		if len(vectors) == 0 {
			continue
		}
		column := Column(vectors, i)
		summaries[i].Mean, summaries[i].StdDev = stat.MeanStdDev(column, nil)
		if len(column) == 1 || math.IsNaN(summaries[i].StdDev) {
			summaries[i].StdDev = 0
		}
		summaries[i].Min = floats.Min(column)
		summaries[i].Max = floats.Max(column)
	}
	return summaries
}

// Column returns the values of the i-th feature of the given vectors
func Column(vectors []feature.Vector, i int) []float64 {
	column := make([]float64, len(vectors))
	for j, v := range vectors {
		column[j] = v[i]
	}
	return column
}

/*
Histograms takes a slice of feature vectors, a directory and a number of
bins and writes a PNG histogram of every feature to the directory, named
after the feature. It returns the paths of the written files.
*/
func Histograms(vectors []feature.Vector, dir string, bins int) ([]string, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("plotting histograms: no feature vectors")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("plotting histograms: %w", err)
	}
	paths := make([]string, 0, feature.Size)
	for i, name := range feature.Names {
		p := plot.New()
		p.Title.Text = name
		p.X.Label.Text = name
		p.Y.Label.Text = "points"
		h, err := plotter.NewHist(plotter.Values(Column(vectors, i)), bins)
		if err != nil {
			return paths, fmt.Errorf("plotting %s histogram: %w", name, err)
		}
		p.Add(h)
		path := filepath.Join(dir, name+".png")
		if err = p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("saving %s histogram: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
