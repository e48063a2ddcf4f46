package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbanos/ranknear/feature"
)

func TestSummarize(t *testing.T) {
	vectors := []feature.Vector{
		{1, 0, -0.5, 2, 10},
		{3, math.Ln2, 0, 4, 20},
	}
	summaries := Summarize(vectors)
	if len(summaries) != feature.Size {
		t.Fatalf("expected %d summaries, got %d", feature.Size, len(summaries))
	}
	density := summaries[feature.Density]
	if density.Name != "density" || density.Mean != 2 || density.Min != 1 || density.Max != 3 {
		t.Errorf("unexpected density summary %+v", density)
	}
	// unbiased standard deviation of {1, 3}
	if math.Abs(density.StdDev-math.Sqrt2) > 1e-12 {
		t.Errorf("expected density stddev sqrt(2), got %v", density.StdDev)
	}
	if summaries[feature.Competitiveness].Min != -0.5 {
		t.Errorf("unexpected competitiveness summary %+v", summaries[feature.Competitiveness])
	}
}

func TestSummarizeDegenerateInputs(t *testing.T) {
	for _, s := range Summarize(nil) {
		if s.Mean != 0 || s.StdDev != 0 || s.Min != 0 || s.Max != 0 {
			t.Errorf("expected zero summary for no vectors, got %+v", s)
		}
	}
	for _, s := range Summarize([]feature.Vector{{1, 2, 3, 4, 5}}) {
		if s.StdDev != 0 || s.Min != s.Max || s.Mean != s.Min {
			t.Errorf("unexpected summary for a single vector %+v", s)
		}
	}
}

func TestHistograms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	vectors := []feature.Vector{
		{1, 0, -0.5, 2, 10},
		{3, 0.7, 0, 4, 20},
		{2, 0.3, -0.1, 3, 5},
	}
	paths, err := Histograms(vectors, dir, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != feature.Size {
		t.Fatalf("expected %d plots, got %v", feature.Size, paths)
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("expected a PNG at %s, got %v", path, err)
		}
	}
}
