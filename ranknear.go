/*
Package ranknear prepares the training data of a point-of-interest
ranking model from a geotagged check-in dataset.

For every point of a source it finds the points within a fixed radius
and condenses them into a feature vector, labelled with the check-ins
of the point. The feature vectors depend on dataset-wide category
statistics, so a preparation runs two parallel passes over the source:
one computing the statistics and one computing the features with them.

The prepared Dataset can be saved and loaded back without recomputing
anything.
*/
package ranknear

import (
	"context"
	"fmt"
	"time"

	"github.com/pbanos/ranknear/feature"
	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/pool"
	"github.com/pbanos/ranknear/source"
	"github.com/pbanos/ranknear/stats"
)

/*
Dataset holds the category statistics of a source together with the
labels and feature vectors of its points. Labels()[i] and Features()[i]
describe the same point.
*/
type Dataset struct {
	statistics *stats.Statistics
	labels     []feature.Label
	features   []feature.Vector
	ready      bool
}

// New returns an empty Dataset, ready to be prepared or loaded
func New() *Dataset {
	return &Dataset{}
}

/*
Prepare takes a context, an Opener for the source of points and a
Config, and computes the statistics, labels and features of the source.

The opener is called once to fill in missing geohashes (when the source
is a source.GeohashUpdater) and to obtain the number of points and the
category counts, and then once per worker and pass. Points whose
neighbors or features cannot be computed are logged and left out of
both labels and features.

An error is returned if the configuration is invalid, the source cannot
be opened or counted, or a worker fails to open or read its chunk. The
dataset is not modified in that case.
*/
func (d *Dataset) Prepare(ctx context.Context, opener source.Opener, config *Config) error {
	if opener == nil {
		return ErrNoSource
	}
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("preparing dataset: %w", err)
	}
	cfg := config.withDefaults()
	p, err := pool.New(cfg.Workers, cfg.Reporter)
	if err != nil {
		return fmt.Errorf("preparing dataset: %w", err)
	}
	total, counts, err := inspect(ctx, opener, cfg)
	if err != nil {
		return fmt.Errorf("preparing dataset: %w", err)
	}
	if cfg.TargetCategory != "" {
		if _, ok := counts[cfg.TargetCategory]; !ok {
			return fmt.Errorf("preparing dataset: %w: %q", ErrUnknownTarget, cfg.TargetCategory)
		}
	}
	cfg.Logger.Logf("preparing %d points of %d categories with %d workers and radius %gm", total, len(counts), p.Workers(), cfg.Radius)
	start := time.Now()
	st, err := computeStatistics(ctx, p, opener, total, counts, cfg)
	if err != nil {
		return err
	}
	cfg.Logger.Logf("statistics computed in %v", time.Since(start))
	start = time.Now()
	labels, features, err := computeFeatures(ctx, p, opener, total, st, cfg)
	if err != nil {
		return err
	}
	cfg.Logger.Logf("%d feature vectors computed in %v, %d points skipped", len(features), time.Since(start), total-len(features))
	d.statistics = st
	d.labels = labels
	d.features = features
	d.ready = true
	return nil
}

// Ready returns whether the dataset has been prepared or loaded
func (d *Dataset) Ready() bool {
	return d.ready
}

// Statistics returns the category statistics of the dataset
func (d *Dataset) Statistics() *stats.Statistics {
	return d.statistics
}

// Labels returns the labels of the points of the dataset
func (d *Dataset) Labels() []feature.Label {
	return d.labels
}

// Features returns the feature vectors of the points of the dataset
func (d *Dataset) Features() []feature.Vector {
	return d.features
}

func inspect(ctx context.Context, opener source.Opener, cfg Config) (int, point.Counts, error) {
	src, err := opener.Open(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()
	if gu, ok := src.(source.GeohashUpdater); ok {
		n, err := gu.UpdateGeohashes(ctx)
		if err != nil {
			return 0, nil, err
		}
		if n > 0 {
			cfg.Logger.Logf("computed geohashes of %d points", n)
		}
	}
	total, err := src.Count(ctx)
	if err != nil {
		return 0, nil, err
	}
	counts, err := src.Categories(ctx)
	if err != nil {
		return 0, nil, err
	}
	return total, counts, nil
}
