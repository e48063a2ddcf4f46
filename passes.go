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

// visitor processes a point and its neighbor set inside a worker
type visitor func(p point.Point, neighbors []point.Point) error

type chunkFeatures struct {
	labels  []feature.Label
	vectors []feature.Vector
}

/*
computeStatistics runs the statistics pass: every worker accumulates the
neighbor counts and coefficient suffixes of its chunk on its own
Accumulator, and the partial accumulators are merged and finalized with
the category counts of the whole source.
*/
func computeStatistics(ctx context.Context, p *pool.Pool, opener source.Opener, total int, counts point.Counts, config Config) (*stats.Statistics, error) {
	categories := counts.Categories()
	results, err := pool.Run(ctx, p, "statistics", total, func(ctx context.Context, c pool.Chunk, progress chan<- int) (*stats.Accumulator, error) {
		a := stats.NewAccumulator(categories)
		err := scanChunk(ctx, opener, c, progress, config, a.Observe)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	partials := make([]*stats.Accumulator, len(results))
	for i, r := range results {
		partials[i] = r.Value
	}
	merged, err := stats.Merge(categories, partials...)
	if err != nil {
		return nil, fmt.Errorf("merging statistics: %w", err)
	}
	return merged.Finalize(counts), nil
}

/*
computeFeatures runs the feature pass: every worker computes the label
and feature vector of the points of its chunk, and the partial lists are
concatenated in chunk order so labels and features keep the order of the
source.
*/
func computeFeatures(ctx context.Context, p *pool.Pool, opener source.Opener, total int, st *stats.Statistics, config Config) ([]feature.Label, []feature.Vector, error) {
	results, err := pool.Run(ctx, p, "features", total, func(ctx context.Context, c pool.Chunk, progress chan<- int) (chunkFeatures, error) {
		cf := chunkFeatures{
			labels:  make([]feature.Label, 0, c.Limit),
			vectors: make([]feature.Vector, 0, c.Limit),
		}
		err := scanChunk(ctx, opener, c, progress, config, func(pt point.Point, neighbors []point.Point) error {
			target := config.TargetCategory
			if target == "" {
				target = pt.Category
			}
			v := feature.Vectorize(neighbors, target, st)
			cf.labels = append(cf.labels, feature.NewLabel(pt))
			cf.vectors = append(cf.vectors, v)
			return nil
		})
		return cf, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("computing features: %w", err)
	}
	labels := make([]feature.Label, 0, total)
	vectors := make([]feature.Vector, 0, total)
	for _, r := range results {
		labels = append(labels, r.Value.labels...)
		vectors = append(vectors, r.Value.vectors...)
	}
	return labels, vectors, nil
}

/*
scanChunk opens a new source with the opener, reads the points of the
chunk from it and calls visit with each point and its neighbor set,
sending a progress increment per point. Points whose neighbor query or
visit fails are logged and skipped. Failures to open or read the source
are returned.
*/
func scanChunk(ctx context.Context, opener source.Opener, c pool.Chunk, progress chan<- int, config Config, visit visitor) error {
	start := time.Now()
	src, err := opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()
	var processed, skipped int
	points, errs := src.Read(ctx, c.Offset, c.Limit)
	for pt := range points {
		neighbors, err := src.NeighborsWithin(ctx, pt, config.Radius)
		if err == nil {
			err = visitSafely(visit, pt, neighbors)
		}
		if err != nil {
			if ctx.Err() != nil {
				go drain(points)
				return ctx.Err()
			}
			config.Logger.Logf("worker %d: skipping point %d: %v", c.Index, pt.ID, err)
			skipped++
		} else {
			processed++
		}
		progress <- 1
	}
	if err = <-errs; err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	config.Logger.Logf("worker %d: processed %d points, skipped %d in %v", c.Index, processed, skipped, time.Since(start))
	return nil
}

func visitSafely(visit visitor, pt point.Point, neighbors []point.Point) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return visit(pt, neighbors)
}

func drain(points <-chan point.Point) {
	for range points {
	}
}
