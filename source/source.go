/*
Package source defines the interfaces the dataset preparation consumes:
a Source of check-in points that can be read by ranges and queried for
the neighbors of a point, an Opener to obtain a new Source per worker,
and a Writer to load points into a backend.

Implementations live in the subpackages of this package.
*/
package source

import (
	"context"
	"errors"

	"github.com/pbanos/ranknear/point"
	"github.com/paulmach/orb/geo"
)

// ErrClosed is returned by sources used after being closed
var ErrClosed = errors.New("source is closed")

/*
Source represents a collection of check-in points.

Count returns the number of points in the source.

Categories returns the number of points of each category.

Read takes an offset and a limit and streams the points in the range
[offset, offset+limit) of a stable ordering of the source. The error
channel receives at most one error and is closed when the stream ends.

NeighborsWithin takes a point and a radius in metres and returns every
point of the source whose haversine distance to it is at most radius,
excluding the point itself.

Close releases the resources held by the source.
*/
type Source interface {
	Count(context.Context) (int, error)
	Categories(context.Context) (point.Counts, error)
	Read(ctx context.Context, offset, limit int) (<-chan point.Point, <-chan error)
	NeighborsWithin(ctx context.Context, center point.Point, radius float64) ([]point.Point, error)
	Close() error
}

/*
Opener opens a new Source every time it is called. Each worker of a
preparation opens its own Source.
*/
type Opener interface {
	Open(context.Context) (Source, error)
}

// OpenerFunc allows using a function as an Opener
type OpenerFunc func(context.Context) (Source, error)

// Open calls the function
func (of OpenerFunc) Open(ctx context.Context) (Source, error) {
	return of(ctx)
}

/*
GeohashUpdater is implemented by sources that can fill in the geohash of
the points stored without one. UpdateGeohashes returns the number of
points updated.
*/
type GeohashUpdater interface {
	UpdateGeohashes(context.Context) (int, error)
}

/*
Writer represents a backend points can be stored on.

Write takes a slice of points and stores them, returning the number of
points stored. Points without a geohash get it computed.
*/
type Writer interface {
	GeohashUpdater
	Write(context.Context, []point.Point) (int, error)
	Close() error
}

/*
WithinRadius takes a center point, a slice of candidate points and a
radius in metres and returns the candidates whose haversine distance to
the center is at most radius. Candidates with the ID of the center are
left out.
*/
func WithinRadius(center point.Point, candidates []point.Point, radius float64) []point.Point {
	var result []point.Point
	c := center.Location()
	for _, p := range candidates {
		if p.ID == center.ID {
			continue
		}
		if geo.DistanceHaversine(c, p.Location()) <= radius {
			result = append(result, p)
		}
	}
	return result
}

/*
Drain takes the channels returned by a Source Read and collects the
streamed points, returning them with the stream error if any.
*/
func Drain(points <-chan point.Point, errs <-chan error) ([]point.Point, error) {
	var result []point.Point
	for p := range points {
		result = append(result, p)
	}
	return result, <-errs
}
