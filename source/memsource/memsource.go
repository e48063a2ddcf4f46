/*
Package memsource provides an in-memory implementation of source.Source
indexing its points by geohash cell.
*/
package memsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
)

/*
Source is an in-memory source.Source. It is also a source.Opener that
returns itself, as it is read-only once built and can be shared by any
number of workers.
*/
type Source struct {
	points []point.Point
	cells  map[string][]int
	counts point.Counts
}

/*
New takes a slice of points and returns a Source with them. Points
without an ID get their 1-based position as ID, and points without a
geohash get it computed. The given slice is not modified.
*/
func New(points []point.Point) *Source {
	s := &Source{
		points: make([]point.Point, len(points)),
		cells:  make(map[string][]int),
		counts: make(point.Counts),
	}
	for i, p := range points {
		if p.ID == 0 {
			p.ID = int64(i + 1)
		}
		if p.Geohash == "" {
			p.Geohash = point.Geohash(p.Lng, p.Lat)
		}
		s.points[i] = p
		cell := point.Cell(p)
		s.cells[cell] = append(s.cells[cell], i)
		s.counts[p.Category]++
	}
	return s
}

// Open returns the source itself
func (s *Source) Open(context.Context) (source.Source, error) {
	return s, nil
}

// Points returns a copy of the points of the source
func (s *Source) Points() []point.Point {
	return append([]point.Point{}, s.points...)
}

func (s *Source) Count(context.Context) (int, error) {
	return len(s.points), nil
}

func (s *Source) Categories(context.Context) (point.Counts, error) {
	cc := make(point.Counts, len(s.counts))
	for c, n := range s.counts {
		cc[c] = n
	}
	return cc, nil
}

func (s *Source) Read(ctx context.Context, offset, limit int) (<-chan point.Point, <-chan error) {
	points := make(chan point.Point)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(points)
		if offset < 0 || limit < 0 {
			errs <- fmt.Errorf("reading points: invalid range offset %d limit %d", offset, limit)
			return
		}
		end := offset + limit
		if end > len(s.points) {
			end = len(s.points)
		}
		for i := offset; i < end; i++ {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case points <- s.points[i]:
			}
		}
	}()
	return points, errs
}

func (s *Source) NeighborsWithin(ctx context.Context, center point.Point, radius float64) ([]point.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var candidates []point.Point
	for _, cell := range point.CoveringCells(center.Location(), radius, point.CellPrecision) {
		if len(cell) == point.CellPrecision {
			for _, i := range s.cells[cell] {
				candidates = append(candidates, s.points[i])
			}
			continue
		}
		for c, indexes := range s.cells {
			if strings.HasPrefix(c, cell) {
				for _, i := range indexes {
					candidates = append(candidates, s.points[i])
				}
			}
		}
	}
	return source.WithinRadius(center, candidates, radius), nil
}

// Close does nothing on an in-memory source
func (s *Source) Close() error {
	return nil
}
