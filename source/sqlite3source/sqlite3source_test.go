package sqlite3source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
)

func createTestSource(t *testing.T, points []point.Point) (*Source, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkins.db")
	s, err := Create(context.Background(), path)
	if err != nil {
		t.Fatalf("creating database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err = s.Write(context.Background(), points); err != nil {
		t.Fatalf("writing points: %v", err)
	}
	return s, path
}

func testPoints(n int) []point.Point {
	categories := []string{"food", "hotel", "shop"}
	points := make([]point.Point, n)
	for i := range points {
		points[i] = point.Point{
			Lng:      116.397 + float64(i%15)*0.0004,
			Lat:      39.908 + float64(i/15)*0.0004,
			Category: categories[i%len(categories)],
			Checkins: i,
		}
	}
	return points
}

func TestWriteCountAndCategories(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestSource(t, testPoints(250))
	count, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 250 {
		t.Errorf("expected 250 points, got %d", count)
	}
	counts, err := s.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected := point.Counts{"food": 84, "hotel": 83, "shop": 83}
	for c, n := range expected {
		if counts[c] != n {
			t.Errorf("expected %d points of %s, got %d", n, c, counts[c])
		}
	}
}

func TestReadRangesAreStable(t *testing.T) {
	ctx := context.Background()
	_, path := createTestSource(t, testPoints(40))
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	points, err := source.Drain(s.Read(ctx, 10, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	for i, p := range points {
		if p.ID != int64(11+i) || p.Checkins != 10+i {
			t.Errorf("expected point %d at position %d, got %v", 11+i, i, p)
		}
		if p.Geohash != point.Geohash(p.Lng, p.Lat) {
			t.Errorf("expected point %d to have its geohash stored", p.ID)
		}
	}
}

func TestNeighborsWithinMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	all := testPoints(60)
	s, _ := createTestSource(t, all)
	stored, err := source.Drain(s.Read(ctx, 0, len(all)))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range stored {
		neighbors, err := s.NeighborsWithin(ctx, p, 200)
		if err != nil {
			t.Fatal(err)
		}
		expected := source.WithinRadius(p, stored, 200)
		if len(neighbors) != len(expected) {
			t.Errorf("point %d: expected %d neighbors, got %d", p.ID, len(expected), len(neighbors))
		}
		for _, n := range neighbors {
			if n.ID == p.ID {
				t.Errorf("point %d: found itself among its neighbors", p.ID)
			}
		}
	}
}

func TestUpdateGeohashes(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestSource(t, testPoints(3))
	if _, err := s.db.ExecContext(ctx, `UPDATE checkins SET geohash = '' WHERE id <= 2`); err != nil {
		t.Fatal(err)
	}
	n, err := s.UpdateGeohashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 geohashes updated, got %d", n)
	}
	n, err = s.UpdateGeohashes(ctx)
	if err != nil || n != 0 {
		t.Errorf("expected nothing left to update, got %d, %v", n, err)
	}
}
