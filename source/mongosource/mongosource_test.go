package mongosource

import (
	"context"
	"os"
	"testing"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
)

func TestWriteReadAndNeighbors(t *testing.T) {
	url := os.Getenv("MONGO_URL")
	if url == "" {
		t.Skip("MONGO_URL not set")
	}
	ctx := context.Background()
	s, err := Dial(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err = s.checkins().RemoveAll(nil); err != nil {
		t.Fatal(err)
	}
	points := []point.Point{
		{Lng: 116.3970, Lat: 39.9080, Category: "food", Checkins: 10},
		{Lng: 116.3975, Lat: 39.9082, Category: "food", Checkins: 4},
		{Lng: 116.4100, Lat: 39.9200, Category: "hotel", Checkins: 1},
	}
	if _, err = s.Write(ctx, points); err != nil {
		t.Fatal(err)
	}
	counts, err := s.Categories(ctx)
	if err != nil || counts["food"] != 2 || counts["hotel"] != 1 {
		t.Fatalf("unexpected category counts %v, %v", counts, err)
	}
	stored, err := source.Drain(s.Read(ctx, 0, 3))
	if err != nil || len(stored) != 3 {
		t.Fatalf("expected 3 stored points, got %v, %v", stored, err)
	}
	if stored[0].ID != 1 || stored[2].ID != 3 {
		t.Errorf("expected sequential ids, got %v", stored)
	}
	neighbors, err := s.NeighborsWithin(ctx, stored[0], 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(neighbors) != 1 || neighbors[0].ID != 2 {
		t.Errorf("expected point 2 as only neighbor, got %v", neighbors)
	}
}
