package csv

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pbanos/ranknear/point"
)

func TestRead(t *testing.T) {
	input := `category,lat,lng,checkins,name
food,39.908,116.397,12,noodles
hotel,39.909,116.398,3,inn
`
	points, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	expected := point.Point{Lng: 116.397, Lat: 39.908, Category: "food", Checkins: 12}
	if points[0] != expected {
		t.Errorf("expected %+v, got %+v", expected, points[0])
	}
}

func TestReadErrors(t *testing.T) {
	testCases := map[string]string{
		"missing column":    "lng,lat,category\n1,2,food\n",
		"bad coordinate":    "lng,lat,category,checkins\nx,2,food,1\n",
		"negative checkins": "lng,lat,category,checkins\n1,2,food,-1\n",
	}
	for name, input := range testCases {
		if _, err := Read(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestWriteThenRead(t *testing.T) {
	points := []point.Point{
		{ID: 7, Lng: 116.3971, Lat: 39.9081, Geohash: "wx4g09np6tv6", Category: "food", Checkins: 5},
		{ID: 8, Lng: -3.7038, Lat: 40.4168, Category: "park", Checkins: 0},
	}
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf)
	if err != nil {
		t.Fatal(err)
	}
	n, err := w.Write(context.Background(), points)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 points written, got %d, %v", n, err)
	}
	if err = w.Flush(); err != nil {
		t.Fatal(err)
	}
	read, err := Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range points {
		if read[i] != points[i] {
			t.Errorf("expected %+v, got %+v", points[i], read[i])
		}
	}
}

func TestReadByPointStops(t *testing.T) {
	input := "lng,lat,category,checkins\n1,2,a,1\n1,2,b,1\n1,2,c,1\n"
	var seen []string
	err := ReadByPoint(strings.NewReader(input), func(i int, p point.Point) (bool, error) {
		seen = append(seen, p.Category)
		return i < 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("expected to stop after 2 points, saw %v", seen)
	}
}
