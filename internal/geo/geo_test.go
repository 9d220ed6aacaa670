package geo_test

import (
	"testing"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lon: 0},
		{Lat: 37.7749, Lon: -122.4194},
		{Lat: -33.8688, Lon: 151.2093},
	}

	for _, p := range points {
		if d := geo.Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := geo.Point{Lat: 52.3676, Lon: 4.9041}
	b := geo.Point{Lat: 51.9244, Lon: 4.4777}

	if geo.Distance(a, b) != geo.Distance(b, a) {
		t.Errorf("distance is not symmetric: %f != %f", geo.Distance(a, b), geo.Distance(b, a))
	}
}

func TestDistance_KnownFixture(t *testing.T) {
	// San Francisco to Los Angeles, roughly 559 km great-circle.
	sf := geo.Point{Lat: 37.7749, Lon: -122.4194}
	la := geo.Point{Lat: 34.0522, Lon: -118.2437}

	d := geo.Distance(sf, la)
	if d < 500 || d > 600 {
		t.Errorf("Distance(SF, LA) = %f, want within [500, 600]", d)
	}
}

func TestBoundingBoxOf_Empty(t *testing.T) {
	box := geo.BoundingBoxOf(nil, 5)
	if box != (geo.BoundingBox{}) {
		t.Errorf("expected zeroed box for empty input, got %+v", box)
	}
}

func TestBoundingBoxOf_Padding(t *testing.T) {
	points := []geo.Point{
		{Lat: 52.0, Lon: 4.0},
		{Lat: 52.5, Lon: 4.5},
	}

	box := geo.BoundingBoxOf(points, 5)

	if box.MinLat >= 52.0 {
		t.Errorf("MinLat %f not inflated below 52.0", box.MinLat)
	}
	if box.MaxLat <= 52.5 {
		t.Errorf("MaxLat %f not inflated above 52.5", box.MaxLat)
	}
	if !box.Contains(geo.Point{Lat: 52.25, Lon: 4.25}) {
		t.Error("expected box to contain interior point")
	}
}

func TestSamplePoints(t *testing.T) {
	makePoints := func(n int) []geo.Point {
		pts := make([]geo.Point, n)
		for i := range pts {
			pts[i] = geo.Point{Lat: float64(i), Lon: float64(i)}
		}
		return pts
	}

	tests := []struct {
		name     string
		input    int
		maxCount int
		wantLen  int
	}{
		{"shorter than max", 5, 10, 5},
		{"equal to max", 10, 10, 10},
		{"double the max", 20, 10, 10},
		{"odd stride", 23, 10, 10},
		{"single point", 1, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.SamplePoints(makePoints(tt.input), tt.maxCount)
			if len(got) != tt.wantLen {
				t.Fatalf("got %d points, want %d", len(got), tt.wantLen)
			}
			if len(got) > tt.maxCount {
				t.Fatalf("got %d points, exceeds max %d", len(got), tt.maxCount)
			}

			// Order must be preserved.
			for i := 1; i < len(got); i++ {
				if got[i].Lat <= got[i-1].Lat {
					t.Errorf("sampled points out of order at %d: %v", i, got)
				}
			}
		})
	}
}

func TestSamplePoints_Unchanged(t *testing.T) {
	points := []geo.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	got := geo.SamplePoints(points, 10)

	if len(got) != len(points) {
		t.Fatalf("expected input returned unchanged, got %d points", len(got))
	}
	for i := range points {
		if got[i] != points[i] {
			t.Errorf("point %d changed: got %v, want %v", i, got[i], points[i])
		}
	}
}

func TestPathLength(t *testing.T) {
	points := []geo.Point{
		{Lat: 52.0, Lon: 4.0},
		{Lat: 52.1, Lon: 4.0},
		{Lat: 52.2, Lon: 4.0},
	}

	total := geo.PathLength(points)
	sum := geo.Distance(points[0], points[1]) + geo.Distance(points[1], points[2])

	if total != sum {
		t.Errorf("PathLength = %f, want %f", total, sum)
	}
}
