// Package geo provides geospatial helpers for route monitoring:
// great-circle distance, bounding boxes, and path point sampling.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used for haversine distance.
const earthRadiusKm = 6371.0

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Distance returns the haversine great-circle distance between two points
// in kilometers. Symmetric, zero for identical points.
func Distance(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox is a geographic bounding box.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains checks if a point is within the bounding box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the center point of the bounding box.
func (b BoundingBox) Center() Point {
	return Point{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// degreesPerKm approximates one kilometer in decimal degrees of latitude.
const degreesPerKm = 0.009

// BoundingBoxOf computes the min/max box over all points, inflated by
// paddingKm on every side. Returns a zeroed box for empty input.
func BoundingBoxOf(points []Point, paddingKm float64) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	box := BoundingBox{
		MinLat: points[0].Lat,
		MaxLat: points[0].Lat,
		MinLon: points[0].Lon,
		MaxLon: points[0].Lon,
	}

	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}

	pad := paddingKm * degreesPerKm
	box.MinLat -= pad
	box.MaxLat += pad
	box.MinLon -= pad
	box.MaxLon += pad

	return box
}

// SamplePoints returns up to maxCount representative points, preserving
// order. Input shorter than maxCount is returned unchanged; longer input is
// strided at floor(len/maxCount). Used to cap external calls per route.
func SamplePoints(points []Point, maxCount int) []Point {
	if maxCount <= 0 || len(points) <= maxCount {
		return points
	}

	stride := len(points) / maxCount
	sampled := make([]Point, 0, maxCount)
	for i := 0; i < len(points) && len(sampled) < maxCount; i += stride {
		sampled = append(sampled, points[i])
	}

	return sampled
}

// PathLength sums consecutive-point distances along a path, in kilometers.
func PathLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
