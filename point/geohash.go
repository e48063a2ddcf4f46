package point

import (
	"math"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// Precision is the number of characters of the geohashes
	// stored along with points
	Precision = 12
	// CellPrecision is the number of geohash characters of the
	// cells sources use to narrow down neighbor searches. A cell
	// at this precision is about 1.2km x 0.6km.
	CellPrecision = 6
)

// Geohash returns the geohash of the given position with Precision characters
func Geohash(lng, lat float64) string {
	return geohash.EncodeWithPrecision(lat, lng, Precision)
}

// Cell returns the geohash of the cell with CellPrecision characters containing p
func Cell(p Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, CellPrecision)
}

/*
CellSize returns the width and height in degrees of the geohash cells
of the given precision.
*/
func CellSize(precision int) (float64, float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2
	return 360.0 / math.Pow(2, float64(lngBits)), 180.0 / math.Pow(2, float64(latBits))
}

/*
MaxCoveringSamples bounds the number of positions CoveringCells encodes
for a single search. Searches that would need more are answered with
coarser cells.
*/
const MaxCoveringSamples = 1024

/*
CoveringCells takes a center, a radius in metres and a geohash precision
and returns the sorted geohashes of all cells of that precision that
intersect the bounding box of the circle. Every point within the radius
of the center has a geohash starting with one of the returned cells.

The bounding box is sampled at half the cell size on both axes, edges
included, so no intersecting cell is missed. Boxes crossing the
antimeridian wrap around to the other side and boxes reaching a pole
span every longitude. When sampling at the given precision would take
more than MaxCoveringSamples positions, the precision is lowered until it
does not, so the returned cells may be shorter than precision.

A nil slice is returned for non-finite centers or radii and for negative
radii.
*/
func CoveringCells(center orb.Point, radius float64, precision int) []string {
	if precision < 1 {
		return nil
	}
	b, ok := SearchBox(center, radius)
	if !ok {
		return nil
	}
	minLng, maxLng, minLat, maxLat := b.Min.Lon(), b.Max.Lon(), b.Min.Lat(), b.Max.Lat()
	for precision > 1 && samples(minLng, maxLng, minLat, maxLat, precision) > MaxCoveringSamples {
		precision--
	}
	dLng, dLat := CellSize(precision)
	seen := make(map[string]struct{})
	for lat := minLat; ; lat += dLat / 2 {
		if lat > maxLat {
			lat = maxLat
		}
		for lng := minLng; ; lng += dLng / 2 {
			if lng > maxLng {
				lng = maxLng
			}
			seen[geohash.EncodeWithPrecision(lat, wrapLng(lng), precision)] = struct{}{}
			if lng >= maxLng {
				break
			}
		}
		if lat >= maxLat {
			break
		}
	}
	cells := make([]string, 0, len(seen))
	for c := range seen {
		cells = append(cells, c)
	}
	sort.Strings(cells)
	return cells
}

/*
SearchBox returns the bounding box of the circle of the given radius in
metres around center, with latitudes clamped to the poles. Its maximum
longitude goes past 180 when the circle crosses the antimeridian, and its
longitudes cover [-180, 180] when it reaches a pole or is wider than the
globe. The boolean is false for non-finite centers or radii and for
negative radii.
*/
func SearchBox(center orb.Point, radius float64) (orb.Bound, bool) {
	if !finite(center.Lon()) || !finite(center.Lat()) || !finite(radius) || radius < 0 {
		return orb.Bound{}, false
	}
	b := geo.NewBoundAroundPoint(center, radius)
	minLat, maxLat := math.Max(b.Min.Lat(), -90), math.Min(b.Max.Lat(), 90)
	minLng, maxLng := b.Min.Lon(), b.Max.Lon()
	if maxLng < minLng {
		maxLng += 360
	}
	if !finite(minLng) || !finite(maxLng) || maxLng-minLng >= 360 || minLat <= -90 || maxLat >= 90 {
		minLng, maxLng = -180, 180
	}
	return orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}, true
}

/*
LngRanges splits the longitudes of a box returned by SearchBox into one
or two ranges within [-180, 180], wrapping around the antimeridian.
*/
func LngRanges(b orb.Bound) [][2]float64 {
	minLng, maxLng := b.Min.Lon(), b.Max.Lon()
	switch {
	case minLng < -180:
		return [][2]float64{{minLng + 360, 180}, {-180, maxLng}}
	case maxLng > 180:
		return [][2]float64{{minLng, 180}, {-180, maxLng - 360}}
	}
	return [][2]float64{{minLng, maxLng}}
}

func samples(minLng, maxLng, minLat, maxLat float64, precision int) float64 {
	dLng, dLat := CellSize(precision)
	return (math.Floor((maxLng-minLng)/(dLng/2)) + 2) * (math.Floor((maxLat-minLat)/(dLat/2)) + 2)
}

// wrapLng brings a longitude into [-180, 180)
func wrapLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
