// Package geo holds the spherical geometry used to pick a meeting point:
// haversine distance, the multi-point midpoint and the search radius around it.
// All distances are statute miles.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/nitesh/midpoint_service/pkg/models"
)

const (
	// EarthRadiusMiles is the mean Earth radius.
	EarthRadiusMiles = 3959.0
	MetersPerMile    = 1609.34

	minRadiusMiles  = 2.0
	radiusShare     = 0.3
	minRadiusMeters = 500
	maxRadiusMeters = 50000 // Nearby Search ceiling

	correctionToleranceMiles = 0.25
	degenerateNorm           = 1e-9
	tieMiles                 = 1e-9
)

// ErrUndefinedMidpoint is returned when the inputs cancel out on the sphere
// (e.g. an antipodal pair) and no bisector exists.
var ErrUndefinedMidpoint = errors.New("midpoint is undefined for antipodal or opposing coordinates")

// ErrTooFewCoordinates is returned when fewer than two points are given.
var ErrTooFewCoordinates = errors.New("at least 2 coordinates are required")

// InvalidCoordinateError reports a latitude or longitude out of range.
type InvalidCoordinateError struct {
	Coordinate models.Coordinate
	Reason     string
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate (%v, %v): %s", e.Coordinate.Lat, e.Coordinate.Lng, e.Reason)
}

// Validate checks that c is a finite point with lat in [-90,90] and lng in [-180,180].
func Validate(c models.Coordinate) error {
	switch {
	case math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0):
		return &InvalidCoordinateError{Coordinate: c, Reason: "latitude and longitude must be finite numbers"}
	case c.Lat < -90 || c.Lat > 90:
		return &InvalidCoordinateError{Coordinate: c, Reason: "latitude must be between -90 and 90"}
	case c.Lng < -180 || c.Lng > 180:
		return &InvalidCoordinateError{Coordinate: c, Reason: "longitude must be between -180 and 180"}
	}
	return nil
}

// Distance returns the great-circle distance between a and b in miles.
func Distance(a, b models.Coordinate) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// haversine expects validated input.
func haversine(a, b models.Coordinate) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := lat2 - lat1
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair outside [0,1]
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Midpoint returns the spherical centroid of coords: every point is turned
// into a unit vector, the vectors are summed and the normalized sum is
// converted back to lat/lng. The result does not depend on input order and
// for two points equals GeodesicMidpoint.
func Midpoint(coords []models.Coordinate) (models.Coordinate, error) {
	if len(coords) < 2 {
		return models.Coordinate{}, ErrTooFewCoordinates
	}
	var x, y, z float64
	for _, c := range coords {
		if err := Validate(c); err != nil {
			return models.Coordinate{}, err
		}
		lat, lng := toRad(c.Lat), toRad(c.Lng)
		x += math.Cos(lat) * math.Cos(lng)
		y += math.Cos(lat) * math.Sin(lng)
		z += math.Sin(lat)
	}
	n := float64(len(coords))
	x, y, z = x/n, y/n, z/n
	if math.Sqrt(x*x+y*y+z*z) < degenerateNorm {
		return models.Coordinate{}, ErrUndefinedMidpoint
	}
	hyp := math.Sqrt(x*x + y*y)
	return models.Coordinate{
		Lat: toDeg(math.Atan2(z, hyp)),
		Lng: toDeg(math.Atan2(y, x)),
	}, nil
}

// GeodesicMidpoint is the closed-form midpoint of the great-circle arc a→b.
// The caller must ensure a and b are valid and not antipodal.
func GeodesicMidpoint(a, b models.Coordinate) models.Coordinate {
	lat1, lng1 := toRad(a.Lat), toRad(a.Lng)
	lat2 := toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)

	bx := math.Cos(lat2) * math.Cos(dLng)
	by := math.Cos(lat2) * math.Sin(dLng)
	lat3 := math.Atan2(math.Sin(lat1)+math.Sin(lat2), math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by))
	lng3 := lng1 + math.Atan2(by, math.Cos(lat1)+bx)

	return models.Coordinate{Lat: toDeg(lat3), Lng: normalizeLng(toDeg(lng3))}
}

// Correct pulls mid back between the inputs. If mid is farther than half the
// span of the farthest input pair from either end of that pair, the geodesic
// midpoint of the pair is returned instead.
func Correct(mid models.Coordinate, coords []models.Coordinate) models.Coordinate {
	if len(coords) < 2 {
		return mid
	}
	a, b, span := farthestPair(coords)
	limit := span/2 + correctionToleranceMiles
	if haversine(mid, a) > limit || haversine(mid, b) > limit {
		return GeodesicMidpoint(a, b)
	}
	return mid
}

// SearchRadiusMeters sizes the place search from the spread of the inputs:
// 30% of the widest pair, at least 2 miles, clamped to the provider limits.
func SearchRadiusMeters(coords []models.Coordinate) int {
	span := 0.0
	if len(coords) >= 2 {
		_, _, span = farthestPair(coords)
	}
	miles := math.Max(span*radiusShare, minRadiusMiles)
	return ClampRadiusMeters(int(math.Round(MilesToMeters(miles))))
}

// ClampRadiusMeters bounds r to what the place search accepts.
func ClampRadiusMeters(r int) int {
	if r < minRadiusMeters {
		return minRadiusMeters
	}
	if r > maxRadiusMeters {
		return maxRadiusMeters
	}
	return r
}

func MilesToMeters(mi float64) float64 { return mi * MetersPerMile }

// FormatCoordinate renders c the way it is shown when no address is known.
func FormatCoordinate(c models.Coordinate) string {
	return fmt.Sprintf("%.4f°, %.4f°", c.Lat, c.Lng)
}

// farthestPair returns the widest pair with its endpoints in (lat, lng)
// order. Pairs within tieMiles of each other are equally far; the
// lexicographically smallest one wins so the result does not depend on the
// order of coords.
func farthestPair(coords []models.Coordinate) (models.Coordinate, models.Coordinate, float64) {
	a, b := orderedPair(coords[0], coords[1])
	best := -1.0
	for i := 0; i < len(coords); i++ {
		for j := i + 1; j < len(coords); j++ {
			p, q := orderedPair(coords[i], coords[j])
			d := haversine(p, q)
			switch {
			case d > best+tieMiles:
			case d >= best-tieMiles && pairLess(p, q, a, b):
			default:
				continue
			}
			best = d
			a, b = p, q
		}
	}
	return a, b, best
}

func orderedPair(p, q models.Coordinate) (models.Coordinate, models.Coordinate) {
	if coordLess(q, p) {
		return q, p
	}
	return p, q
}

func pairLess(p, q, a, b models.Coordinate) bool {
	if p != a {
		return coordLess(p, a)
	}
	return coordLess(q, b)
}

func coordLess(p, q models.Coordinate) bool {
	if p.Lat != q.Lat {
		return p.Lat < q.Lat
	}
	return p.Lng < q.Lng
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
