package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// DefaultSteps is the number of vertices used to approximate a circle.
const DefaultSteps = 64

// boundaryEpsilon is the tolerance, in squared degrees, for treating a point as lying on an edge.
const boundaryEpsilon = 1e-15

// Provider builds zone polygons and answers containment queries.
type Provider interface {
	BuildCircle(center orb.Point, radiusKm float64, steps int) orb.Polygon
	PointInPolygon(point orb.Point, polygon orb.Polygon) bool
}

// Geodesic approximates circles on the sphere and tests containment in the lon/lat plane.
// Points on the polygon boundary are inside.
type Geodesic struct{}

// NewGeodesic creates a new Geodesic provider.
func NewGeodesic() *Geodesic {
	return &Geodesic{}
}

// BuildCircle returns a closed, single-ring polygon whose vertices lie radiusKm from center.
// Vertices are walked counter-clockwise starting due north.
func (g *Geodesic) BuildCircle(center orb.Point, radiusKm float64, steps int) orb.Polygon {
	if steps < 3 {
		steps = DefaultSteps
	}

	ring := make(orb.Ring, 0, steps+1)
	for i := 0; i < steps; i++ {
		bearing := float64(i) * -360 / float64(steps)
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusKm*1000))
	}
	ring = append(ring, ring[0])

	return orb.Polygon{ring}
}

// PointInPolygon reports whether point lies inside polygon or on its outer boundary.
func (g *Geodesic) PointInPolygon(point orb.Point, polygon orb.Polygon) bool {
	if len(polygon) == 0 || len(polygon[0]) < 4 {
		return false
	}
	if onRing(point, polygon[0]) {
		return true
	}
	return planar.PolygonContains(polygon, point)
}

// CircleFeature wraps a zone polygon as a GeoJSON feature for a map source.
func CircleFeature(polygon orb.Polygon) *geojson.Feature {
	return geojson.NewFeature(polygon)
}

// DistanceKm returns the great-circle distance between two points in kilometers.
func DistanceKm(a, b orb.Point) float64 {
	return geo.Distance(a, b) / 1000
}

func onRing(p orb.Point, ring orb.Ring) bool {
	for i := 0; i < len(ring)-1; i++ {
		if onSegment(p, ring[i], ring[i+1]) {
			return true
		}
	}
	return false
}

func onSegment(p, a, b orb.Point) bool {
	if p == a || p == b {
		return true
	}
	if p[0] < math.Min(a[0], b[0]) || p[0] > math.Max(a[0], b[0]) ||
		p[1] < math.Min(a[1], b[1]) || p[1] > math.Max(a[1], b[1]) {
		return false
	}
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	return math.Abs(cross) <= boundaryEpsilon
}
