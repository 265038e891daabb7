package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minLng, minLat, maxLng, maxLat float64) []Point {
	return []Point{
		{Lat: minLat, Lng: minLng},
		{Lat: minLat, Lng: maxLng},
		{Lat: maxLat, Lng: maxLng},
		{Lat: maxLat, Lng: minLng},
	}
}

// regularPolygon builds a convex ring around a centre.
func regularPolygon(c Point, r float64, n int, closed bool) []Point {
	ring := make([]Point, 0, n+1)
	for k := 0; k < n; k++ {
		a := 2 * math.Pi * float64(k) / float64(n)
		ring = append(ring, Point{Lat: c.Lat + r*math.Sin(a), Lng: c.Lng + r*math.Cos(a)})
	}
	if closed {
		ring = append(ring, ring[0])
	}
	return ring
}

func TestPointInRingSquare(t *testing.T) {
	ring := square(75.5, 9.5, 76.5, 10.5)
	assert.True(t, PointInRing(Point{Lat: 10.0, Lng: 76.0}, ring))
	assert.False(t, PointInRing(Point{Lat: 11.0, Lng: 76.0}, ring))
	assert.False(t, PointInRing(Point{Lat: 10.0, Lng: 77.0}, ring))
}

func TestPointInRingClosedAndOpenAgree(t *testing.T) {
	open := square(0, 0, 2, 2)
	closed := append(append([]Point{}, open...), open[0])
	for _, pt := range []Point{{Lat: 1, Lng: 1}, {Lat: 3, Lng: 1}, {Lat: 0.5, Lng: 1.9}, {Lat: -1, Lng: -1}} {
		assert.Equal(t, PointInRing(pt, open), PointInRing(pt, closed), "point %+v", pt)
	}
}

func TestPointInRingDegenerate(t *testing.T) {
	assert.False(t, PointInRing(Point{}, nil))
	assert.False(t, PointInRing(Point{Lat: 0.5, Lng: 0.5}, []Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}))
}

func TestPointInRingConcave(t *testing.T) {
	// U shape opening north; the notch is outside.
	ring := []Point{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 3}, {Lat: 3, Lng: 3}, {Lat: 3, Lng: 2},
		{Lat: 1, Lng: 2}, {Lat: 1, Lng: 1}, {Lat: 3, Lng: 1}, {Lat: 3, Lng: 0},
	}
	assert.True(t, PointInRing(Point{Lat: 2, Lng: 0.5}, ring))
	assert.True(t, PointInRing(Point{Lat: 0.5, Lng: 1.5}, ring))
	assert.False(t, PointInRing(Point{Lat: 2, Lng: 1.5}, ring))
}

// Convex polygons: points well inside the inscribed circle are in, points beyond the
// circumscribed circle are out.
func TestPointInRingConvexProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		c := Point{Lat: rnd.Float64()*160 - 80, Lng: rnd.Float64()*340 - 170}
		r := 0.01 + rnd.Float64()*5
		n := 3 + rnd.Intn(12)
		ring := regularPolygon(c, r, n, iter%2 == 0)
		inner := r * math.Cos(math.Pi/float64(n))
		for k := 0; k < 20; k++ {
			a := rnd.Float64() * 2 * math.Pi
			d := rnd.Float64() * inner * 0.95
			in := Point{Lat: c.Lat + d*math.Sin(a), Lng: c.Lng + d*math.Cos(a)}
			require.True(t, PointInRing(in, ring), "inside iter=%d n=%d pt=%+v", iter, n, in)
			d = r * (1.05 + rnd.Float64()*3)
			out := Point{Lat: c.Lat + d*math.Sin(a), Lng: c.Lng + d*math.Cos(a)}
			require.False(t, PointInRing(out, ring), "outside iter=%d n=%d pt=%+v", iter, n, out)
		}
	}
}

func TestRingArea(t *testing.T) {
	assert.InDelta(t, 4.0, RingArea(square(0, 0, 2, 2)), 1e-9)
	assert.Equal(t, 0.0, RingArea(square(0, 0, 2, 2)[:2]))
}

func TestBBox(t *testing.T) {
	b := RingBBox(square(75.5, 9.5, 76.5, 10.5))
	assert.Equal(t, BBox{75.5, 9.5, 76.5, 10.5}, b)
	assert.True(t, InBBox(Point{Lat: 10, Lng: 76}, b))
	assert.False(t, InBBox(Point{Lat: 12, Lng: 76}, b))
	assert.False(t, InBBox(Point{Lat: 0, Lng: 0}, RingBBox(nil)))
}

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(10, 76, 10, 76))
	// one degree of latitude is ~111.2 km
	assert.InDelta(t, 111195, Haversine(10, 76, 11, 76), 50)
	// Kochi to Chennai, roughly 560 km
	d := Distance(Point{Lat: 9.9312, Lng: 76.2673}, Point{Lat: 13.0827, Lng: 80.2707})
	assert.InDelta(t, 560000, d, 15000)
}

func TestCheckProximity(t *testing.T) {
	border := []Point{{Lat: 10.0, Lng: 76.0}, {Lat: 10.05, Lng: 76.0}}
	p, ok := CheckProximity(Point{Lat: 10.005, Lng: 76.0}, border, 1000)
	require.True(t, ok)
	assert.Equal(t, border[0], p.ClosestPoint)
	assert.InDelta(t, 556, p.DistanceM, 5)

	_, ok = CheckProximity(Point{Lat: 10.5, Lng: 76.0}, border, 1000)
	assert.False(t, ok)
	_, ok = CheckProximity(Point{Lat: 10.5, Lng: 76.0}, nil, 1000)
	assert.False(t, ok)
}

func TestGeohash(t *testing.T) {
	assert.Equal(t, "ezs42", Geohash(42.6, -5.6, 5))
	assert.Len(t, Geohash(10, 76, 8), 8)
	assert.NotEqual(t, Geohash(10, 76, 8), Geohash(10.01, 76, 8))
}

func TestGeohashBounds(t *testing.T) {
	h := Geohash(10.0, 76.0, 6)
	b, ok := GeohashBounds(h)
	require.True(t, ok)
	assert.True(t, InBBox(Point{Lat: 10.0, Lng: 76.0}, b))
	assert.Less(t, b[2]-b[0], 0.02)

	_, ok = GeohashBounds("a!")
	assert.False(t, ok)
}

func TestBBoxIntersects(t *testing.T) {
	a := BBox{0, 0, 2, 2}
	assert.True(t, a.Intersects(BBox{1, 1, 3, 3}))
	assert.True(t, a.Intersects(BBox{2, 2, 3, 3}))
	assert.False(t, a.Intersects(BBox{2.1, 0, 3, 1}))
}
