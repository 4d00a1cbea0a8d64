package risk

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// tolerance is the absolute slack, in degrees, used for boundary tests. It is
// far below the precision of any coordinate in the source datasets.
const tolerance = 1e-12

// minRingArea is the smallest absolute ring area, in square degrees, kept by
// Repair. Smaller rings are degenerate slivers.
const minRingArea = 1e-14

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// sign returns -1, 0 or 1, treating values within tolerance of zero as zero.
func sign(v float64) int {
	switch {
	case v > tolerance:
		return 1
	case v < -tolerance:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p orb.Point) bool {
	if p[0] < math.Min(a[0], b[0])-tolerance || p[0] > math.Max(a[0], b[0])+tolerance ||
		p[1] < math.Min(a[1], b[1])-tolerance || p[1] > math.Max(a[1], b[1])+tolerance {
		return false
	}
	return sign(cross(a, b, p)) == 0
}

// segmentParam returns the position of p along ab in [0, 1].
func segmentParam(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
}

// properCross reports whether segments ab and cd cross at a single point
// interior to both.
func properCross(a, b, c, d orb.Point) bool {
	d1, d2 := sign(cross(c, d, a)), sign(cross(c, d, b))
	d3, d4 := sign(cross(a, b, c)), sign(cross(a, b, d))
	return d1*d2 < 0 && d3*d4 < 0
}

// segmentsTouch reports whether ab and cd share any point.
func segmentsTouch(a, b, c, d orb.Point) bool {
	if properCross(a, b, c, d) {
		return true
	}
	return onSegment(a, b, c) || onSegment(a, b, d) || onSegment(c, d, a) || onSegment(c, d, b)
}

func midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// onRing reports whether p lies on any edge of the closed ring r.
func onRing(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		if onSegment(r[i], r[i+1], p) {
			return true
		}
	}
	return false
}

// strictlyInside reports whether p is in the interior of r.
func strictlyInside(r orb.Ring, p orb.Point) bool {
	return !onRing(r, p) && planar.RingContains(r, p)
}

// signedArea is the shoelace area of r, positive for counter-clockwise rings.
func signedArea(r orb.Ring) float64 {
	var s float64
	for i := 0; i+1 < len(r); i++ {
		s += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return s / 2
}

// isSimple reports whether no two non-adjacent edges of the closed ring r
// touch.
func isSimple(r orb.Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsTouch(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}

// cleanRing closes r and removes non-finite and repeated consecutive
// vertices. ok is false when fewer than three vertices remain or the ring
// encloses no area.
func cleanRing(r orb.Ring) (orb.Ring, bool) {
	out, ok := closeRing(r)
	if !ok || math.Abs(signedArea(out)) < minRingArea {
		return nil, false
	}
	return out, true
}

// closeRing is cleanRing without the area check. A self-intersecting ring
// may cancel to zero net area and still enclose some.
func closeRing(r orb.Ring) (orb.Ring, bool) {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil, false
	}
	return append(out, out[0]), true
}

// ringWithin reports whether inner lies in the closed area of outer without
// crossing its boundary and is not just a copy of it.
func ringWithin(outer, inner orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	interior := false
	for i := 0; i+1 < len(inner); i++ {
		a, b := inner[i], inner[i+1]
		if !onRing(outer, a) && !planar.RingContains(outer, a) {
			return false
		}
		for j := 0; j+1 < len(outer); j++ {
			if properCross(a, b, outer[j], outer[j+1]) {
				return false
			}
		}
		if !interior && (strictlyInside(outer, a) || strictlyInside(outer, midpoint(a, b))) {
			interior = true
		}
	}
	return interior
}

func reversed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
