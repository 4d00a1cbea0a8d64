// Package risk builds the unioned risk region from alert polygons, tests
// points against it and aggregates per-category counts. It performs no I/O.
package risk

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

type contour struct {
	ring  orb.Ring // closed
	bound orb.Bound
	area  float64 // absolute
	// depth is the number of other contours enclosing this one. Even depths
	// are outer boundaries, odd depths are holes.
	depth int
	// parent is the smallest enclosing contour, or -1.
	parent int
}

// Region is a unioned risk region: a set of non-crossing closed contours
// interpreted with the even-odd rule. A point on any contour is inside.
// The zero value and EmptyRegion() are the empty region.
type Region struct {
	contours []contour
	index    rtree.RTreeG[int]
}

// EmptyRegion returns the region that contains no point.
func EmptyRegion() *Region {
	return &Region{}
}

// newRegion cleans rings, computes nesting and indexes contour bounds.
func newRegion(rings []orb.Ring) *Region {
	r := &Region{}
	for _, raw := range rings {
		ring, ok := cleanRing(raw)
		if !ok {
			continue
		}
		r.contours = append(r.contours, contour{
			ring:   ring,
			bound:  ring.Bound(),
			area:   math.Abs(signedArea(ring)),
			parent: -1,
		})
	}

	for i := range r.contours {
		ci := &r.contours[i]
		for j := range r.contours {
			if i == j {
				continue
			}
			cj := &r.contours[j]
			if !encloses(cj, ci) {
				continue
			}
			ci.depth++
			if ci.parent < 0 || cj.area < r.contours[ci.parent].area {
				ci.parent = j
			}
		}
	}

	for i, c := range r.contours {
		r.index.Insert(
			[2]float64{c.bound.Min[0] - tolerance, c.bound.Min[1] - tolerance},
			[2]float64{c.bound.Max[0] + tolerance, c.bound.Max[1] + tolerance},
			i,
		)
	}
	return r
}

// encloses reports whether inner lies inside outer. Vertices on outer's
// boundary are skipped in favour of the first one that is not; a ring whose
// vertices and edge midpoints all sit on outer is treated as not enclosed.
func encloses(outer, inner *contour) bool {
	if outer.area <= inner.area || !outer.bound.Contains(inner.bound.Min) || !outer.bound.Contains(inner.bound.Max) {
		return false
	}
	for _, p := range inner.ring[:len(inner.ring)-1] {
		if onRing(outer.ring, p) {
			continue
		}
		return planar.RingContains(outer.ring, p)
	}
	for i := 0; i+1 < len(inner.ring); i++ {
		m := midpoint(inner.ring[i], inner.ring[i+1])
		if onRing(outer.ring, m) {
			continue
		}
		return planar.RingContains(outer.ring, m)
	}
	return false
}

// IsEmpty reports whether the region contains no contour.
func (r *Region) IsEmpty() bool {
	return r == nil || len(r.contours) == 0
}

// Len returns the number of contours, outer boundaries and holes alike.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.contours)
}

// Contains reports whether p lies in the closed region. Candidate contours
// come from the bounding-box R-tree, so the cost grows with the number of
// contours whose box holds p rather than with the total.
func (r *Region) Contains(p orb.Point) bool {
	if r.IsEmpty() {
		return false
	}
	var inside, boundary bool
	r.index.Search(
		[2]float64{p[0], p[1]},
		[2]float64{p[0], p[1]},
		func(_, _ [2]float64, i int) bool {
			c := &r.contours[i]
			if onRing(c.ring, p) {
				boundary = true
				return false
			}
			if planar.RingContains(c.ring, p) {
				inside = !inside
			}
			return true
		},
	)
	return boundary || inside
}

// Area returns the planar area in square degrees: outer contours minus
// holes.
func (r *Region) Area() float64 {
	if r == nil {
		return 0
	}
	var a float64
	for _, c := range r.contours {
		if c.depth%2 == 0 {
			a += c.area
		} else {
			a -= c.area
		}
	}
	return a
}

// Bound returns the bounding box of the region. The empty region has a zero
// bound.
func (r *Region) Bound() orb.Bound {
	if r.IsEmpty() {
		return orb.Bound{}
	}
	b := r.contours[0].bound
	for _, c := range r.contours[1:] {
		b = b.Union(c.bound)
	}
	return b
}

// MultiPolygon renders the region for GeoJSON output. Outer rings are
// counter-clockwise and holes clockwise, as RFC 7946 recommends.
func (r *Region) MultiPolygon() orb.MultiPolygon {
	mp := orb.MultiPolygon{}
	if r.IsEmpty() {
		return mp
	}
	slot := make(map[int]int, len(r.contours))
	for i, c := range r.contours {
		if c.depth%2 != 0 {
			continue
		}
		ring := c.ring.Clone()
		if signedArea(ring) < 0 {
			ring = reversed(ring)
		}
		slot[i] = len(mp)
		mp = append(mp, orb.Polygon{ring})
	}
	for _, c := range r.contours {
		if c.depth%2 == 0 || c.parent < 0 {
			continue
		}
		k, ok := slot[c.parent]
		if !ok {
			continue
		}
		ring := c.ring.Clone()
		if signedArea(ring) > 0 {
			ring = reversed(ring)
		}
		mp[k] = append(mp[k], ring)
	}
	return mp
}

// rings returns copies of the contour rings.
func (r *Region) rings() []orb.Ring {
	if r == nil {
		return nil
	}
	out := make([]orb.Ring, 0, len(r.contours))
	for _, c := range r.contours {
		out = append(out, c.ring.Clone())
	}
	return out
}
