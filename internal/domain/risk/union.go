package risk

import (
	"fmt"
	"math"
	"sort"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// areaSlack is the relative area loss tolerated when checking a union step.
const areaSlack = 1e-9

// Failure records a polygon left out of the union.
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// UnionStats reports how each input polygon was handled.
type UnionStats struct {
	Input int `json:"input"`
	// Merged polygons changed the region.
	Merged int `json:"merged"`
	// Covered polygons were already inside the region.
	Covered int `json:"covered"`
	// Dropped polygons were invalid after repair or broke the overlay. Holes
	// lying outside their outer ring are counted here as well, though the
	// rest of their polygon is kept.
	Dropped  int       `json:"dropped"`
	Failures []Failure `json:"failures,omitempty"`
}

var errStrayHole = errors.New(errors.ErrCodeInvalidGeometry, "hole lies outside its outer ring")

func (s *UnionStats) drop(id string, err error) {
	s.Dropped++
	s.Failures = append(s.Failures, Failure{ID: id, Reason: err.Error()})
}

// Union merges polys into one region. No input yields the empty region.
func Union(polys []alert.Polygon) (*Region, UnionStats) {
	return EmptyRegion().UnionWith(polys)
}

// UnionWith returns the union of r and polys. Regions are immutable, so r is
// left as it was and may be returned as is when nothing changes.
//
// Each polygon is repaired first. Polygons that are still degenerate, or whose
// overlay panics or loses area, are dropped and reported in the stats; the
// region built so far is kept.
func (r *Region) UnionWith(polys []alert.Polygon) (*Region, UnionStats) {
	stats := UnionStats{Input: len(polys)}
	acc := r
	if acc == nil {
		acc = EmptyRegion()
	}
	for _, p := range polys {
		repaired, stray, err := Repair(p.Geometry)
		if err != nil {
			stats.drop(p.ID, err)
			continue
		}
		for i := 0; i < stray; i++ {
			stats.drop(p.ID, errStrayHole)
		}
		if acc.covers(repaired) {
			stats.Covered++
			continue
		}
		next, err := merge(acc, repaired)
		if err != nil {
			stats.drop(p.ID, err)
			continue
		}
		acc = next
		stats.Merged++
	}
	return acc, stats
}

// merge overlays the rings of p onto acc with the Martinez-Rueda union.
// Rings whose bounds meet no contour of acc are appended without an overlay.
func merge(acc *Region, p orb.Polygon) (next *Region, err error) {
	rings := []orb.Ring(p)
	if acc.IsEmpty() || !acc.touchesBound(ringsBound(rings)) {
		return newRegion(append(acc.rings(), rings...)), nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			next, err = nil, errors.Newf(errors.ErrCodeUnionFailed, "polygon overlay panicked: %v", rec)
		}
	}()

	result := toClip(acc.rings()).Construct(polyclip.UNION, toClip(rings))
	next = newRegion(fromClip(result))

	floor := math.Max(acc.Area(), newRegion(rings).Area())
	if next.Area() < floor*(1-areaSlack) {
		return nil, errors.New(errors.ErrCodeUnionFailed, "polygon overlay lost area").
			WithDetail(fmt.Sprintf("before=%g after=%g", floor, next.Area()))
	}
	return next, nil
}

func ringsBound(rings []orb.Ring) orb.Bound {
	b := rings[0].Bound()
	for _, r := range rings[1:] {
		b = b.Union(r.Bound())
	}
	return b
}

// touchesBound reports whether any contour bound meets b.
func (r *Region) touchesBound(b orb.Bound) bool {
	hit := false
	r.index.Search(
		[2]float64{b.Min[0], b.Min[1]},
		[2]float64{b.Max[0], b.Max[1]},
		func(_, _ [2]float64, _ int) bool {
			hit = true
			return false
		},
	)
	return hit
}

func toClip(rings []orb.Ring) polyclip.Polygon {
	out := make(polyclip.Polygon, 0, len(rings))
	for _, r := range rings {
		n := len(r)
		if n > 1 && r[0] == r[n-1] {
			n--
		}
		c := make(polyclip.Contour, 0, n)
		for _, pt := range r[:n] {
			c = append(c, polyclip.Point{X: pt[0], Y: pt[1]})
		}
		out = append(out, c)
	}
	return out
}

func fromClip(p polyclip.Polygon) []orb.Ring {
	out := make([]orb.Ring, 0, len(p))
	for _, c := range p {
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		out = append(out, r)
	}
	return out
}

// covers reports whether the closed region r already contains p, a repaired
// polygon whose first ring is a simple outer boundary and whose other rings
// are simple holes inside it, so that overlaying p would not change r. It
// answers false whenever containment cannot be shown.
func (r *Region) covers(p orb.Polygon) bool {
	if r.IsEmpty() || !wellFormed(p) {
		return false
	}

	var near []*contour
	pb := p.Bound()
	r.index.Search(
		[2]float64{pb.Min[0], pb.Min[1]},
		[2]float64{pb.Max[0], pb.Max[1]},
		func(_, _ [2]float64, i int) bool {
			near = append(near, &r.contours[i])
			return true
		},
	)
	if len(near) == 0 {
		return false
	}

	// No edge of p may cross a contour edge.
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			for _, c := range near {
				for k := 0; k+1 < len(c.ring); k++ {
					if properCross(ring[i], ring[i+1], c.ring[k], c.ring[k+1]) {
						return false
					}
				}
			}
		}
	}

	// The boundary of p lies in the region: every piece of every edge between
	// consecutive contour vertices.
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if !r.Contains(a) {
				return false
			}
			ts := []float64{0, 1}
			for _, c := range near {
				for _, v := range c.ring[:len(c.ring)-1] {
					if onSegment(a, b, v) {
						ts = append(ts, segmentParam(a, b, v))
					}
				}
			}
			for _, m := range pieceMidpoints(a, b, ts) {
				if !r.Contains(m) {
					return false
				}
			}
		}
	}

	// No contour reaches into the interior of p.
	for _, c := range near {
		for k := 0; k+1 < len(c.ring); k++ {
			a, b := c.ring[k], c.ring[k+1]
			if interiorOf(p, a) {
				return false
			}
			ts := []float64{0, 1}
			for _, ring := range p {
				for _, v := range ring[:len(ring)-1] {
					if onSegment(a, b, v) {
						ts = append(ts, segmentParam(a, b, v))
					}
				}
			}
			for _, m := range pieceMidpoints(a, b, ts) {
				if interiorOf(p, m) {
					return false
				}
			}
		}
	}

	// The interior of p is connected and now either wholly in or wholly out
	// of the region; probe it just inside the first outer edge.
	outer := p[0]
	a, b := outer[0], outer[1]
	length := math.Hypot(b[0]-a[0], b[1]-a[1])
	if length == 0 {
		return false
	}
	step := math.Max(length*1e-6, tolerance*1e3)
	m := midpoint(a, b)
	q := orb.Point{m[0] - (b[1]-a[1])/length*step, m[1] + (b[0]-a[0])/length*step}
	return interiorOf(p, q) && r.Contains(q)
}

// wellFormed reports whether p has a simple counter-clockwise outer ring and
// simple holes strictly inside it that touch neither it nor each other.
func wellFormed(p orb.Polygon) bool {
	if len(p) == 0 || signedArea(p[0]) <= 0 {
		return false
	}
	for i, ring := range p {
		if !isSimple(ring) {
			return false
		}
		if i > 0 && !strictlyInside(p[0], ring[0]) {
			return false
		}
		for j := i + 1; j < len(p); j++ {
			if ringsTouch(ring, p[j]) {
				return false
			}
			if i > 0 && (planar.RingContains(ring, p[j][0]) || planar.RingContains(p[j], ring[0])) {
				return false
			}
		}
	}
	return true
}

func ringsTouch(a, b orb.Ring) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsTouch(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// interiorOf reports whether pt is strictly inside the even-odd area of p.
func interiorOf(p orb.Polygon, pt orb.Point) bool {
	inside := false
	for _, ring := range p {
		if onRing(ring, pt) {
			return false
		}
		if planar.RingContains(ring, pt) {
			inside = !inside
		}
	}
	return inside
}

// pieceMidpoints splits ab at the given parameters and returns the midpoint
// of every non-empty piece.
func pieceMidpoints(a, b orb.Point, ts []float64) []orb.Point {
	sort.Float64s(ts)
	out := make([]orb.Point, 0, len(ts))
	for i := 0; i+1 < len(ts); i++ {
		if ts[i+1]-ts[i] <= tolerance {
			continue
		}
		t := (ts[i] + ts[i+1]) / 2
		out = append(out, orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t})
	}
	return out
}
