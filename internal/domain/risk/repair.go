package risk

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Repair prepares an alert polygon for overlay. Every ring is closed and
// stripped of repeated and non-finite vertices. A self-intersecting outer
// ring is split at its crossings into simple loops. Loops are oriented
// counter-clockwise and holes clockwise, and degenerate holes are discarded.
// Holes that do not lie within an outer loop are discarded too, and their
// number is returned as stray.
//
// The returned rings are read with the even-odd rule. When the outer ring was
// simple the first ring is the outer boundary. A polygon with no usable outer
// loop is an ErrCodeInvalidGeometry error.
func Repair(p orb.Polygon) (out orb.Polygon, stray int, err error) {
	if len(p) == 0 {
		return nil, 0, errors.New(errors.ErrCodeInvalidGeometry, "polygon has no rings")
	}

	for _, loop := range splitLoops(p[0]) {
		if ring, ok := cleanRing(loop); ok {
			if signedArea(ring) < 0 {
				ring = reversed(ring)
			}
			out = append(out, ring)
		}
	}
	if len(out) == 0 {
		return nil, 0, errors.New(errors.ErrCodeInvalidGeometry, "outer ring is degenerate after repair")
	}
	shells := len(out)

	for _, h := range p[1:] {
		hole, ok := cleanRing(h)
		if !ok {
			continue
		}
		if !withinAny(out[:shells], hole) {
			stray++
			continue
		}
		if signedArea(hole) > 0 {
			hole = reversed(hole)
		}
		out = append(out, hole)
	}
	return out, stray, nil
}

func withinAny(shells []orb.Ring, hole orb.Ring) bool {
	for _, s := range shells {
		if ringWithin(s, hole) {
			return true
		}
	}
	return false
}

type cut struct {
	t  float64
	pt orb.Point
}

// splitLoops decomposes a ring into loops that do not cross themselves.
// Crossing points are inserted into both edges, then the vertex sequence is
// walked and a loop is cut off each time a point repeats. Simple rings are
// returned as they are.
func splitLoops(raw orb.Ring) []orb.Ring {
	r, ok := closeRing(raw)
	if !ok {
		return nil
	}
	if isSimple(r) {
		return []orb.Ring{r}
	}

	n := len(r) - 1
	cuts := make([][]cut, n)
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			a, b, c, d := r[i], r[i+1], r[j], r[j+1]
			if properCross(a, b, c, d) {
				pt, ti, tj := intersection(a, b, c, d)
				cuts[i] = append(cuts[i], cut{ti, pt})
				cuts[j] = append(cuts[j], cut{tj, pt})
				continue
			}
			for _, v := range []orb.Point{c, d} {
				if t := segmentParam(a, b, v); onSegment(a, b, v) && t > 0 && t < 1 {
					cuts[i] = append(cuts[i], cut{t, v})
				}
			}
			for _, v := range []orb.Point{a, b} {
				if t := segmentParam(c, d, v); onSegment(c, d, v) && t > 0 && t < 1 {
					cuts[j] = append(cuts[j], cut{t, v})
				}
			}
		}
	}

	seq := make([]orb.Point, 0, len(r)*2)
	for i := 0; i < n; i++ {
		seq = append(seq, r[i])
		sort.Slice(cuts[i], func(x, y int) bool { return cuts[i][x].t < cuts[i][y].t })
		for _, c := range cuts[i] {
			if seq[len(seq)-1] != c.pt {
				seq = append(seq, c.pt)
			}
		}
	}

	var (
		loops []orb.Ring
		stack []orb.Point
		pos   = make(map[orb.Point]int, len(seq))
	)
	for _, v := range seq {
		if k, seen := pos[v]; seen {
			loop := make(orb.Ring, 0, len(stack)-k+1)
			loop = append(loop, stack[k:]...)
			loop = append(loop, v)
			loops = append(loops, loop)
			for _, q := range stack[k+1:] {
				delete(pos, q)
			}
			stack = stack[:k+1]
			continue
		}
		pos[v] = len(stack)
		stack = append(stack, v)
	}
	if len(stack) > 0 {
		loop := make(orb.Ring, 0, len(stack)+1)
		loop = append(loop, stack...)
		loops = append(loops, append(loop, stack[0]))
	}
	return loops
}

// intersection returns the crossing point of ab and cd and its parameter on
// each segment. The segments must cross properly.
func intersection(a, b, c, d orb.Point) (orb.Point, float64, float64) {
	rx, ry := b[0]-a[0], b[1]-a[1]
	sx, sy := d[0]-c[0], d[1]-c[1]
	den := rx*sy - ry*sx
	qx, qy := c[0]-a[0], c[1]-a[1]
	t := (qx*sy - qy*sx) / den
	u := (qx*ry - qy*rx) / den
	return orb.Point{a[0] + t*rx, a[1] + t*ry}, t, u
}
