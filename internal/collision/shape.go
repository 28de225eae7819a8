// Package collision implements the spatial side of the simulation: rotated
// polygon collision shapes (C3), the uniform-grid broad phase (C4), and the
// per-platform cell-membership tracker (C5).
package collision

import (
	"math"

	"skirmish-server/internal/mathutil"
	"skirmish-server/internal/objectdata"
)

// Shape is a rotatable polygon owned by a platform: it caches the rotated
// copy of its source polygon and the resulting bounding box so repeated
// queries against an unchanged angle are free.
//
// Grounded on internal/game/hitbox.go's angle-based CheckHit, generalised
// from an angular-sector test to a full rotated polygon with point-in-polygon
// and polygon-polygon intersection, per spec.md §4.3.
type Shape struct {
	source []objectdata.Point // polygon in local (unrotated) space
	angle  float64
	sin    float64
	cos    float64

	rotated []objectdata.Point // source rotated by angle, in world-relative space
	boxL    float64
	boxT    float64
	boxR    float64
	boxB    float64

	originX, originY float64 // world-space centre this shape is rotated around
	initialised      bool
}

// NewShape builds a Shape from a source polygon (in local space, relative to
// the owning platform's origin).
func NewShape(source []objectdata.Point) *Shape {
	return &Shape{source: source}
}

// Update recomputes the rotated polygon and bounding box for the shape
// positioned at (x,y) with angle theta. It is a no-op if neither the angle
// nor the position changed since the last call, matching spec.md's
// idempotence requirement.
func (s *Shape) Update(x, y, theta float64) {
	if s.initialised && theta == s.angle && x == s.originX && y == s.originY {
		return
	}
	s.angle = theta
	s.originX = x
	s.originY = y
	s.sin, s.cos = math.Sincos(theta)
	s.initialised = true

	if cap(s.rotated) < len(s.source) {
		s.rotated = make([]objectdata.Point, len(s.source))
	}
	s.rotated = s.rotated[:len(s.source)]

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, p := range s.source {
		rx, ry := mathutil.RotatePoint2(p.X, p.Y, s.sin, s.cos, 0, 0)
		rx += x
		ry += y
		s.rotated[i] = objectdata.Point{X: rx, Y: ry}
		if rx < minX {
			minX = rx
		}
		if rx > maxX {
			maxX = rx
		}
		if ry < minY {
			minY = ry
		}
		if ry > maxY {
			maxY = ry
		}
	}
	s.boxL, s.boxT, s.boxR, s.boxB = minX, minY, maxX, maxY
}

// Box returns the current bounding box as (left, top, right, bottom).
func (s *Shape) Box() (l, t, r, b float64) {
	return s.boxL, s.boxT, s.boxR, s.boxB
}

// Polygon returns the current world-space rotated polygon. Callers must not
// mutate the returned slice.
func (s *Shape) Polygon() []objectdata.Point {
	return s.rotated
}

// ContainsPoint reports whether (x,y) lies inside the shape: rejected
// cheaply by bounding box, then resolved by ray-casting from (x,y) to a
// point guaranteed outside the polygon and counting edge crossings.
func (s *Shape) ContainsPoint(x, y float64) bool {
	if x < s.boxL || x > s.boxR || y < s.boxT || y > s.boxB {
		return false
	}

	// A point 10px above the bounding box's top-left edge is guaranteed
	// outside the polygon.
	rayX, rayY := s.boxL, s.boxT-10

	crossings := 0
	n := len(s.rotated)
	for i := 0; i < n; i++ {
		a := s.rotated[i]
		b := s.rotated[(i+1)%n]
		if mathutil.SegmentsIntersect(x, y, rayX, rayY, a.X, a.Y, b.X, b.Y) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// IntersectsOther reports whether this shape intersects other. Both shapes'
// own Update calls have already positioned them in the same world space, so
// no offset parameter is taken: the relative position is implicit in
// boxL/T/R/B and Polygon().
func (s *Shape) IntersectsOther(other *Shape) bool {
	// 1. Bounding-box rejection.
	if s.boxR < other.boxL || s.boxL > other.boxR || s.boxB < other.boxT || s.boxT > other.boxB {
		return false
	}

	// 2. Containment check: either polygon's first vertex inside the other
	// detects full enclosure.
	if len(other.rotated) > 0 && s.ContainsPoint(other.rotated[0].X, other.rotated[0].Y) {
		return true
	}
	if len(s.rotated) > 0 && other.ContainsPoint(s.rotated[0].X, s.rotated[0].Y) {
		return true
	}

	// 3. Brute-force edge x edge intersection. Polygon simplicity and low
	// vertex counts are assumed, per spec.md §4.3; quadratic cost is fine.
	na, nb := len(s.rotated), len(other.rotated)
	for i := 0; i < na; i++ {
		a1 := s.rotated[i]
		a2 := s.rotated[(i+1)%na]
		for j := 0; j < nb; j++ {
			b1 := other.rotated[j]
			b2 := other.rotated[(j+1)%nb]
			if mathutil.SegmentsIntersect(a1.X, a1.Y, a2.X, a2.Y, b1.X, b1.Y, b2.X, b2.Y) {
				return true
			}
		}
	}
	return false
}
