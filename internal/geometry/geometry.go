// Package geometry holds the pure rectangle math used by preview windows:
// viewport clamping, anchored resizing and named placements.
//
// All values are in viewport units (CSS pixels for the extension bridge,
// cells for the terminal host). Nothing in this package has side effects.
package geometry

import "math"

// Epsilon is the smallest geometry change worth re-rendering.
const Epsilon = 0.1

// FollowOffset is the gap between the cursor and a cursor-following window.
const FollowOffset = 20.0

// Point is a position in viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFrom builds a rectangle from an origin and a size.
func RectFrom(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Degenerate reports whether the rectangle has no visible area.
func (r Rect) Degenerate() bool {
	return r.Width <= 0 || r.Height <= 0
}

// NearlyEqual reports whether every component of r and o differs by no more
// than Epsilon.
func (r Rect) NearlyEqual(o Rect) bool {
	return math.Abs(r.X-o.X) <= Epsilon &&
		math.Abs(r.Y-o.Y) <= Epsilon &&
		math.Abs(r.Width-o.Width) <= Epsilon &&
		math.Abs(r.Height-o.Height) <= Epsilon
}

// Clamp limits v to [lo, hi]. When hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ClampRect fits r inside the viewport minus margin on every side.
//
// Oversized rectangles are shrunk to the available space. Degenerate
// viewports (narrower than two margins) collapse the rectangle onto the
// margin origin with zero extent on that axis.
func ClampRect(r Rect, viewport Size, margin float64) Rect {
	r.X, r.Width = clampAxis(r.X, r.Width, viewport.Width, margin)
	r.Y, r.Height = clampAxis(r.Y, r.Height, viewport.Height, margin)
	return r
}

func clampAxis(pos, length, extent, margin float64) (float64, float64) {
	avail := math.Max(extent-2*margin, 0)
	length = Clamp(length, 0, avail)
	pos = Clamp(pos, margin, extent-length-margin)
	return pos, length
}

// Edge selects which side of an axis moves during a resize.
type Edge int

const (
	// EdgeStart is the left or top edge. Growing it moves the window origin so
	// the opposite edge stays put.
	EdgeStart Edge = iota
	// EdgeEnd is the right or bottom edge. The origin never moves.
	EdgeEnd
)

// AnchoredResize is the outcome of a single-axis resize.
type AnchoredResize struct {
	Size          float64
	PositionDelta float64
}

// ResolveAnchoredResize computes the new size along one axis for a pointer
// delta applied to the given edge, plus the origin shift that keeps the
// opposite edge fixed.
//
// The size is clamped to [min, max] before the shift is derived, so the
// anchored edge never jumps at the clamp boundary. min is a hard floor and
// wins over a smaller max.
func ResolveAnchoredResize(edge Edge, origin, delta, min, max float64) AnchoredResize {
	if max < min {
		max = min
	}
	switch edge {
	case EdgeStart:
		size := Clamp(origin-delta, min, max)
		return AnchoredResize{Size: size, PositionDelta: origin - size}
	default:
		return AnchoredResize{Size: Clamp(origin+delta, min, max)}
	}
}

// Placement names a strategy for positioning a new window.
type Placement string

const (
	PlaceCenter      Placement = "center"
	PlaceLeft        Placement = "left"
	PlaceRight       Placement = "right"
	PlaceLast        Placement = "last"
	PlaceFollow      Placement = "follow"
	PlaceTopLeft     Placement = "top-left"
	PlaceTopRight    Placement = "top-right"
	PlaceBottomLeft  Placement = "bottom-left"
	PlaceBottomRight Placement = "bottom-right"
)

// Valid reports whether p is a known placement.
func (p Placement) Valid() bool {
	switch p {
	case PlaceCenter, PlaceLeft, PlaceRight, PlaceLast, PlaceFollow,
		PlaceTopLeft, PlaceTopRight, PlaceBottomLeft, PlaceBottomRight:
		return true
	}
	return false
}

// ResolveNamedPlacement returns the origin for a window of the given size.
//
// cursor is consulted for PlaceFollow and lastKnown for PlaceLast; when the
// needed point is nil the window is centered. The result is always inside
// the viewport minus margin.
func ResolveNamedPlacement(name Placement, viewport, window Size, margin float64, cursor, lastKnown *Point) Point {
	var p Point
	switch name {
	case PlaceLeft:
		p = Point{X: margin, Y: centered(viewport.Height, window.Height, margin)}
	case PlaceRight:
		p = Point{X: viewport.Width - window.Width - margin, Y: centered(viewport.Height, window.Height, margin)}
	case PlaceTopLeft:
		p = Point{X: margin, Y: margin}
	case PlaceTopRight:
		p = Point{X: viewport.Width - window.Width - margin, Y: margin}
	case PlaceBottomLeft:
		p = Point{X: margin, Y: viewport.Height - window.Height - margin}
	case PlaceBottomRight:
		p = Point{X: viewport.Width - window.Width - margin, Y: viewport.Height - window.Height - margin}
	case PlaceLast:
		if lastKnown == nil {
			return ResolveNamedPlacement(PlaceCenter, viewport, window, margin, nil, nil)
		}
		p = *lastKnown
	case PlaceFollow:
		if cursor == nil {
			return ResolveNamedPlacement(PlaceCenter, viewport, window, margin, nil, nil)
		}
		p = Point{
			X: followAxis(cursor.X, window.Width, viewport.Width, margin),
			Y: followAxis(cursor.Y, window.Height, viewport.Height, margin),
		}
	default:
		p = Point{
			X: centered(viewport.Width, window.Width, margin),
			Y: centered(viewport.Height, window.Height, margin),
		}
	}
	return ClampRect(RectFrom(p, window), viewport, margin).Origin()
}

func centered(extent, length, margin float64) float64 {
	avail := extent - 2*margin
	return margin + math.Max((avail-length)/2, 0)
}

// followAxis places the window FollowOffset past the cursor, flipping to the
// other side when that would overflow the far margin.
func followAxis(cursor, length, extent, margin float64) float64 {
	pos := cursor + FollowOffset
	if pos+length > extent-margin {
		flipped := cursor - FollowOffset - length
		if flipped >= margin {
			return flipped
		}
	}
	return pos
}
