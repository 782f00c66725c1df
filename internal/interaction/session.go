// Package interaction implements the drag and resize state machine for
// preview windows.
//
// A Session lives from pointer-down on a window's chrome until pointer-up or
// pointer-cancel. Pointer moves are coalesced to one geometry update per
// animation frame and applied through the window's visual fast path; the
// authoritative geometry is written once, when the session ends.
package interaction

import (
	"math"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// Kind identifies what a session manipulates.
type Kind int

const (
	Move Kind = iota
	ResizeEdgeLeft
	ResizeEdgeRight
	ResizeHeight
	ResizeCornerLeft
	ResizeCornerRight
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "move"
	case ResizeEdgeLeft:
		return "resize-edge-left"
	case ResizeEdgeRight:
		return "resize-edge-right"
	case ResizeHeight:
		return "resize-height"
	case ResizeCornerLeft:
		return "resize-corner-left"
	case ResizeCornerRight:
		return "resize-corner-right"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := Move; k <= ResizeCornerRight; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// IsResize reports whether k changes the window size.
func (k Kind) IsResize() bool { return k != Move }

// PointerEvent is the subset of a pointer event the controller needs.
type PointerEvent struct {
	PointerID int
	Point     geometry.Point
}

// Limits bound every geometry the controller produces.
type Limits struct {
	// Min is a hard floor for width and height.
	Min geometry.Size
	// Viewport is the visible area. A zero viewport disables upper bounds.
	Viewport geometry.Size
	// Margin is kept free between the window and the viewport edges.
	Margin float64
}

// Session is one active drag or resize gesture.
type Session struct {
	Kind      Kind
	WindowID  string
	PointerID int

	// Origin is where the pointer went down.
	Origin geometry.Point
	// Start is the window geometry when the pointer went down.
	Start geometry.Rect
	// Anchor is the point that must not move: the pointer's offset into the
	// window for Move, otherwise the corner opposite the dragged edge.
	Anchor geometry.Point
	Limits Limits

	applied     geometry.Rect
	pending     *PointerEvent
	cancelFrame func()
	captured    bool
	window      Window
}

func newSession(kind Kind, w Window, ev PointerEvent, limits Limits) *Session {
	start := w.Geometry()
	s := &Session{
		Kind:      kind,
		WindowID:  w.ID(),
		PointerID: ev.PointerID,
		Origin:    ev.Point,
		Start:     start,
		Limits:    limits,
		applied:   start,
		window:    w,
	}
	switch kind {
	case Move:
		s.Anchor = geometry.Point{X: ev.Point.X - start.X, Y: ev.Point.Y - start.Y}
	case ResizeEdgeLeft, ResizeCornerLeft:
		s.Anchor = geometry.Point{X: start.Right(), Y: start.Y}
	default:
		s.Anchor = start.Origin()
	}
	return s
}

// Applied returns the geometry most recently pushed to the window.
func (s *Session) Applied() geometry.Rect { return s.applied }

// Compute returns the geometry the window should have with the pointer at p.
// It is pure: the session is not modified.
func (s *Session) Compute(p geometry.Point) geometry.Rect {
	dx := p.X - s.Origin.X
	dy := p.Y - s.Origin.Y
	r := s.Start
	lim := s.Limits

	switch s.Kind {
	case Move:
		r.X = s.Start.X + dx
		r.Y = s.Start.Y + dy
		if lim.Viewport.Width > 0 {
			r.X = geometry.Clamp(r.X, lim.Margin, lim.Viewport.Width-r.Width-lim.Margin)
		}
		if lim.Viewport.Height > 0 {
			r.Y = geometry.Clamp(r.Y, lim.Margin, lim.Viewport.Height-r.Height-lim.Margin)
		}
		return r

	case ResizeEdgeLeft, ResizeCornerLeft:
		res := geometry.ResolveAnchoredResize(geometry.EdgeStart, s.Start.Width, dx,
			lim.Min.Width, s.maxWidthLeft())
		r.Width = res.Size
		r.X = s.Start.X + res.PositionDelta

	case ResizeEdgeRight, ResizeCornerRight:
		res := geometry.ResolveAnchoredResize(geometry.EdgeEnd, s.Start.Width, dx,
			lim.Min.Width, s.maxWidthRight())
		r.Width = res.Size
	}

	switch s.Kind {
	case ResizeHeight, ResizeCornerLeft, ResizeCornerRight:
		res := geometry.ResolveAnchoredResize(geometry.EdgeEnd, s.Start.Height, dy,
			lim.Min.Height, s.maxHeight())
		r.Height = res.Size
	}
	return r
}

func (s *Session) maxWidthLeft() float64 {
	if s.Limits.Viewport.Width <= 0 {
		return math.Inf(1)
	}
	return s.Start.Right() - s.Limits.Margin
}

func (s *Session) maxWidthRight() float64 {
	if s.Limits.Viewport.Width <= 0 {
		return math.Inf(1)
	}
	return s.Limits.Viewport.Width - s.Limits.Margin - s.Start.X
}

func (s *Session) maxHeight() float64 {
	if s.Limits.Viewport.Height <= 0 {
		return math.Inf(1)
	}
	return s.Limits.Viewport.Height - s.Limits.Margin - s.Start.Y
}
