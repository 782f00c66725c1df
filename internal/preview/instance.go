// Package preview owns the set of open preview windows: their identity,
// placement, capacity policy and the persistence of the last geometry.
package preview

import (
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// ContentState is the load state of a window's page.
type ContentState int

const (
	Loading ContentState = iota
	Ready
	Failed
)

func (s ContentState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// Content is what a window shows. Hosts that render the page themselves
// (the browser) only use State.
type Content struct {
	State ContentState
	Title string
	Body  string
	Err   error
}

// Instance is one live preview window.
type Instance struct {
	id  string
	url string

	geometry geometry.Rect
	visual   geometry.Rect

	// Pinned windows ignore click-outside and stop following the cursor.
	Pinned bool
	// Following windows track the cursor until dragged, resized or pinned.
	Following bool
	// PointerInside is maintained from enter/leave on the window.
	PointerInside bool
	// CreatedAt orders windows for eviction. It is a creation counter, not a
	// wall clock.
	CreatedAt uint64
	Content   Content

	loadGen    uint64
	cancelLoad func()
	m          *Manager
}

// ID returns the window's identifier.
func (w *Instance) ID() string { return w.id }

// URL returns the previewed URL.
func (w *Instance) URL() string { return w.url }

// Geometry returns the authoritative geometry.
func (w *Instance) Geometry() geometry.Rect { return w.geometry }

// Visual returns the geometry to paint, which runs ahead of Geometry during
// a drag or resize.
func (w *Instance) Visual() geometry.Rect { return w.visual }

// ApplyVisual is the frame-rate fast path used by the interaction
// controller.
func (w *Instance) ApplyVisual(r geometry.Rect) {
	w.visual = r
	if w.m != nil {
		w.m.host.Updated(w)
	}
}

func (w *Instance) setGeometry(r geometry.Rect) {
	w.geometry = r
	w.visual = r
}
