package interaction

import (
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
)

// Window is what the controller manipulates.
type Window interface {
	ID() string
	// Geometry returns the authoritative geometry.
	Geometry() geometry.Rect
	// ApplyVisual is the per-frame fast path. It must not touch the
	// authoritative geometry.
	ApplyVisual(r geometry.Rect)
}

// FrameScheduler runs fn before the next frame is painted. The returned
// function cancels fn if it has not run yet.
type FrameScheduler interface {
	RequestFrame(fn func()) (cancel func())
}

// PointerCapturer routes every event of one pointer to the captured window
// until released. Hosts without capture may leave it nil.
type PointerCapturer interface {
	Capture(windowID string, pointerID int) error
	Release(windowID string, pointerID int)
}

// Commit reports the final geometry of a session.
type Commit struct {
	WindowID string
	Kind     Kind
	Geometry geometry.Rect
	// Governing is false only when a session was superseded by a new one on
	// the same window; such commits must not be persisted.
	Governing bool
}

// Controller owns the active sessions of every window. It is not safe for
// concurrent use; hosts drive it from their single event loop.
type Controller struct {
	frames   FrameScheduler
	capturer PointerCapturer
	log      logging.Logger
	onCommit func(Commit)

	sessions map[string]*Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithCapturer enables pointer capture.
func WithCapturer(pc PointerCapturer) Option {
	return func(c *Controller) { c.capturer = pc }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController returns a controller that coalesces moves on frames and
// reports finished sessions to onCommit.
func NewController(frames FrameScheduler, onCommit func(Commit), opts ...Option) *Controller {
	c := &Controller{
		frames:   frames,
		onCommit: onCommit,
		log:      logging.Noop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active returns the session for windowID, if any.
func (c *Controller) Active(windowID string) (*Session, bool) {
	s, ok := c.sessions[windowID]
	return s, ok
}

// Busy reports whether any session is active.
func (c *Controller) Busy() bool { return len(c.sessions) > 0 }

// Begin starts a session. A session already running on the same window is
// ended first, committing its last applied geometry as non-governing.
func (c *Controller) Begin(kind Kind, w Window, ev PointerEvent, limits Limits) *Session {
	if prev, ok := c.sessions[w.ID()]; ok {
		c.log.Debug("superseding session", "window", w.ID(), "kind", prev.Kind)
		c.finish(prev, false)
	}
	// A pointer drives one session at a time. A press on another window means
	// the earlier release was lost, so that session ends as on pointer-up.
	for id, other := range c.sessions {
		if other.PointerID == ev.PointerID {
			c.log.Debug("pointer moved to another window", "window", id, "pointer", ev.PointerID)
			c.Cancel(id)
		}
	}

	s := newSession(kind, w, ev, limits)
	if c.capturer != nil {
		if err := c.capturer.Capture(s.WindowID, s.PointerID); err != nil {
			// Tracking continues without capture; the host ends the session if
			// the pointer leaves the document.
			c.log.Warn("pointer capture failed", "window", s.WindowID, "pointer", s.PointerID, "err", err)
		} else {
			s.captured = true
		}
	}
	c.sessions[s.WindowID] = s
	c.log.Debug("session started", "window", s.WindowID, "kind", kind)
	return s
}

// Move records a pointer position. Only the latest position per frame is
// applied; events from other pointers are ignored.
func (c *Controller) Move(windowID string, ev PointerEvent) {
	s, ok := c.sessions[windowID]
	if !ok || ev.PointerID != s.PointerID {
		return
	}
	s.pending = &ev
	if s.cancelFrame != nil {
		return
	}
	s.cancelFrame = c.frames.RequestFrame(func() {
		s.cancelFrame = nil
		c.flush(s)
	})
}

// MovePointer routes ev to whichever session owns its pointer. It reports
// whether a session consumed the event.
func (c *Controller) MovePointer(ev PointerEvent) bool {
	for id, s := range c.sessions {
		if s.PointerID == ev.PointerID {
			c.Move(id, ev)
			return true
		}
	}
	return false
}

func (c *Controller) flush(s *Session) {
	if s.pending == nil {
		return
	}
	ev := *s.pending
	s.pending = nil
	r := s.Compute(ev.Point)
	if r.NearlyEqual(s.applied) {
		return
	}
	s.applied = r
	s.window.ApplyVisual(r)
}

// End finishes the session on pointer-up. The final event is applied before
// the geometry is committed.
func (c *Controller) End(windowID string, ev PointerEvent) {
	s, ok := c.sessions[windowID]
	if !ok || ev.PointerID != s.PointerID {
		return
	}
	c.stopFrame(s)
	s.pending = &ev
	c.flush(s)
	c.finish(s, true)
}

// EndPointer ends whichever session owns ev's pointer.
func (c *Controller) EndPointer(ev PointerEvent) bool {
	for id, s := range c.sessions {
		if s.PointerID == ev.PointerID {
			c.End(id, ev)
			return true
		}
	}
	return false
}

// Cancel finishes the session on pointer-cancel. Pending moves are dropped
// and the last applied geometry is committed as is.
func (c *Controller) Cancel(windowID string) {
	s, ok := c.sessions[windowID]
	if !ok {
		return
	}
	c.stopFrame(s)
	s.pending = nil
	c.finish(s, true)
}

// CancelAll cancels every session.
func (c *Controller) CancelAll() {
	for id := range c.sessions {
		c.Cancel(id)
	}
}

// Forget drops a session without committing, for windows that are being
// destroyed.
func (c *Controller) Forget(windowID string) {
	s, ok := c.sessions[windowID]
	if !ok {
		return
	}
	c.stopFrame(s)
	c.release(s)
	delete(c.sessions, windowID)
}

func (c *Controller) stopFrame(s *Session) {
	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
}

func (c *Controller) release(s *Session) {
	if s.captured && c.capturer != nil {
		c.capturer.Release(s.WindowID, s.PointerID)
		s.captured = false
	}
}

func (c *Controller) finish(s *Session, governing bool) {
	c.stopFrame(s)
	c.release(s)
	delete(c.sessions, s.WindowID)
	c.log.Debug("session ended", "window", s.WindowID, "kind", s.Kind, "governing", governing)
	if c.onCommit != nil {
		c.onCommit(Commit{
			WindowID:  s.WindowID,
			Kind:      s.Kind,
			Geometry:  s.applied,
			Governing: governing,
		})
	}
}
