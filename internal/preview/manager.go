package preview

import (
	"cmp"
	"errors"
	"slices"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/google/uuid"
)

// Host is the rendering side of the manager. All methods are called from
// the manager's event loop and may call back into the manager.
type Host interface {
	// Opened is called once a window is placed.
	Opened(w *Instance)
	// Updated is called whenever anything visible about w changed.
	Updated(w *Instance)
	// Closed is called after w left the collection.
	Closed(w *Instance)
	// OpenExternal shows url outside the page.
	OpenExternal(url string)
	// Load starts fetching w's content. The host reports the result through
	// Manager.Loaded with gen. The returned function aborts the fetch; hosts
	// that load nothing return nil.
	Load(w *Instance, gen uint64) (cancel func())
}

// Manager owns the open windows. It is not safe for concurrent use; every
// method must be called from the host's event loop.
type Manager struct {
	host    Host
	store   store.Store
	log     logging.Logger
	frames  interaction.FrameScheduler
	metrics Metrics
	opts    Options

	viewport geometry.Size
	pointer  *geometry.Point

	// windows is kept in stacking order; the last one is on top.
	windows []*Instance
	seq     uint64

	ctrl         *interaction.Controller
	ctrlOpts     []interaction.Option
	cancelFollow func()

	mutating bool
	deferred []func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics sets the host's units. The default is PixelMetrics.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithCapturer enables pointer capture on drag and resize.
func WithCapturer(pc interaction.PointerCapturer) Option {
	return func(m *Manager) { m.ctrlOpts = append(m.ctrlOpts, interaction.WithCapturer(pc)) }
}

// NewManager returns an empty manager. st may be nil, in which case nothing
// is remembered between windows.
func NewManager(host Host, st store.Store, frames interaction.FrameScheduler, s config.Settings, opts ...Option) *Manager {
	m := &Manager{
		host:    host,
		store:   st,
		log:     logging.Noop(),
		frames:  frames,
		metrics: PixelMetrics,
		opts:    OptionsFrom(s),
	}
	for _, opt := range opts {
		opt(m)
	}
	ctrlOpts := append([]interaction.Option{interaction.WithLogger(m.log)}, m.ctrlOpts...)
	m.ctrl = interaction.NewController(frames, m.onCommit, ctrlOpts...)
	return m
}

// Options returns the window options in effect.
func (m *Manager) Options() Options { return m.opts }

// Metrics returns the host's units.
func (m *Manager) Metrics() Metrics { return m.metrics }

// Len returns the number of live windows.
func (m *Manager) Len() int { return len(m.windows) }

// Windows returns the live windows bottom to top.
func (m *Manager) Windows() []*Instance { return slices.Clone(m.windows) }

// Get returns the window with id.
func (m *Manager) Get(id string) (*Instance, bool) {
	i := m.index(id)
	if i < 0 {
		return nil, false
	}
	return m.windows[i], true
}

// Top returns the topmost window containing p.
func (m *Manager) Top(p geometry.Point) (*Instance, bool) {
	for i := len(m.windows) - 1; i >= 0; i-- {
		if m.windows[i].visual.Contains(p) {
			return m.windows[i], true
		}
	}
	return nil, false
}

// Busy reports whether a drag or resize is in progress.
func (m *Manager) Busy() bool { return m.ctrl.Busy() }

func (m *Manager) index(id string) int {
	return slices.IndexFunc(m.windows, func(w *Instance) bool { return w.id == id })
}

// run serializes mutations. A mutation requested from inside another one,
// typically by a host callback, runs after the outer one has finished.
func (m *Manager) run(fn func()) {
	if m.mutating {
		m.deferred = append(m.deferred, fn)
		return
	}
	m.mutating = true
	fn()
	for len(m.deferred) > 0 {
		next := m.deferred[0]
		m.deferred = m.deferred[1:]
		next()
	}
	m.mutating = false
}

// SetViewport records the visible area and pulls every window back inside.
func (m *Manager) SetViewport(vp geometry.Size) {
	m.run(func() {
		m.viewport = vp
		for _, w := range m.windows {
			if _, active := m.ctrl.Active(w.id); active {
				continue
			}
			r := geometry.ClampRect(w.geometry, vp, m.metrics.Margin)
			if !r.NearlyEqual(w.geometry) {
				w.setGeometry(r)
				m.host.Updated(w)
			}
		}
	})
}

// Viewport returns the visible area.
func (m *Manager) Viewport() geometry.Size { return m.viewport }

// Create opens a window for url near anchor and returns its id. When the
// collection is full the oldest window is closed first.
func (m *Manager) Create(url string, anchor geometry.Point) string {
	id := uuid.NewString()
	m.run(func() { m.create(id, url, anchor) })
	return id
}

func (m *Manager) create(id, url string, anchor geometry.Point) {
	for len(m.windows) >= m.opts.MaxWindows {
		oldest := slices.MinFunc(m.windows, func(a, b *Instance) int {
			return cmp.Compare(a.CreatedAt, b.CreatedAt)
		})
		m.log.Info("evicting oldest window", "id", oldest.id, "url", oldest.url)
		m.remove(oldest)
	}

	var remembered *geometry.Size
	if m.opts.Size == config.SizeLast {
		if sz, ok := m.lastSize(); ok {
			remembered = &sz
		}
	}
	size := sizeFor(m.opts.Size, m.viewport, m.metrics, remembered)

	var last *geometry.Point
	if m.opts.Placement == geometry.PlaceLast {
		if p, ok := m.lastPosition(); ok {
			last = &p
		}
	}
	pos := geometry.ResolveNamedPlacement(m.opts.Placement, m.viewport, size, m.metrics.Margin, &anchor, last)
	rect := geometry.ClampRect(geometry.RectFrom(pos, size), m.viewport, m.metrics.Margin)

	m.seq++
	w := &Instance{
		id:        id,
		url:       url,
		Pinned:    m.opts.AutoPin,
		Following: m.opts.Placement == geometry.PlaceFollow && !m.opts.AutoPin,
		CreatedAt: m.seq,
		m:         m,
	}
	w.setGeometry(rect)
	m.windows = append(m.windows, w)
	m.log.Info("window opened", "id", id, "url", url, "rect", rect, "live", len(m.windows))
	m.host.Opened(w)
	m.startLoad(w)
}

// Close closes the window with id. Its geometry becomes the last
// size and position unless it was never laid out.
func (m *Manager) Close(id string) {
	m.run(func() {
		if i := m.index(id); i >= 0 {
			m.remove(m.windows[i])
		}
	})
}

// CloseAll closes every window.
func (m *Manager) CloseAll() {
	m.run(func() {
		for len(m.windows) > 0 {
			m.remove(m.windows[len(m.windows)-1])
		}
	})
}

func (m *Manager) remove(w *Instance) {
	i := m.index(w.id)
	if i < 0 {
		return
	}
	m.ctrl.Forget(w.id)
	if w.cancelLoad != nil {
		w.cancelLoad()
		w.cancelLoad = nil
	}
	m.windows = slices.Delete(m.windows, i, i+1)
	if !w.geometry.Degenerate() {
		m.persist(w.geometry)
	}
	w.m = nil
	m.log.Info("window closed", "id", w.id, "live", len(m.windows))
	m.host.Closed(w)
}

// Configure applies a new settings snapshot. Live windows keep their place
// and size and are redrawn with the new look; a lower window cap applies to
// the next Create.
func (m *Manager) Configure(s config.Settings) {
	m.run(func() {
		m.opts = OptionsFrom(s)
		for _, w := range m.windows {
			m.host.Updated(w)
		}
	})
}

// Raise moves the window with id to the top of the stack.
func (m *Manager) Raise(id string) {
	m.run(func() {
		i := m.index(id)
		if i < 0 || i == len(m.windows)-1 {
			return
		}
		w := m.windows[i]
		m.windows = append(slices.Delete(m.windows, i, i+1), w)
		m.host.Updated(w)
	})
}

// TogglePin flips the pinned flag. Pinning stops cursor following;
// unpinning resumes it for windows that were placed at the cursor.
func (m *Manager) TogglePin(id string) {
	m.run(func() {
		w, ok := m.Get(id)
		if !ok {
			return
		}
		w.Pinned = !w.Pinned
		w.Following = !w.Pinned && m.opts.Placement == geometry.PlaceFollow
		m.host.Updated(w)
	})
}

// Refresh aborts any in-flight load and reloads the content.
func (m *Manager) Refresh(id string) {
	m.run(func() {
		if w, ok := m.Get(id); ok {
			m.startLoad(w)
		}
	})
}

// OpenInNewTab hands the window's URL to the host.
func (m *Manager) OpenInNewTab(id string) {
	if w, ok := m.Get(id); ok {
		m.host.OpenExternal(w.url)
	}
}

func (m *Manager) startLoad(w *Instance) {
	if w.cancelLoad != nil {
		w.cancelLoad()
	}
	w.loadGen++
	w.Content = Content{State: Loading}
	m.host.Updated(w)
	w.cancelLoad = m.host.Load(w, w.loadGen)
}

// Loaded stores the result of a load started by Host.Load. Results for a
// closed window or a superseded load are dropped.
func (m *Manager) Loaded(id string, gen uint64, c Content) {
	m.run(func() {
		w, ok := m.Get(id)
		if !ok || gen != w.loadGen {
			m.log.Debug("dropping stale load", "id", id, "gen", gen)
			return
		}
		w.cancelLoad = nil
		if c.Err != nil {
			c.State = Failed
		} else if c.State == Loading {
			c.State = Ready
		}
		w.Content = c
		m.host.Updated(w)
	})
}

// Escape closes the topmost unpinned window under the pointer. It reports
// whether a window was closed.
func (m *Manager) Escape() bool {
	closed := false
	m.run(func() {
		for i := len(m.windows) - 1; i >= 0; i-- {
			w := m.windows[i]
			if w.PointerInside && !w.Pinned {
				m.remove(w)
				closed = true
				return
			}
		}
	})
	return closed
}

// ClickOutside closes every unpinned window that does not contain p.
func (m *Manager) ClickOutside(p geometry.Point) int {
	n := 0
	m.run(func() {
		var victims []*Instance
		for _, w := range m.windows {
			if !w.Pinned && !w.visual.Contains(p) {
				victims = append(victims, w)
			}
		}
		for _, w := range victims {
			m.remove(w)
			n++
		}
	})
	return n
}

// PointerEnter marks the pointer as inside the window.
func (m *Manager) PointerEnter(id string) {
	if w, ok := m.Get(id); ok && !w.PointerInside {
		w.PointerInside = true
		m.host.Updated(w)
	}
}

// PointerLeave marks the pointer as outside the window.
func (m *Manager) PointerLeave(id string) {
	if w, ok := m.Get(id); ok && w.PointerInside {
		w.PointerInside = false
		m.host.Updated(w)
	}
}

// Hovered reports whether the pointer is over any window.
func (m *Manager) Hovered() bool {
	return slices.ContainsFunc(m.windows, func(w *Instance) bool { return w.PointerInside })
}

// PointerMoved records the cursor. Following windows catch up on the next
// frame.
func (m *Manager) PointerMoved(p geometry.Point) {
	m.pointer = &p
	if m.cancelFollow != nil || m.frames == nil {
		return
	}
	if !slices.ContainsFunc(m.windows, func(w *Instance) bool { return w.Following }) {
		return
	}
	m.cancelFollow = m.frames.RequestFrame(func() {
		m.cancelFollow = nil
		m.run(m.follow)
	})
}

func (m *Manager) follow() {
	if m.pointer == nil {
		return
	}
	for _, w := range m.windows {
		if !w.Following || w.Pinned {
			continue
		}
		if _, active := m.ctrl.Active(w.id); active {
			continue
		}
		pos := geometry.ResolveNamedPlacement(geometry.PlaceFollow, m.viewport, w.geometry.Size(), m.metrics.Margin, m.pointer, nil)
		r := geometry.RectFrom(pos, w.geometry.Size())
		if r.NearlyEqual(w.geometry) {
			continue
		}
		w.setGeometry(r)
		m.host.Updated(w)
	}
}

// BeginInteraction starts a drag or resize of the window with id.
func (m *Manager) BeginInteraction(id string, kind interaction.Kind, ev interaction.PointerEvent) bool {
	w, ok := m.Get(id)
	if !ok {
		return false
	}
	m.Raise(id)
	w.Following = false
	m.ctrl.Begin(kind, w, ev, interaction.Limits{
		Min:      m.metrics.Min,
		Viewport: m.viewport,
		Margin:   m.metrics.Margin,
	})
	m.host.Updated(w)
	return true
}

// Interacting reports whether the window with id is being dragged or
// resized.
func (m *Manager) Interacting(id string) bool {
	_, ok := m.ctrl.Active(id)
	return ok
}

// PointerMove feeds a move to whichever session owns the pointer.
func (m *Manager) PointerMove(ev interaction.PointerEvent) bool {
	return m.ctrl.MovePointer(ev)
}

// PointerUp ends the session that owns the pointer.
func (m *Manager) PointerUp(ev interaction.PointerEvent) bool {
	return m.ctrl.EndPointer(ev)
}

// PointerCancel ends the session on id keeping the last applied geometry.
func (m *Manager) PointerCancel(id string) {
	m.ctrl.Cancel(id)
}

// CancelInteractions ends every session, for focus loss.
func (m *Manager) CancelInteractions() {
	m.ctrl.CancelAll()
}

func (m *Manager) onCommit(c interaction.Commit) {
	w, ok := m.Get(c.WindowID)
	if !ok {
		return
	}
	w.setGeometry(c.Geometry)
	m.host.Updated(w)
	if c.Governing {
		m.persist(c.Geometry)
	}
}

func (m *Manager) persist(r geometry.Rect) {
	if m.store == nil {
		return
	}
	if err := store.SetLastSize(m.store, r.Size()); err != nil {
		m.log.Warn("remember window size", "err", err)
	}
	if err := store.SetLastPosition(m.store, r.Origin()); err != nil {
		m.log.Warn("remember window position", "err", err)
	}
}

func (m *Manager) lastSize() (geometry.Size, bool) {
	if m.store == nil {
		return geometry.Size{}, false
	}
	sz, err := store.LastSize(m.store)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("read last window size", "err", err)
		}
		return geometry.Size{}, false
	}
	if sz.Width <= 0 || sz.Height <= 0 {
		return geometry.Size{}, false
	}
	return sz, true
}

func (m *Manager) lastPosition() (geometry.Point, bool) {
	if m.store == nil {
		return geometry.Point{}, false
	}
	p, err := store.LastPosition(m.store)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("read last window position", "err", err)
		}
		return geometry.Point{}, false
	}
	return p, true
}
