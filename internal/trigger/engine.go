package trigger

import (
	"net/url"
	"slices"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
)

// State is a snapshot of the engine's mutable trigger state.
type State struct {
	Mode           config.TriggerMode
	ModifierActive bool
	// PendingSuppression is set after a long-press fired, until the next click.
	PendingSuppression bool
	TimerPending       bool
	// Inert is true when the page is on the disabled list or the engine was
	// closed.
	Inert bool
}

// pendingTimer is the single scheduled hover or long-press fire.
type pendingTimer struct {
	timer  Timer
	anchor *Element
	gen    uint64
	source string
}

type dragState struct {
	anchor *Element
	text   string
}

// Engine is the trigger state machine for one page. It is not safe for
// concurrent use; all calls, including scheduled timer callbacks, must come
// from the host's event loop.
type Engine struct {
	settings config.Settings
	page     *url.URL
	sched    Scheduler
	emit     func(Command)
	log      logging.Logger

	modifierActive bool
	suppress       *Element
	longPressFired bool
	hovered        *Element
	lastPoint      geometry.Point
	drag           *dragState
	pending        *pendingTimer
	gen            uint64
	inert          bool
	closed         bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine for the page at pageURL. Commands are delivered
// synchronously through emit.
func New(settings config.Settings, pageURL string, sched Scheduler, emit func(Command), opts ...Option) *Engine {
	e := &Engine{
		sched: sched,
		emit:  emit,
		log:   logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			e.page = u
		} else {
			e.log.Warn("unparseable page url", "url", pageURL, "err", err)
		}
	}
	e.Configure(settings)
	return e
}

// Configure applies a new settings snapshot. Any pending timer and drag are
// dropped; the held-modifier state survives because the key is still down.
func (e *Engine) Configure(s config.Settings) {
	if e.closed {
		return
	}
	e.cancelTimer()
	e.drag = nil
	e.suppress = nil
	e.longPressFired = false
	e.settings = s
	e.inert = e.page != nil && hostIn(e.page.Hostname(), s.DisabledSites)
	if e.inert {
		e.log.Info("trigger engine inert on disabled site", "host", e.page.Hostname())
	}
}

// Settings returns the snapshot in effect.
func (e *Engine) Settings() config.Settings { return e.settings }

// State returns a copy of the trigger state.
func (e *Engine) State() State {
	return State{
		Mode:               e.settings.TriggerMode,
		ModifierActive:     e.modifierActive,
		PendingSuppression: e.suppress != nil,
		TimerPending:       e.pending != nil,
		Inert:              e.inert || e.closed,
	}
}

// Listeners returns the event types the host must subscribe to, in the
// capture phase. It is empty when the engine is inert, closed or disabled.
func (e *Engine) Listeners() []EventType {
	if e.closed || e.inert || e.settings.TriggerMode == config.TriggerDisabled {
		return nil
	}
	types := []EventType{KeyDown, KeyUp, Blur, MouseMove, DragStart, DragEnd}
	switch e.settings.TriggerMode {
	case config.TriggerHover, config.TriggerHoverModifier:
		types = append(types, MouseEnter, MouseLeave)
	case config.TriggerLongPress:
		types = append(types, MouseDown, MouseUp, Click, SelectStart)
	case config.TriggerClickModifier:
		types = append(types, Click)
	}
	slices.Sort(types)
	return types
}

// Close cancels pending work and makes the engine ignore further events.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.cancelTimer()
	e.drag = nil
	e.suppress = nil
	e.hovered = nil
	e.closed = true
}

// Handle processes one event and returns what the host should do with it.
func (e *Engine) Handle(ev Event) Verdict {
	if e.closed || e.inert || e.settings.TriggerMode == config.TriggerDisabled {
		return Verdict{}
	}

	switch ev.Type {
	case KeyDown:
		e.onKey(ev, true)
		return Verdict{}
	case KeyUp:
		e.onKey(ev, false)
		return Verdict{}
	case Blur:
		// Keys released while focus was elsewhere never reach us.
		e.modifierActive = false
		return Verdict{}
	case MouseMove:
		e.lastPoint = ev.Point
		return Verdict{}
	case DragStart:
		e.onDragStart(ev)
		return Verdict{}
	case DragEnd:
		e.onDragEnd(ev)
		return Verdict{}
	}

	switch e.settings.TriggerMode {
	case config.TriggerHover:
		e.onHover(ev, false)
	case config.TriggerHoverModifier:
		e.onHover(ev, true)
	case config.TriggerLongPress:
		return e.onLongPress(ev)
	case config.TriggerClickModifier:
		return e.onClickModifier(ev)
	}
	return Verdict{}
}

func (e *Engine) onKey(ev Event, down bool) {
	if ev.Key != keyFor(e.settings.Modifier) {
		return
	}
	e.modifierActive = down
	// Pressing the modifier while already over a link arms hover+modifier.
	if down && e.settings.TriggerMode == config.TriggerHoverModifier && e.hovered != nil {
		if e.pending == nil || e.pending.anchor != e.hovered {
			e.arm(e.hovered, e.settings.HoverDelay, "hover-modifier")
		}
	}
}

func (e *Engine) modifierHeld(ev Event) bool {
	return e.modifierActive || ev.Mods.Has(modsFor(e.settings.Modifier))
}

func (e *Engine) onDragStart(ev Event) {
	e.lastPoint = ev.Point
	// A drag that begins during a long press cancels it.
	if e.pending != nil && e.pending.source == "long-press" {
		e.cancelTimer()
	}

	// Link drag wins over a selection that happens to contain the link.
	if a := ev.Target.Anchor(); a != nil {
		if e.settings.TriggerMode == config.TriggerDrag {
			e.drag = &dragState{anchor: a}
		} else {
			e.drag = nil
		}
		return
	}
	if ev.Selection != "" {
		e.drag = &dragState{text: ev.Selection}
		return
	}
	e.drag = nil
}

func (e *Engine) onDragEnd(ev Event) {
	d := e.drag
	e.drag = nil
	if d == nil {
		return
	}
	point := ev.Point

	if d.anchor != nil {
		if ev.Target != nil && ev.Target.Anchor() != d.anchor {
			return
		}
		e.openHref(d.anchor.Href, point, "drag")
		return
	}

	target, ok := NormalizeDraggedText(d.text, e.settings.SearchEngine, e.settings.AutoOpenLink)
	if !ok {
		return
	}
	e.open(target, point, "drag-text")
}

func (e *Engine) onHover(ev Event, needModifier bool) {
	switch ev.Type {
	case MouseEnter:
		e.lastPoint = ev.Point
		a := ev.Target.Anchor()
		if a == nil {
			return
		}
		e.hovered = a
		if needModifier && !e.modifierHeld(ev) {
			return
		}
		if e.pending != nil && e.pending.anchor == a {
			return
		}
		source := "hover"
		if needModifier {
			source = "hover-modifier"
		}
		e.arm(a, e.settings.HoverDelay, source)

	case MouseLeave:
		if ev.Target == nil || ev.Target != e.hovered {
			return
		}
		e.hovered = nil
		if e.pending != nil && e.pending.anchor == ev.Target {
			e.cancelTimer()
		}
	}
}

func (e *Engine) onLongPress(ev Event) Verdict {
	switch ev.Type {
	case MouseDown:
		e.lastPoint = ev.Point
		e.longPressFired = false
		// A fired long press whose release missed the link never produced
		// its click; a fresh press starts over.
		e.suppress = nil
		if ev.Button != 0 {
			return Verdict{}
		}
		if a := ev.Target.Anchor(); a != nil {
			e.arm(a, e.settings.LongPressDelay, "long-press")
		}

	case MouseUp:
		e.longPressFired = false
		if e.pending != nil && e.pending.source == "long-press" {
			e.cancelTimer()
		}

	case SelectStart:
		if e.longPressFired {
			return Verdict{PreventDefault: true}
		}

	case Click:
		s := e.suppress
		e.suppress = nil
		if s != nil && ev.Target.Anchor() == s {
			return Verdict{PreventDefault: true}
		}
	}
	return Verdict{}
}

func (e *Engine) onClickModifier(ev Event) Verdict {
	if ev.Type != Click || ev.Button != 0 {
		return Verdict{}
	}
	a := ev.Target.Anchor()
	if a == nil || !e.modifierHeld(ev) {
		return Verdict{}
	}
	if _, ok := ResolveHref(e.page, a.Href); !ok {
		return Verdict{}
	}
	e.openHref(a.Href, ev.Point, "click-modifier")
	return Verdict{PreventDefault: true}
}

// arm replaces the pending timer with a new one for anchor.
func (e *Engine) arm(anchor *Element, d time.Duration, source string) {
	e.cancelTimer()
	if _, ok := ResolveHref(e.page, anchor.Href); !ok {
		return
	}
	e.gen++
	gen := e.gen
	p := &pendingTimer{anchor: anchor, gen: gen, source: source}
	p.timer = e.sched.AfterFunc(d, func() { e.fire(gen) })
	e.pending = p
}

func (e *Engine) fire(gen uint64) {
	p := e.pending
	// A stale callback from a timer that was replaced or stopped too late.
	if e.closed || p == nil || p.gen != gen {
		return
	}
	e.pending = nil
	if p.source == "long-press" {
		e.suppress = p.anchor
		e.longPressFired = true
	}
	e.openHref(p.anchor.Href, e.lastPoint, p.source)
}

func (e *Engine) cancelTimer() {
	if e.pending == nil {
		return
	}
	e.pending.timer.Stop()
	e.pending = nil
}

func (e *Engine) openHref(href string, at geometry.Point, source string) {
	u, ok := ResolveHref(e.page, href)
	if !ok {
		e.log.Debug("ignoring non-http link", "href", href, "source", source)
		return
	}
	e.open(u, at, source)
}

func (e *Engine) open(u string, at geometry.Point, source string) {
	kind := OpenPreview
	if HostMatches(u, e.settings.EmbedRefusedDomains) {
		kind = OpenTab
	}
	cmd := Command{Kind: kind, URL: u, Anchor: at, Source: source}
	e.log.Debug("trigger fired", "kind", kind, "url", u, "source", source)
	if e.emit != nil {
		e.emit(cmd)
	}
}
