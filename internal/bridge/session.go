package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"nhooyr.io/websocket"
)

const (
	writeTimeout = 5 * time.Second
	// maxNodes bounds the element map of one page. Past it the map starts
	// over, which only costs identity for elements already seen.
	maxNodes = 1 << 16
)

var knownEvents = map[trigger.EventType]bool{
	trigger.DragStart:   true,
	trigger.DragEnd:     true,
	trigger.MouseEnter:  true,
	trigger.MouseLeave:  true,
	trigger.MouseDown:   true,
	trigger.MouseUp:     true,
	trigger.MouseMove:   true,
	trigger.Click:       true,
	trigger.KeyDown:     true,
	trigger.KeyUp:       true,
	trigger.Blur:        true,
	trigger.SelectStart: true,
}

// session is one connected tab. Everything except the reader and the fetch
// goroutines runs on run's loop, so the engine and the manager never see
// concurrent calls.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	srv    *Server
	conn   *websocket.Conn
	log    logging.Logger

	settings config.Settings
	engine   *trigger.Engine
	manager  *preview.Manager
	frames   *interaction.FrameQueue
	nodes    map[int]*trigger.Element

	posted chan func()
}

func newSession(parent context.Context, srv *Server, conn *websocket.Conn, log logging.Logger) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		ctx:      ctx,
		cancel:   cancel,
		srv:      srv,
		conn:     conn,
		log:      log,
		settings: srv.provider.Snapshot(),
		frames:   interaction.NewFrameQueue(),
		nodes:    make(map[int]*trigger.Element),
		posted:   make(chan func(), 64),
	}
	s.manager = preview.NewManager(s, srv.store, s.frames, s.settings,
		preview.WithLogger(log),
		preview.WithMetrics(preview.PixelMetrics),
		preview.WithCapturer(s),
	)
	return s
}

// run serves the connection until the script goes away or ctx is done.
func (s *session) run() {
	incoming := make(chan Incoming, 64)
	go s.read(incoming)

	updates := make(chan config.Settings, 1)
	unsubscribe := s.srv.provider.Subscribe(func(st config.Settings) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			// Only the newest snapshot matters.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()
	defer s.shutdown()

	var frame <-chan time.Time
	for {
		if frame == nil && s.frames.Pending() {
			fps := config.NormalFPS
			if s.manager.Busy() {
				fps = config.InteractionFPS
			}
			frame = time.After(time.Second / time.Duration(fps))
		}

		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			s.handle(msg)
		case fn := <-s.posted:
			fn()
		case st := <-updates:
			s.configure(st)
		case <-frame:
			frame = nil
			s.frames.RunFrame()
		}
	}
}

func (s *session) read(out chan<- Incoming) {
	defer close(out)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && s.ctx.Err() == nil {
				s.log.Debug("bridge read ended", "err", err)
			}
			return
		}
		var msg Incoming
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("bridge message unparseable", "err", err)
			continue
		}
		select {
		case out <- msg:
		case <-s.ctx.Done():
			return
		}
	}
}

// shutdown stops the reader and every load. Nothing is sent after it.
func (s *session) shutdown() {
	s.cancel()
	if s.engine != nil {
		s.engine.Close()
	}
	s.manager.CloseAll()
}

// post runs fn on the loop.
func (s *session) post(fn func()) {
	select {
	case s.posted <- fn:
	case <-s.ctx.Done():
	}
}

func (s *session) send(msg Outgoing) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.log.Warn("bridge write failed", "type", msg.Type, "err", err)
		return err
	}
	return nil
}

func (s *session) fail(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.log.Debug("bridge rejected message", "reason", text)
	_ = s.send(Outgoing{Type: TypeError, Error: text})
}

func (s *session) handle(msg Incoming) {
	if msg.Type != TypeHello && s.engine == nil {
		s.fail("%s before hello", msg.Type)
		return
	}

	switch msg.Type {
	case TypeHello:
		s.hello(msg)
	case TypeViewport:
		if msg.Viewport == nil {
			s.fail("viewport without size")
			return
		}
		s.manager.SetViewport(geometry.Size{Width: msg.Viewport.Width, Height: msg.Viewport.Height})
	case TypeEvent:
		s.event(msg)
	case TypePointer:
		s.pointer(msg)
	case TypeWindow:
		s.window(msg)
	case TypeOutside:
		s.manager.ClickOutside(geometry.Point{X: msg.X, Y: msg.Y})
	case TypeKey:
		if msg.Key == "Escape" {
			s.manager.Escape()
		}
	default:
		s.fail("unknown message type %q", msg.Type)
	}
}

// hello starts over for a newly loaded page.
func (s *session) hello(msg Incoming) {
	if s.engine != nil {
		s.engine.Close()
	}
	s.manager.CloseAll()
	s.nodes = make(map[int]*trigger.Element)
	s.engine = trigger.New(s.settings, msg.URL, s, s.handleCommand, trigger.WithLogger(s.log))
	if msg.Viewport != nil {
		s.manager.SetViewport(geometry.Size{Width: msg.Viewport.Width, Height: msg.Viewport.Height})
	}
	s.log.Info("bridge page attached", "url", msg.URL, "mode", s.settings.TriggerMode)
	s.sendListen()
}

func (s *session) sendListen() {
	_ = s.send(Outgoing{
		Type:   TypeListen,
		Events: eventNames(s.engine.Listeners()),
		Theme:  string(s.settings.Theme),
		Dim:    s.manager.Options().Dim,
	})
}

func (s *session) configure(st config.Settings) {
	disabling := st.TriggerMode == config.TriggerDisabled && s.settings.TriggerMode != config.TriggerDisabled
	s.settings = st
	s.manager.Configure(st)
	if s.engine == nil {
		return
	}
	s.engine.Configure(st)
	if disabling {
		s.manager.CloseAll()
	}
	s.log.Info("bridge settings changed", "mode", st.TriggerMode)
	s.sendListen()
}

func (s *session) event(msg Incoming) {
	if msg.Event == nil {
		s.fail("event without payload")
		return
	}
	e := msg.Event
	typ := trigger.EventType(e.Type)
	if !knownEvents[typ] {
		s.fail("unknown event %q", e.Type)
		return
	}
	ev := trigger.Event{
		Type:      typ,
		Target:    s.element(e.Path),
		Point:     geometry.Point{X: e.X, Y: e.Y},
		Button:    e.Button,
		Key:       e.Key,
		Mods:      e.Mods.bits(),
		Selection: e.Selection,
		PointerID: e.PointerID,
	}
	switch typ {
	case trigger.MouseMove:
		s.manager.PointerMoved(ev.Point)
	case trigger.Blur:
		s.manager.CancelInteractions()
	}

	verdict := s.engine.Handle(ev)
	if msg.Seq != 0 {
		_ = s.send(Outgoing{Type: TypeVerdict, Seq: msg.Seq, PreventDefault: verdict.PreventDefault})
	}
}

// element returns the Element for the first node of path, linking parents
// along the way.
func (s *session) element(path []Node) *trigger.Element {
	if len(path) == 0 {
		return nil
	}
	if len(s.nodes)+len(path) > maxNodes {
		s.log.Debug("element map full, starting over", "size", len(s.nodes))
		s.nodes = make(map[int]*trigger.Element)
	}
	var parent *trigger.Element
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		el, ok := s.nodes[n.ID]
		if !ok {
			el = &trigger.Element{}
			s.nodes[n.ID] = el
		}
		el.Tag, el.Href, el.Parent = n.Tag, n.Href, parent
		parent = el
	}
	return parent
}

func (s *session) pointer(msg Incoming) {
	pe := interaction.PointerEvent{PointerID: msg.PointerID, Point: geometry.Point{X: msg.X, Y: msg.Y}}
	switch msg.Action {
	case "down":
		kind, ok := interaction.ParseKind(msg.Kind)
		if !ok {
			s.fail("unknown interaction %q", msg.Kind)
			return
		}
		if !s.manager.BeginInteraction(msg.Window, kind, pe) {
			s.fail("no window %q", msg.Window)
		}
	case "move":
		s.manager.PointerMove(pe)
	case "up":
		s.manager.PointerUp(pe)
	case "cancel":
		s.manager.PointerCancel(msg.Window)
	case "enter":
		s.manager.PointerEnter(msg.Window)
	case "leave":
		s.manager.PointerLeave(msg.Window)
	default:
		s.fail("unknown pointer action %q", msg.Action)
	}
}

func (s *session) window(msg Incoming) {
	if _, ok := s.manager.Get(msg.Window); !ok {
		s.fail("no window %q", msg.Window)
		return
	}
	switch msg.Action {
	case "close":
		s.manager.Close(msg.Window)
	case "pin":
		s.manager.TogglePin(msg.Window)
	case "refresh":
		s.manager.Refresh(msg.Window)
	case "openTab":
		s.manager.OpenInNewTab(msg.Window)
	case "raise":
		s.manager.Raise(msg.Window)
	default:
		s.fail("unknown window action %q", msg.Action)
	}
}

func (s *session) handleCommand(c trigger.Command) {
	if c.Kind == trigger.OpenTab {
		s.OpenExternal(c.URL)
		return
	}
	s.manager.Create(c.URL, c.Anchor)
}

func (s *session) windowState(w *preview.Instance) *WindowState {
	r := w.Visual()
	z := 0
	for i, other := range s.manager.Windows() {
		if other == w {
			z = i
		}
	}
	ws := &WindowState{
		ID:        w.ID(),
		URL:       w.URL(),
		X:         r.X,
		Y:         r.Y,
		Width:     r.Width,
		Height:    r.Height,
		Z:         z,
		Pinned:    w.Pinned,
		Following: w.Following,
		Hovered:   w.PointerInside,
		Dragging:  s.manager.Interacting(w.ID()),
		Status:    w.Content.State.String(),
	}
	if err := w.Content.Err; err != nil {
		ws.Refused = errors.Is(err, fetch.ErrEmbedRefused)
		ws.Error = err.Error()
	}
	return ws
}

// Opened implements preview.Host.
func (s *session) Opened(w *preview.Instance) {
	_ = s.send(Outgoing{Type: TypeWindowOpen, Window: s.windowState(w)})
}

// Updated implements preview.Host.
func (s *session) Updated(w *preview.Instance) {
	_ = s.send(Outgoing{Type: TypeWindowUpdate, Window: s.windowState(w)})
}

// Closed implements preview.Host.
func (s *session) Closed(w *preview.Instance) {
	_ = s.send(Outgoing{Type: TypeWindowClose, WindowID: w.ID()})
}

// OpenExternal implements preview.Host.
func (s *session) OpenExternal(u string) {
	_ = s.send(Outgoing{Type: TypeOpenTab, URL: u})
}

// Load implements preview.Host. The script frames the page itself; the
// bridge only finds out whether the page allows that.
func (s *session) Load(w *preview.Instance, gen uint64) func() {
	ctx, cancel := context.WithCancel(s.ctx)
	id, u := w.ID(), w.URL()
	go func() {
		err := s.srv.fetcher.CheckFraming(ctx, u)
		s.post(func() { s.manager.Loaded(id, gen, preview.Content{Err: err}) })
	}()
	return cancel
}

// Capture implements interaction.PointerCapturer.
func (s *session) Capture(windowID string, pointerID int) error {
	return s.send(Outgoing{Type: TypeCapture, WindowID: windowID, PointerID: pointerID})
}

// Release implements interaction.PointerCapturer.
func (s *session) Release(windowID string, pointerID int) {
	_ = s.send(Outgoing{Type: TypeRelease, WindowID: windowID, PointerID: pointerID})
}

type loopTimer struct {
	t        *time.Timer
	finished bool
}

func (lt *loopTimer) Stop() bool {
	if lt.finished {
		return false
	}
	lt.finished = true
	lt.t.Stop()
	return true
}

// AfterFunc implements trigger.Scheduler. f runs on the loop; a timer
// stopped after it expired but before f ran stays silent.
func (s *session) AfterFunc(d time.Duration, f func()) trigger.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		s.post(func() {
			if lt.finished {
				return
			}
			lt.finished = true
			f()
		})
	})
	return lt
}
