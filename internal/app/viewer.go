// Package app is the terminal host: a bubbletea model that shows a web page
// as text, feeds the pointer and keyboard into the trigger engine and draws
// the preview windows on top.
package app

import (
	"context"
	"errors"
	"slices"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/page"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/Gaurav-Gosain/linkpeek/internal/theme"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"github.com/charmbracelet/colorprofile"
	"github.com/google/uuid"
)

// Opener shows a URL outside the terminal.
type Opener interface {
	Open(url string) error
}

// ErrNoBrowser is returned by an Opener that has no browser to hand URLs
// to, such as one serving a remote session. The viewer copies the URL to the
// terminal's clipboard instead.
var ErrNoBrowser = errors.New("no browser on this host")

// Options configures New.
type Options struct {
	// Source is the page to show first: an http(s) URL or a file path.
	Source   string
	Provider *config.Provider
	Store    store.Store
	Fetcher  *fetch.Client
	Opener   Opener
	Logger   logging.Logger
	Profile  colorprofile.Profile
}

// Notification is a transient message in the top right corner.
type Notification struct {
	ID      string
	Message string
	Type    string // info, success, warning, error
	Until   time.Time
}

// Press is a mouse button held down since Start.
type Press struct {
	X, Y   int
	Button int
	// Target is the page element under the press; nil when the press
	// landed on a window.
	Target *trigger.Element
	Pos    page.Pos
	// Window and Hit are set when the press landed on a preview window.
	Window string
	Hit    Hit
	// Dragging is set once dragstart went out.
	Dragging bool
	// Selecting is set while the press extends the text selection.
	Selecting bool
	// InSelection is set when the press started inside the selection.
	InSelection bool
	Suppressed  bool
}

// PointerState is what the input layer remembers between mouse messages.
type PointerState struct {
	X, Y  int
	Known bool
	// Hovered is the page link under the pointer.
	Hovered *trigger.Element
	// HoverWindow is the preview window under the pointer.
	HoverWindow string
	Press       *Press
	Mods        trigger.Mods
}

// Selection is a range of page cells, in either order.
type Selection struct {
	From, To page.Pos
}

// Contains reports whether p is inside the selection.
func (s Selection) Contains(p page.Pos) bool {
	a, b := s.From, s.To
	if b.Before(a) {
		a, b = b, a
	}
	return !p.Before(a) && !b.Before(p)
}

// Viewer is the root model.
type Viewer struct {
	Width  int
	Height int

	Source  string
	PageURL string
	Doc     *page.Document
	Layout  *page.Layout
	Scroll  int
	History []string
	Loading bool
	LoadErr error

	Settings       config.Settings
	Keys           *config.KeybindRegistry
	Palette        theme.Palette
	DarkBackground bool
	Profile        colorprofile.Profile

	Engine  *trigger.Engine
	Manager *preview.Manager
	Frames  *interaction.FrameQueue
	Timers  *Timers
	Views   map[string]*WindowView

	Pointer       PointerState
	Selection     *Selection
	ShowHelp      bool
	Notifications []Notification
	Quitting      bool

	provider  *config.Provider
	fetcher   *fetch.Client
	opener    Opener
	log       logging.Logger
	settings  chan config.Settings
	unsub     func()
	cancelCtx context.CancelFunc
	ctx       context.Context

	cancelPage     context.CancelFunc
	pageGen        uint64
	frameScheduled bool
	cmds           []tea.Cmd
}

// New builds the model. Nothing is fetched until Init.
func New(opts Options) *Viewer {
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.Provider == nil {
		opts.Provider = config.NewStaticProvider(config.DefaultSettings())
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.WithLogger(opts.Logger))
	}
	ctx, cancel := context.WithCancel(context.Background())
	v := &Viewer{
		Source:    opts.Source,
		Settings:  opts.Provider.Snapshot(),
		Profile:   opts.Profile,
		Frames:    interaction.NewFrameQueue(),
		Timers:    NewTimers(),
		Views:     make(map[string]*WindowView),
		provider:  opts.Provider,
		fetcher:   opts.Fetcher,
		opener:    opts.Opener,
		log:       opts.Logger,
		settings:  make(chan config.Settings, 1),
		ctx:       ctx,
		cancelCtx: cancel,
		// Assume a dark terminal until it answers.
		DarkBackground: true,
	}
	v.Keys = config.NewKeybindRegistry(opts.Provider.Config().Keybindings)
	v.Palette = theme.Resolve(v.Settings.Theme, v.Settings.Palette, v.DarkBackground)
	v.Manager = preview.NewManager(v, opts.Store, v.Frames, v.Settings,
		preview.WithLogger(v.log.With("component", "preview")),
		preview.WithMetrics(preview.CellMetrics),
	)
	v.Engine = v.newEngine("")
	v.unsub = opts.Provider.Subscribe(func(s config.Settings) {
		// Drop an unread snapshot; the newest one wins.
		select {
		case <-v.settings:
		default:
		}
		select {
		case v.settings <- s:
		default:
		}
	})
	return v
}

func (v *Viewer) newEngine(pageURL string) *trigger.Engine {
	return trigger.New(v.Settings, pageURL, v.Timers, v.handleCommand,
		trigger.WithLogger(v.log.With("component", "trigger")))
}

// PageHeight is the number of rows the page gets; the last row is the
// status bar.
func (v *Viewer) PageHeight() int {
	return max(v.Height-1, 0)
}

// SetSize resizes the page area and re-wraps the document.
func (v *Viewer) SetSize(w, h int) {
	v.Width, v.Height = w, h
	v.relayout()
	v.Manager.SetViewport(geometry.Size{Width: float64(w), Height: float64(v.PageHeight())})
}

func (v *Viewer) relayout() {
	if v.Doc == nil || v.Width <= 0 {
		v.Layout = nil
		return
	}
	v.Layout = v.Doc.Layout(v.Width)
	v.ScrollBy(0)
}

// SetDocument shows doc as the current page. The previous page's engine is
// torn down with its pending timers and its previews.
func (v *Viewer) SetDocument(doc *page.Document) {
	v.Doc = doc
	v.PageURL = doc.URL
	v.Scroll = 0
	v.Selection = nil
	v.Pointer.Hovered = nil
	v.Pointer.Press = nil
	v.Engine.Close()
	v.Manager.CloseAll()
	v.Engine = v.newEngine(doc.URL)
	v.relayout()
}

// ScrollBy moves the page by delta lines, clamped to the document.
func (v *Viewer) ScrollBy(delta int) {
	if v.Layout == nil {
		v.Scroll = 0
		return
	}
	maxScroll := max(len(v.Layout.Lines)-v.PageHeight(), 0)
	v.Scroll = min(max(v.Scroll+delta, 0), maxScroll)
}

// PagePos converts a screen cell into a layout position.
func (v *Viewer) PagePos(x, y int) page.Pos {
	return page.Pos{Line: y + v.Scroll, Col: x}
}

// ElementAt returns the page element under the screen cell.
func (v *Viewer) ElementAt(x, y int) *trigger.Element {
	if v.Layout == nil {
		if v.Doc != nil {
			return v.Doc.Root
		}
		return nil
	}
	if y >= v.PageHeight() {
		return v.Doc.Root
	}
	return v.Layout.ElementAt(v.PagePos(x, y))
}

// SelectedText returns the selected page text, or "".
func (v *Viewer) SelectedText() string {
	if v.Selection == nil || v.Layout == nil {
		return ""
	}
	return v.Layout.Text(v.Selection.From, v.Selection.To)
}

// WindowAt returns the topmost window drawn over the cell.
func (v *Viewer) WindowAt(x, y int) (*preview.Instance, Hit) {
	ws := v.Manager.Windows()
	for i := len(ws) - 1; i >= 0; i-- {
		if h := HitTest(Cells(ws[i].Visual()), x, y); h != HitNone {
			return ws[i], h
		}
	}
	return nil, HitNone
}

// Focused returns the window keyboard actions apply to: the one under the
// pointer, else the topmost.
func (v *Viewer) Focused() *preview.Instance {
	if w, ok := v.Manager.Get(v.Pointer.HoverWindow); ok {
		return w
	}
	ws := v.Manager.Windows()
	if len(ws) == 0 {
		return nil
	}
	return ws[len(ws)-1]
}

// Queue adds a command to the batch returned from the current Update.
func (v *Viewer) Queue(cmd tea.Cmd) {
	if cmd != nil {
		v.cmds = append(v.cmds, cmd)
	}
}

// ShowNotification displays message for d.
func (v *Viewer) ShowNotification(message, kind string, d time.Duration) {
	n := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Type:    kind,
		Until:   time.Now().Add(d),
	}
	v.Notifications = append(v.Notifications, n)
	if len(v.Notifications) > maxNotifications {
		v.Notifications = v.Notifications[len(v.Notifications)-maxNotifications:]
	}
	switch kind {
	case "error":
		v.log.Error(message)
	case "warning":
		v.log.Warn(message)
	default:
		v.log.Info(message)
	}
	id := n.ID
	v.Queue(tea.Tick(d, func(time.Time) tea.Msg { return notificationExpiredMsg{id: id} }))
}

const maxNotifications = 4

func (v *Viewer) dismiss(id string) {
	v.Notifications = slices.DeleteFunc(v.Notifications, func(n Notification) bool { return n.ID == id })
}

// ApplySettings switches every component to s.
func (v *Viewer) ApplySettings(s config.Settings) {
	if s.Equal(v.Settings) {
		return
	}
	disabling := s.TriggerMode == config.TriggerDisabled && v.Settings.TriggerMode != config.TriggerDisabled
	v.Settings = s
	v.Engine.Configure(s)
	v.Manager.Configure(s)
	if disabling {
		v.Manager.CloseAll()
	}
	v.Palette = theme.Resolve(s.Theme, s.Palette, v.DarkBackground)
	v.log.Info("settings applied", "trigger", s.TriggerMode, "theme", s.Theme)
}

// UpdateSettings applies s and publishes it to the provider's other
// subscribers. The config file is left alone.
func (v *Viewer) UpdateSettings(s config.Settings) {
	v.ApplySettings(s)
	v.provider.Update(s)
}

// CycleTrigger switches to the next trigger mode.
func (v *Viewer) CycleTrigger() {
	s := v.Settings
	i := slices.Index(config.TriggerModes, s.TriggerMode)
	s.TriggerMode = config.TriggerModes[(i+1)%len(config.TriggerModes)]
	v.UpdateSettings(s)
	v.ShowNotification("Trigger: "+string(s.TriggerMode), "info", 2*time.Second)
}

// ToggleTheme flips between light and dark.
func (v *Viewer) ToggleTheme() {
	s := v.Settings
	if v.Palette.Dark {
		s.Theme = config.ThemeLight
	} else {
		s.Theme = config.ThemeDark
	}
	// An explicit mode replaces a named palette.
	s.Palette = ""
	v.UpdateSettings(s)
}

// Cleanup releases the engine, pending loads and the settings watcher.
func (v *Viewer) Cleanup() {
	v.Engine.Close()
	v.Manager.CloseAll()
	if v.cancelPage != nil {
		v.cancelPage()
	}
	if v.unsub != nil {
		v.unsub()
	}
	v.cancelCtx()
}
