package preview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loadCall struct {
	id  string
	gen uint64
}

type recordingHost struct {
	opened   []string
	closed   []string
	updates  int
	external []string
	loads    []loadCall
	canceled int

	onClosed func(w *Instance)
}

func (h *recordingHost) Opened(w *Instance) { h.opened = append(h.opened, w.URL()) }
func (h *recordingHost) Updated(*Instance)  { h.updates++ }
func (h *recordingHost) Closed(w *Instance) {
	h.closed = append(h.closed, w.URL())
	if h.onClosed != nil {
		h.onClosed(w)
	}
}
func (h *recordingHost) OpenExternal(url string) { h.external = append(h.external, url) }
func (h *recordingHost) Load(w *Instance, gen uint64) func() {
	h.loads = append(h.loads, loadCall{w.ID(), gen})
	return func() { h.canceled++ }
}

type failingStore struct{}

func (failingStore) Get(string) ([]byte, error) { return nil, errors.New("unavailable") }
func (failingStore) Set(string, []byte) error   { return errors.New("unavailable") }

var viewport = geometry.Size{Width: 1280, Height: 800}

type fixture struct {
	host   *recordingHost
	store  *store.Memory
	frames *interaction.FrameQueue
	m      *Manager
}

func newFixture(t *testing.T, mutate func(*config.Settings)) *fixture {
	t.Helper()
	s := config.DefaultSettings()
	s.PopupPosition = geometry.PlaceCenter
	s.PopupSize = config.SizeMedium
	if mutate != nil {
		mutate(&s)
	}
	f := &fixture{
		host:   &recordingHost{},
		store:  store.NewMemory(),
		frames: interaction.NewFrameQueue(),
	}
	f.m = NewManager(f.host, f.store, f.frames, s)
	f.m.SetViewport(viewport)
	return f
}

func (f *fixture) urls() []string {
	var out []string
	for _, w := range f.m.Windows() {
		out = append(out, w.URL())
	}
	return out
}

func TestOptionsFrom(t *testing.T) {
	s := config.DefaultSettings()
	s.MaxWindows = 42
	s.BackgroundOpacity = 30
	s.PopupPosition = "nowhere"
	s.PopupSize = "huge"
	o := OptionsFrom(s)
	assert.Equal(t, config.MaxMaxWindows, o.MaxWindows)
	assert.InDelta(t, 0.7, o.Dim, 1e-9)
	assert.Equal(t, geometry.PlaceCenter, o.Placement)
	assert.Equal(t, config.SizeMedium, o.Size)

	s.MaxWindows = 0
	s.BackgroundOpacity = 140
	o = OptionsFrom(s)
	assert.Equal(t, config.MinMaxWindows, o.MaxWindows)
	assert.Zero(t, o.Dim)
}

func TestCreatePlacesWindow(t *testing.T) {
	tests := []struct {
		name      string
		size      config.SizeClass
		placement geometry.Placement
		anchor    geometry.Point
		want      geometry.Rect
	}{
		{
			name: "medium centered", size: config.SizeMedium, placement: geometry.PlaceCenter,
			want: geometry.Rect{X: 265.6, Y: 169.6, Width: 748.8, Height: 460.8},
		},
		{
			name: "small left", size: config.SizeSmall, placement: geometry.PlaceLeft,
			want: geometry.Rect{X: 16, Y: 246.4, Width: 499.2, Height: 307.2},
		},
		{
			name: "large bottom right", size: config.SizeLarge, placement: geometry.PlaceBottomRight,
			want: geometry.Rect{X: 1280 - 16 - 998.4, Y: 800 - 16 - 614.4, Width: 998.4, Height: 614.4},
		},
		{
			name: "follow flips near the edge", size: config.SizeSmall, placement: geometry.PlaceFollow,
			anchor: geometry.Point{X: 1000, Y: 100},
			want:   geometry.Rect{X: 1000 - 20 - 499.2, Y: 120, Width: 499.2, Height: 307.2},
		},
		{
			name: "last without memory centers", size: config.SizeLast, placement: geometry.PlaceLast,
			want: geometry.Rect{X: 265.6, Y: 169.6, Width: 748.8, Height: 460.8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(s *config.Settings) {
				s.PopupSize = tt.size
				s.PopupPosition = tt.placement
			})
			id := f.m.Create("https://example.com", tt.anchor)
			w, ok := f.m.Get(id)
			require.True(t, ok)
			got := w.Geometry()
			assert.InDelta(t, tt.want.X, got.X, 1e-6)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-6)
			assert.InDelta(t, tt.want.Width, got.Width, 1e-6)
			assert.InDelta(t, tt.want.Height, got.Height, 1e-6)
			assert.Equal(t, got, w.Visual())
		})
	}
}

func TestCreateStartsLoad(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	assert.Equal(t, Loading, w.Content.State)
	require.Len(t, f.host.loads, 1)
	assert.Equal(t, loadCall{id, 1}, f.host.loads[0])

	f.m.Loaded(id, 1, Content{Title: "Example", Body: "hello"})
	assert.Equal(t, Ready, w.Content.State)
	assert.Equal(t, "Example", w.Content.Title)
}

func TestEvictionScenario(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.MaxWindows = 2 })
	f.m.Create("https://a.example", geometry.Point{})
	f.m.Create("https://b.example", geometry.Point{})
	f.m.Create("https://c.example", geometry.Point{})

	assert.Equal(t, []string{"https://b.example", "https://c.example"}, f.urls())
	assert.Equal(t, []string{"https://a.example"}, f.host.closed)

	size, err := store.LastSize(f.store)
	require.NoError(t, err)
	assert.InDelta(t, 748.8, size.Width, 1e-6)
}

func TestCapacityInvariant(t *testing.T) {
	for limit := config.MinMaxWindows; limit <= config.MaxMaxWindows; limit++ {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			f := newFixture(t, func(s *config.Settings) { s.MaxWindows = limit })
			var created []string
			for i := range 15 {
				url := fmt.Sprintf("https://%d.example", i)
				f.m.Create(url, geometry.Point{})
				created = append(created, url)

				require.LessOrEqual(t, f.m.Len(), limit)
				want := created[max(len(created)-limit, 0):]
				assert.ElementsMatch(t, want, f.urls())
			}
		})
	}
}

func TestEvictionIgnoresStackingOrder(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.MaxWindows = 2 })
	a := f.m.Create("https://a.example", geometry.Point{})
	f.m.Create("https://b.example", geometry.Point{})
	f.m.Raise(a)
	f.m.Create("https://c.example", geometry.Point{})
	assert.Equal(t, []string{"https://a.example"}, f.host.closed)
}

func TestLoweredCapAppliesOnNextCreate(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.MaxWindows = 4 })
	for i := range 4 {
		f.m.Create(fmt.Sprintf("https://%d.example", i), geometry.Point{})
	}
	s := config.DefaultSettings()
	s.MaxWindows = 2
	f.m.Configure(s)
	assert.Equal(t, 4, f.m.Len(), "configure never closes windows")

	f.m.Create("https://new.example", geometry.Point{})
	assert.Equal(t, 2, f.m.Len())
	assert.Equal(t, []string{"https://3.example", "https://new.example"}, f.urls())
}

func TestCreateFromCloseCallback(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.MaxWindows = 2 })
	nested := false
	f.host.onClosed = func(w *Instance) {
		if !nested {
			nested = true
			f.m.Create("https://d.example", geometry.Point{})
		}
	}
	f.m.Create("https://a.example", geometry.Point{})
	f.m.Create("https://b.example", geometry.Point{})
	f.m.Create("https://c.example", geometry.Point{})

	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"}, f.host.opened)
	assert.Equal(t, []string{"https://c.example", "https://d.example"}, f.urls())
	assert.Equal(t, 2, f.m.Len())
}

func TestRoundTripPersistence(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.PopupSize = config.SizeLast })
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	start := w.Geometry()

	corner := geometry.Point{X: start.Right(), Y: start.Bottom()}
	require.True(t, f.m.BeginInteraction(id, interaction.ResizeCornerRight, interaction.PointerEvent{PointerID: 1, Point: corner}))
	f.m.PointerMove(interaction.PointerEvent{PointerID: 1, Point: geometry.Point{X: corner.X - 100, Y: corner.Y - 10}})
	f.frames.RunFrame()
	end := geometry.Point{X: corner.X + (500 - start.Width), Y: corner.Y + (400 - start.Height)}
	f.m.PointerUp(interaction.PointerEvent{PointerID: 1, Point: end})

	assert.InDelta(t, 500, w.Geometry().Width, 1e-6)
	assert.InDelta(t, 400, w.Geometry().Height, 1e-6)
	f.m.Close(id)

	id = f.m.Create("https://example.org", geometry.Point{})
	w, _ = f.m.Get(id)
	assert.InDelta(t, 500, w.Geometry().Width, 1e-6)
	assert.InDelta(t, 400, w.Geometry().Height, 1e-6)

	f.m.CloseAll()
	f.m.SetViewport(geometry.Size{Width: 400, Height: 300})
	id = f.m.Create("https://example.net", geometry.Point{})
	w, _ = f.m.Get(id)
	assert.Equal(t, geometry.Rect{X: 16, Y: 16, Width: 368, Height: 268}, w.Geometry())
}

func TestLastPositionRemembered(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.PopupPosition = geometry.PlaceLast })
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	start := w.Geometry()

	grab := geometry.Point{X: start.X + 5, Y: start.Y + 1}
	f.m.BeginInteraction(id, interaction.Move, interaction.PointerEvent{Point: grab})
	f.m.PointerUp(interaction.PointerEvent{Point: geometry.Point{X: grab.X - 200, Y: grab.Y - 100}})
	f.m.Close(id)

	id = f.m.Create("https://example.org", geometry.Point{})
	w, _ = f.m.Get(id)
	assert.InDelta(t, start.X-200, w.Geometry().X, 1e-6)
	assert.InDelta(t, start.Y-100, w.Geometry().Y, 1e-6)
}

func TestInteractionIsTwoTier(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	start := w.Geometry()
	grab := geometry.Point{X: start.X + 10, Y: start.Y + 2}

	f.m.BeginInteraction(id, interaction.Move, interaction.PointerEvent{Point: grab})
	assert.True(t, f.m.Interacting(id))
	f.m.PointerMove(interaction.PointerEvent{Point: geometry.Point{X: grab.X + 5, Y: grab.Y}})
	f.m.PointerMove(interaction.PointerEvent{Point: geometry.Point{X: grab.X + 30, Y: grab.Y + 4}})
	assert.Equal(t, start, w.Visual(), "nothing moves before the frame")

	f.frames.RunFrame()
	assert.InDelta(t, start.X+30, w.Visual().X, 1e-6)
	assert.Equal(t, start, w.Geometry(), "authoritative geometry waits for the commit")
	_, err := store.LastSize(f.store)
	assert.ErrorIs(t, err, store.ErrNotFound)

	f.m.PointerUp(interaction.PointerEvent{Point: geometry.Point{X: grab.X + 30, Y: grab.Y + 4}})
	assert.False(t, f.m.Interacting(id))
	assert.Equal(t, w.Visual(), w.Geometry())
	pos, err := store.LastPosition(f.store)
	require.NoError(t, err)
	assert.InDelta(t, start.X+30, pos.X, 1e-6)
}

func TestPointerCancelKeepsAppliedGeometry(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	start := w.Geometry()

	f.m.BeginInteraction(id, interaction.ResizeEdgeRight, interaction.PointerEvent{Point: geometry.Point{X: start.Right(), Y: start.Y + 5}})
	f.m.PointerMove(interaction.PointerEvent{Point: geometry.Point{X: start.Right() + 40, Y: start.Y + 5}})
	f.frames.RunFrame()
	f.m.PointerMove(interaction.PointerEvent{Point: geometry.Point{X: start.Right() + 90, Y: start.Y + 5}})
	f.m.PointerCancel(id)

	assert.InDelta(t, start.Width+40, w.Geometry().Width, 1e-6)
}

func TestCloseSkipsDegenerateGeometry(t *testing.T) {
	f := newFixture(t, nil)
	f.m.SetViewport(geometry.Size{})
	id := f.m.Create("https://example.com", geometry.Point{})
	f.m.Close(id)
	_, err := store.LastSize(f.store)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, f.host.canceled, "in-flight load is aborted on close")
}

func TestStoreFailureDoesNotBlock(t *testing.T) {
	host := &recordingHost{}
	s := config.DefaultSettings()
	s.PopupSize = config.SizeLast
	s.PopupPosition = geometry.PlaceLast
	m := NewManager(host, failingStore{}, interaction.NewFrameQueue(), s)
	m.SetViewport(viewport)

	id := m.Create("https://example.com", geometry.Point{})
	_, ok := m.Get(id)
	assert.True(t, ok)
	m.Close(id)
	assert.Zero(t, m.Len())
}

func TestEscape(t *testing.T) {
	f := newFixture(t, nil)
	a := f.m.Create("https://a.example", geometry.Point{})
	b := f.m.Create("https://b.example", geometry.Point{})

	assert.False(t, f.m.Escape(), "pointer over no window")

	f.m.PointerEnter(b)
	f.m.TogglePin(b)
	assert.False(t, f.m.Escape(), "pinned window stays")

	f.m.TogglePin(b)
	assert.True(t, f.m.Escape())
	assert.Equal(t, []string{"https://a.example"}, f.urls())

	f.m.PointerEnter(a)
	f.m.PointerLeave(a)
	assert.False(t, f.m.Escape())
}

func TestClickOutside(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.PopupSize = config.SizeSmall
		s.PopupPosition = geometry.PlaceTopLeft
	})
	left := f.m.Create("https://left.example", geometry.Point{})
	s := config.DefaultSettings()
	s.PopupSize = config.SizeSmall
	s.PopupPosition = geometry.PlaceBottomRight
	f.m.Configure(s)
	right := f.m.Create("https://right.example", geometry.Point{})
	pinned := f.m.Create("https://pinned.example", geometry.Point{})
	f.m.TogglePin(pinned)

	lw, _ := f.m.Get(left)
	inside := geometry.Point{X: lw.Geometry().X + 1, Y: lw.Geometry().Y + 1}
	assert.Equal(t, 1, f.m.ClickOutside(inside))
	_, ok := f.m.Get(right)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"https://left.example", "https://pinned.example"}, f.urls())
}

func TestFollowCursor(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.PopupPosition = geometry.PlaceFollow
		s.PopupSize = config.SizeSmall
	})
	id := f.m.Create("https://example.com", geometry.Point{X: 100, Y: 100})
	w, _ := f.m.Get(id)
	assert.True(t, w.Following)

	f.m.PointerMoved(geometry.Point{X: 110, Y: 120})
	f.m.PointerMoved(geometry.Point{X: 130, Y: 140})
	assert.InDelta(t, 120, w.Geometry().X, 1e-6)
	assert.Equal(t, 1, f.frames.RunFrame(), "moves coalesce into one frame")
	assert.InDelta(t, 150, w.Geometry().X, 1e-6)
	assert.InDelta(t, 160, w.Geometry().Y, 1e-6)

	f.m.TogglePin(id)
	assert.False(t, w.Following)
	f.m.PointerMoved(geometry.Point{X: 200, Y: 200})
	f.frames.RunFrame()
	assert.InDelta(t, 150, w.Geometry().X, 1e-6)

	f.m.TogglePin(id)
	assert.True(t, w.Following)

	start := w.Geometry()
	f.m.BeginInteraction(id, interaction.Move, interaction.PointerEvent{Point: start.Origin()})
	f.m.PointerUp(interaction.PointerEvent{Point: start.Origin()})
	assert.False(t, w.Following, "dragging stops following")
}

func TestRefreshDropsStaleLoad(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com", geometry.Point{})
	f.m.Refresh(id)
	assert.Equal(t, 1, f.host.canceled)
	require.Len(t, f.host.loads, 2)
	assert.Equal(t, uint64(2), f.host.loads[1].gen)

	w, _ := f.m.Get(id)
	f.m.Loaded(id, 1, Content{Title: "old"})
	assert.Equal(t, Loading, w.Content.State)

	f.m.Loaded(id, 2, Content{Err: errors.New("refused")})
	assert.Equal(t, Failed, w.Content.State)
	assert.Len(t, f.m.Windows(), 1, "load failure keeps the window")

	f.m.Loaded("missing", 1, Content{})
}

func TestOpenInNewTab(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com/page", geometry.Point{})
	f.m.OpenInNewTab(id)
	f.m.OpenInNewTab("missing")
	assert.Equal(t, []string{"https://example.com/page"}, f.host.external)
	assert.Equal(t, 1, f.m.Len())
}

func TestConfigureKeepsWindows(t *testing.T) {
	f := newFixture(t, nil)
	id := f.m.Create("https://example.com", geometry.Point{})
	w, _ := f.m.Get(id)
	before := w.Geometry()
	updates := f.host.updates

	s := config.DefaultSettings()
	s.Theme = config.ThemeLight
	s.BackgroundOpacity = 10
	s.PopupPosition = geometry.PlaceLeft
	f.m.Configure(s)

	assert.Equal(t, before, w.Geometry())
	assert.Greater(t, f.host.updates, updates)
	assert.InDelta(t, 0.9, f.m.Options().Dim, 1e-9)
}

func TestSetViewportClampsWindows(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.PopupPosition = geometry.PlaceBottomRight })
	id := f.m.Create("https://example.com", geometry.Point{})
	f.m.SetViewport(geometry.Size{Width: 640, Height: 480})
	w, _ := f.m.Get(id)
	r := w.Geometry()
	assert.LessOrEqual(t, r.Right(), 640-16+geometry.Epsilon)
	assert.LessOrEqual(t, r.Bottom(), 480-16+geometry.Epsilon)
	assert.GreaterOrEqual(t, r.X, 16.0)
}

func TestTopAndHovered(t *testing.T) {
	f := newFixture(t, nil)
	a := f.m.Create("https://a.example", geometry.Point{})
	b := f.m.Create("https://b.example", geometry.Point{})
	center := geometry.Point{X: 640, Y: 400}

	top, ok := f.m.Top(center)
	require.True(t, ok)
	assert.Equal(t, b, top.ID())

	f.m.Raise(a)
	top, _ = f.m.Top(center)
	assert.Equal(t, a, top.ID())

	_, ok = f.m.Top(geometry.Point{X: 1, Y: 1})
	assert.False(t, ok)

	assert.False(t, f.m.Hovered())
	f.m.PointerEnter(a)
	assert.True(t, f.m.Hovered())
}
