package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/page"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewerPage = `<html><head><title>Viewer Test</title></head><body>` +
	`<p><a href="https://docs.test/a">alpha</a> plain words here</p></body></html>`

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(u string) error {
	o.urls = append(o.urls, u)
	return o.err
}

func newViewer(t *testing.T, opts Options) *Viewer {
	t.Helper()
	if opts.Provider == nil {
		s := config.DefaultSettings()
		s.PopupPosition = geometry.PlaceCenter
		s.PopupSize = config.SizeMedium
		opts.Provider = config.NewStaticProvider(s)
	}
	v := New(opts)
	v.SetSize(80, 24)
	doc, err := page.Parse(strings.NewReader(viewerPage), "https://site.test/")
	require.NoError(t, err)
	v.SetDocument(doc)
	t.Cleanup(v.Cleanup)
	return v
}

func TestNewDefaults(t *testing.T) {
	v := New(Options{})
	defer v.Cleanup()
	assert.True(t, v.DarkBackground)
	assert.True(t, v.Palette.Dark)
	assert.Equal(t, preview.CellMetrics, v.Manager.Metrics())
	assert.NotNil(t, v.Engine)
}

func TestSetDocumentReplacesEngine(t *testing.T) {
	v := newViewer(t, Options{})
	old := v.Engine
	doc := page.FromText("notes", "hello", "file:///tmp/notes.txt")
	v.SetDocument(doc)

	assert.NotSame(t, old, v.Engine)
	assert.True(t, old.State().Inert, "the previous page's engine is closed")
	assert.Equal(t, "file:///tmp/notes.txt", v.PageURL)
	assert.Zero(t, v.Scroll)
}

func TestSetDocumentClosesPreviews(t *testing.T) {
	v := newViewer(t, Options{})
	v.Manager.Create("https://docs.test/a", geometry.Point{X: 10, Y: 3})
	v.Manager.Create("https://docs.test/b", geometry.Point{X: 20, Y: 5})
	require.Equal(t, 2, v.Manager.Len())

	v.SetDocument(page.FromText("notes", "hello", "file:///tmp/notes.txt"))
	assert.Zero(t, v.Manager.Len())
	assert.Empty(t, v.Views)
}

func TestCommandsOpenWindowsOrTabs(t *testing.T) {
	opener := &recordingOpener{}
	v := newViewer(t, Options{Opener: opener})

	v.handleCommand(trigger.Command{Kind: trigger.OpenPreview, URL: "https://docs.test/a", Anchor: geometry.Point{X: 5, Y: 1}})
	require.Equal(t, 1, v.Manager.Len())
	w := v.Manager.Windows()[0]
	assert.Contains(t, v.Views, w.ID())

	v.handleCommand(trigger.Command{Kind: trigger.OpenTab, URL: "https://www.youtube.com/watch"})
	assert.Equal(t, []string{"https://www.youtube.com/watch"}, opener.urls)
	assert.Equal(t, 1, v.Manager.Len())

	v.Manager.Close(w.ID())
	assert.Empty(t, v.Views)
}

func TestOpenExternalFailureNotifies(t *testing.T) {
	v := newViewer(t, Options{Opener: &recordingOpener{err: errors.New("no browser")}})
	v.OpenExternal("https://docs.test/a")
	require.Len(t, v.Notifications, 1)
	assert.Equal(t, "error", v.Notifications[0].Type)
	assert.Contains(t, v.Notifications[0].Message, "no browser")
}

func TestOpenExternalWithoutBrowserCopiesLink(t *testing.T) {
	opener := &recordingOpener{err: ErrNoBrowser}
	v := newViewer(t, Options{Opener: opener})
	v.cmds = nil

	v.OpenExternal("https://docs.test/a")
	assert.Equal(t, []string{"https://docs.test/a"}, opener.urls)
	require.Len(t, v.Notifications, 1)
	assert.Equal(t, "info", v.Notifications[0].Type)
	assert.Contains(t, v.Notifications[0].Message, "Copied link")
	require.NotEmpty(t, v.cmds)
	assert.Equal(t, "https://docs.test/a", fmt.Sprint(v.cmds[0]()))
}

func TestPreviewLoadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body><article>` +
			`<h1>Docs</h1><p>The quick brown fox jumps over the lazy dog. This paragraph is long enough ` +
			`to count as the readable part of the page for the extractor to keep it.</p>` +
			`<p>A second paragraph adds more sentences so the article is not mistaken for boilerplate.</p>` +
			`</article></body></html>`))
	}))
	defer srv.Close()

	v := newViewer(t, Options{Fetcher: fetch.New(fetch.WithHTTPClient(srv.Client()))})
	v.cmds = nil
	id := v.Manager.Create(srv.URL, geometry.Point{X: 10, Y: 3})
	require.Len(t, v.cmds, 1)

	msg := v.cmds[0]()
	loaded, ok := msg.(PreviewLoadedMsg)
	require.True(t, ok)
	assert.Equal(t, id, loaded.ID)

	v.Update(loaded)
	w, ok := v.Manager.Get(id)
	require.True(t, ok)
	assert.Equal(t, preview.Ready, w.Content.State)
	assert.Contains(t, w.Content.Body, "quick brown fox")
}

func TestPreviewLoadCancelledOnClose(t *testing.T) {
	v := newViewer(t, Options{})
	v.cmds = nil
	id := v.Manager.Create("https://docs.test/a", geometry.Point{})
	require.Len(t, v.cmds, 1)
	v.Manager.Close(id)

	msg := v.cmds[0]().(PreviewLoadedMsg)
	assert.ErrorIs(t, msg.Content.Err, context.Canceled)
	v.Update(msg)
	assert.Zero(t, v.Manager.Len())
}

func TestStalePageLoadIsDropped(t *testing.T) {
	v := newViewer(t, Options{})
	v.Navigate("one.html", false)
	v.Navigate("two.html", true)
	assert.Equal(t, []string{"one.html"}, v.History)

	v.Update(PageLoadedMsg{Gen: v.pageGen - 1, Source: "one.html", Doc: page.FromText("one", "one", "")})
	assert.True(t, v.Loading)

	v.Update(PageLoadedMsg{Gen: v.pageGen, Source: "two.html", Doc: page.FromText("two", "two body", "")})
	assert.False(t, v.Loading)
	assert.Equal(t, "two", v.Doc.Title)

	assert.True(t, v.Back())
	assert.Equal(t, "one.html", v.Source)
	assert.False(t, v.Back())
}

func TestPageLoadError(t *testing.T) {
	v := newViewer(t, Options{})
	v.Navigate("https://site.test/missing", true)
	v.Update(PageLoadedMsg{Gen: v.pageGen, Source: "https://site.test/missing",
		Err: &fetch.StatusError{URL: "https://site.test/missing", Code: 404}})

	assert.False(t, v.Loading)
	require.Error(t, v.LoadErr)
	require.NotEmpty(t, v.Notifications)
	assert.Contains(t, v.Notifications[len(v.Notifications)-1].Message, "HTTP 404")
}

func TestLoadDocumentFromFile(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.html")
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(htmlPath, []byte(viewerPage), 0o600))
	require.NoError(t, os.WriteFile(txtPath, []byte("just text"), 0o600))

	tests := []struct {
		name      string
		source    string
		wantTitle string
	}{
		{"html", htmlPath, "Viewer Test"},
		{"file url", "file://" + htmlPath, "Viewer Test"},
		{"text", txtPath, "notes.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := loadDocument(context.Background(), fetch.New(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, doc.Title)
			assert.True(t, strings.HasPrefix(doc.URL, "file://"))
		})
	}

	_, err := loadDocument(context.Background(), fetch.New(), filepath.Join(dir, "absent.html"))
	assert.Error(t, err)
}

func TestDescribeLoadError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&fetch.StatusError{Code: 500}, "answered HTTP 500"},
		{fetch.ErrUnsupportedURL, "Unsupported address"},
		{context.DeadlineExceeded, "Timed out"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Contains(t, describeLoadError("https://x.test", tt.err), tt.want)
	}
}

func TestApplySettings(t *testing.T) {
	v := newViewer(t, Options{})
	s := v.Settings
	s.TriggerMode = config.TriggerHover
	s.MaxWindows = 5
	s.Theme = config.ThemeLight

	v.Update(SettingsMsg{Settings: s})
	assert.Equal(t, config.TriggerHover, v.Engine.State().Mode)
	assert.Equal(t, 5, v.Manager.Options().MaxWindows)
	assert.False(t, v.Palette.Dark)
}

func TestApplySettingsClosesPreviewsWhenDisabled(t *testing.T) {
	tests := []struct {
		name      string
		mode      config.TriggerMode
		wantAlive int
	}{
		{"disabled closes everything", config.TriggerDisabled, 0},
		{"other modes keep windows", config.TriggerLongPress, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViewer(t, Options{})
			v.Manager.Create("https://docs.test/a", geometry.Point{X: 10, Y: 3})
			v.Manager.Create("https://docs.test/b", geometry.Point{X: 20, Y: 5})

			s := v.Settings
			s.TriggerMode = tt.mode
			v.Update(SettingsMsg{Settings: s})
			assert.Equal(t, tt.wantAlive, v.Manager.Len())
		})
	}
}

func TestBlurForgetsModifiers(t *testing.T) {
	v := newViewer(t, Options{})
	v.Engine.Handle(trigger.Event{Type: trigger.KeyDown, Key: "Alt"})
	v.Pointer.Mods = trigger.ModAlt
	require.True(t, v.Engine.State().ModifierActive)

	v.Update(tea.BlurMsg{})
	assert.False(t, v.Engine.State().ModifierActive)
	assert.Zero(t, v.Pointer.Mods)
}

func TestBackgroundColorFollowsSystemTheme(t *testing.T) {
	v := newViewer(t, Options{})
	require.Equal(t, config.ThemeSystem, v.Settings.Theme)
	v.Update(tea.BackgroundColorMsg{Color: ansiWhite{}})
	assert.False(t, v.DarkBackground)
	assert.False(t, v.Palette.Dark)
}

type ansiWhite struct{}

func (ansiWhite) RGBA() (r, g, b, a uint32) { return 0xffff, 0xffff, 0xffff, 0xffff }

func TestNotificationsAreCapped(t *testing.T) {
	v := newViewer(t, Options{})
	for i := range maxNotifications + 2 {
		v.ShowNotification(strings.Repeat("x", i+1), "info", 0)
	}
	assert.Len(t, v.Notifications, maxNotifications)
	assert.Equal(t, "xxx", v.Notifications[0].Message)

	v.Update(notificationExpiredMsg{id: v.Notifications[0].ID})
	assert.Len(t, v.Notifications, maxNotifications-1)
}

func TestQuitCleansUp(t *testing.T) {
	v := newViewer(t, Options{})
	v.Manager.Create("https://docs.test/a", geometry.Point{})
	v.Quitting = true
	_, cmd := v.Update(nil)
	require.NotNil(t, cmd)
	assert.Zero(t, v.Manager.Len())
	assert.True(t, v.Engine.State().Inert)
}

func TestFrameClockRunsWhilePending(t *testing.T) {
	v := newViewer(t, Options{})
	v.cmds = nil
	ran := false
	v.Frames.RequestFrame(func() { ran = true })

	cmds := v.flush()
	assert.Len(t, cmds, 1)
	assert.True(t, v.frameScheduled)
	assert.Empty(t, v.flush(), "one frame tick at a time")

	v.Update(FrameMsg{})
	assert.True(t, ran)
	assert.False(t, v.Frames.Pending())
}

func TestViewRendersPageAndWindows(t *testing.T) {
	v := newViewer(t, Options{})
	v.Manager.Create("https://docs.test/a", geometry.Point{X: 40, Y: 12})

	out := ansi.Strip(v.Frame())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 24)
	assert.Contains(t, lines[0], "alpha plain words here")
	assert.Contains(t, out, "docs.test/a")
	assert.Contains(t, out, "○ ↻ ↗ ×")
	assert.Contains(t, out, "Loading https://docs.test/a")
	assert.Contains(t, lines[23], "linkpeek")
	assert.Contains(t, lines[23], "Viewer Test")
	assert.Contains(t, lines[23], "1/3")
	for i, l := range lines {
		assert.LessOrEqual(t, ansi.StringWidth(l), 80, "line %d", i)
	}
}

func TestTitleBarMatchesHitTest(t *testing.T) {
	tests := []struct {
		name   string
		nerd   bool
		glyphs config.ChromeGlyphs
	}{
		{"unicode", false, config.UnicodeChrome},
		{"nerd font", true, config.NerdFontChrome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultSettings()
			s.PopupPosition = geometry.PlaceCenter
			s.PopupSize = config.SizeMedium
			s.NerdFont = tt.nerd
			v := newViewer(t, Options{Provider: config.NewStaticProvider(s)})
			id := v.Manager.Create("https://docs.test/a", geometry.Point{X: 40, Y: 12})
			w, _ := v.Manager.Get(id)
			r := Cells(w.Visual())

			content, _ := v.renderWindow(w, true)
			top := []rune(ansi.Strip(strings.Split(content, "\n")[0]))
			require.Len(t, top, r.W)
			want := map[Hit]string{
				HitPin:     tt.glyphs.Unpinned,
				HitRefresh: tt.glyphs.Refresh,
				HitOpenTab: tt.glyphs.OpenTab,
				HitClose:   tt.glyphs.Close,
			}
			for _, b := range titleButtons {
				assert.Equal(t, want[b.hit], string(top[r.W-b.off]), "hit %d", b.hit)
			}
		})
	}
}

func TestHelpOverlayListsBindings(t *testing.T) {
	v := newViewer(t, Options{})
	v.ShowHelp = true
	out := ansi.Strip(v.Frame())
	assert.Contains(t, out, "Preview windows")
	assert.Contains(t, out, "Cycle trigger mode")
}

func TestSelectionHighlightRange(t *testing.T) {
	v := newViewer(t, Options{})
	v.Selection = &Selection{From: page.Pos{Line: 0, Col: 16}, To: page.Pos{Line: 0, Col: 6}}
	from, to, ok := v.selectedCols(0, v.Layout.Lines[0])
	require.True(t, ok)
	assert.Equal(t, 6, from)
	assert.Equal(t, 17, to)
	assert.Equal(t, "plain words", v.SelectedText())

	_, _, ok = v.selectedCols(1, page.Line{})
	assert.False(t, ok)
}
