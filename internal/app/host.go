package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/page"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

// WindowView is the terminal side of one preview window.
type WindowView struct {
	Scroll int

	layout *page.Layout
	width  int
	title  string
	body   string
}

// Lines returns the window's content wrapped to width.
func (wv *WindowView) Lines(w *preview.Instance, width int) *page.Layout {
	c := w.Content
	if wv.layout == nil || wv.width != width || wv.title != c.Title || wv.body != c.Body {
		wv.layout = page.FromText(c.Title, c.Body, w.URL()).Layout(width)
		wv.width, wv.title, wv.body = width, c.Title, c.Body
	}
	return wv.layout
}

// ScrollBy moves the content by delta lines within rows visible rows.
func (wv *WindowView) ScrollBy(delta, rows int) {
	total := 0
	if wv.layout != nil {
		total = len(wv.layout.Lines)
	}
	wv.Scroll = min(max(wv.Scroll+delta, 0), max(total-rows, 0))
}

// Opened implements preview.Host.
func (v *Viewer) Opened(w *preview.Instance) {
	v.Views[w.ID()] = &WindowView{}
	v.log.Debug("preview opened", "id", w.ID(), "url", w.URL())
}

// Updated implements preview.Host. Everything is redrawn from the instance
// on the next View.
func (v *Viewer) Updated(*preview.Instance) {}

// Closed implements preview.Host.
func (v *Viewer) Closed(w *preview.Instance) {
	delete(v.Views, w.ID())
	if v.Pointer.HoverWindow == w.ID() {
		v.Pointer.HoverWindow = ""
	}
	v.log.Debug("preview closed", "id", w.ID())
}

// OpenExternal implements preview.Host.
func (v *Viewer) OpenExternal(u string) {
	if v.opener == nil {
		v.ShowNotification("No browser configured for "+u, "warning", 3*time.Second)
		return
	}
	err := v.opener.Open(u)
	if errors.Is(err, ErrNoBrowser) {
		v.Queue(tea.SetClipboard(u))
		v.ShowNotification("Copied link: "+u, "info", 3*time.Second)
		return
	}
	if err != nil {
		v.ShowNotification(fmt.Sprintf("Could not open %s: %v", u, err), "error", 4*time.Second)
		return
	}
	v.ShowNotification("Opened in browser: "+u, "info", 2*time.Second)
}

// PreviewLoadedMsg carries a window's fetched content back to Update.
type PreviewLoadedMsg struct {
	ID      string
	Gen     uint64
	Content preview.Content
}

// Load implements preview.Host.
func (v *Viewer) Load(w *preview.Instance, gen uint64) func() {
	ctx, cancel := context.WithCancel(v.ctx)
	id, u := w.ID(), w.URL()
	f := v.fetcher
	v.Queue(func() tea.Msg {
		art, err := f.Readable(ctx, u)
		if err != nil {
			return PreviewLoadedMsg{ID: id, Gen: gen, Content: preview.Content{Err: err}}
		}
		return PreviewLoadedMsg{ID: id, Gen: gen, Content: preview.Content{Title: art.Title, Body: art.Text}}
	})
	return cancel
}

// handleCommand receives the trigger engine's output.
func (v *Viewer) handleCommand(c trigger.Command) {
	switch c.Kind {
	case trigger.OpenTab:
		v.OpenExternal(c.URL)
	default:
		v.Manager.Create(c.URL, c.Anchor)
	}
}

// PageLoadedMsg carries a parsed page back to Update.
type PageLoadedMsg struct {
	Gen    uint64
	Source string
	Doc    *page.Document
	Err    error
}

// Navigate loads source as the new page. The current page goes on the back
// stack when push is set.
func (v *Viewer) Navigate(source string, push bool) {
	if push && v.Source != "" {
		v.History = append(v.History, v.Source)
	}
	v.Source = source
	v.Loading = true
	v.LoadErr = nil
	if v.cancelPage != nil {
		v.cancelPage()
	}
	ctx, cancel := context.WithCancel(v.ctx)
	v.cancelPage = cancel
	v.pageGen++
	gen := v.pageGen
	f := v.fetcher
	v.Queue(func() tea.Msg {
		doc, err := loadDocument(ctx, f, source)
		return PageLoadedMsg{Gen: gen, Source: source, Doc: doc, Err: err}
	})
}

// Back returns to the previous page.
func (v *Viewer) Back() bool {
	if len(v.History) == 0 {
		return false
	}
	prev := v.History[len(v.History)-1]
	v.History = v.History[:len(v.History)-1]
	v.Navigate(prev, false)
	return true
}

// FollowLink navigates to a clicked link on the current page.
func (v *Viewer) FollowLink(a *trigger.Element) {
	base, _ := url.Parse(v.PageURL)
	u, ok := trigger.ResolveHref(base, a.Href)
	if !ok {
		v.ShowNotification("Not a web link: "+a.Href, "warning", 2*time.Second)
		return
	}
	v.Navigate(u, true)
}

func (v *Viewer) pageLoaded(msg PageLoadedMsg) {
	if msg.Gen != v.pageGen {
		return
	}
	v.Loading = false
	v.cancelPage = nil
	if msg.Err != nil {
		v.LoadErr = msg.Err
		v.ShowNotification(describeLoadError(msg.Source, msg.Err), "error", 5*time.Second)
		return
	}
	v.SetDocument(msg.Doc)
	v.log.Info("page loaded", "source", msg.Source, "title", msg.Doc.Title)
}

// loadDocument fetches a URL or reads a file. Files ending in .htm or .html
// are parsed as HTML, anything else is shown as plain text.
func loadDocument(ctx context.Context, f *fetch.Client, source string) (*page.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		p, err := f.Page(ctx, source)
		if err != nil {
			return nil, err
		}
		return page.Parse(bytes.NewReader(p.HTML), p.URL)
	}

	path := strings.TrimPrefix(source, "file://")
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	// #nosec G304 - the user named this file on the command line
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	base := "file://" + filepath.ToSlash(abs)
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".html", ".htm", ".xhtml":
		return page.Parse(bytes.NewReader(data), base)
	}
	return page.FromText(filepath.Base(abs), string(data), base), nil
}

func describeLoadError(source string, err error) string {
	var se *fetch.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s answered HTTP %d", source, se.Code)
	case errors.Is(err, fetch.ErrUnsupportedURL):
		return "Unsupported address: " + source
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out loading " + source
	}
	return fmt.Sprintf("Could not load %s: %v", source, err)
}
