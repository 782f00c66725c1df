package app

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/page"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/charmbracelet/x/ansi"
)

// Z order of the layers.
const (
	zPage          = 0
	zWindows       = 10
	zStatus        = 900
	zNotifications = 950
	zHelp          = 1000
)

// GetCanvas composes the page, the preview windows and the overlays.
func (v *Viewer) GetCanvas() *lipgloss.Canvas {
	canvas := lipgloss.NewCanvas()
	if v.Width <= 0 || v.Height <= 0 {
		return canvas
	}

	// The empty base layer pins the frame to the viewport size.
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer("").Width(v.Width).Height(v.Height).Z(zPage - 1).ID("viewport"),
		lipgloss.NewLayer(v.renderPage()).X(0).Y(0).Z(zPage).ID("page"),
	}

	ws := v.Manager.Windows()
	for i, w := range ws {
		content, r := v.renderWindow(w, i == len(ws)-1)
		if content == "" {
			continue
		}
		layers = append(layers, lipgloss.NewLayer(content).X(r.X).Y(r.Y).Z(zWindows+i).ID(w.ID()))
	}

	layers = append(layers, v.renderOverlays()...)
	canvas.AddLayers(layers...)
	return canvas
}

// Frame renders the composed canvas to a string.
func (v *Viewer) Frame() string {
	return lipgloss.Sprint(v.GetCanvas().Render())
}

// View renders the frame.
func (v *Viewer) View() tea.View {
	var view tea.View
	view.SetContent(v.Frame())
	view.AltScreen = true
	// Hover triggers need motion without a button held.
	view.MouseMode = tea.MouseModeAllMotion
	view.ReportFocus = true
	return view
}

// backdrop reports whether the page is drawn dimmed behind a hovered window.
// The backdrop is dropped while a window is dragged or resized.
func (v *Viewer) backdrop() bool {
	return v.Manager.Options().Dim > 0 && v.Manager.Hovered() && !v.Manager.Busy()
}

func (v *Viewer) renderPage() string {
	rows := v.PageHeight()
	st := v.pageStyles()
	if v.Layout == nil {
		return v.renderPlaceholder(rows, st)
	}

	out := make([]string, rows)
	for r := range rows {
		i := v.Scroll + r
		var line page.Line
		if i < len(v.Layout.Lines) {
			line = v.Layout.Lines[i]
		}
		from, to, ok := v.selectedCols(i, line)
		if !ok {
			from, to = -1, -1
		}
		out[r] = renderLine(line, v.Width, st, v.Pointer.Hovered, from, to)
	}
	return strings.Join(out, "\n")
}

func (v *Viewer) renderPlaceholder(rows int, st styleSet) string {
	msg := "linkpeek: open a page with `linkpeek <url|file>`"
	switch {
	case v.Loading:
		msg = "Loading " + v.Source + " ..."
	case v.LoadErr != nil:
		msg = "Could not load the page. Press backspace to go back or q to quit."
	}
	msg = ansi.Truncate(msg, v.Width, "…")
	out := make([]string, rows)
	for r := range out {
		text := ""
		if r == rows/2 {
			pad := max((v.Width-ansi.StringWidth(msg))/2, 0)
			text = strings.Repeat(" ", pad) + msg
		}
		out[r] = st.muted.Width(v.Width).Render(text)
	}
	return strings.Join(out, "\n")
}

// selectedCols returns the selected column range [from, to) on layout line
// i.
func (v *Viewer) selectedCols(i int, line page.Line) (int, int, bool) {
	if v.Selection == nil {
		return 0, 0, false
	}
	a, b := v.Selection.From, v.Selection.To
	if b.Before(a) {
		a, b = b, a
	}
	if i < a.Line || i > b.Line {
		return 0, 0, false
	}
	from, to := 0, line.Width()
	if i == a.Line {
		from = a.Col
	}
	if i == b.Line {
		to = min(b.Col+1, to)
	}
	if from >= to {
		return 0, 0, false
	}
	return from, to, true
}

func (v *Viewer) renderWindow(w *preview.Instance, top bool) (string, CellRect) {
	r := Cells(w.Visual())
	innerW, innerH := r.W-2, r.H-2
	if innerW < 1 || innerH < 1 {
		return "", r
	}
	p := v.Palette
	border := p.Border
	switch {
	case w.Pinned:
		border = p.Pinned
	case top || v.Manager.Interacting(w.ID()):
		border = p.BorderActive
	}
	bs := lipgloss.NewStyle().Foreground(border).Background(p.WindowBg)

	rows := make([]string, 0, r.H)
	rows = append(rows, v.renderTitleBar(w, innerW, bs))

	st := v.windowStyles()
	body := v.windowBody(w, innerW, innerH)
	for i := range innerH {
		var line page.Line
		if i < len(body) {
			line = body[i]
		}
		rows = append(rows, bs.Render("│")+renderLine(line, innerW, st, nil, -1, -1)+bs.Render("│"))
	}
	rows = append(rows, bs.Render("╰"+strings.Repeat("─", innerW)+"╯"))
	return strings.Join(rows, "\n"), r
}

// windowBody returns the visible content lines of w.
func (v *Viewer) windowBody(w *preview.Instance, width, rows int) []page.Line {
	var text string
	switch w.Content.State {
	case preview.Loading:
		text = "Loading " + w.URL() + " ..."
	case preview.Failed:
		text = "Preview unavailable.\n\n" + describeLoadError(w.URL(), w.Content.Err) +
			"\n\nPress " + v.keyHint(config.ActionOpenInNewTab, "o") + " to open it in the browser."
	default:
		wv := v.Views[w.ID()]
		if wv == nil {
			return nil
		}
		lo := wv.Lines(w, width)
		wv.ScrollBy(0, rows)
		end := min(wv.Scroll+rows, len(lo.Lines))
		return lo.Lines[wv.Scroll:end]
	}
	lo := page.FromText("", text, "").Layout(width)
	return lo.Lines
}

func (v *Viewer) keyHint(action, fallback string) string {
	if keys := v.Keys.Keys(action); len(keys) > 0 {
		return keys[0]
	}
	return fallback
}
