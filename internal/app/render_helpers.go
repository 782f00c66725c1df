package app

import (
	"image/color"
	"net/url"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/page"
	"github.com/Gaurav-Gosain/linkpeek/internal/preview"
	"github.com/Gaurav-Gosain/linkpeek/internal/theme"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"github.com/charmbracelet/x/ansi"
)

// styleSet holds the styles one surface (the page or a window) is drawn
// with.
type styleSet struct {
	plain   lipgloss.Style
	heading lipgloss.Style
	code    lipgloss.Style
	emph    lipgloss.Style
	link    lipgloss.Style
	hover   lipgloss.Style
	muted   lipgloss.Style
	rule    lipgloss.Style
	sel     lipgloss.Style
}

func newStyleSet(p theme.Palette, bg color.Color, tone func(color.Color) color.Color, faint bool) styleSet {
	base := lipgloss.NewStyle().Background(tone(bg)).Faint(faint)
	fg := func(c color.Color) lipgloss.Style { return base.Foreground(tone(c)) }
	return styleSet{
		plain:   fg(p.Fg),
		heading: fg(p.Heading).Bold(true),
		code:    fg(p.Code),
		emph:    fg(p.Fg).Italic(true),
		link:    fg(p.Link).Underline(true),
		hover:   fg(p.Hover).Underline(true).Bold(true),
		muted:   fg(p.Muted),
		rule:    fg(p.Muted),
		sel:     base.Foreground(tone(p.Bg)).Background(tone(p.Accent)),
	}
}

// pageStyles returns the page's styles, dimmed while the backdrop is up.
// Terminals without enough colors for a blend get the faint attribute.
func (v *Viewer) pageStyles() styleSet {
	p := v.Palette
	tone := func(c color.Color) color.Color { return c }
	faint := false
	if v.backdrop() {
		dim := v.Manager.Options().Dim
		if theme.BlendsColors(v.Profile) {
			tone = func(c color.Color) color.Color { return p.Backdrop(c, dim) }
		} else {
			faint = true
		}
	}
	return newStyleSet(p, p.Bg, tone, faint)
}

func (v *Viewer) windowStyles() styleSet {
	return newStyleSet(v.Palette, v.Palette.WindowBg, func(c color.Color) color.Color { return c }, false)
}

// renderLine draws one laid-out line padded to width. Cells in [selFrom,
// selTo) are drawn selected; hovered is the link under the pointer.
func renderLine(line page.Line, width int, st styleSet, hovered *trigger.Element, selFrom, selTo int) string {
	if line.Rule {
		return st.rule.Render(strings.Repeat("─", width))
	}
	var sb strings.Builder
	col := 0
	for _, seg := range line.Segments {
		if seg.Col >= width {
			break
		}
		if seg.Col > col {
			sb.WriteString(st.plain.Render(strings.Repeat(" ", seg.Col-col)))
			col = seg.Col
		}
		text := seg.Text
		w := seg.Width
		if seg.Col+w > width {
			text = ansi.Truncate(text, width-seg.Col, "")
			w = width - seg.Col
		}
		style := segmentStyle(seg, st, hovered)

		// Split around the selection.
		from := min(max(selFrom-seg.Col, 0), w)
		to := min(max(selTo-seg.Col, 0), w)
		if selFrom < 0 || from >= to {
			sb.WriteString(style.Render(text))
		} else {
			sb.WriteString(style.Render(ansi.Cut(text, 0, from)))
			sb.WriteString(st.sel.Render(ansi.Cut(text, from, to)))
			sb.WriteString(style.Render(ansi.Cut(text, to, w)))
		}
		col += w
	}
	if col < width {
		sb.WriteString(st.plain.Render(strings.Repeat(" ", width-col)))
	}
	return sb.String()
}

func segmentStyle(seg page.Segment, st styleSet, hovered *trigger.Element) lipgloss.Style {
	if a := seg.Link(); a != nil {
		if a == hovered {
			return st.hover
		}
		return st.link
	}
	switch seg.Style {
	case page.Heading:
		return st.heading
	case page.Code:
		return st.code
	case page.Emphasis:
		return st.emph
	}
	return st.plain
}

// windowTitle is the page title once loaded, else the URL's host and path.
func windowTitle(w *preview.Instance) string {
	if t := strings.TrimSpace(w.Content.Title); t != "" && w.Content.State == preview.Ready {
		return t
	}
	u, err := url.Parse(w.URL())
	if err != nil || u.Host == "" {
		return w.URL()
	}
	return u.Host + strings.TrimSuffix(u.EscapedPath(), "/")
}

// renderTitleBar draws the top border: the title badge on the left and the
// buttons on the right, laid out to match HitTest.
func (v *Viewer) renderTitleBar(w *preview.Instance, innerW int, bs lipgloss.Style) string {
	p := v.Palette
	titleStyle := lipgloss.NewStyle().Foreground(p.TitleFg).Background(p.TitleBg).Bold(true)

	badge := ""
	if room := innerW - buttonsWidth - 2; room > 0 {
		name := ansi.Truncate(windowTitle(w), room, "…")
		badge = titleStyle.Render(" " + name + " ")
	}
	fill := max(innerW-lipgloss.Width(badge)-buttonsWidth, 0)

	return bs.Render("╭") + badge + bs.Render(strings.Repeat("─", fill)) +
		v.renderButtons(w, bs) + bs.Render("╮")
}

func (v *Viewer) renderButtons(w *preview.Instance, bs lipgloss.Style) string {
	p := v.Palette
	g := v.Settings.Chrome()
	pin := g.Unpinned
	pinColor := p.TitleFg
	if w.Pinned {
		pin = g.Pinned
		pinColor = p.Pinned
	}
	glyph := func(s string, c color.Color) string {
		return bs.Foreground(c).Bold(true).Render(s)
	}
	sp := bs.Render(" ")
	return sp + glyph(pin, pinColor) + sp + glyph(g.Refresh, p.TitleFg) + sp +
		glyph(g.OpenTab, p.TitleFg) + sp + glyph(g.Close, p.Error) + sp
}
