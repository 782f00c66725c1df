package page

import (
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"github.com/charmbracelet/x/ansi"
)

// Segment is a run of cells on one line that share an element and style.
type Segment struct {
	Text  string
	Col   int
	Width int
	El    *trigger.Element
	Style Style
}

// Link returns the hyperlink the segment belongs to, if any.
func (s Segment) Link() *trigger.Element { return s.El.Anchor() }

// Line is one laid-out row.
type Line struct {
	Segments []Segment
	// Block is the element of the paragraph the line belongs to.
	Block *trigger.Element
	Rule  bool
}

// Width returns the number of occupied cells.
func (l Line) Width() int {
	if len(l.Segments) == 0 {
		return 0
	}
	last := l.Segments[len(l.Segments)-1]
	return last.Col + last.Width
}

// String returns the plain text of the line.
func (l Line) String() string {
	var sb strings.Builder
	for _, s := range l.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Layout is a document wrapped to a width.
type Layout struct {
	Doc   *Document
	Width int
	Lines []Line
}

// Layout wraps the document to width cells. Paragraphs are separated by a
// blank line.
func (d *Document) Layout(width int) *Layout {
	width = max(width, 1)
	lo := &Layout{Doc: d, Width: width}
	for i, b := range d.blocks {
		if i > 0 {
			lo.Lines = append(lo.Lines, Line{Block: d.Root})
		}
		switch {
		case b.rule:
			lo.Lines = append(lo.Lines, Line{Block: b.el, Rule: true})
		case b.pre:
			lo.Lines = append(lo.Lines, layoutPre(b, width)...)
		default:
			lo.Lines = append(lo.Lines, wrapBlock(b, width)...)
		}
	}
	return lo
}

type word struct {
	text  string
	el    *trigger.Element
	style Style
	// space is true when whitespace preceded the word in the source.
	space bool
}

func splitWords(runs []run) []word {
	var words []word
	pendingSpace := false
	for _, r := range runs {
		s := r.text
		for s != "" {
			i := strings.IndexFunc(s, isSpace)
			if i == 0 {
				pendingSpace = true
				s = strings.TrimLeftFunc(s, isSpace)
				continue
			}
			w := s
			if i > 0 {
				w = s[:i]
				s = s[i:]
			} else {
				s = ""
			}
			words = append(words, word{text: w, el: r.el, style: r.style, space: pendingSpace && len(words) > 0})
			pendingSpace = false
		}
	}
	return words
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\u00a0'
}

func wrapBlock(b block, width int) []Line {
	words := splitWords(b.runs)
	if len(words) == 0 {
		return nil
	}
	indent := ansi.StringWidth(b.prefix)
	if indent >= width {
		indent = 0
	}
	avail := width - indent

	var lines []Line
	cur := Line{Block: b.el}
	col := 0
	start := func() {
		cur = Line{Block: b.el}
		col = 0
		if indent > 0 {
			pad := b.prefix
			if len(lines) > 0 {
				pad = strings.Repeat(" ", indent)
			}
			cur.Segments = append(cur.Segments, Segment{Text: pad, Width: indent, El: b.el})
		}
	}
	finish := func() {
		lines = append(lines, cur)
	}
	start()

	for _, w := range words {
		ww := ansi.StringWidth(w.text)
		sep := 0
		if w.space && col > 0 {
			sep = 1
		}
		if col > 0 && col+sep+ww > avail {
			finish()
			start()
			sep = 0
		}
		if sep == 1 {
			spaceEl, spaceStyle := b.el, Plain
			if prev := lastSegment(cur); prev != nil {
				switch a := w.el.Anchor(); {
				case prev.El == w.el:
					spaceEl, spaceStyle = w.el, w.style
				case a != nil && prev.El.Anchor() == a:
					// Keep a link continuous across words in different children.
					spaceEl = a
				}
			}
			appendSegment(&cur, " ", indent+col, 1, spaceEl, spaceStyle)
			col++
		}
		text := w.text
		for ww > avail-col && ww > 0 {
			// A word longer than the line is broken at the edge.
			n := avail - col
			if n <= 0 {
				finish()
				start()
				n = avail
			}
			head := ansi.Truncate(text, n, "")
			hw := ansi.StringWidth(head)
			if hw == 0 {
				break
			}
			appendSegment(&cur, head, indent+col, hw, w.el, w.style)
			text = ansi.TruncateLeft(text, hw, "")
			ww -= hw
			finish()
			start()
		}
		if ww > 0 {
			appendSegment(&cur, text, indent+col, ww, w.el, w.style)
			col += ww
		}
	}
	if col > 0 {
		finish()
	}
	return lines
}

func lastSegment(l Line) *Segment {
	if len(l.Segments) == 0 {
		return nil
	}
	return &l.Segments[len(l.Segments)-1]
}

// appendSegment merges with the previous segment when element and style
// match.
func appendSegment(l *Line, text string, col, width int, el *trigger.Element, style Style) {
	if n := len(l.Segments); n > 0 {
		prev := &l.Segments[n-1]
		if prev.El == el && prev.Style == style && prev.Col+prev.Width == col {
			prev.Text += text
			prev.Width += width
			return
		}
	}
	l.Segments = append(l.Segments, Segment{Text: text, Col: col, Width: width, El: el, Style: style})
}

func layoutPre(b block, width int) []Line {
	var lines []Line
	cur := Line{Block: b.el}
	col := 0
	for _, r := range b.runs {
		parts := strings.Split(strings.ReplaceAll(r.text, "\t", "    "), "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, cur)
				cur = Line{Block: b.el}
				col = 0
			}
			if part == "" || col >= width {
				continue
			}
			part = ansi.Truncate(part, width-col, "")
			pw := ansi.StringWidth(part)
			appendSegment(&cur, part, col, pw, r.el, Code)
			col += pw
		}
	}
	lines = append(lines, cur)
	// Drop the leading and trailing blank lines of the block.
	for len(lines) > 0 && len(lines[0].Segments) == 0 {
		lines = lines[1:]
	}
	for len(lines) > 0 && len(lines[len(lines)-1].Segments) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
