package page

import (
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"github.com/charmbracelet/x/ansi"
)

// Pos is a cell in a layout.
type Pos struct {
	Line int
	Col  int
}

// Before reports whether p comes before o in reading order.
func (p Pos) Before(o Pos) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

// ElementAt returns the innermost element under the cell. Cells past the end
// of a line belong to the line's block; cells outside the layout belong to
// the document root.
func (lo *Layout) ElementAt(p Pos) *trigger.Element {
	if p.Line < 0 || p.Line >= len(lo.Lines) || p.Col < 0 {
		return lo.Doc.Root
	}
	line := lo.Lines[p.Line]
	for _, s := range line.Segments {
		if p.Col >= s.Col && p.Col < s.Col+s.Width {
			return s.El
		}
	}
	if line.Block != nil {
		return line.Block
	}
	return lo.Doc.Root
}

// LinkAt returns the hyperlink under the cell, if any.
func (lo *Layout) LinkAt(p Pos) *trigger.Element {
	return lo.ElementAt(p).Anchor()
}

// LinkSpans returns every cell range on line covered by the given anchor.
func (lo *Layout) LinkSpans(line int, anchor *trigger.Element) []Segment {
	if anchor == nil || line < 0 || line >= len(lo.Lines) {
		return nil
	}
	var out []Segment
	for _, s := range lo.Lines[line].Segments {
		if s.Link() == anchor {
			out = append(out, s)
		}
	}
	return out
}

// Text returns the text between two cells, inclusive of both, in reading
// order. Lines are joined with a newline.
func (lo *Layout) Text(a, b Pos) string {
	if b.Before(a) {
		a, b = b, a
	}
	a.Line = max(a.Line, 0)
	b.Line = min(b.Line, len(lo.Lines)-1)
	var parts []string
	for i := a.Line; i <= b.Line; i++ {
		s := lo.Lines[i].String()
		from, to := 0, ansi.StringWidth(s)
		if i == a.Line {
			from = min(max(a.Col, 0), to)
		}
		if i == b.Line {
			to = min(max(b.Col+1, from), to)
		}
		parts = append(parts, ansi.Cut(s, from, to))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
