// Package page turns HTML into a text document laid out in terminal cells,
// keeping an element tree so the terminal host can report which element is
// under the pointer.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Style is how a run of text is drawn.
type Style int

const (
	Plain Style = iota
	Heading
	Code
	Emphasis
)

// run is a piece of inline text and the innermost element it belongs to.
type run struct {
	text  string
	el    *trigger.Element
	style Style
}

// block is a paragraph-level unit. Preformatted blocks keep their line
// breaks and are never wrapped.
type block struct {
	runs   []run
	prefix string
	pre    bool
	rule   bool
	el     *trigger.Element
}

// Document is a parsed page.
type Document struct {
	Title string
	URL   string
	// Root is the body element. Blank areas of the page resolve to it.
	Root   *trigger.Element
	blocks []block
}

var skipped = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Svg: true, atom.Iframe: true, atom.Object: true,
	atom.Canvas: true, atom.Select: true, atom.Button: true,
}

var blockLevel = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Nav: true,
	atom.Aside: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Blockquote: true, atom.Table: true, atom.Tr: true, atom.Dl: true,
	atom.Dt: true, atom.Dd: true, atom.Figure: true, atom.Figcaption: true,
	atom.Form: true, atom.Details: true, atom.Summary: true, atom.Address: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Pre: true, atom.Hr: true,
}

// Parse reads an HTML document. base is the page's own URL, kept for the
// trigger engine to resolve relative links against.
func Parse(r io.Reader, base string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	b := &builder{doc: &Document{URL: base}}
	b.doc.Title = findTitle(root)
	body := findBody(root)
	b.doc.Root = &trigger.Element{Tag: "body"}
	if body != nil {
		b.walk(body, b.doc.Root, Plain, false)
	}
	b.flush()
	return b.doc, nil
}

// FromText builds a document from plain text, one paragraph per blank-line
// separated chunk.
func FromText(title, text, base string) *Document {
	doc := &Document{Title: title, URL: base, Root: &trigger.Element{Tag: "body"}}
	for para := range strings.SplitSeq(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		el := &trigger.Element{Tag: "p", Parent: doc.Root}
		doc.blocks = append(doc.blocks, block{el: el, runs: []run{{text: para, el: el}}})
	}
	return doc
}

type builder struct {
	doc *Document
	cur *block
}

func (b *builder) flush() {
	if b.cur == nil {
		return
	}
	if b.cur.rule || b.cur.pre || hasText(b.cur.runs) {
		b.doc.blocks = append(b.doc.blocks, *b.cur)
	}
	b.cur = nil
}

func hasText(runs []run) bool {
	for _, r := range runs {
		if strings.TrimSpace(r.text) != "" {
			return true
		}
	}
	return false
}

func (b *builder) open(el *trigger.Element, prefix string, pre bool) {
	b.flush()
	b.cur = &block{el: el, prefix: prefix, pre: pre}
}

func (b *builder) text(s string, el *trigger.Element, style Style) {
	if b.cur == nil {
		b.cur = &block{el: el}
	}
	b.cur.runs = append(b.cur.runs, run{text: s, el: el, style: style})
}

func (b *builder) walk(n *html.Node, parent *trigger.Element, style Style, pre bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.text(c.Data, parent, style)
		case html.ElementNode:
			if skipped[c.DataAtom] {
				continue
			}
			el := &trigger.Element{Tag: c.Data, Parent: parent}
			if c.DataAtom == atom.A || c.DataAtom == atom.Area {
				el.Href = attr(c, "href")
			}
			childStyle := style
			switch c.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				childStyle = Heading
			case atom.Code, atom.Kbd, atom.Samp, atom.Pre:
				childStyle = Code
			case atom.Em, atom.I, atom.Strong, atom.B:
				if style == Plain {
					childStyle = Emphasis
				}
			}

			switch {
			case c.DataAtom == atom.Br:
				if pre {
					b.text("\n", parent, style)
				} else {
					b.open(parent, "", false)
				}
			case c.DataAtom == atom.Img:
				if alt := strings.TrimSpace(attr(c, "alt")); alt != "" {
					b.text("["+alt+"]", el, style)
				}
			case c.DataAtom == atom.Hr:
				b.open(el, "", false)
				b.cur.rule = true
				b.flush()
			case blockLevel[c.DataAtom]:
				prefix := ""
				switch c.DataAtom {
				case atom.Li:
					prefix = "• "
				case atom.Blockquote:
					prefix = "│ "
				}
				isPre := pre || c.DataAtom == atom.Pre
				b.open(el, prefix, isPre)
				b.walk(c, el, childStyle, isPre)
				b.flush()
			default:
				b.walk(c, el, childStyle, pre)
			}
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return strings.Join(strings.Fields(sb.String()), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
