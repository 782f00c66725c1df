// Package trigger turns a raw DOM-like event stream into open-preview
// commands according to the configured trigger mode.
package trigger

import (
	"strings"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// Element is a node in the host's document tree.
type Element struct {
	Tag    string
	Href   string
	Parent *Element
}

// Anchor returns the nearest enclosing hyperlink, starting at e itself.
func (e *Element) Anchor() *Element {
	for n := e; n != nil; n = n.Parent {
		tag := strings.ToLower(n.Tag)
		if (tag == "a" || tag == "area") && n.Href != "" {
			return n
		}
	}
	return nil
}

// EventType is a DOM event name.
type EventType string

const (
	DragStart   EventType = "dragstart"
	DragEnd     EventType = "dragend"
	MouseEnter  EventType = "mouseenter"
	MouseLeave  EventType = "mouseleave"
	MouseDown   EventType = "mousedown"
	MouseUp     EventType = "mouseup"
	MouseMove   EventType = "mousemove"
	Click       EventType = "click"
	KeyDown     EventType = "keydown"
	KeyUp       EventType = "keyup"
	Blur        EventType = "blur"
	SelectStart EventType = "selectstart"
)

// Mods is the modifier state carried by an event.
type Mods uint8

const (
	ModAlt Mods = 1 << iota
	ModCtrl
	ModShift
	ModMeta
)

// Has reports whether every bit of m2 is set in m.
func (m Mods) Has(m2 Mods) bool { return m&m2 == m2 && m2 != 0 }

// modsFor maps a configured modifier to its bit.
func modsFor(m config.Modifier) Mods {
	switch m {
	case config.ModCtrl:
		return ModCtrl
	case config.ModShift:
		return ModShift
	default:
		return ModAlt
	}
}

// keyFor maps a configured modifier to its DOM KeyboardEvent.key value.
func keyFor(m config.Modifier) string {
	switch m {
	case config.ModCtrl:
		return "Control"
	case config.ModShift:
		return "Shift"
	default:
		return "Alt"
	}
}

// Event is one DOM event as seen in the capture phase.
type Event struct {
	Type   EventType
	Target *Element
	Point  geometry.Point
	// Button is the DOM button index; 0 is primary.
	Button int
	// Key is KeyboardEvent.key for keydown and keyup.
	Key  string
	Mods Mods
	// Selection is the page's active text selection at the time of the event.
	Selection string
	PointerID int
}

// Verdict tells the host what to do with the event after the engine saw it.
type Verdict struct {
	PreventDefault bool
}

// CommandKind says how a resolved URL should be shown.
type CommandKind int

const (
	// OpenPreview opens a floating preview window.
	OpenPreview CommandKind = iota
	// OpenTab opens the URL outside the page, for destinations that refuse
	// to be embedded.
	OpenTab
)

func (k CommandKind) String() string {
	if k == OpenTab {
		return "open-tab"
	}
	return "open-preview"
}

// Command is the engine's output.
type Command struct {
	Kind   CommandKind
	URL    string
	Anchor geometry.Point
	// Source names the gesture that produced the command, for logs.
	Source string
}

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the host's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}
