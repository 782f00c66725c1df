// Package bridge serves the trigger engine and window manager to a browser
// content script over a localhost websocket.
//
// The script forwards raw DOM events as JSON. Each connection owns one
// engine and one manager; their output comes back as commands the script
// applies to the page: which events to listen for, whether to cancel a
// default action, and where to draw each preview window.
package bridge

import "github.com/Gaurav-Gosain/linkpeek/internal/trigger"

// Incoming message types.
const (
	TypeHello    = "hello"
	TypeViewport = "viewport"
	TypeEvent    = "event"
	TypePointer  = "pointer"
	TypeWindow   = "window"
	TypeOutside  = "outside"
	TypeKey      = "key"
)

// Outgoing message types.
const (
	TypeListen       = "listen"
	TypeVerdict      = "verdict"
	TypeOpenTab      = "openTab"
	TypeWindowOpen   = "window.open"
	TypeWindowUpdate = "window.update"
	TypeWindowClose  = "window.close"
	TypeCapture      = "capture"
	TypeRelease      = "release"
	TypeError        = "error"
)

// Node is one element on the path from an event target to the document
// root. IDs are assigned by the script and stay stable for the page's
// lifetime, so the same DOM element always maps to the same Element.
type Node struct {
	ID   int    `json:"id"`
	Tag  string `json:"tag"`
	Href string `json:"href,omitempty"`
}

// Modifiers mirrors the modifier flags of a DOM event.
type Modifiers struct {
	Alt   bool `json:"alt,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Shift bool `json:"shift,omitempty"`
	Meta  bool `json:"meta,omitempty"`
}

func (m Modifiers) bits() trigger.Mods {
	var out trigger.Mods
	if m.Alt {
		out |= trigger.ModAlt
	}
	if m.Ctrl {
		out |= trigger.ModCtrl
	}
	if m.Shift {
		out |= trigger.ModShift
	}
	if m.Meta {
		out |= trigger.ModMeta
	}
	return out
}

// Event is a DOM event as captured by the script.
type Event struct {
	Type string `json:"type"`
	// Path starts at the target.
	Path      []Node    `json:"path,omitempty"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Button    int       `json:"button,omitempty"`
	Key       string    `json:"key,omitempty"`
	Mods      Modifiers `json:"mods"`
	Selection string    `json:"selection,omitempty"`
	PointerID int       `json:"pointerId,omitempty"`
}

// Size is a viewport in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Incoming is a message from the script.
type Incoming struct {
	Type string `json:"type"`
	// Seq is echoed in the verdict for an event.
	Seq      int64  `json:"seq,omitempty"`
	URL      string `json:"url,omitempty"`
	Viewport *Size  `json:"viewport,omitempty"`
	Event    *Event `json:"event,omitempty"`

	// Window targets pointer and window messages.
	Window    string  `json:"window,omitempty"`
	Action    string  `json:"action,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	PointerID int     `json:"pointerId,omitempty"`
	Key       string  `json:"key,omitempty"`
}

// WindowState is everything the script needs to draw one window.
type WindowState struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Z         int     `json:"z"`
	Pinned    bool    `json:"pinned"`
	Following bool    `json:"following"`
	Hovered   bool    `json:"hovered"`
	Dragging  bool    `json:"dragging"`
	Status    string  `json:"status"`
	// Refused is set when the page forbids framing; the script shows an
	// open-in-new-tab prompt instead of the frame.
	Refused bool   `json:"refused,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outgoing is a command for the script.
type Outgoing struct {
	Type           string       `json:"type"`
	Seq            int64        `json:"seq,omitempty"`
	Events         []string     `json:"events,omitempty"`
	PreventDefault bool         `json:"preventDefault,omitempty"`
	URL            string       `json:"url,omitempty"`
	Window         *WindowState `json:"window,omitempty"`
	// WindowID names the target of close, capture and release.
	WindowID  string `json:"windowId,omitempty"`
	PointerID int    `json:"pointerId,omitempty"`
	// Theme and Dim accompany listen so the script can style the windows
	// and the backdrop.
	Theme string  `json:"theme,omitempty"`
	Dim   float64 `json:"dim,omitempty"`
	Error string  `json:"error,omitempty"`
}

func eventNames(types []trigger.EventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
