// Package input translates terminal mouse and keyboard messages into trigger
// engine events and preview window operations.
//
// The page is laid out on the terminal grid, so a cell stands in for a DOM
// element: the element under the pointer is the innermost element whose text
// covers the cell.
package input

import (
	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

// pointerID identifies the terminal's single pointer to the interaction
// controller.
const pointerID = 1

// HandleInput is the main input coordinator that routes messages to the
// mouse and keyboard handlers.
func HandleInput(msg tea.Msg, v *app.Viewer) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return HandleKeyPress(msg, v)
	case tea.KeyReleaseMsg:
		return HandleKeyRelease(msg, v)
	case tea.MouseClickMsg:
		return handleMouseClick(msg, v)
	case tea.MouseMotionMsg:
		return handleMouseMotion(msg, v)
	case tea.MouseReleaseMsg:
		return handleMouseRelease(msg, v)
	case tea.MouseWheelMsg:
		return handleMouseWheel(msg, v)
	}
	return v, nil
}

// dispatch hands ev to the trigger engine with the current selection and,
// unless the event carries its own, the last known modifiers.
func dispatch(v *app.Viewer, ev trigger.Event) trigger.Verdict {
	if ev.Mods == 0 {
		ev.Mods = v.Pointer.Mods
	}
	ev.Selection = v.SelectedText()
	ev.PointerID = pointerID
	return v.Engine.Handle(ev)
}

// modifierKeys pairs each modifier bit with its DOM key name.
var modifierKeys = []struct {
	bit trigger.Mods
	key string
}{
	{trigger.ModAlt, "Alt"},
	{trigger.ModCtrl, "Control"},
	{trigger.ModShift, "Shift"},
}

func mods(m tea.KeyMod) trigger.Mods {
	var out trigger.Mods
	if m.Contains(tea.ModAlt) {
		out |= trigger.ModAlt
	}
	if m.Contains(tea.ModCtrl) {
		out |= trigger.ModCtrl
	}
	if m.Contains(tea.ModShift) {
		out |= trigger.ModShift
	}
	if m.Contains(tea.ModMeta) || m.Contains(tea.ModSuper) {
		out |= trigger.ModMeta
	}
	return out
}

// syncMods records the modifiers reported with a mouse event. Most terminals
// never send bare modifier key presses, so a change seen here is replayed to
// the engine as keydown or keyup.
func syncMods(v *app.Viewer, m tea.KeyMod) {
	next := mods(m)
	prev := v.Pointer.Mods
	v.Pointer.Mods = next
	for _, mk := range modifierKeys {
		switch {
		case next.Has(mk.bit) && !prev.Has(mk.bit):
			dispatch(v, trigger.Event{Type: trigger.KeyDown, Key: mk.key, Mods: next})
		case !next.Has(mk.bit) && prev.Has(mk.bit):
			dispatch(v, trigger.Event{Type: trigger.KeyUp, Key: mk.key, Mods: next})
		}
	}
}
