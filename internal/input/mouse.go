package input

import (
	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

const (
	// dragThreshold is the distance in cells a held button must travel
	// before the press becomes a drag or a selection.
	dragThreshold = 2
	wheelStep     = 3
)

// domButton maps a terminal button to the DOM button index.
func domButton(b tea.MouseButton) int {
	switch b {
	case tea.MouseMiddle:
		return 1
	case tea.MouseRight:
		return 2
	}
	return 0
}

func pointerEvent(x, y int) interaction.PointerEvent {
	return interaction.PointerEvent{PointerID: pointerID, Point: app.CellPoint(x, y)}
}

// handleMouseClick handles button presses. A press on a window's chrome
// starts a drag or resize, a press on the page becomes mousedown and closes
// the unpinned windows elsewhere.
func handleMouseClick(msg tea.MouseClickMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	mouse := msg.Mouse()
	x, y := mouse.X, mouse.Y
	syncMods(v, mouse.Mod)
	v.Pointer.X, v.Pointer.Y, v.Pointer.Known = x, y, true
	button := domButton(mouse.Button)

	if w, hit := v.WindowAt(x, y); w != nil {
		v.Pointer.Press = &app.Press{X: x, Y: y, Button: button, Window: w.ID(), Hit: hit}
		if button != 0 {
			return v, nil
		}
		if kind, ok := hit.Kind(); ok {
			v.Manager.BeginInteraction(w.ID(), kind, pointerEvent(x, y))
			return v, nil
		}
		v.Manager.Raise(w.ID())
		return v, nil
	}

	pt := app.CellPoint(x, y)
	v.Manager.ClickOutside(pt)
	if y >= v.PageHeight() {
		return v, nil
	}

	el := v.ElementAt(x, y)
	pos := v.PagePos(x, y)
	p := &app.Press{X: x, Y: y, Button: button, Target: el, Pos: pos}
	p.InSelection = v.Selection != nil && v.Selection.Contains(pos)
	v.Pointer.Press = p

	dispatch(v, trigger.Event{Type: trigger.MouseDown, Target: el, Point: pt, Button: button})
	if !p.InSelection && button == 0 {
		v.Selection = nil
	}
	return v, nil
}

// handleMouseMotion tracks hover over links and windows and advances any
// drag, resize or selection in progress.
func handleMouseMotion(msg tea.MouseMotionMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	mouse := msg.Mouse()
	x, y := mouse.X, mouse.Y
	syncMods(v, mouse.Mod)
	v.Pointer.X, v.Pointer.Y, v.Pointer.Known = x, y, true

	if p := v.Pointer.Press; p != nil {
		if p.Window != "" {
			v.Manager.PointerMove(pointerEvent(x, y))
			return v, nil
		}
		extendPress(v, p, x, y)
		if p.Dragging {
			return v, nil
		}
	}

	pointerAt(v, x, y)
	return v, nil
}

// pointerAt updates hover state for the pointer resting on (x, y).
func pointerAt(v *app.Viewer, x, y int) {
	pt := app.CellPoint(x, y)
	v.Manager.PointerMoved(pt)

	id := ""
	if w, _ := v.WindowAt(x, y); w != nil {
		id = w.ID()
	}
	if id != v.Pointer.HoverWindow {
		if v.Pointer.HoverWindow != "" {
			v.Manager.PointerLeave(v.Pointer.HoverWindow)
		}
		if id != "" {
			v.Manager.PointerEnter(id)
		}
		v.Pointer.HoverWindow = id
	}

	// Windows cover the page: the link underneath is left.
	if id != "" || y >= v.PageHeight() {
		hover(v, nil, pt)
		return
	}
	el := v.ElementAt(x, y)
	dispatch(v, trigger.Event{Type: trigger.MouseMove, Target: el, Point: pt})
	hover(v, el, pt)
}

// hover moves the hovered link to the anchor of el, sending mouseleave and
// mouseenter when it changes.
func hover(v *app.Viewer, el *trigger.Element, pt geometry.Point) {
	next := el.Anchor()
	prev := v.Pointer.Hovered
	if next == prev {
		return
	}
	v.Pointer.Hovered = next
	if prev != nil {
		dispatch(v, trigger.Event{Type: trigger.MouseLeave, Target: prev, Point: pt})
	}
	if next != nil {
		dispatch(v, trigger.Event{Type: trigger.MouseEnter, Target: el, Point: pt})
	}
}

// extendPress turns a page press that moved far enough into a drag (from a
// link or the selection) or a text selection.
func extendPress(v *app.Viewer, p *app.Press, x, y int) {
	if p.Suppressed || p.Button != 0 {
		return
	}
	if !p.Dragging && !p.Selecting {
		if abs(x-p.X)+abs(y-p.Y) < dragThreshold {
			return
		}
		start := app.CellPoint(p.X, p.Y)
		if p.Target.Anchor() != nil || p.InSelection {
			p.Dragging = true
			dispatch(v, trigger.Event{Type: trigger.DragStart, Target: p.Target, Point: start})
			return
		}
		if dispatch(v, trigger.Event{Type: trigger.SelectStart, Target: p.Target, Point: start}).PreventDefault {
			p.Suppressed = true
			return
		}
		p.Selecting = true
		v.Selection = &app.Selection{From: p.Pos, To: p.Pos}
	}
	if p.Selecting {
		y = min(max(y, 0), v.PageHeight()-1)
		v.Selection.To = v.PagePos(max(x, 0), y)
	}
}

// handleMouseRelease ends whatever the press started. A release on the page
// that did not drag is a click; an unprevented left click on a link
// navigates to it.
func handleMouseRelease(msg tea.MouseReleaseMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	mouse := msg.Mouse()
	x, y := mouse.X, mouse.Y
	syncMods(v, mouse.Mod)
	v.Pointer.X, v.Pointer.Y, v.Pointer.Known = x, y, true

	p := v.Pointer.Press
	v.Pointer.Press = nil
	if p == nil {
		return v, nil
	}
	pt := app.CellPoint(x, y)

	if p.Window != "" {
		if v.Manager.PointerUp(pointerEvent(x, y)) {
			return v, nil
		}
		if !p.Hit.IsButton() {
			return v, nil
		}
		// Buttons act only when released over the same button.
		if w, hit := v.WindowAt(x, y); w != nil && w.ID() == p.Window && hit == p.Hit {
			pressButton(v, w.ID(), hit)
		}
		return v, nil
	}

	if p.Dragging {
		dispatch(v, trigger.Event{Type: trigger.DragEnd, Target: p.Target, Point: pt})
		pointerAt(v, x, y)
		return v, nil
	}

	el := v.ElementAt(x, y)
	dispatch(v, trigger.Event{Type: trigger.MouseUp, Target: el, Point: pt, Button: p.Button})
	if p.Selecting || el != p.Target {
		return v, nil
	}
	verdict := dispatch(v, trigger.Event{Type: trigger.Click, Target: el, Point: pt, Button: p.Button})
	if verdict.PreventDefault || p.Button != 0 {
		return v, nil
	}
	if a := el.Anchor(); a != nil {
		v.FollowLink(a)
	}
	return v, nil
}

func pressButton(v *app.Viewer, id string, hit app.Hit) {
	switch hit {
	case app.HitClose:
		v.Manager.Close(id)
	case app.HitPin:
		v.Manager.TogglePin(id)
	case app.HitRefresh:
		v.Manager.Refresh(id)
	case app.HitOpenTab:
		v.Manager.OpenInNewTab(id)
	}
}

// handleMouseWheel scrolls the window under the pointer, or the page.
func handleMouseWheel(msg tea.MouseWheelMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	mouse := msg.Mouse()
	delta := 0
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = -wheelStep
	case tea.MouseWheelDown:
		delta = wheelStep
	default:
		return v, nil
	}

	if w, _ := v.WindowAt(mouse.X, mouse.Y); w != nil {
		if wv := v.Views[w.ID()]; wv != nil {
			wv.ScrollBy(delta, app.Cells(w.Visual()).H-2)
		}
		return v, nil
	}
	v.ScrollBy(delta)
	// The text under a resting pointer changed.
	if v.Pointer.Known && v.Pointer.Press == nil {
		pointerAt(v, v.Pointer.X, v.Pointer.Y)
	}
	return v, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
