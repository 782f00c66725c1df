package input

import (
	"math"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

// modifierKey returns the DOM key name and bit for a bare modifier key.
// Terminals report these only with the kitty keyboard protocol.
func modifierKey(code rune) (string, trigger.Mods, bool) {
	switch code {
	case tea.KeyLeftAlt, tea.KeyRightAlt:
		return "Alt", trigger.ModAlt, true
	case tea.KeyLeftCtrl, tea.KeyRightCtrl:
		return "Control", trigger.ModCtrl, true
	case tea.KeyLeftShift, tea.KeyRightShift:
		return "Shift", trigger.ModShift, true
	}
	return "", 0, false
}

// HandleKeyPress runs bound actions, scrolls, and forwards modifier presses
// to the trigger engine.
func HandleKeyPress(msg tea.KeyPressMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	if key, bit, ok := modifierKey(msg.Code); ok {
		v.Pointer.Mods |= bit
		dispatch(v, trigger.Event{Type: trigger.KeyDown, Key: key})
		return v, nil
	}

	key := msg.String()
	if key == "esc" {
		switch {
		case v.ShowHelp:
			v.ShowHelp = false
		case v.Manager.Escape():
		default:
			v.Selection = nil
		}
		return v, nil
	}

	if action := v.Keys.Action(key); action != "" {
		runAction(v, action)
		return v, nil
	}

	switch key {
	case "up", "k":
		scroll(v, -1)
	case "down", "j":
		scroll(v, 1)
	case "pgup", "ctrl+u":
		scroll(v, -max(v.PageHeight()-1, 1))
	case "pgdown", "space", "ctrl+d":
		scroll(v, max(v.PageHeight()-1, 1))
	case "home", "g":
		scroll(v, math.MinInt32)
	case "end", "G":
		scroll(v, math.MaxInt32)
	case "backspace":
		if !v.Back() {
			v.ShowNotification("No previous page", "info", 2*time.Second)
		}
	}
	return v, nil
}

// HandleKeyRelease forwards modifier releases to the trigger engine.
func HandleKeyRelease(msg tea.KeyReleaseMsg, v *app.Viewer) (*app.Viewer, tea.Cmd) {
	if key, bit, ok := modifierKey(msg.Code); ok {
		v.Pointer.Mods &^= bit
		dispatch(v, trigger.Event{Type: trigger.KeyUp, Key: key})
	}
	return v, nil
}

// scroll moves the window under the pointer, or the page.
func scroll(v *app.Viewer, delta int) {
	if w, ok := v.Manager.Get(v.Pointer.HoverWindow); ok {
		if wv := v.Views[w.ID()]; wv != nil {
			wv.ScrollBy(delta, app.Cells(w.Visual()).H-2)
		}
		return
	}
	v.ScrollBy(delta)
	if v.Pointer.Known && v.Pointer.Press == nil {
		pointerAt(v, v.Pointer.X, v.Pointer.Y)
	}
}

// runAction performs a keybinding action. Window actions apply to the
// focused window.
func runAction(v *app.Viewer, action string) {
	switch action {
	case config.ActionQuit:
		v.Quitting = true
		return
	case config.ActionToggleHelp:
		v.ShowHelp = !v.ShowHelp
		return
	case config.ActionCycleTrigger:
		v.CycleTrigger()
		return
	case config.ActionToggleTheme:
		v.ToggleTheme()
		return
	case config.ActionCloseAll:
		v.Manager.CloseAll()
		return
	}

	w := v.Focused()
	if w == nil {
		return
	}
	switch action {
	case config.ActionCloseWindow:
		v.Manager.Close(w.ID())
	case config.ActionTogglePin:
		v.Manager.TogglePin(w.ID())
	case config.ActionRefresh:
		v.Manager.Refresh(w.ID())
	case config.ActionOpenInNewTab:
		v.Manager.OpenInNewTab(w.ID())
	}
}
