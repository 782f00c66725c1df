package app

import (
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/theme"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

// SettingsMsg delivers a settings snapshot published by the provider.
type SettingsMsg struct {
	Settings config.Settings
}

type notificationExpiredMsg struct {
	id string
}

// InputHandler handles keyboard and mouse messages. It lives in the input
// package, which imports this one.
type InputHandler func(msg tea.Msg, v *Viewer) (tea.Model, tea.Cmd)

var inputHandler InputHandler

// SetInputHandler registers the input handler. It must be called before the
// program starts.
func SetInputHandler(handler InputHandler) {
	inputHandler = handler
}

// Init starts loading the first page and asks the terminal for its
// background color.
func (v *Viewer) Init() tea.Cmd {
	if v.Source != "" {
		v.Navigate(v.Source, false)
	}
	cmds := []tea.Cmd{
		tea.RequestBackgroundColor,
		ListenForSettings(v.settings),
	}
	return tea.Batch(append(cmds, v.flush()...)...)
}

// ListenForSettings waits for the next snapshot from the provider.
func ListenForSettings(ch <-chan config.Settings) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return SettingsMsg{Settings: s}
	}
}

// Update handles every message. Commands queued by the engine, the manager
// and the host during the call are batched into the result.
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyPressMsg, tea.KeyReleaseMsg, tea.MouseClickMsg, tea.MouseMotionMsg,
		tea.MouseReleaseMsg, tea.MouseWheelMsg:
		if inputHandler != nil {
			_, cmd = inputHandler(msg, v)
		}

	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)

	case tea.BackgroundColorMsg:
		v.DarkBackground = msg.IsDark()
		v.Palette = theme.Resolve(v.Settings.Theme, v.Settings.Palette, v.DarkBackground)

	case tea.BlurMsg:
		v.Engine.Handle(trigger.Event{Type: trigger.Blur})
		v.Manager.CancelInteractions()
		v.Pointer.Press = nil
		// The engine forgot held modifiers; the next mouse report replays them.
		v.Pointer.Mods = 0

	case TimerMsg:
		v.Timers.Fire(msg.ID)

	case FrameMsg:
		v.frameScheduled = false
		v.Frames.RunFrame()

	case SettingsMsg:
		v.ApplySettings(msg.Settings)
		cmd = ListenForSettings(v.settings)

	case PageLoadedMsg:
		v.pageLoaded(msg)

	case PreviewLoadedMsg:
		v.Manager.Loaded(msg.ID, msg.Gen, msg.Content)
		if msg.Content.Err != nil {
			v.log.Warn("preview load failed", "id", msg.ID, "err", msg.Content.Err)
		}

	case notificationExpiredMsg:
		v.dismiss(msg.id)
	}

	if v.Quitting {
		v.Cleanup()
		return v, tea.Quit
	}
	cmds := append(v.flush(), cmd)
	return v, tea.Batch(cmds...)
}

// flush collects queued commands and keeps the frame clock running while a
// frame callback is waiting.
func (v *Viewer) flush() []tea.Cmd {
	cmds := append(v.cmds, v.Timers.Drain()...)
	v.cmds = nil
	if v.Frames.Pending() && !v.frameScheduled {
		v.frameScheduled = true
		if v.Manager.Busy() {
			cmds = append(cmds, InteractionFrameCmd())
		} else {
			cmds = append(cmds, FrameCmd())
		}
	}
	return cmds
}

// expired reports whether a notification is past its deadline.
func (n Notification) expired(now time.Time) bool {
	return !now.Before(n.Until)
}
