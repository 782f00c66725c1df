package app

import (
	"slices"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/trigger"
)

// TimerMsg fires a callback scheduled through Timers.
type TimerMsg struct {
	ID uint64
}

// FrameMsg is one tick of the frame clock.
type FrameMsg time.Time

// Timers schedules trigger callbacks as tea.Tick commands. The callback runs
// inside Update when the tick comes back, so the engine never sees another
// goroutine.
type Timers struct {
	next    uint64
	pending map[uint64]func()
	cmds    []tea.Cmd
}

// NewTimers returns an empty scheduler.
func NewTimers() *Timers {
	return &Timers{pending: make(map[uint64]func())}
}

type teaTimer struct {
	t  *Timers
	id uint64
}

func (t teaTimer) Stop() bool {
	_, ok := t.t.pending[t.id]
	delete(t.t.pending, t.id)
	return ok
}

// AfterFunc implements trigger.Scheduler.
func (t *Timers) AfterFunc(d time.Duration, f func()) trigger.Timer {
	t.next++
	id := t.next
	t.pending[id] = f
	t.cmds = append(t.cmds, tea.Tick(d, func(time.Time) tea.Msg { return TimerMsg{ID: id} }))
	return teaTimer{t: t, id: id}
}

// Fire runs the callback for id. Stopped or already fired timers are
// ignored.
func (t *Timers) Fire(id uint64) bool {
	f, ok := t.pending[id]
	if !ok {
		return false
	}
	delete(t.pending, id)
	f()
	return true
}

// IDs returns the live timers, oldest first.
func (t *Timers) IDs() []uint64 {
	ids := make([]uint64, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Drain hands over the tick commands queued since the last call.
func (t *Timers) Drain() []tea.Cmd {
	cmds := t.cmds
	t.cmds = nil
	return cmds
}

// FrameCmd waits one frame at NormalFPS.
func FrameCmd() tea.Cmd {
	return tea.Tick(time.Second/config.NormalFPS, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// InteractionFrameCmd is FrameCmd at the slower rate used while a window is
// being dragged or resized.
func InteractionFrameCmd() tea.Cmd {
	return tea.Tick(time.Second/config.InteractionFPS, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}
