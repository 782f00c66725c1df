package app

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/charmbracelet/x/ansi"
)

func (v *Viewer) renderOverlays() []*lipgloss.Layer {
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(v.renderStatusBar()).X(0).Y(v.PageHeight()).Z(zStatus).ID("status"),
	}

	y := 0
	now := time.Now()
	for _, n := range v.Notifications {
		if n.expired(now) {
			continue
		}
		box := v.renderNotification(n)
		x := max(v.Width-lipgloss.Width(box)-1, 0)
		layers = append(layers, lipgloss.NewLayer(box).X(x).Y(y).Z(zNotifications).ID("notification-"+n.ID))
		y += lipgloss.Height(box)
	}

	if v.ShowHelp {
		help := v.renderHelp()
		x := max((v.Width-lipgloss.Width(help))/2, 0)
		hy := max((v.Height-lipgloss.Height(help))/2, 0)
		layers = append(layers, lipgloss.NewLayer(help).X(x).Y(hy).Z(zHelp).ID("help"))
	}
	return layers
}

func (v *Viewer) renderStatusBar() string {
	p := v.Palette
	bar := lipgloss.NewStyle().Foreground(p.TitleFg).Background(p.TitleBg)
	badge := lipgloss.NewStyle().Foreground(p.Bg).Background(p.Accent).Bold(true).Padding(0, 1)

	left := badge.Render("linkpeek")
	title := v.Source
	if v.Doc != nil && v.Doc.Title != "" {
		title = v.Doc.Title
	}
	if v.Loading {
		title = "loading " + v.Source
	}

	mode := string(v.Settings.TriggerMode)
	if v.Engine.State().Inert {
		mode += " (inert)"
	}
	right := fmt.Sprintf(" %s │ %d/%d │ %s help ", mode, v.Manager.Len(), v.Manager.Options().MaxWindows,
		v.keyHint(config.ActionToggleHelp, "?"))

	room := v.Width - lipgloss.Width(left) - ansi.StringWidth(right) - 2
	middle := ""
	if room > 0 {
		middle = " " + ansi.Truncate(title, room, "…")
	}
	fill := max(v.Width-lipgloss.Width(left)-ansi.StringWidth(middle)-ansi.StringWidth(right), 0)
	line := left + bar.Render(middle+strings.Repeat(" ", fill)+right)
	return ansi.Truncate(line, v.Width, "")
}

func (v *Viewer) renderNotification(n Notification) string {
	p := v.Palette
	accent := p.Accent
	switch n.Type {
	case "error":
		accent = p.Error
	case "warning":
		accent = p.Code
	case "success":
		accent = p.Pinned
	}
	maxW := max(min(v.Width/2, 60), 10)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Foreground(p.Fg).
		Background(p.WindowBg).
		Padding(0, 1).
		Width(maxW).
		Render(n.Message)
}

func (v *Viewer) renderHelp() string {
	p := v.Palette
	title := lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	key := lipgloss.NewStyle().Foreground(p.Link).Bold(true)
	desc := lipgloss.NewStyle().Foreground(p.Fg)

	var b strings.Builder
	b.WriteString(title.Render("linkpeek") + desc.Render(fmt.Sprintf("  trigger: %s", v.Settings.TriggerMode)))
	for _, section := range config.GetKeybindings(v.Keys) {
		b.WriteString("\n\n" + title.Render(section.Title))
		for _, kb := range section.Bindings {
			b.WriteString("\n" + key.Render(fmt.Sprintf("  %-14s", kb.Key)) + desc.Render(kb.Description))
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.BorderActive).
		Background(p.WindowBg).
		Padding(1, 2).
		Render(b.String())
}
