// Package theme resolves the colors of the page and preview windows from the
// configured light/dark mode and optional bubbletint palette.
package theme

import (
	"image/color"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/charmbracelet/colorprofile"
	"github.com/lucasb-eyer/go-colorful"
	tint "github.com/lrstanley/bubbletint/v2"
)

// Palette is every color the renderer needs.
type Palette struct {
	Name string
	Dark bool

	Fg      color.Color
	Bg      color.Color
	Muted   color.Color
	Link    color.Color
	Hover   color.Color
	Heading color.Color
	Code    color.Color

	WindowBg     color.Color
	Border       color.Color
	BorderActive color.Color
	Pinned       color.Color
	TitleFg      color.Color
	TitleBg      color.Color
	Error        color.Color
	Accent       color.Color
}

var darkPalette = Palette{
	Name:         "dark",
	Dark:         true,
	Fg:           lipgloss.Color("#d4d4d8"),
	Bg:           lipgloss.Color("#18181b"),
	Muted:        lipgloss.Color("#71717a"),
	Link:         lipgloss.Color("#60a5fa"),
	Hover:        lipgloss.Color("#93c5fd"),
	Heading:      lipgloss.Color("#fafafa"),
	Code:         lipgloss.Color("#fbbf24"),
	WindowBg:     lipgloss.Color("#27272a"),
	Border:       lipgloss.Color("#52525b"),
	BorderActive: lipgloss.Color("#a78bfa"),
	Pinned:       lipgloss.Color("#34d399"),
	TitleFg:      lipgloss.Color("#fafafa"),
	TitleBg:      lipgloss.Color("#3f3f46"),
	Error:        lipgloss.Color("#f87171"),
	Accent:       lipgloss.Color("#a78bfa"),
}

var lightPalette = Palette{
	Name:         "light",
	Fg:           lipgloss.Color("#27272a"),
	Bg:           lipgloss.Color("#fafafa"),
	Muted:        lipgloss.Color("#a1a1aa"),
	Link:         lipgloss.Color("#1d4ed8"),
	Hover:        lipgloss.Color("#2563eb"),
	Heading:      lipgloss.Color("#09090b"),
	Code:         lipgloss.Color("#b45309"),
	WindowBg:     lipgloss.Color("#ffffff"),
	Border:       lipgloss.Color("#d4d4d8"),
	BorderActive: lipgloss.Color("#7c3aed"),
	Pinned:       lipgloss.Color("#059669"),
	TitleFg:      lipgloss.Color("#18181b"),
	TitleBg:      lipgloss.Color("#e4e4e7"),
	Error:        lipgloss.Color("#dc2626"),
	Accent:       lipgloss.Color("#7c3aed"),
}

var initOnce sync.Once

// Initialize loads the bundled palettes and the user's custom ones. It is
// safe to call more than once.
func Initialize(log logging.Logger) {
	initOnce.Do(func() {
		tint.NewDefaultRegistry()
		dir, err := ThemesDir()
		if err != nil {
			log.Warn("themes directory unavailable", "err", err)
			return
		}
		if ids, err := LoadCustomThemes(dir, log); err != nil {
			log.Warn("loading custom themes", "err", err)
		} else if len(ids) > 0 {
			log.Info("custom themes loaded", "ids", ids)
		}
	})
}

// IDs lists the palettes that can be named in the config.
func IDs() []string {
	return tint.TintIDs()
}

// Resolve picks the palette for a settings snapshot. A named palette wins
// over the light/dark mode; ThemeSystem follows darkBackground, the
// terminal's reported background.
func Resolve(mode config.ThemeMode, paletteID string, darkBackground bool) Palette {
	if paletteID != "" && tint.SetTintID(paletteID) {
		if t := tint.Current(); t != nil {
			return FromTint(t)
		}
	}
	switch mode {
	case config.ThemeLight:
		return lightPalette
	case config.ThemeDark:
		return darkPalette
	}
	if darkBackground {
		return darkPalette
	}
	return lightPalette
}

// Builtin returns the bundled light or dark palette.
func Builtin(dark bool) Palette {
	if dark {
		return darkPalette
	}
	return lightPalette
}

// FromTint maps a terminal color scheme onto the renderer's roles.
func FromTint(t *tint.Tint) Palette {
	p := Palette{
		Name:         t.ID,
		Dark:         t.Dark,
		Fg:           t.Fg,
		Bg:           t.Bg,
		Muted:        t.BrightBlack,
		Link:         t.Blue,
		Hover:        t.BrightBlue,
		Heading:      t.BrightWhite,
		Code:         t.Yellow,
		Border:       t.BrightBlack,
		BorderActive: t.Purple,
		Pinned:       t.Green,
		TitleFg:      t.Fg,
		Error:        t.Red,
		Accent:       t.Cyan,
	}
	if !t.Dark {
		p.Heading = t.Black
	}
	p.WindowBg = Blend(t.Bg, t.Fg, 0.06)
	p.TitleBg = Blend(t.Bg, t.Fg, 0.15)
	return p
}

// Blend mixes a toward b by f in the Lab space. Colors that cannot be
// represented fall back to a.
func Blend(a, b color.Color, f float64) color.Color {
	ca, ok := colorful.MakeColor(a)
	if !ok {
		return a
	}
	cb, ok := colorful.MakeColor(b)
	if !ok {
		return a
	}
	return ca.BlendLab(cb, f).Clamped()
}

// maxDim keeps the page readable at full dimming.
const maxDim = 0.7

// Backdrop darkens (or, on light palettes, washes out) a page color behind a
// hovered window. dim is 0 to 1.
func (p Palette) Backdrop(c color.Color, dim float64) color.Color {
	if dim <= 0 || c == nil {
		return c
	}
	toward := color.Color(color.Black)
	if !p.Dark {
		toward = color.White
	}
	return Blend(c, toward, min(dim, 1)*maxDim)
}

// BlendsColors reports whether the profile can show a blended backdrop.
// Profiles with few colors dim with the faint attribute instead.
func BlendsColors(profile colorprofile.Profile) bool {
	switch profile {
	case colorprofile.TrueColor, colorprofile.ANSI256:
		return true
	default:
		return false
	}
}
