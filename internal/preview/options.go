package preview

import (
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// Options is the window-facing view of a settings snapshot.
type Options struct {
	Size       config.SizeClass
	Placement  geometry.Placement
	MaxWindows int
	AutoPin    bool
	// Dim is how strongly the page behind a hovered window is darkened, from
	// 0 (not at all) to 1.
	Dim   float64
	Theme config.ThemeMode
}

// OptionsFrom translates a settings snapshot. Out-of-range values are
// clamped so a hand-built snapshot cannot break the capacity policy.
func OptionsFrom(s config.Settings) Options {
	o := Options{
		Size:       s.PopupSize,
		Placement:  s.PopupPosition,
		MaxWindows: min(max(s.MaxWindows, config.MinMaxWindows), config.MaxMaxWindows),
		AutoPin:    s.AutoPin,
		Dim:        float64(100-min(max(s.BackgroundOpacity, 0), 100)) / 100,
		Theme:      s.Theme,
	}
	if !o.Placement.Valid() {
		o.Placement = geometry.PlaceCenter
	}
	switch o.Size {
	case config.SizeLast, config.SizeSmall, config.SizeMedium, config.SizeLarge:
	default:
		o.Size = config.SizeMedium
	}
	return o
}

// Metrics are the host's units: pixels for the browser, cells for the
// terminal.
type Metrics struct {
	Min    geometry.Size
	Margin float64
}

// PixelMetrics are used by the extension bridge.
var PixelMetrics = Metrics{
	Min:    geometry.Size{Width: config.MinWindowWidth, Height: config.MinWindowHeight},
	Margin: config.WindowMargin,
}

// CellMetrics are used by the terminal host.
var CellMetrics = Metrics{
	Min:    geometry.Size{Width: config.MinCellWidth, Height: config.MinCellHeight},
	Margin: config.CellMargin,
}

// sizeFor returns the initial size of a new window. remembered is consulted
// for the last size class only.
func sizeFor(class config.SizeClass, viewport geometry.Size, mt Metrics, remembered *geometry.Size) geometry.Size {
	if class == config.SizeLast && remembered != nil {
		return geometry.Size{
			Width:  max(remembered.Width, mt.Min.Width),
			Height: max(remembered.Height, mt.Min.Height),
		}
	}
	f := class.Fraction()
	return geometry.Size{
		Width:  max(f*(viewport.Width-2*mt.Margin), mt.Min.Width),
		Height: max(f*(viewport.Height-2*mt.Margin), mt.Min.Height),
	}
}
