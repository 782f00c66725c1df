package config

import (
	"slices"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
)

// TriggerMode is the gesture that opens a preview.
type TriggerMode string

const (
	TriggerDrag          TriggerMode = "drag"
	TriggerHover         TriggerMode = "hover"
	TriggerLongPress     TriggerMode = "long-press"
	TriggerClickModifier TriggerMode = "click-modifier"
	TriggerHoverModifier TriggerMode = "hover-modifier"
	TriggerDisabled      TriggerMode = "disabled"
)

// TriggerModes lists every valid mode in display order.
var TriggerModes = []TriggerMode{
	TriggerDrag, TriggerHover, TriggerLongPress,
	TriggerClickModifier, TriggerHoverModifier, TriggerDisabled,
}

// Modifier is the key gating the *-modifier trigger modes.
type Modifier string

const (
	ModAlt   Modifier = "alt"
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
)

// SizeClass picks the initial size of a new window.
type SizeClass string

const (
	SizeLast   SizeClass = "last"
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// Fraction returns the share of the usable viewport a size class occupies.
// SizeLast reports the medium fraction, its fallback.
func (s SizeClass) Fraction() float64 {
	switch s {
	case SizeSmall:
		return SmallFraction
	case SizeLarge:
		return LargeFraction
	default:
		return MediumFraction
	}
}

// ThemeMode is the light/dark preference.
type ThemeMode string

const (
	ThemeSystem ThemeMode = "system"
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
)

// SearchEngine receives dragged text that is not a URL.
type SearchEngine string

const (
	EngineBing       SearchEngine = "bing"
	EngineGoogle     SearchEngine = "google"
	EngineBaidu      SearchEngine = "baidu"
	EngineDuckDuckGo SearchEngine = "duckduckgo"
)

// QueryPrefix returns the URL that a query-escaped term is appended to.
func (e SearchEngine) QueryPrefix() string {
	switch e {
	case EngineGoogle:
		return "https://www.google.com/search?q="
	case EngineBaidu:
		return "https://www.baidu.com/s?wd="
	case EngineDuckDuckGo:
		return "https://duckduckgo.com/?q="
	default:
		return "https://www.bing.com/search?q="
	}
}

// Settings is the read-only snapshot handed to the engine. It is a value;
// holders never observe later changes except through a new snapshot.
type Settings struct {
	TriggerMode    TriggerMode
	Modifier       Modifier
	HoverDelay     time.Duration
	LongPressDelay time.Duration

	PopupSize     SizeClass
	PopupPosition geometry.Placement
	MaxWindows    int
	AutoPin       bool

	// BackgroundOpacity is 0 to 100.
	BackgroundOpacity int
	Theme             ThemeMode
	Palette           string
	NerdFont          bool

	SearchEngine        SearchEngine
	AutoOpenLink        bool
	DisabledSites       []string
	EmbedRefusedDomains []string
}

// DefaultSettings returns the snapshot of DefaultConfig.
func DefaultSettings() Settings {
	return DefaultConfig().Settings()
}

// Settings converts a validated config into an engine snapshot.
func (c *UserConfig) Settings() Settings {
	s := Settings{
		TriggerMode:         TriggerMode(c.Trigger.Mode),
		Modifier:            Modifier(c.Trigger.Modifier),
		HoverDelay:          secondsToDuration(c.Trigger.HoverDelay),
		LongPressDelay:      secondsToDuration(c.Trigger.LongPressDelay),
		PopupSize:           SizeClass(c.Window.Size),
		PopupPosition:       geometry.Placement(c.Window.Position),
		MaxWindows:          c.Window.MaxWindows,
		AutoPin:             c.Window.AutoPin,
		Theme:               ThemeMode(c.Appearance.Theme),
		Palette:             c.Appearance.Palette,
		NerdFont:            c.Appearance.NerdFont,
		SearchEngine:        SearchEngine(c.Search.Engine),
		AutoOpenLink:        true,
		DisabledSites:       slices.Clone(c.Sites.Disabled),
		EmbedRefusedDomains: slices.Clone(c.Trigger.EmbedRefusedDomains),
	}
	if c.Appearance.BackgroundOpacity != nil {
		s.BackgroundOpacity = *c.Appearance.BackgroundOpacity
	}
	if c.Search.AutoOpenLink != nil {
		s.AutoOpenLink = *c.Search.AutoOpenLink
	}
	return s
}

// Equal reports whether two snapshots carry the same values.
func (s Settings) Equal(o Settings) bool {
	return s.TriggerMode == o.TriggerMode &&
		s.Modifier == o.Modifier &&
		s.HoverDelay == o.HoverDelay &&
		s.LongPressDelay == o.LongPressDelay &&
		s.PopupSize == o.PopupSize &&
		s.PopupPosition == o.PopupPosition &&
		s.MaxWindows == o.MaxWindows &&
		s.AutoPin == o.AutoPin &&
		s.BackgroundOpacity == o.BackgroundOpacity &&
		s.Theme == o.Theme &&
		s.Palette == o.Palette &&
		s.NerdFont == o.NerdFont &&
		s.SearchEngine == o.SearchEngine &&
		s.AutoOpenLink == o.AutoOpenLink &&
		slices.Equal(s.DisabledSites, o.DisabledSites) &&
		slices.Equal(s.EmbedRefusedDomains, o.EmbedRefusedDomains)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
