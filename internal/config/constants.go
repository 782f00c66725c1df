// Package config provides configuration constants, the user config file and
// the settings provider consumed by the preview engine.
package config

import "time"

// =============================================================================
// Window Defaults
// =============================================================================

const (
	// MinWindowWidth is the floor applied to every resize, in CSS pixels.
	MinWindowWidth = 320

	// MinWindowHeight is the floor applied to every resize, in CSS pixels.
	MinWindowHeight = 240

	// MinCellWidth is the terminal host's floor, in cells.
	MinCellWidth = 24

	// MinCellHeight is the terminal host's floor, in cells.
	MinCellHeight = 8

	// WindowMargin keeps windows this far from every viewport edge.
	WindowMargin = 16

	// CellMargin is WindowMargin for the terminal host.
	CellMargin = 1

	// MinMaxWindows and MaxMaxWindows bound the concurrent window cap.
	MinMaxWindows = 1
	MaxMaxWindows = 6

	// MaxDisabledSites is the most domains the disabled list may hold.
	MaxDisabledSites = 10
)

// Size class fractions of the usable viewport.
const (
	SmallFraction  = 0.4
	MediumFraction = 0.6
	LargeFraction  = 0.8
)

// =============================================================================
// Trigger Timing
// =============================================================================

const (
	MinHoverDelay     = 100 * time.Millisecond
	MaxHoverDelay     = 3 * time.Second
	DefaultHoverDelay = 500 * time.Millisecond

	MinLongPressDelay     = 200 * time.Millisecond
	MaxLongPressDelay     = 3 * time.Second
	DefaultLongPressDelay = 500 * time.Millisecond
)

// =============================================================================
// FPS and Refresh Rates
// =============================================================================

const (
	// NormalFPS drives the frame clock that coalesces pointer moves.
	NormalFPS = 60

	// InteractionFPS is used by the terminal host while a gesture is active.
	// Lower FPS during interactions improves mouse responsiveness.
	InteractionFPS = 30
)

// =============================================================================
// Bridge and Fetch
// =============================================================================

const (
	// DefaultBridgeAddr is where `linkpeek serve` listens.
	DefaultBridgeAddr = "127.0.0.1:19191"

	// DefaultSSHHost and DefaultSSHPort are where `linkpeek ssh` listens.
	DefaultSSHHost = "localhost"
	DefaultSSHPort = "2222"

	// DefaultFetchTimeout bounds a single preview content load.
	DefaultFetchTimeout = 15 * time.Second
)

// =============================================================================
// Window Chrome Characters
// =============================================================================

// ChromeGlyphs are the title bar buttons of a preview window. Each is one
// cell wide.
type ChromeGlyphs struct {
	Unpinned, Pinned, Refresh, OpenTab, Close string
}

var (
	// UnicodeChrome works with any font.
	UnicodeChrome = ChromeGlyphs{
		Unpinned: "○",
		Pinned:   "●",
		Refresh:  "↻",
		OpenTab:  "↗",
		Close:    "×",
	}

	// NerdFontChrome needs a patched font.
	NerdFontChrome = ChromeGlyphs{
		Unpinned: string(rune(0xf435)), // nf-oct-pin
		Pinned:   string(rune(0xf08d)), // nf-fa-thumb_tack
		Refresh:  string(rune(0xf021)), // nf-fa-refresh
		OpenTab:  string(rune(0xf08e)), // nf-fa-external_link
		Close:    string(rune(0xf00d)), // nf-fa-times
	}
)

// Chrome returns the button glyphs for s.
func (s Settings) Chrome() ChromeGlyphs {
	if s.NerdFont {
		return NerdFontChrome
	}
	return UnicodeChrome
}

// DefaultEmbedRefusedDomains are hosts known to refuse framing.
var DefaultEmbedRefusedDomains = []string{
	"github.com",
	"google.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"linkedin.com",
}
