package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const configRelPath = "linkpeek/config.toml"

// UserConfig represents the user's config file.
type UserConfig struct {
	Trigger     TriggerConfig     `toml:"trigger"`
	Window      WindowConfig      `toml:"window"`
	Appearance  AppearanceConfig  `toml:"appearance"`
	Search      SearchConfig      `toml:"search"`
	Sites       SitesConfig       `toml:"sites"`
	Keybindings KeybindingsConfig `toml:"keybindings"`
	Logging     LoggingConfig     `toml:"logging"`
	Bridge      BridgeConfig      `toml:"bridge"`
}

// TriggerConfig holds the gesture that opens a preview.
type TriggerConfig struct {
	Mode                string   `toml:"mode"`                  // drag, hover, long-press, click-modifier, hover-modifier, disabled
	Modifier            string   `toml:"modifier"`              // alt, ctrl, shift
	HoverDelay          float64  `toml:"hover_delay"`           // seconds, 0.1 to 3.0
	LongPressDelay      float64  `toml:"long_press_delay"`      // seconds, 0.2 to 3.0
	EmbedRefusedDomains []string `toml:"embed_refused_domains"` // hosts that always open in a new tab
}

// WindowConfig holds preview window sizing and placement.
type WindowConfig struct {
	Size       string `toml:"size"`        // last, small, medium, large
	Position   string `toml:"position"`    // last, center, left, right, follow, top-left, top-right, bottom-left, bottom-right
	MaxWindows int    `toml:"max_windows"` // 1 to 6
	AutoPin    bool   `toml:"auto_pin"`    // new windows start pinned
}

// AppearanceConfig holds colors and the page backdrop.
type AppearanceConfig struct {
	Theme             string `toml:"theme"`              // system, light, dark
	Palette           string `toml:"palette"`            // optional bubbletint theme id (e.g. dracula)
	BackgroundOpacity *int   `toml:"background_opacity"` // 0 to 100 (default: 50)
	NerdFont          bool   `toml:"nerd_font"`          // Nerd Font icons on window buttons
}

// SearchConfig holds the drag-text search behaviour.
type SearchConfig struct {
	Engine       string `toml:"engine"`         // bing, google, baidu, duckduckgo
	AutoOpenLink *bool  `toml:"auto_open_link"` // open dragged text that looks like a URL directly (default: true)
}

// SitesConfig lists pages where linkpeek stays inert.
type SitesConfig struct {
	Disabled []string `toml:"disabled"`
}

// LoggingConfig controls the file logger.
type LoggingConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"` // debug, info, warn, error
}

// BridgeConfig controls `linkpeek serve`.
type BridgeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *UserConfig {
	opacity := 50
	autoOpen := true
	return &UserConfig{
		Trigger: TriggerConfig{
			Mode:                string(TriggerDrag),
			Modifier:            string(ModAlt),
			HoverDelay:          DefaultHoverDelay.Seconds(),
			LongPressDelay:      DefaultLongPressDelay.Seconds(),
			EmbedRefusedDomains: append([]string(nil), DefaultEmbedRefusedDomains...),
		},
		Window: WindowConfig{
			Size:       string(SizeLast),
			Position:   "center",
			MaxWindows: 3,
		},
		Appearance: AppearanceConfig{
			Theme:             string(ThemeSystem),
			BackgroundOpacity: &opacity,
		},
		Search: SearchConfig{
			Engine:       string(EngineBing),
			AutoOpenLink: &autoOpen,
		},
		Keybindings: KeybindingsConfig{Actions: DefaultKeybindings()},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
		Bridge: BridgeConfig{
			Addr: DefaultBridgeAddr,
		},
	}
}

// LoadUserConfig loads the config from the default location, creating it
// with commented defaults when it does not exist yet.
func LoadUserConfig() (*UserConfig, *ValidationResult, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, nil, err
	}
	return LoadFile(path)
}

// LoadFile reads, fills and validates the config at path. A missing file is
// created with defaults. The returned validation result carries warnings for
// values that were clamped; errors make the load fail.
func LoadFile(path string) (*UserConfig, *ValidationResult, error) {
	// #nosec G304 - reading the user's own config is intentional
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err := createDefaultConfig(path)
		return cfg, &ValidationResult{}, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	validation := ValidateConfig(cfg)
	if validation.HasErrors() {
		return nil, validation, fmt.Errorf("configuration has %d error(s): %w", len(validation.Errors), validation)
	}
	return cfg, validation, nil
}

// Parse decodes TOML and fills missing values with defaults. It does not
// validate.
func Parse(data []byte) (*UserConfig, error) {
	var cfg UserConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaultCfg := DefaultConfig()
	fillMissingTrigger(&cfg, defaultCfg)
	fillMissingWindow(&cfg, defaultCfg)
	fillMissingAppearance(&cfg, defaultCfg)
	fillMissingSearch(&cfg, defaultCfg)
	fillMissingKeybinds(&cfg, defaultCfg)
	fillMissingMisc(&cfg, defaultCfg)
	return &cfg, nil
}

// WriteDefault overwrites path with the commented default config.
func WriteDefault(path string) error {
	_, err := createDefaultConfig(path)
	return err
}

// createDefaultConfig writes a default config file to path.
func createDefaultConfig(path string) (*UserConfig, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# linkpeek configuration file\n")
	sb.WriteString("#\n")
	sb.WriteString("# Configuration location: " + path + "\n")
	sb.WriteString("# Changes are picked up while linkpeek is running.\n\n")

	sb.WriteString("# ============================================================================\n")
	sb.WriteString("# TRIGGER\n")
	sb.WriteString("# ============================================================================\n")
	sb.WriteString("# mode: gesture that opens a preview\n")
	sb.WriteString("#   Options: drag, hover, long-press, click-modifier, hover-modifier, disabled\n")
	sb.WriteString("# modifier: key for the *-modifier modes (alt, ctrl, shift)\n")
	sb.WriteString("# hover_delay: seconds, 0.1 to 3.0\n")
	sb.WriteString("# long_press_delay: seconds, 0.2 to 3.0\n")
	sb.WriteString("# embed_refused_domains: hosts that open in a new tab instead of a window\n")
	sb.WriteString("#\n")
	sb.WriteString("# WINDOW\n")
	sb.WriteString("# size: last, small, medium, large\n")
	sb.WriteString("# position: last, center, left, right, follow, top-left, top-right,\n")
	sb.WriteString("#           bottom-left, bottom-right\n")
	sb.WriteString("# max_windows: 1 to 6, the oldest window is closed beyond that\n")
	sb.WriteString("#\n")
	sb.WriteString("# APPEARANCE\n")
	sb.WriteString("# theme: system, light, dark\n")
	sb.WriteString("# palette: optional named color theme (run: linkpeek --list-themes)\n")
	sb.WriteString("# background_opacity: 0 to 100, how strongly the page is dimmed\n")
	sb.WriteString("# nerd_font: draw window buttons with Nerd Font icons\n")
	sb.WriteString("#\n")
	sb.WriteString("# SEARCH / SITES\n")
	sb.WriteString("# engine: bing, google, baidu, duckduckgo\n")
	sb.WriteString("# disabled: up to 10 domains where linkpeek does nothing\n")
	sb.WriteString("# ============================================================================\n\n")

	if _, err := sb.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write config data: %w", err)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfg, nil
}

// fillMissingTrigger fills in any missing trigger settings with defaults.
// Zero delays mean "unset"; out-of-range values are left for ValidateConfig.
func fillMissingTrigger(cfg, defaultCfg *UserConfig) {
	if cfg.Trigger.Mode == "" {
		cfg.Trigger.Mode = defaultCfg.Trigger.Mode
	}
	if cfg.Trigger.Modifier == "" {
		cfg.Trigger.Modifier = defaultCfg.Trigger.Modifier
	}
	if cfg.Trigger.HoverDelay == 0 {
		cfg.Trigger.HoverDelay = defaultCfg.Trigger.HoverDelay
	}
	if cfg.Trigger.LongPressDelay == 0 {
		cfg.Trigger.LongPressDelay = defaultCfg.Trigger.LongPressDelay
	}
	// An explicit empty list disables the special case, so only nil is filled.
	if cfg.Trigger.EmbedRefusedDomains == nil {
		cfg.Trigger.EmbedRefusedDomains = defaultCfg.Trigger.EmbedRefusedDomains
	}
}

func fillMissingWindow(cfg, defaultCfg *UserConfig) {
	if cfg.Window.Size == "" {
		cfg.Window.Size = defaultCfg.Window.Size
	}
	if cfg.Window.Position == "" {
		cfg.Window.Position = defaultCfg.Window.Position
	}
	if cfg.Window.MaxWindows == 0 {
		cfg.Window.MaxWindows = defaultCfg.Window.MaxWindows
	}
	// AutoPin defaults to false (zero value)
}

func fillMissingAppearance(cfg, defaultCfg *UserConfig) {
	if cfg.Appearance.Theme == "" {
		cfg.Appearance.Theme = defaultCfg.Appearance.Theme
	}
	if cfg.Appearance.BackgroundOpacity == nil {
		cfg.Appearance.BackgroundOpacity = defaultCfg.Appearance.BackgroundOpacity
	}
}

func fillMissingSearch(cfg, defaultCfg *UserConfig) {
	if cfg.Search.Engine == "" {
		cfg.Search.Engine = defaultCfg.Search.Engine
	}
	if cfg.Search.AutoOpenLink == nil {
		cfg.Search.AutoOpenLink = defaultCfg.Search.AutoOpenLink
	}
}

func fillMissingKeybinds(cfg, defaultCfg *UserConfig) {
	if cfg.Keybindings.Actions == nil {
		cfg.Keybindings.Actions = make(map[string][]string)
	}
	fillMapDefaults(cfg.Keybindings.Actions, defaultCfg.Keybindings.Actions)
}

func fillMissingMisc(cfg, defaultCfg *UserConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultCfg.Logging.Level
	}
	if cfg.Bridge.Addr == "" {
		cfg.Bridge.Addr = defaultCfg.Bridge.Addr
	}
}

func fillMapDefaults(target, defaults map[string][]string) {
	for k, v := range defaults {
		if _, exists := target[k]; !exists {
			target[k] = v
		}
	}
}

// GetConfigPath returns the path to the config file, whether or not it
// exists yet.
func GetConfigPath() (string, error) {
	path, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		// Return where it would be created
		return xdg.ConfigFile(configRelPath)
	}
	return path, nil
}
