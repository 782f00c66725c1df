package config

// Overrides contains CLI flag values that can override the user config.
// Zero values indicate the flag was not set and the config file wins.
type Overrides struct {
	// TriggerMode overrides [trigger] mode
	TriggerMode string

	// Modifier overrides [trigger] modifier
	Modifier string

	// Position overrides [window] position
	Position string

	// Size overrides [window] size
	Size string

	// MaxWindows overrides [window] max_windows (0 means use config)
	MaxWindows int

	// Theme overrides [appearance] theme
	Theme string

	// Palette overrides [appearance] palette
	Palette string

	// NerdFont forces [appearance] nerd_font on
	NerdFont bool

	// Debug forces file logging at debug level
	Debug bool

	// BridgeAddr overrides [bridge] addr
	BridgeAddr string
}

// ApplyOverrides applies CLI flag overrides to cfg. Call it before
// ValidateConfig so flag values get the same checks as file values.
func ApplyOverrides(overrides Overrides, cfg *UserConfig) {
	if cfg == nil {
		return
	}

	if overrides.TriggerMode != "" {
		cfg.Trigger.Mode = overrides.TriggerMode
	}
	if overrides.Modifier != "" {
		cfg.Trigger.Modifier = overrides.Modifier
	}
	if overrides.Position != "" {
		cfg.Window.Position = overrides.Position
	}
	if overrides.Size != "" {
		cfg.Window.Size = overrides.Size
	}
	if overrides.MaxWindows > 0 {
		cfg.Window.MaxWindows = overrides.MaxWindows
	}
	if overrides.Theme != "" {
		cfg.Appearance.Theme = overrides.Theme
	}
	if overrides.Palette != "" {
		cfg.Appearance.Palette = overrides.Palette
	}
	if overrides.NerdFont {
		cfg.Appearance.NerdFont = true
	}

	// Debug - OR of CLI flag and user config
	if overrides.Debug {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}

	if overrides.BridgeAddr != "" {
		cfg.Bridge.Addr = overrides.BridgeAddr
	}
}
