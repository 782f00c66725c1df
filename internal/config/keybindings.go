package config

import (
	"sort"
	"strings"
)

// Actions bound to keys in the terminal host.
const (
	ActionCloseWindow  = "close_window"
	ActionCloseAll     = "close_all"
	ActionTogglePin    = "toggle_pin"
	ActionRefresh      = "refresh"
	ActionOpenInNewTab = "open_in_new_tab"
	ActionCycleTrigger = "cycle_trigger"
	ActionToggleTheme  = "toggle_theme"
	ActionToggleHelp   = "toggle_help"
	ActionQuit         = "quit"
)

// KeybindingsConfig maps action names to key strings as bubbletea formats
// them (e.g. "ctrl+w").
type KeybindingsConfig struct {
	Actions map[string][]string `toml:"actions"`
}

// DefaultKeybindings returns the default action table.
func DefaultKeybindings() map[string][]string {
	return map[string][]string{
		ActionCloseWindow:  {"x"},
		ActionCloseAll:     {"X"},
		ActionTogglePin:    {"p"},
		ActionRefresh:      {"r"},
		ActionOpenInNewTab: {"o"},
		ActionCycleTrigger: {"t"},
		ActionToggleTheme:  {"T"},
		ActionToggleHelp:   {"?"},
		ActionQuit:         {"q", "ctrl+c"},
	}
}

// Keybinding represents a single keybinding entry
type Keybinding struct {
	Key         string
	Description string
}

// KeybindingSection represents a section of related keybindings
type KeybindingSection struct {
	Title    string
	Bindings []Keybinding
}

// KeybindRegistry resolves pressed keys to actions.
type KeybindRegistry struct {
	byKey    map[string]string
	byAction map[string][]string
}

// NewKeybindRegistry indexes cfg. When two actions claim the same key the
// alphabetically first action wins, so resolution is deterministic.
func NewKeybindRegistry(cfg KeybindingsConfig) *KeybindRegistry {
	r := &KeybindRegistry{
		byKey:    make(map[string]string),
		byAction: make(map[string][]string),
	}
	actions := make([]string, 0, len(cfg.Actions))
	for a := range cfg.Actions {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, action := range actions {
		for _, key := range cfg.Actions[action] {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if _, taken := r.byKey[key]; !taken {
				r.byKey[key] = action
			}
			r.byAction[action] = append(r.byAction[action], key)
		}
	}
	return r
}

// Action returns the action bound to key, or "".
func (r *KeybindRegistry) Action(key string) string {
	return r.byKey[key]
}

// Keys returns the keys bound to action.
func (r *KeybindRegistry) Keys(action string) []string {
	return r.byAction[action]
}

// GetKeybindings returns the help overlay sections.
func GetKeybindings(registry *KeybindRegistry) []KeybindingSection {
	windows := KeybindingSection{Title: "Preview windows"}
	addBinding(&windows, registry, ActionCloseWindow, "Close focused window")
	addBinding(&windows, registry, ActionCloseAll, "Close all windows")
	addBinding(&windows, registry, ActionTogglePin, "Pin / unpin focused window")
	addBinding(&windows, registry, ActionRefresh, "Reload focused window")
	addBinding(&windows, registry, ActionOpenInNewTab, "Open focused window in browser")
	windows.Bindings = append(windows.Bindings, Keybinding{"Esc", "Close window under the pointer"})

	general := KeybindingSection{Title: "General"}
	addBinding(&general, registry, ActionCycleTrigger, "Cycle trigger mode")
	addBinding(&general, registry, ActionToggleTheme, "Toggle light / dark")
	addBinding(&general, registry, ActionToggleHelp, "Toggle help")
	addBinding(&general, registry, ActionQuit, "Quit")

	mouse := KeybindingSection{
		Title: "Mouse",
		Bindings: []Keybinding{
			{"Drag title", "Move window"},
			{"Drag border", "Resize (edges and bottom corners)"},
			{"Click outside", "Close unpinned windows"},
		},
	}
	return []KeybindingSection{windows, general, mouse}
}

func addBinding(section *KeybindingSection, registry *KeybindRegistry, action, description string) {
	keys := registry.Keys(action)
	if len(keys) == 0 {
		return
	}
	section.Bindings = append(section.Bindings, Keybinding{
		Key:         strings.Join(keys, "/"),
		Description: description,
	})
}
