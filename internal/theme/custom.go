package theme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/adrg/xdg"
	tint "github.com/lrstanley/bubbletint/v2"
)

// ThemesDir returns the directory holding user palettes
// (~/.config/linkpeek/themes), creating it if needed.
func ThemesDir() (string, error) {
	keep, err := xdg.ConfigFile("linkpeek/themes/.keep")
	if err != nil {
		return "", fmt.Errorf("themes directory: %w", err)
	}
	return filepath.Dir(keep), nil
}

// LoadCustomThemes registers every *.json palette in dir and returns the IDs
// that loaded. A broken file is logged and skipped.
func LoadCustomThemes(dir string, log logging.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read themes directory: %w", err)
	}

	var loaded []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		t, err := LoadCustomThemeFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("skipping custom theme", "file", e.Name(), "err", err)
			continue
		}
		tint.Register(t)
		loaded = append(loaded, t.ID)
	}
	return loaded, nil
}

// LoadCustomThemeFile reads one palette. The ID falls back to the lowercased
// file name and missing colors are filled in.
func LoadCustomThemeFile(path string) (*tint.Tint, error) {
	// #nosec G304 - user's own config directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}

	var t tint.Tint
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse theme %s: %w", filepath.Base(path), err)
	}
	if t.ID == "" {
		base := filepath.Base(path)
		t.ID = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if t.ID == "" {
		return nil, fmt.Errorf("theme %s has no id", path)
	}
	if t.DisplayName == "" {
		t.DisplayName = t.ID
	}
	fillDefaults(&t)
	return &t, nil
}

// fillDefaults sets nil colors. Base colors use the xterm values; the cursor
// and bright variants copy the color they derive from.
func fillDefaults(t *tint.Tint) {
	base := []struct {
		c   **tint.Color
		hex string
	}{
		{&t.Fg, "#e5e5e5"},
		{&t.Bg, "#000000"},
		{&t.Black, "#000000"},
		{&t.Red, "#cd0000"},
		{&t.Green, "#00cd00"},
		{&t.Yellow, "#cdcd00"},
		{&t.Blue, "#0000ee"},
		{&t.Purple, "#cd00cd"},
		{&t.Cyan, "#00cdcd"},
		{&t.White, "#e5e5e5"},
	}
	for _, d := range base {
		if *d.c == nil {
			*d.c = tint.FromHex(d.hex)
		}
	}

	derived := [][2]**tint.Color{
		{&t.Cursor, &t.Fg},
		{&t.BrightBlack, &t.Black},
		{&t.BrightRed, &t.Red},
		{&t.BrightGreen, &t.Green},
		{&t.BrightYellow, &t.Yellow},
		{&t.BrightBlue, &t.Blue},
		{&t.BrightPurple, &t.Purple},
		{&t.BrightCyan, &t.Cyan},
		{&t.BrightWhite, &t.White},
	}
	for _, d := range derived {
		if *d[0] == nil {
			*d[0] = copyColor(*d[1])
		}
	}
}

func copyColor(c *tint.Color) *tint.Color {
	if c == nil {
		return nil
	}
	dup := *c
	return &dup
}
