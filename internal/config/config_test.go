package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	r := ValidateConfig(cfg)
	assert.False(t, r.HasErrors(), r.Errors)
	assert.False(t, r.HasWarnings(), r.Warnings)

	s := cfg.Settings()
	assert.Equal(t, TriggerDrag, s.TriggerMode)
	assert.Equal(t, 500*time.Millisecond, s.HoverDelay)
	assert.Equal(t, geometry.PlaceCenter, s.PopupPosition)
	assert.Equal(t, 50, s.BackgroundOpacity)
	assert.True(t, s.AutoOpenLink)
	assert.Contains(t, s.EmbedRefusedDomains, "github.com")
}

func TestParseFillsMissing(t *testing.T) {
	cfg, err := Parse([]byte(`
[trigger]
mode = "hover"

[window]
position = "right"
`))
	require.NoError(t, err)
	assert.Equal(t, "hover", cfg.Trigger.Mode)
	assert.Equal(t, "alt", cfg.Trigger.Modifier)
	assert.Equal(t, "right", cfg.Window.Position)
	assert.Equal(t, "last", cfg.Window.Size)
	assert.Equal(t, 3, cfg.Window.MaxWindows)
	require.NotNil(t, cfg.Appearance.BackgroundOpacity)
	assert.Equal(t, 50, *cfg.Appearance.BackgroundOpacity)
	assert.Equal(t, []string{"x"}, cfg.Keybindings.Actions[ActionCloseWindow])
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*UserConfig)
		errors   int
		warnings int
		check    func(*testing.T, *UserConfig)
	}{
		{
			name:   "unknown mode",
			mutate: func(c *UserConfig) { c.Trigger.Mode = "telepathy" },
			errors: 1,
		},
		{
			name:   "modifier is case insensitive",
			mutate: func(c *UserConfig) { c.Trigger.Modifier = "Ctrl" },
			check: func(t *testing.T, c *UserConfig) {
				assert.Equal(t, "ctrl", c.Trigger.Modifier)
			},
		},
		{
			name:     "hover delay clamped low",
			mutate:   func(c *UserConfig) { c.Trigger.HoverDelay = 0.01 },
			warnings: 1,
			check: func(t *testing.T, c *UserConfig) {
				assert.InDelta(t, 0.1, c.Trigger.HoverDelay, 1e-9)
			},
		},
		{
			name:     "long press clamped high",
			mutate:   func(c *UserConfig) { c.Trigger.LongPressDelay = 9 },
			warnings: 1,
			check: func(t *testing.T, c *UserConfig) {
				assert.InDelta(t, 3.0, c.Trigger.LongPressDelay, 1e-9)
			},
		},
		{
			name:     "max windows clamped",
			mutate:   func(c *UserConfig) { c.Window.MaxWindows = 40 },
			warnings: 1,
			check: func(t *testing.T, c *UserConfig) {
				assert.Equal(t, 6, c.Window.MaxWindows)
			},
		},
		{
			name: "opacity clamped",
			mutate: func(c *UserConfig) {
				v := -5
				c.Appearance.BackgroundOpacity = &v
			},
			warnings: 1,
			check: func(t *testing.T, c *UserConfig) {
				assert.Equal(t, 0, *c.Appearance.BackgroundOpacity)
			},
		},
		{
			name:   "unknown position",
			mutate: func(c *UserConfig) { c.Window.Position = "middle-ish" },
			errors: 1,
		},
		{
			name: "disabled sites trimmed deduped and limited",
			mutate: func(c *UserConfig) {
				c.Sites.Disabled = []string{
					" Example.com ", "example.com", "not a domain",
					"a.io", "b.io", "c.io", "d.io", "e.io", "f.io", "g.io", "h.io", "i.io", "j.io",
				}
			},
			warnings: 2,
			check: func(t *testing.T, c *UserConfig) {
				assert.Len(t, c.Sites.Disabled, MaxDisabledSites)
				assert.Equal(t, "example.com", c.Sites.Disabled[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			r := ValidateConfig(cfg)
			assert.Len(t, r.Errors, tt.errors)
			assert.Len(t, r.Warnings, tt.warnings)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	ApplyOverrides(Overrides{TriggerMode: "hover", MaxWindows: 2, Debug: true, NerdFont: true}, cfg)
	assert.Equal(t, "hover", cfg.Trigger.Mode)
	assert.True(t, cfg.Appearance.NerdFont)
	assert.Equal(t, NerdFontChrome, cfg.Settings().Chrome())
	assert.Equal(t, 2, cfg.Window.MaxWindows)
	assert.True(t, cfg.Logging.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "center", cfg.Window.Position, "unset flags keep the file value")
}

func TestChromeGlyphsAreOneCell(t *testing.T) {
	for _, g := range []ChromeGlyphs{UnicodeChrome, NerdFontChrome} {
		for _, s := range []string{g.Unpinned, g.Pinned, g.Refresh, g.OpenTab, g.Close} {
			assert.Len(t, []rune(s), 1, "%q", s)
		}
	}
	assert.Equal(t, UnicodeChrome, DefaultSettings().Chrome())
}

func TestLoadFileCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkpeek", "config.toml")
	cfg, r, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, r.HasWarnings())
	assert.Equal(t, DefaultConfig().Trigger.Mode, cfg.Trigger.Mode)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# linkpeek configuration file")

	again, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, again.Settings().Equal(cfg.Settings()))
}

func TestLoadFileRejectsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\nengine = \"altavista\"\n"), 0o600))
	_, r, err := LoadFile(path)
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "engine", r.Errors[0].Key)
	assert.ErrorIs(t, err, r)
}

func TestProviderReloadNotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"drag\"\n"), 0o600))

	p, err := NewProvider(path, Overrides{}, nil)
	require.NoError(t, err)
	assert.Equal(t, TriggerDrag, p.Snapshot().TriggerMode)

	var calls atomic.Int32
	var got Settings
	unsubscribe := p.Subscribe(func(s Settings) {
		calls.Add(1)
		got = s
	})

	changed, err := p.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"hover\"\nhover_delay = 0.2\n"), 0o600))
	changed, err = p.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, TriggerHover, got.TriggerMode)
	assert.Equal(t, 200*time.Millisecond, got.HoverDelay)

	unsubscribe()
	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"long-press\"\n"), 0o600))
	_, err = p.Reload()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, TriggerLongPress, p.Snapshot().TriggerMode)
}

func TestProviderReloadKeepsSnapshotOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"hover\"\n"), 0o600))
	p, err := NewProvider(path, Overrides{}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("this is = = not toml"), 0o600))
	_, err = p.Reload()
	require.Error(t, err)
	assert.Equal(t, TriggerHover, p.Snapshot().TriggerMode)
}

func TestProviderOverridesSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nmax_windows = 5\n"), 0o600))
	p, err := NewProvider(path, Overrides{MaxWindows: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Snapshot().MaxWindows)

	require.NoError(t, os.WriteFile(path, []byte("[window]\nmax_windows = 4\n"), 0o600))
	_, err = p.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Snapshot().MaxWindows)
}

func TestProviderWatch(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, path string, data []byte)
	}{
		{
			name: "write in place",
			write: func(t *testing.T, path string, data []byte) {
				require.NoError(t, os.WriteFile(path, data, 0o600))
			},
		},
		{
			name: "replace by rename",
			write: func(t *testing.T, path string, data []byte) {
				tmp := path + ".swp"
				require.NoError(t, os.WriteFile(tmp, data, 0o600))
				require.NoError(t, os.Rename(tmp, path))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"drag\"\n"), 0o600))
			p, err := NewProvider(path, Overrides{}, nil)
			require.NoError(t, err)

			changed := make(chan Settings, 4)
			p.Subscribe(func(s Settings) { changed <- s })

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- p.Watch(ctx) }()
			defer func() {
				cancel()
				assert.NoError(t, <-done)
			}()

			// Give the watcher time to register before writing.
			time.Sleep(50 * time.Millisecond)
			tt.write(t, path, []byte("[trigger]\nmode = \"disabled\"\n"))

			select {
			case s := <-changed:
				assert.Equal(t, TriggerDisabled, s.TriggerMode)
			case <-time.After(3 * time.Second):
				t.Fatal("watch did not pick up the change")
			}
		})
	}
}

func TestProviderWatchKeepsSnapshotOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"drag\"\n"), 0o600))
	p, err := NewProvider(path, Overrides{}, nil)
	require.NoError(t, err)

	changed := make(chan Settings, 4)
	p.Subscribe(func(s Settings) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Watch(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[trigger\nmode = "), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, TriggerDrag, p.Snapshot().TriggerMode)

	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nmode = \"hover\"\n"), 0o600))
	select {
	case s := <-changed:
		assert.Equal(t, TriggerHover, s.TriggerMode)
	case <-time.After(3 * time.Second):
		t.Fatal("watch stopped after a broken file")
	}
}

func TestProviderWatchWithoutPath(t *testing.T) {
	p := NewStaticProvider(DefaultSettings())
	assert.NoError(t, p.Watch(context.Background()))
}

func TestKeybindRegistry(t *testing.T) {
	r := NewKeybindRegistry(KeybindingsConfig{Actions: map[string][]string{
		ActionQuit:      {"q", "ctrl+c"},
		ActionTogglePin: {"p", "q"},
	}})
	assert.Equal(t, ActionQuit, r.Action("ctrl+c"))
	assert.Equal(t, ActionQuit, r.Action("q"), "alphabetically first action keeps a shared key")
	assert.Equal(t, ActionTogglePin, r.Action("p"))
	assert.Equal(t, "", r.Action("z"))

	sections := GetKeybindings(NewKeybindRegistry(KeybindingsConfig{Actions: DefaultKeybindings()}))
	require.Len(t, sections, 3)
	assert.NotEmpty(t, sections[0].Bindings)
}

func TestSearchEngineQueryPrefix(t *testing.T) {
	tests := []struct {
		engine SearchEngine
		want   string
	}{
		{EngineBing, "https://www.bing.com/search?q="},
		{EngineGoogle, "https://www.google.com/search?q="},
		{EngineBaidu, "https://www.baidu.com/s?wd="},
		{EngineDuckDuckGo, "https://duckduckgo.com/?q="},
	}
	for _, tt := range tests {
		t.Run(string(tt.engine), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.engine.QueryPrefix())
		})
	}
}
