package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Provider owns the current Settings snapshot and notifies subscribers when
// the config file changes.
type Provider struct {
	path      string
	overrides Overrides
	log       logging.Logger

	mu      sync.Mutex
	cfg     *UserConfig
	current Settings
	subs    map[int]func(Settings)
	nextID  int
}

// NewProvider loads path (creating it if missing) and applies overrides.
// Validation warnings are logged; errors fail construction.
func NewProvider(path string, overrides Overrides, logger logging.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.Noop()
	}
	p := &Provider{
		path:      path,
		overrides: overrides,
		log:       logger,
		subs:      make(map[int]func(Settings)),
	}
	cfg, err := p.load()
	if err != nil {
		return nil, err
	}
	p.cfg = cfg
	p.current = cfg.Settings()
	return p, nil
}

// NewStaticProvider returns a provider that serves s and never reloads.
func NewStaticProvider(s Settings) *Provider {
	return &Provider{
		log:     logging.Noop(),
		cfg:     DefaultConfig(),
		current: s,
		subs:    make(map[int]func(Settings)),
	}
}

func (p *Provider) load() (*UserConfig, error) {
	// #nosec G304 - reading the user's own config is intentional
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		if _, err := createDefaultConfig(p.path); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(p.path)
	}
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	ApplyOverrides(p.overrides, cfg)
	validation := ValidateConfig(cfg)
	for _, w := range validation.Warnings {
		p.log.Warn("config warning", "field", w.Field, "key", w.Key, "msg", w.Message)
	}
	if validation.HasErrors() {
		return nil, validation
	}
	return cfg, nil
}

func (p *Provider) stat() time.Time {
	if p.path == "" {
		return time.Time{}
	}
	fi, err := os.Stat(p.path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Path returns the config file backing this provider.
func (p *Provider) Path() string { return p.path }

// Snapshot returns the current settings.
func (p *Provider) Snapshot() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Config returns a copy of the loaded config (for sections outside Settings,
// such as keybindings and logging).
func (p *Provider) Config() UserConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.cfg
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn is called without any provider lock held.
func (p *Provider) Subscribe(fn func(Settings)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Update replaces the snapshot in memory and notifies subscribers if it
// changed. The file is not written.
func (p *Provider) Update(s Settings) {
	p.publish(nil, s)
}

// Reload re-reads the config file. It reports whether the snapshot changed.
// On error the previous snapshot stays in effect.
func (p *Provider) Reload() (bool, error) {
	if p.path == "" {
		return false, nil
	}
	cfg, err := p.load()
	if err != nil {
		p.log.Error("config reload failed", "path", p.path, "err", err)
		return false, err
	}
	return p.publish(cfg, cfg.Settings()), nil
}

func (p *Provider) publish(cfg *UserConfig, s Settings) bool {
	p.mu.Lock()
	if cfg != nil {
		p.cfg = cfg
	}
	if p.current.Equal(s) {
		p.mu.Unlock()
		return false
	}
	p.current = s
	subs := make([]func(Settings), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return true
}

// Watch reloads the config file whenever it is written, created or renamed
// into place. The file's directory is watched so editors that save by
// replacing the file are seen too. It returns when ctx is done.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(p.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	// A broken file is reported once, not on every event it produces.
	var broken time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mt := p.stat()
			if !broken.IsZero() && mt.Equal(broken) {
				continue
			}
			broken = time.Time{}
			if _, err := p.Reload(); err != nil {
				broken = mt
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("config watcher error", "err", err)
		}
	}
}
