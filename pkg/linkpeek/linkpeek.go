// Package linkpeek provides the link preview viewer as a Bubble Tea model
// that can be embedded in other applications or run on its own.
//
// # Basic Usage
//
//	model := linkpeek.New(linkpeek.WithSource("https://go.dev/doc/"))
//	p := tea.NewProgram(model, linkpeek.ProgramOptions()...)
//	if _, err := p.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// # Custom Configuration
//
// Settings come from the user's config file unless a provider is given:
//
//	s := config.DefaultSettings()
//	s.TriggerMode = config.TriggerHover
//	model := linkpeek.New(
//		linkpeek.WithSource("notes.html"),
//		linkpeek.WithSettings(s),
//	)
package linkpeek

import (
	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/browser"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/input"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/Gaurav-Gosain/linkpeek/internal/theme"
	"github.com/charmbracelet/colorprofile"
)

// Model is the viewer. It implements tea.Model.
type Model = app.Viewer

// Settings is a configuration snapshot.
type Settings = config.Settings

// Options configures a viewer.
type Options struct {
	// Source is the first page: an http(s) URL or a file path.
	Source string

	// Provider supplies settings. If nil, the user's config file is loaded,
	// falling back to defaults when it cannot be read.
	Provider *config.Provider

	// Store remembers the last window size and position. If nil, nothing
	// outlives the process.
	Store store.Store

	// Opener shows URLs outside the terminal. Defaults to the system browser.
	Opener app.Opener

	// Logger defaults to a no-op logger.
	Logger logging.Logger

	// Profile is the terminal's color profile. The zero value renders
	// without color blending.
	Profile colorprofile.Profile
}

// Option is a functional option for configuring the viewer.
type Option func(*Options)

// WithSource sets the first page.
func WithSource(source string) Option {
	return func(o *Options) { o.Source = source }
}

// WithSettings pins the viewer to a fixed snapshot instead of the config
// file.
func WithSettings(s Settings) Option {
	return func(o *Options) { o.Provider = config.NewStaticProvider(s) }
}

// WithProvider sets the settings provider.
func WithProvider(p *config.Provider) Option {
	return func(o *Options) { o.Provider = p }
}

// WithStore sets where window geometry is remembered.
func WithStore(st store.Store) Option {
	return func(o *Options) { o.Store = st }
}

// WithOpener sets how URLs are opened outside the terminal.
func WithOpener(op app.Opener) Option {
	return func(o *Options) { o.Opener = op }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProfile sets the terminal color profile.
func WithProfile(p colorprofile.Profile) Option {
	return func(o *Options) { o.Profile = p }
}

// New creates a viewer with the given options.
func New(opts ...Option) *Model {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return newModel(options)
}

func newModel(o Options) *Model {
	app.SetInputHandler(input.HandleInput)

	if o.Logger == nil {
		o.Logger = logging.Noop()
	}
	theme.Initialize(o.Logger)

	if o.Provider == nil {
		p, err := defaultProvider(o.Logger)
		if err != nil {
			o.Logger.Warn("config unavailable, using defaults", "err", err)
			p = config.NewStaticProvider(config.DefaultSettings())
		}
		o.Provider = p
	}
	if o.Opener == nil {
		o.Opener = browser.New()
	}

	return app.New(app.Options{
		Source:   o.Source,
		Provider: o.Provider,
		Store:    o.Store,
		Fetcher:  fetch.New(fetch.WithLogger(o.Logger.With("component", "fetch"))),
		Opener:   o.Opener,
		Logger:   o.Logger,
		Profile:  o.Profile,
	})
}

func defaultProvider(log logging.Logger) (*config.Provider, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.NewProvider(path, config.Overrides{}, log)
}

// ProgramOptions returns the tea.ProgramOption values the viewer expects:
//
//	p := tea.NewProgram(model, linkpeek.ProgramOptions()...)
func ProgramOptions() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithFPS(config.NormalFPS),
		tea.WithFilter(FilterMouseMotion),
	}
}

// FilterMouseMotion is a tea.WithFilter function that drops motion reports
// which do not move the pointer to another cell. Terminals in all-motion
// mode repeat the same cell while the mouse drifts inside it.
func FilterMouseMotion(model tea.Model, msg tea.Msg) tea.Msg {
	motion, ok := msg.(tea.MouseMotionMsg)
	if !ok {
		return msg
	}
	v, ok := model.(*Model)
	if !ok {
		return msg
	}
	m := motion.Mouse()
	p := v.Pointer
	if p.Known && p.X == m.X && p.Y == m.Y && m.Mod == 0 && p.Mods == 0 {
		return nil
	}
	return msg
}
