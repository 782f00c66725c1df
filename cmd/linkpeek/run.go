package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/Gaurav-Gosain/linkpeek/internal/bridge"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/server"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/Gaurav-Gosain/linkpeek/pkg/linkpeek"
	"github.com/charmbracelet/colorprofile"
	"golang.org/x/term"
)

func flagOverrides() config.Overrides {
	return config.Overrides{
		TriggerMode: triggerMode,
		Modifier:    modifier,
		Position:    position,
		Size:        size,
		MaxWindows:  maxWindows,
		Theme:       themeMode,
		Palette:     paletteName,
		NerdFont:    nerdFont,
		Debug:       debugMode,
	}
}

func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.GetConfigPath()
}

func defaultAddr() string {
	return config.DefaultBridgeAddr
}

// setup loads the config once for its logging section, then hands the file
// to a provider that keeps it current.
func setup(ov config.Overrides) (*config.Provider, logging.Logger, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, fmt.Errorf("locate config: %w", err)
	}
	cfg, _, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	config.ApplyOverrides(ov, cfg)

	logger, err := logging.New(logging.Options{
		Enabled: cfg.Logging.Enabled,
		Level:   cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		logger = logging.Noop()
	}
	provider, err := config.NewProvider(path, ov, logger.With("component", "config"))
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	logger.Info("configuration loaded", "path", path, "mode", provider.Snapshot().TriggerMode)
	return provider, logger, nil
}

// openStore opens the state database. Without one, geometry is remembered
// for the life of the process only.
func openStore(logger logging.Logger) (store.Store, func()) {
	path, err := store.DefaultPath()
	if err == nil {
		var db *store.SQLite
		if db, err = store.Open(path); err == nil {
			return db, func() {
				if err := db.Close(); err != nil {
					logger.Warn("closing state database", "err", err)
				}
			}
		}
	}
	logger.Warn("state database unavailable, using memory", "err", err)
	return store.NewMemory(), func() {}
}

func runLocal(source string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("linkpeek needs a terminal; use `linkpeek serve` for the browser extension")
	}

	provider, logger, err := setup(flagOverrides())
	if err != nil {
		return err
	}
	defer logger.Close()

	st, closeStore := openStore(logger)
	defer closeStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := provider.Watch(ctx); err != nil {
			logger.Warn("config changes will not be picked up", "err", err)
		}
	}()

	model := linkpeek.New(
		linkpeek.WithSource(source),
		linkpeek.WithProvider(provider),
		linkpeek.WithStore(store.Namespaced(st, "tui")),
		linkpeek.WithLogger(logger),
		linkpeek.WithProfile(colorprofile.Detect(os.Stdout, os.Environ())),
	)

	p := tea.NewProgram(model, append(linkpeek.ProgramOptions(), tea.WithoutSignalHandler())...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		p.Send(tea.QuitMsg{})
	}()

	finalModel, err := p.Run()

	if v, ok := finalModel.(*linkpeek.Model); ok {
		v.Cleanup()
	}

	if err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

func runServe(addr string, origins []string) error {
	ov := flagOverrides()
	ov.BridgeAddr = addr
	provider, logger, err := setup(ov)
	if err != nil {
		return err
	}
	defer logger.Close()

	st, closeStore := openStore(logger)
	defer closeStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("shutting down bridge")
		cancel()
	}()

	go func() {
		if err := provider.Watch(ctx); err != nil {
			logger.Warn("config changes will not be picked up", "err", err)
		}
	}()

	opts := []bridge.Option{
		bridge.WithStore(store.Namespaced(st, "bridge")),
		bridge.WithLogger(logger.With("component", "bridge")),
		bridge.WithFetcher(fetch.New(fetch.WithLogger(logger.With("component", "fetch")))),
	}
	if len(origins) > 0 {
		opts = append(opts, bridge.WithOriginPatterns(origins...))
	}

	listen := provider.Config().Bridge.Addr
	fmt.Fprintf(os.Stderr, "linkpeek bridge listening on ws://%s/ws\n", listen)
	if err := bridge.New(provider, opts...).ListenAndServe(ctx, listen); err != nil {
		return fmt.Errorf("bridge error: %w", err)
	}
	return nil
}

func runSSHServer(host, port, keyPath, source string) error {
	provider, logger, err := setup(flagOverrides())
	if err != nil {
		return err
	}
	defer logger.Close()

	st, closeStore := openStore(logger)
	defer closeStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("shutting down ssh server")
		cancel()
	}()

	go func() {
		if err := provider.Watch(ctx); err != nil {
			logger.Warn("config changes will not be picked up", "err", err)
		}
	}()

	srv := server.NewSSHServer(server.SSHServerConfig{
		Host:          host,
		Port:          port,
		KeyPath:       keyPath,
		DefaultSource: source,
	}, provider, st, logger.With("component", "ssh"))

	fmt.Fprintf(os.Stderr, "linkpeek ssh server listening on %s\n", srv.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("SSH server error: %w", err)
	}
	return nil
}
