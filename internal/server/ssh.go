// Package server serves the viewer to remote terminals over SSH.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/wish/v2"
	"charm.land/wish/v2/activeterm"
	"charm.land/wish/v2/bubbletea"
	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/Gaurav-Gosain/linkpeek/pkg/linkpeek"
	"github.com/adrg/xdg"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/ssh"
	"github.com/google/uuid"
)

const shutdownTimeout = 10 * time.Second

// SSHServerConfig holds the SSH server settings.
type SSHServerConfig struct {
	Host    string
	Port    string
	KeyPath string // generated on first start when missing
	// DefaultSource is shown when the client names no page.
	DefaultSource string
}

// SSHServer runs one viewer per SSH session. Sessions share the settings
// provider and the state store; each gets its own engine and windows.
type SSHServer struct {
	cfg      SSHServerConfig
	provider *config.Provider
	store    store.Store
	log      logging.Logger

	mu     sync.Mutex
	models map[ssh.Session]*linkpeek.Model
}

// NewSSHServer returns a server for cfg. st may be nil.
func NewSSHServer(cfg SSHServerConfig, provider *config.Provider, st store.Store, logger logging.Logger) *SSHServer {
	if cfg.Host == "" {
		cfg.Host = config.DefaultSSHHost
	}
	if cfg.Port == "" {
		cfg.Port = config.DefaultSSHPort
	}
	if logger == nil {
		logger = logging.Noop()
	}
	if st == nil {
		st = store.NewMemory()
	}
	return &SSHServer{
		cfg:      cfg,
		provider: provider,
		store:    st,
		log:      logger,
		models:   make(map[ssh.Session]*linkpeek.Model),
	}
}

// DefaultHostKeyPath is where the host key lives when none is given.
func DefaultHostKeyPath() (string, error) {
	return xdg.StateFile(filepath.Join("linkpeek", "ssh_host_ed25519"))
}

// Addr is the listen address.
func (s *SSHServer) Addr() string {
	return net.JoinHostPort(s.cfg.Host, s.cfg.Port)
}

// ListenAndServe serves until ctx is done.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	keyPath := s.cfg.KeyPath
	if keyPath == "" {
		p, err := DefaultHostKeyPath()
		if err != nil {
			return fmt.Errorf("locate host key: %w", err)
		}
		keyPath = p
	}

	srv, err := wish.NewServer(
		wish.WithAddress(s.Addr()),
		wish.WithHostKeyPath(keyPath),
		wish.WithMiddleware(
			s.release,
			bubbletea.Middleware(s.handler),
			activeterm.Middleware(),
			s.logSessions,
		),
	)
	if err != nil {
		return fmt.Errorf("create ssh server: %w", err)
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warn("ssh shutdown", "err", err)
		}
	}()

	s.log.Info("ssh listening", "addr", s.Addr(), "key", keyPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Sessions returns the number of live viewers.
func (s *SSHServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

func (s *SSHServer) handler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	env := append(sess.Environ(), "TERM="+pty.Term)

	log := s.log.With("session", uuid.NewString()[:8], "user", sess.User())
	m := linkpeek.New(
		linkpeek.WithSource(s.source(sess.Command())),
		linkpeek.WithProvider(s.provider),
		linkpeek.WithStore(store.Namespaced(s.store, "ssh")),
		linkpeek.WithOpener(remoteOpener{}),
		linkpeek.WithLogger(log),
		linkpeek.WithProfile(colorprofile.Env(env)),
	)

	s.mu.Lock()
	s.models[sess] = m
	s.mu.Unlock()
	return m, linkpeek.ProgramOptions()
}

// source picks the first page for a session. Clients may only name web
// pages; files on the server stay private.
func (s *SSHServer) source(args []string) string {
	if len(args) > 0 {
		if u, err := url.Parse(args[0]); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return args[0]
		}
		s.log.Warn("ignoring ssh source", "source", args[0])
	}
	return s.cfg.DefaultSource
}

// release runs after the session's program has exited.
func (s *SSHServer) release(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.mu.Lock()
		m, ok := s.models[sess]
		delete(s.models, sess)
		s.mu.Unlock()
		if ok {
			m.Cleanup()
		}
		next(sess)
	}
}

func (s *SSHServer) logSessions(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.log.Info("ssh session started", "user", sess.User(), "remote", sess.RemoteAddr().String())
		next(sess)
		s.log.Info("ssh session ended", "user", sess.User())
	}
}

// remoteOpener has no browser: the viewer copies links to the client's
// clipboard instead.
type remoteOpener struct{}

func (remoteOpener) Open(string) error { return app.ErrNoBrowser }
