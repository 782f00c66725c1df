package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/fetch"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// maxMessageSize bounds one incoming message. Event paths on deeply nested
// pages are the largest thing the script sends.
const maxMessageSize = 1 << 20

// extensionSchemes are the origins a content script connects from. Web
// pages are refused so a visited site cannot drive the bridge.
var extensionSchemes = map[string]bool{
	"chrome-extension":     true,
	"moz-extension":        true,
	"safari-web-extension": true,
}

// Server accepts content script connections.
type Server struct {
	provider *config.Provider
	store    store.Store
	fetcher  *fetch.Client
	log      logging.Logger
	origins  []string

	active atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets where window geometry is remembered.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithFetcher sets the client used to check preview targets for framing.
func WithFetcher(f *fetch.Client) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithOriginPatterns restricts which extension IDs may connect. Patterns
// use path.Match syntax against the origin's host. The default allows any
// extension.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

// New returns a server whose sessions follow provider's settings.
func New(provider *config.Provider, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		log:      logging.Noop(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.WithLogger(s.log))
	}
	return s
}

// Connections returns the number of connected scripts.
func (s *Server) Connections() int { return int(s.active.Load()) }

// Handler serves the websocket at /ws and a health check at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || !extensionSchemes[u.Scheme] {
			s.log.Warn("bridge refused origin", "origin", origin)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.log.Warn("bridge accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	s.active.Add(1)
	defer s.active.Add(-1)

	log := s.log.With("conn", uuid.NewString()[:8])
	log.Info("bridge connected", "remote", r.RemoteAddr)
	newSession(r.Context(), s, conn, log).run()
	log.Info("bridge disconnected")
	conn.Close(websocket.StatusNormalClosure, "")
}

type health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health{Status: "ok", Connections: s.Connections()})
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked connections outlive Close; their sessions end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.log.Info("bridge listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
