// Package transport terminates the browser-facing WebSocket connection and
// hands each one to a fresh proxy.Session, grounded in the teacher's
// internal/jsonrpcfx (an fx-lifecycle-managed listener accepting
// connections and routing each to a per-connection handler) adapted from a
// raw TCP jsonrpc2 listener to an HTTP server upgrading to WebSocket, per
// spec.md §4.1/§4.6.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/opencanvas/lsp-proxy/analyzer"
	"github.com/opencanvas/lsp-proxy/gateway"
	"github.com/opencanvas/lsp-proxy/internal/clock"
	"github.com/opencanvas/lsp-proxy/internal/rpc"
	"github.com/opencanvas/lsp-proxy/proxy"
	"github.com/opencanvas/lsp-proxy/repository/session"
	"github.com/opencanvas/lsp-proxy/workspace"
)

// defaultMaxFrameBytes bounds a single incoming WebSocket message when
// ServerConfig.MaxFrameBytes is unset, per spec.md §4.6's oversized-frame
// ceiling.
const defaultMaxFrameBytes = 16 << 20

// Module provides the HTTP/WebSocket server to the Fx graph and starts it
// on application start.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

// ServerConfig is populated from the "server" config section.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	WSPath        string `yaml:"wsPath"`
	CORSOrigin    string `yaml:"corsOrigin"`
	MaxFrameBytes int    `yaml:"maxFrameBytes"`
}

// Server accepts WebSocket connections on ServerConfig.WSPath and runs one
// proxy.Session per connection.
type Server struct {
	cfg      ServerConfig
	store    *workspace.Store
	manager  analyzer.Manager
	notifier gateway.Notifier
	sessions session.Repository
	clk      clock.Clock
	logger   *zap.SugaredLogger
	scope    tally.Scope

	upgrader websocket.Upgrader
	http     *http.Server
}

// Params is the Fx input for New.
type Params struct {
	fx.In

	Config   config.Provider
	Store    *workspace.Store
	Manager  analyzer.Manager
	Notifier gateway.Notifier
	Sessions session.Repository
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
	Scope    tally.Scope
}

// New returns a Server reading its listen address and CORS origin from the
// Fx-provided config.Provider.
func New(p Params) (*Server, error) {
	var cfg ServerConfig
	if err := p.Config.Get("server").Populate(&cfg); err != nil {
		return nil, fmt.Errorf("loading server config: %w", err)
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = defaultMaxFrameBytes
	}

	s := &Server{
		cfg:      cfg,
		store:    p.Store,
		manager:  p.Manager,
		notifier: p.Notifier,
		sessions: p.Sessions,
		clk:      p.Clock,
		logger:   p.Logger,
		scope:    p.Scope,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return cfg.CORSOrigin == "*" || origin == "" || origin == cfg.CORSOrigin
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.WSPath, s.handleWebSocket)
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s, nil
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

// Start begins accepting connections in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Infow("starting websocket listener", "addr", s.http.Addr, "path", s.cfg.WSPath)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorw("websocket server stopped unexpectedly", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server, letting in-flight requests
// finish within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the server's http.Handler directly, for tests that want
// to drive it through httptest.Server rather than a bound listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	codec := rpc.NewFrameCodec(conn, s.cfg.MaxFrameBytes)
	id, err := uuid.NewV4()
	if err != nil {
		s.logger.Errorw("generating session id failed", "err", err)
		return
	}

	sess := proxy.New(id, s.store.Root(), s.store, s.manager, s.notifier, s.clk, s.logger, codecWriter{codec})
	if err := s.sessions.Set(r.Context(), sess.Entity()); err != nil {
		s.logger.Warnw("registering session failed", "sessionId", id.String(), "err", err)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go sess.Serve(ctx)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := sess.Close(stopCtx); err != nil {
			s.logger.Warnw("error closing session", "sessionId", id.String(), "err", err)
		}
		if err := s.sessions.Delete(context.Background(), id); err != nil {
			s.logger.Warnw("deregistering session failed", "sessionId", id.String(), "err", err)
		}
	}()

	// Every decoded message is dispatched on its own goroutine so a
	// slow analyzer round-trip on one URI never blocks reading (or
	// handling) the next message on another, per spec.md §4.5/§5. The
	// per-URI lock inside sess.HandleMessage is what actually serializes
	// operations that touch the same document; wg only keeps this
	// function from returning, and the connection from closing, while any
	// dispatched handler is still running.
	var wg sync.WaitGroup
	defer wg.Wait()

	s.logger.Infow("session connected", "sessionId", id.String())
	for {
		env, err := codec.ReadMessage()
		if err == rpc.ErrOversizedFrame {
			s.writeProtocolError(codec)
			continue
		}
		if err != nil {
			s.logger.Infow("session disconnected", "sessionId", id.String(), "err", err)
			return
		}

		wg.Add(1)
		go func(env *rpc.Envelope) {
			defer wg.Done()
			reply := sess.HandleMessage(ctx, env)
			if reply == nil {
				return
			}
			if err := codec.WriteMessage(reply); err != nil {
				s.logger.Warnw("writing reply failed", "sessionId", id.String(), "err", err)
			}
		}(env)
	}
}

// writeProtocolError answers an oversized frame with CodeInvalidRequest
// while keeping the connection open, per spec.md §4.6. The id is unknown
// (the frame was rejected before it could be parsed), so this is sent as a
// notification-shaped error rather than a response tied to a request id.
func (s *Server) writeProtocolError(codec *rpc.FrameCodec) {
	if s.scope != nil {
		s.scope.Counter("frames_rejected_oversized").Inc(1)
	}
	env := &rpc.Envelope{
		JSONRPC: "2.0",
		Error:   rpc.NewError(rpc.CodeInvalidRequest, "message exceeds maximum frame size"),
	}
	if err := codec.WriteMessage(env); err != nil {
		s.logger.Warnw("writing oversized-frame error failed", "err", err)
	}
}

type codecWriter struct {
	codec *rpc.FrameCodec
}

func (w codecWriter) WriteMessage(env *rpc.Envelope) error {
	return w.codec.WriteMessage(env)
}
