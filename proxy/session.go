// Package proxy implements the per-connection state machine that sits
// between one browser client and the shared analyzer.Manager: routing
// incoming JSON-RPC requests/notifications (spec.md §4.1/§4.2), enforcing
// full-content sync and per-document ordering (spec.md §4.4/§5), and
// relaying analyzer notifications back out. Grounded in the teacher's
// handler/ulsp-daemon (router-per-connection) and controller/ulsp-daemon
// (method implementations), collapsed into one layer since this proxy's
// controller logic is thin enough not to need a separate interface.
package proxy

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"go.lsp.dev/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/opencanvas/lsp-proxy/analyzer"
	"github.com/opencanvas/lsp-proxy/entity"
	"github.com/opencanvas/lsp-proxy/gateway"
	"github.com/opencanvas/lsp-proxy/internal/clock"
	"github.com/opencanvas/lsp-proxy/internal/errors"
	"github.com/opencanvas/lsp-proxy/internal/rpc"
	"github.com/opencanvas/lsp-proxy/workspace"
)

// connState is the per-connection lifecycle spec.md §4.1 describes: Open
// while serving requests, Closing once a shutdown/exit or transport error
// has been observed, Closed once cleanup has run.
type connState int32

const (
	connOpen connState = iota
	connClosing
	connClosed
)

// Writer sends one outbound envelope to the browser client. transport.Server
// supplies this as a thin wrapper over *rpc.FrameCodec so this package
// stays independent of the websocket library.
type Writer interface {
	WriteMessage(env *rpc.Envelope) error
}

// Session owns one browser connection's document set, routes its JSON-RPC
// traffic to the shared analyzer.Manager, and rebinds that manager's
// notification sink to itself for as long as it is the active owner of a
// given language's analyzer.
type Session struct {
	entity   *entity.Session
	store    *workspace.Store
	manager  analyzer.Manager
	notifier gateway.Notifier
	clk      clock.Clock
	logger   *zap.SugaredLogger

	writer Writer
	outbox chan gateway.Message

	mu        sync.Mutex
	state     connState
	documents map[string]*entity.Document
	shutdown  bool
	serving   bool

	stopOutbox chan struct{}
	outboxDone chan struct{}
}

// New returns a Session for a freshly accepted connection, rooted at
// workspaceRoot. The returned Session does not start pumping outbound
// notifications until Serve is called.
func New(id uuid.UUID, workspaceRoot string, store *workspace.Store, manager analyzer.Manager, notifier gateway.Notifier, clk clock.Clock, logger *zap.SugaredLogger, writer Writer) *Session {
	return &Session{
		entity:     entity.NewSession(id, workspaceRoot),
		store:      store,
		manager:    manager,
		notifier:   notifier,
		clk:        clk,
		logger:     logger.With("sessionId", id.String()),
		writer:     writer,
		outbox:     make(chan gateway.Message, 64),
		documents:  make(map[string]*entity.Document),
		stopOutbox: make(chan struct{}),
		outboxDone: make(chan struct{}),
	}
}

// ID returns this session's identifier.
func (s *Session) ID() uuid.UUID { return s.entity.ID }

// Entity returns the underlying entity.Session, for registries (such as
// repository/session) that track connected sessions independently of this
// package's transport-facing wrapper.
func (s *Session) Entity() *entity.Session { return s.entity }

// Serve registers this session's outbound channel and runs the pump that
// writes analyzer notifications out to the browser client until Close is
// called. It returns once the pump stops, or at once if Close already ran.
func (s *Session) Serve(ctx context.Context) {
	defer close(s.outboxDone)
	s.mu.Lock()
	if s.state == connClosed {
		s.mu.Unlock()
		return
	}
	s.serving = true
	s.notifier.Register(s.entity.ID, s.outbox)
	s.mu.Unlock()

	for {
		select {
		case msg := <-s.outbox:
			env := rpc.NewNotification(msg.Method, msg.Params)
			if err := s.writer.WriteMessage(env); err != nil {
				s.logger.Warnw("writing outbound notification failed", "err", err)
			}
		case <-s.stopOutbox:
			return
		case <-ctx.Done():
			return
		}
	}
}

// HandleMessage dispatches one decoded incoming envelope, per spec.md
// §4.1's request/notification/response split. Responses (an analyzer would
// never address one to us directly here, only a misbehaving client) are
// logged and dropped.
func (s *Session) HandleMessage(ctx context.Context, env *rpc.Envelope) *rpc.Envelope {
	switch env.Kind() {
	case rpc.KindRequest:
		s.mu.Lock()
		shutdown := s.shutdown
		s.mu.Unlock()
		if shutdown && env.Method != protocol.MethodExit {
			return rpc.NewErrorResponse(*env.ID, rpc.NewError(rpc.CodeInvalidRequest, "server is shutting down"))
		}
		result, err := s.dispatch(ctx, env.Method, env.Params)
		if err != nil {
			return rpc.NewErrorResponse(*env.ID, errors.ToJSONRPC(err))
		}
		return rpc.NewResult(*env.ID, result)
	case rpc.KindNotification:
		if _, err := s.dispatch(ctx, env.Method, env.Params); err != nil {
			s.logger.Warnw("notification handler failed", "method", env.Method, "err", err)
		}
		return nil
	default:
		s.logger.Warnw("dropping unexpected response-shaped message from client", "method", env.Method)
		return nil
	}
}

// Close tears the session down: it stops the outbound pump, deregisters
// from the notifier, and sends a didClose for every still-open document so
// the owning analyzers drop their state for this session's documents, per
// spec.md §4.4's graceful-disconnect behavior.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == connClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = connClosed
	serving := s.serving
	openURIs := s.entity.OpenURIs()
	s.mu.Unlock()

	var err error
	for _, uri := range openURIs {
		err = multierr.Append(err, s.closeDocument(ctx, uri))
	}

	s.notifier.Deregister(s.entity.ID, s.outbox)
	close(s.stopOutbox)
	if serving {
		<-s.outboxDone
	}
	return err
}

func (s *Session) documentFor(uri string) (*entity.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[uri]
	return d, ok
}

func (s *Session) storeDocument(d *entity.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[d.URI] = d
}

func (s *Session) forgetDocument(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}
