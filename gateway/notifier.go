// Package gateway routes analyzer-originated notifications back out to
// whichever browser session currently owns that analyzer. Grounded in the
// teacher's gateway/ide-client package, but redesigned per spec.md §9: the
// teacher keys its registry by jsonrpc2.Conn/protocol.Client because an IDE
// connection there IS a jsonrpc2 connection one hop away from the gateway;
// here the gateway sits one hop further from the wire (proxy.Session owns
// the WebSocket), so the registry is keyed by session uuid.UUID and holds a
// plain outbound channel, atomically swappable on reconnect/rebind.
package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofrs/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Message is one outbound notification destined for a session's WebSocket.
type Message struct {
	Method string
	Params json.RawMessage
}

// Notifier fans analyzer notifications out to the session that owns the
// analyzer which produced them.
type Notifier interface {
	// Register binds sessionID's outbound channel, replacing any previous
	// binding (spec.md §4.4's rebind-on-reconnect).
	Register(sessionID uuid.UUID, ch chan<- Message)
	// Deregister removes sessionID's binding if it is still the current
	// one for that ID (a later Register for the same ID wins ties).
	Deregister(sessionID uuid.UUID, ch chan<- Message)
	// Notify delivers method/params to sessionID's channel without
	// blocking; a session whose consumer has fallen behind or disconnected
	// has the notification dropped and logged rather than stalling the
	// analyzer's read loop.
	Notify(ctx context.Context, sessionID uuid.UUID, method string, params json.RawMessage)
}

type notifier struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]chan<- Message

	logger *zap.SugaredLogger
}

// Module provides a Notifier to the Fx graph.
var Module = fx.Provide(New)

// New returns a Notifier.
func New(logger *zap.SugaredLogger) Notifier {
	return &notifier{
		subs:   make(map[uuid.UUID]chan<- Message),
		logger: logger,
	}
}

func (n *notifier) Register(sessionID uuid.UUID, ch chan<- Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[sessionID] = ch
}

func (n *notifier) Deregister(sessionID uuid.UUID, ch chan<- Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if current, ok := n.subs[sessionID]; ok && current == ch {
		delete(n.subs, sessionID)
	}
}

func (n *notifier) Notify(ctx context.Context, sessionID uuid.UUID, method string, params json.RawMessage) {
	n.mu.RLock()
	ch, ok := n.subs[sessionID]
	n.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case ch <- Message{Method: method, Params: params}:
	case <-ctx.Done():
	default:
		n.logger.Warnw("dropping analyzer notification, session outbound channel is full",
			"sessionId", sessionID, "method", method)
	}
}
