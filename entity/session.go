package entity

import (
	"sync"

	"github.com/gofrs/uuid"
)

// Session is the proxy's record of one browser connection, grounded in the
// teacher's model.Session (UUID, WorkspaceRoot, Conn) — trimmed to the
// fields this proxy's single-workspace, multi-language design needs and
// extended with the owned-document/per-URI-lock bookkeeping the teacher
// keeps elsewhere (repository/session, gateway/ide-client).
type Session struct {
	ID            uuid.UUID
	WorkspaceRoot string

	mu           sync.Mutex
	openURIs     map[string]struct{}
	uriLocks     map[string]*sync.Mutex
	capabilities map[string]bool
}

// NewSession allocates a Session rooted at workspaceRoot.
func NewSession(id uuid.UUID, workspaceRoot string) *Session {
	return &Session{
		ID:            id,
		WorkspaceRoot: workspaceRoot,
		openURIs:      make(map[string]struct{}),
		uriLocks:      make(map[string]*sync.Mutex),
		capabilities:  make(map[string]bool),
	}
}

// MarkOpen records uri as owned by this session.
func (s *Session) MarkOpen(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openURIs[uri] = struct{}{}
}

// MarkClosed forgets uri and releases its lock entry.
func (s *Session) MarkClosed(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.openURIs, uri)
	delete(s.uriLocks, uri)
}

// IsOpen reports whether uri is currently tracked as open in this session.
func (s *Session) IsOpen(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.openURIs[uri]
	return ok
}

// OpenURIs returns a snapshot of the currently open URIs.
func (s *Session) OpenURIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.openURIs))
	for u := range s.openURIs {
		uris = append(uris, u)
	}
	return uris
}

// LockForURI returns the dedicated mutex guaranteeing causal ordering of
// requests against a single document, per spec.md §5's per-document
// serialization requirement. The same *sync.Mutex is returned for the
// lifetime of the URI's open/close cycle.
func (s *Session) LockForURI(uri string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.uriLocks[uri]
	if !ok {
		l = &sync.Mutex{}
		s.uriLocks[uri] = l
	}
	return l
}

// SetCapability records whether the client declared support for capability
// name during initialize, so handlers can gate optional notifications.
func (s *Session) SetCapability(name string, supported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities[name] = supported
}

// HasCapability reports whether the client declared support for name.
func (s *Session) HasCapability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities[name]
}
