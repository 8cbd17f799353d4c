// Package session is the concurrent in-memory registry of active proxy
// sessions, grounded directly in the teacher's repository/session package:
// a mutex-guarded map keyed by uuid.UUID, with a tally gauge tracking the
// live count. The teacher's separate model.Session + mapper indirection is
// dropped since this proxy already collapsed entity/model into one
// package (entity.Session is stored directly, no conversion needed).
package session

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"

	"github.com/opencanvas/lsp-proxy/entity"
	"github.com/opencanvas/lsp-proxy/internal/errors"
)

// Repository tracks every currently connected session.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	Set(ctx context.Context, s *entity.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	All(ctx context.Context) ([]*entity.Session, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[uuid.UUID]*entity.Session
	stats    tally.Scope
}

// Params is the Fx input for New.
type Params struct {
	fx.In

	Scope tally.Scope
}

// New returns an in-memory, concurrency-safe session Repository.
func New(p Params) Repository {
	return &repository{
		memstore: make(map[uuid.UUID]*entity.Session),
		stats:    p.Scope,
	}
}

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Get returns the session associated with id.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[id]
	if !ok {
		return nil, errors.New("session not found: " + id.String())
	}
	return s, nil
}

// Set registers or replaces the session keyed by its own UUID.
func (r *repository) Set(ctx context.Context, s *entity.Session) error {
	if s == nil {
		return errors.New("cannot store a nil session")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memstore[s.ID] = s
	r.updateGauge()
	return nil
}

// Delete removes the session keyed by id, if present.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.updateGauge()
	return nil
}

// All returns a snapshot of every currently tracked session.
func (r *repository) All(ctx context.Context) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Session, 0, len(r.memstore))
	for _, s := range r.memstore {
		out = append(out, s)
	}
	return out, nil
}

// Count returns the number of currently tracked sessions.
func (r *repository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memstore), nil
}

func (r *repository) updateGauge() {
	if r.stats == nil {
		return
	}
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
}
