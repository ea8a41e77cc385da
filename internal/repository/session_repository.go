package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"inspection-service/internal/domain/inspection"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one open inspection: the capture store, the report and the
// selected site of a single browser tab.
type Session struct {
	ID         uuid.UUID
	State      inspection.State
	CreatedAt  time.Time
	LastActive time.Time
	Version    int64
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// SessionRepository keeps sessions in process memory. Nothing survives a
// restart. Updates to one session are serialized; different sessions proceed
// independently.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	now      func() time.Time
}

func NewSessionRepository(now func() time.Time) *SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &SessionRepository{
		sessions: make(map[uuid.UUID]*entry),
		now:      now,
	}
}

func (r *SessionRepository) Create(ctx context.Context, state inspection.State) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	now := r.now()
	s := Session{
		ID:         uuid.New(),
		State:      state,
		CreatedAt:  now,
		LastActive: now,
		Version:    1,
	}

	r.mu.Lock()
	r.sessions[s.ID] = &entry{session: s}
	r.mu.Unlock()

	return s, nil
}

func (r *SessionRepository) lookup(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Get returns a snapshot of the session. The snapshot shares no maps with the
// stored state.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	e, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	s.State = s.State.Clone()
	return s, nil
}

// Update runs fn with the current state while holding the session lock and
// stores the state fn returns. When fn fails nothing is stored.
func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, fn func(inspection.State) (inspection.State, error)) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	e, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.session.State.Clone())
	if err != nil {
		return Session{}, err
	}
	e.session.State = next
	e.session.LastActive = r.now()
	e.session.Version++

	s := e.session
	s.State = s.State.Clone()
	return s, nil
}

// Touch marks the session as used without changing it.
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.LastActive = r.now()
	e.mu.Unlock()
	return ctx.Err()
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return ctx.Err()
}

// DeleteIdle removes sessions not used for longer than ttl and returns how
// many were removed.
func (r *SessionRepository) DeleteIdle(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, e := range r.sessions {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		e.mu.Lock()
		idle := e.session.LastActive.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
