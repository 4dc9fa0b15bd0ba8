package registry

import (
	"context"
	"sync"

	"voicebridge-backend/internal/domain"
)

// MemoryRegistry is the in-process registry. Active-call state is scoped
// to one worker process; deployments running multiple workers should use
// the Redis registry instead.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]domain.CallSession
	active   string
}

// NewMemoryRegistry creates an empty in-process registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]domain.CallSession),
	}
}

// Put inserts or replaces a call session
func (r *MemoryRegistry) Put(_ context.Context, session domain.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.CallConnectionID] = session
	return nil
}

// Get returns the session for the id, or ErrNotFound
func (r *MemoryRegistry) Get(_ context.Context, callConnectionID string) (domain.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[callConnectionID]
	if !ok {
		return domain.CallSession{}, ErrNotFound
	}
	return session, nil
}

// Remove deletes the session and clears the active id if it matches
func (r *MemoryRegistry) Remove(_ context.Context, callConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callConnectionID)
	if r.active == callConnectionID {
		r.active = ""
	}
	return nil
}

// SetActive marks the call eligible for control operations
func (r *MemoryRegistry) SetActive(_ context.Context, callConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = callConnectionID
	return nil
}

// Active returns the active call connection id, or ""
func (r *MemoryRegistry) Active(_ context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, nil
}

// ClearActive forgets the active call id
func (r *MemoryRegistry) ClearActive(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
	return nil
}
