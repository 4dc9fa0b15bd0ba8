// Package registry tracks call sessions by call connection id, plus the
// single "active" call eligible for control operations. The explicit
// registry replaces ambient process-wide state so multi-call and
// multi-worker deployments have one place to fix.
package registry

import (
	"context"
	"errors"

	"voicebridge-backend/internal/domain"
)

// ErrNotFound is returned when no session exists for a call connection id
var ErrNotFound = errors.New("registry: call session not found")

// Registry stores call sessions and the active call id. Implementations
// must be safe for concurrent use.
type Registry interface {
	// Put inserts or replaces the session for its call connection id
	Put(ctx context.Context, session domain.CallSession) error

	// Get returns the session for the id, or ErrNotFound
	Get(ctx context.Context, callConnectionID string) (domain.CallSession, error)

	// Remove deletes the session; removing a missing session is not an error
	Remove(ctx context.Context, callConnectionID string) error

	// SetActive marks the call eligible for control operations
	SetActive(ctx context.Context, callConnectionID string) error

	// Active returns the active call connection id, or "" when none
	Active(ctx context.Context) (string, error)

	// ClearActive forgets the active call id
	ClearActive(ctx context.Context) error
}
