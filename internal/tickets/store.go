// Package tickets is the demo ticketing collaborator: a hard-coded
// in-memory store backing the /api/ticket endpoints and the model's
// get_ticket / create_ticket tools.
package tickets

import (
	"context"

	"voicebridge-backend/internal/domain"
	apperrors "voicebridge-backend/pkg/errors"
)

const (
	// The one ticket the stub knows about
	knownTicketID          = "123"
	knownTicketDescription = "Printer on floor 3 is not working"

	// Every created ticket gets the same fixed id
	createdTicketID = "124"
)

// Store answers ticket lookups and creations. The stub keeps no state:
// lookups match a single hard-coded record and creation always succeeds
// with a fixed id.
type Store interface {
	Get(ctx context.Context, id string) (domain.Ticket, error)
	Create(ctx context.Context, description string) (domain.Ticket, error)
}

type stubStore struct{}

// NewStore creates the stub ticket store
func NewStore() Store {
	return stubStore{}
}

// Get returns the fixed record for the known id, else a not-found error
func (stubStore) Get(_ context.Context, id string) (domain.Ticket, error) {
	if id != knownTicketID {
		return domain.Ticket{}, apperrors.TicketNotFoundError(id)
	}
	return domain.Ticket{
		TicketID:    knownTicketID,
		Status:      domain.TicketStatusOpen,
		Description: knownTicketDescription,
	}, nil
}

// Create always succeeds and returns the fixed new ticket id
func (stubStore) Create(_ context.Context, description string) (domain.Ticket, error) {
	return domain.Ticket{
		TicketID:    createdTicketID,
		Status:      domain.TicketStatusOpen,
		Description: description,
	}, nil
}
