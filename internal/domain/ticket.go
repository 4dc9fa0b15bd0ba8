package domain

// Ticket is the demo support ticket entity served by the stub store.
// It has no update or delete lifecycle.
type Ticket struct {
	TicketID    string `json:"ticket_id"`
	Status      string `json:"status"` // open, closed
	Description string `json:"description"`
}

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)
