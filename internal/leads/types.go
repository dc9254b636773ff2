package leads

import (
	"context"
	"time"
)

// Lead is a contact the operator captured during or after a call.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves leads.
type Store interface {
	SaveLead(ctx context.Context, lead Lead) (Lead, error)
	ListLeads(ctx context.Context, limit int) ([]Lead, error)
	Close() error
}
