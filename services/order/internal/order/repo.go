package order

import (
	"context"

	"github.com/google/uuid"
)

type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Order, error)
	ListByStatus(ctx context.Context, status string) ([]*Order, error)
	Save(ctx context.Context, order *Order) error
	// SetBillingStatus writes the status to every order of the session.
	SetBillingStatus(ctx context.Context, sessionID, status string) (int64, error)
}

type BillRepo interface {
	GetBySession(ctx context.Context, sessionID string) (*Bill, error)
	Save(ctx context.Context, bill *Bill) error
	SetBillingStatus(ctx context.Context, sessionID, status string) error
}

// Locker serializes work on a single session across service replicas.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
