package menu

import (
	"context"

	"github.com/google/uuid"
)

type MenuItemRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	List(ctx context.Context) ([]*MenuItem, error)
	ListAvailable(ctx context.Context) ([]*MenuItem, error)
	ListByCategory(ctx context.Context, category string) ([]*MenuItem, error)
}
