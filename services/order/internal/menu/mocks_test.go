package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// MockMenuItemRepo is an in-memory MenuItemRepo for testing
type MockMenuItemRepo struct {
	items    []*MenuItem
	ListFunc func(ctx context.Context) ([]*MenuItem, error)
}

func NewMockMenuItemRepo(items ...*MenuItem) *MockMenuItemRepo {
	return &MockMenuItemRepo{items: items}
}

func (m *MockMenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (m *MockMenuItemRepo) List(ctx context.Context) ([]*MenuItem, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return m.items, nil
}

func (m *MockMenuItemRepo) ListAvailable(ctx context.Context) ([]*MenuItem, error) {
	return onlyAvailable(m.items), nil
}

func (m *MockMenuItemRepo) ListByCategory(ctx context.Context, category string) ([]*MenuItem, error) {
	var out []*MenuItem
	for _, it := range m.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

var errRepoDown = errors.New("repo down")
