package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/momomagic/momo/services/order/internal/menu"
)

// MenuItemRepo reads the catalog written by the menu seeds.
type MenuItemRepo struct {
	collection *mongo.Collection
}

func NewMenuItemRepo(db *mongo.Database) *MenuItemRepo {
	return &MenuItemRepo{
		collection: db.Collection(menuItemsCollection),
	}
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*menu.MenuItem, error) {
	var item menu.MenuItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return &item, nil
}

func (r *MenuItemRepo) List(ctx context.Context) ([]*menu.MenuItem, error) {
	return r.find(ctx, bson.M{})
}

func (r *MenuItemRepo) ListAvailable(ctx context.Context) ([]*menu.MenuItem, error) {
	return r.find(ctx, bson.M{"available": true})
}

func (r *MenuItemRepo) ListByCategory(ctx context.Context, category string) ([]*menu.MenuItem, error) {
	return r.find(ctx, bson.M{"category": category})
}

func (r *MenuItemRepo) find(ctx context.Context, filter bson.M) ([]*menu.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*menu.MenuItem
	for cursor.Next(ctx) {
		var item menu.MenuItem
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("cannot decode menu item: %w", err)
		}
		items = append(items, &item)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return items, nil
}
