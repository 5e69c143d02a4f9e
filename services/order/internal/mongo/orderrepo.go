package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/momomagic/momo/services/order/internal/order"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) ListBySession(ctx context.Context, sessionID string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"session_id": sessionID}, "cannot list orders by session")
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"status": status}, "cannot list orders by status")
}

func (r *OrderRepo) List(ctx context.Context) ([]*order.Order, error) {
	return r.find(ctx, bson.M{}, "cannot list orders")
}

func (r *OrderRepo) find(ctx context.Context, filter bson.M, errMsg string) ([]*order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	defer cursor.Close(ctx)

	var result []*order.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	filter := bson.M{"_id": o.ID}
	update := bson.M{"$set": o}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("order not found")
	}

	return nil
}

// SetBillingStatus updates every order of the session in one write.
func (r *OrderRepo) SetBillingStatus(ctx context.Context, sessionID, status string) (int64, error) {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"billing_status": status,
		"updated_at":     time.Now(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("cannot update session billing status: %w", err)
	}

	return result.ModifiedCount, nil
}
