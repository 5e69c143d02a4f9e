package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/momomagic/momo/services/order/internal/order"
)

// BillRepo stores one consolidated bill per session.
type BillRepo struct {
	collection *mongo.Collection
}

func NewBillRepo(db *mongo.Database) *BillRepo {
	return &BillRepo{
		collection: db.Collection(billsCollection),
	}
}

func (r *BillRepo) GetBySession(ctx context.Context, sessionID string) (*order.Bill, error) {
	var b order.Bill
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get bill: %w", err)
	}
	return &b, nil
}

func (r *BillRepo) Save(ctx context.Context, b *order.Bill) error {
	if b == nil {
		return fmt.Errorf("bill is nil")
	}

	b.UpdatedAt = time.Now()
	filter := bson.M{"session_id": b.SessionID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, b, opts); err != nil {
		return fmt.Errorf("cannot save bill: %w", err)
	}

	return nil
}

func (r *BillRepo) SetBillingStatus(ctx context.Context, sessionID, status string) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"billing_status": status,
		"updated_at":     time.Now(),
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("cannot update bill billing status: %w", err)
	}

	return nil
}
