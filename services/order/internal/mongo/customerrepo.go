package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/momomagic/momo/services/order/internal/auth"
)

type CustomerRepo struct {
	collection *mongo.Collection
}

func NewCustomerRepo(db *mongo.Database) *CustomerRepo {
	return &CustomerRepo{
		collection: db.Collection(customersCollection),
	}
}

func (r *CustomerRepo) GetByPhone(ctx context.Context, phone string) (*auth.Customer, error) {
	var c auth.Customer
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, c *auth.Customer) error {
	if c == nil {
		return fmt.Errorf("customer is nil")
	}

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("customer with phone %s already exists", c.Phone)
		}
		return fmt.Errorf("cannot create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepo) Save(ctx context.Context, c *auth.Customer) error {
	if c == nil {
		return fmt.Errorf("customer is nil")
	}

	c.BeforeUpdate()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("cannot save customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("customer %s not found", c.ID)
	}
	return nil
}
