package auth

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Customer is the identity returned by a successful phone verification.
type Customer struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Phone     string    `json:"phone" bson:"phone"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func NewCustomer(phone string) *Customer {
	return &Customer{
		ID:    apt.GenerateNewID(),
		Phone: phone,
	}
}

func (c *Customer) GetID() uuid.UUID {
	return c.ID
}

func (c *Customer) ResourceType() string {
	return "customer"
}

func (c *Customer) BeforeCreate() {
	if c.ID == uuid.Nil {
		c.ID = apt.GenerateNewID()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
}

func (c *Customer) BeforeUpdate() {
	c.UpdatedAt = time.Now()
}

// Merge fills the profile with values supplied at verification time.
// Blank values never erase stored ones.
func (c *Customer) Merge(name, email string) bool {
	changed := false
	if name != "" && name != c.Name {
		c.Name = name
		changed = true
	}
	if email != "" && email != c.Email {
		c.Email = email
		changed = true
	}
	return changed
}

type CustomerRepo interface {
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	Create(ctx context.Context, customer *Customer) error
	Save(ctx context.Context, customer *Customer) error
}
