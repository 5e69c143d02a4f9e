package menu

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// ComplimentaryItemID identifies the always offered item the diner cart adds on bootstrap.
var ComplimentaryItemID = uuid.MustParse("7d0c8f1e-5b7a-4c39-9a42-0a1f0c0ffee1")

// MenuItem is a single orderable product.
type MenuItem struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Category    string    `json:"category" bson:"category"`
	ImageLink   string    `json:"image_link,omitempty" bson:"image_link,omitempty"`
	IsVeg       bool      `json:"is_veg" bson:"is_veg"`
	Available   bool      `json:"available" bson:"available"`
	// AutoAdd marks the item the cart inserts on its own.
	AutoAdd   bool      `json:"auto_add" bson:"auto_add"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (m *MenuItem) GetID() uuid.UUID {
	return m.ID
}

func (m *MenuItem) ResourceType() string {
	return "menu-item"
}

func (m *MenuItem) BeforeCreate() {
	if m.ID == uuid.Nil {
		m.ID = apt.GenerateNewID()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
}
