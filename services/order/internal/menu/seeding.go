package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const menuItemsCollection = "menu_items"

// Seeds returns the demo catalog seeds.
func Seeds(db *mongo.Database) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-01-12_menu_demo_items",
			Description: "Seed the demo momo catalog",
			Run: func(ctx context.Context) error {
				return upsertItems(ctx, db, DemoItems())
			},
		},
		{
			ID:          "2026-01-12_menu_complimentary_item",
			Description: "Seed the complimentary item added to every new cart",
			Run: func(ctx context.Context) error {
				return upsertItems(ctx, db, []*MenuItem{ComplimentaryItem()})
			},
		},
	}
}

// SeedingFunc applies the catalog seeds once per database.
func SeedingFunc(appName string, dbFn func() *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Info("applying menu seeds")
		db := dbFn()
		tracker := seed.NewMongoTracker(db)
		if err := seed.Apply(ctx, tracker, Seeds(db), appName); err != nil {
			return fmt.Errorf("apply menu seeds: %w", err)
		}
		logger.Info("menu seeds applied")
		return nil
	}
}

// ComplimentaryItem is the free chutney platter every table gets.
func ComplimentaryItem() *MenuItem {
	return &MenuItem{
		ID:          ComplimentaryItemID,
		Name:        "Complimentary Chutney Platter",
		Description: "Red chilli, sesame and mint chutneys on the house",
		Price:       0,
		Category:    "sides",
		IsVeg:       true,
		Available:   true,
		AutoAdd:     true,
	}
}

func DemoItems() []*MenuItem {
	items := []struct {
		id       string
		name     string
		desc     string
		price    float64
		category string
		veg      bool
	}{
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e01", "Veg Steamed Momo", "Cabbage, carrot and onion filling, 8 pieces", 6.50, "steamed", true},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e02", "Chicken Steamed Momo", "Minced chicken with ginger and coriander, 8 pieces", 8.00, "steamed", false},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e03", "Paneer Fried Momo", "Crisp fried, spiced paneer filling, 8 pieces", 8.50, "fried", true},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e04", "Chicken Jhol Momo", "Steamed momo in a tangy sesame tomato broth", 9.50, "jhol", false},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e05", "Tandoori Momo", "Chargrilled with a yoghurt marinade", 10.00, "tandoori", false},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e06", "Chocolate Momo", "Dark chocolate filling, dusted with sugar", 5.50, "dessert", true},
		{"0b6b7a4e-1d2f-4c1a-8f3e-1a2b3c4d5e07", "Masala Chai", "Spiced milk tea", 2.50, "drinks", true},
	}

	out := make([]*MenuItem, 0, len(items))
	for _, it := range items {
		out = append(out, &MenuItem{
			ID:          uuid.MustParse(it.id),
			Name:        it.name,
			Description: it.desc,
			Price:       it.price,
			Category:    it.category,
			IsVeg:       it.veg,
			Available:   true,
		})
	}
	return out
}

func upsertItems(ctx context.Context, db *mongo.Database, items []*MenuItem) error {
	coll := db.Collection(menuItemsCollection)
	now := time.Now()

	for _, item := range items {
		item.CreatedAt = now
		item.UpdatedAt = now
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": item.ID},
			bson.M{"$setOnInsert": item},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("seed menu item %s: %w", item.Name, err)
		}
	}
	return nil
}
