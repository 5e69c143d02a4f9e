package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
)

// demoSeedIDs must match the menu seeds applied by the order service.
var demoSeedIDs = []string{
	"2026-01-12_menu_demo_items",
	"2026-01-12_menu_complimentary_item",
}

// ClearDemo removes the seeded menu and its seed records so the next
// service start with seeding.demo=true seeds it again.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := db.Collection("menu_items").Drop(ctx); err != nil {
		return fmt.Errorf("drop menu items: %w", err)
	}
	logger.Info("Dropped menu items")

	res, err := db.Collection(seedsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": demoSeedIDs}})
	if err != nil {
		return fmt.Errorf("delete menu seed tracker: %w", err)
	}
	logger.Info("Cleared menu seed tracker", "deleted", res.DeletedCount)
	return nil
}
