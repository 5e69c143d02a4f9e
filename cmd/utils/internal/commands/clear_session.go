package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearSession deletes every order and the bill of one dining session.
func ClearSession(ctx context.Context, config *apt.Config, logger apt.Logger, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id required")
	}

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	filter := bson.M{"session_id": sessionID}

	orders, err := db.Collection("orders").DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete session orders: %w", err)
	}
	bills, err := db.Collection("bills").DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete session bill: %w", err)
	}

	logger.Info("Session cleared", "session_id", sessionID, "orders", orders.DeletedCount, "bills", bills.DeletedCount)
	return nil
}
