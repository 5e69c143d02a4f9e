package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
)

// ResetDB drops the whole order service database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Infof("⚠️  DANGER: This will drop the Momo database!")
	logger.Infof("⚠️  This action cannot be undone!")

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", db.Name(), err)
	}
	logger.Info("Database dropped", "database", db.Name())
	return nil
}
