package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoURL = "mongodb://localhost:27017"
	defaultDBName   = "momo"
	seedsCollection = "_seeds"
)

// connect opens the order service database named by db.mongo.url and
// db.mongo.name. The caller disconnects the returned client.
func connect(ctx context.Context, config *apt.Config, logger apt.Logger) (*mongo.Client, *mongo.Database, error) {
	mongoURL := config.GetStringOrDef("db.mongo.url", defaultMongoURL)
	dbName := config.GetStringOrDef("db.mongo.name", defaultDBName)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", dbName)
	return client, client.Database(dbName), nil
}
