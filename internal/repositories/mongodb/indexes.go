package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]mongo.IndexModel{
		"draws": {
			Keys:    bson.D{{Key: "drawNo", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		"system_config": {
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		"training_runs": {
			Keys: bson.D{{Key: "trainedAt", Value: -1}},
		},
	}
	for name, model := range indexes {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	return nil
}
