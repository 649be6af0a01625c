package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SystemConfigRepository implements the repositories.SystemConfigRepository interface
type SystemConfigRepository struct {
	collection *mongo.Collection
}

// NewSystemConfigRepository creates a new SystemConfigRepository
func NewSystemConfigRepository(db *mongo.Database) repositories.SystemConfigRepository {
	return &SystemConfigRepository{
		collection: db.Collection("system_config"),
	}
}

// FindByKey finds a system configuration by key.
// The Value field is interface{}, so the caller performs the type assertion.
func (r *SystemConfigRepository) FindByKey(ctx context.Context, key string) (*models.SystemConfig, error) {
	var config models.SystemConfig
	err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&config)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find system config by key %s: %w", key, err)
	}
	return &config, nil
}

// UpsertByKey updates a system configuration by key, or creates it if it doesn't exist.
func (r *SystemConfigRepository) UpsertByKey(ctx context.Context, key string, value interface{}, description string) error {
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"value":       value,
			"description": description,
			"updatedAt":   time.Now(),
		},
		"$setOnInsert": bson.M{
			"key":       key,
			"createdAt": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert system config for key %s: %w", key, err)
	}
	return nil
}
