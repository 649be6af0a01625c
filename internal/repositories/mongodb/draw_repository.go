package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DrawRepository implements the repositories.DrawRepository interface
type DrawRepository struct {
	collection *mongo.Collection
}

// NewDrawRepository creates a new DrawRepository
func NewDrawRepository(db *mongo.Database) repositories.DrawRepository {
	return &DrawRepository{
		collection: db.Collection("draws"),
	}
}

// UpsertMany replaces or inserts draws keyed by drawNo in one bulk write
func (r *DrawRepository) UpsertMany(ctx context.Context, draws []models.Draw) error {
	if len(draws) == 0 {
		return nil
	}
	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(draws))
	for _, d := range draws {
		d.UpdatedAt = now
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"drawNo": d.DrawNo}).
			SetReplacement(d).
			SetUpsert(true))
	}
	opts := options.BulkWrite().SetOrdered(false)
	if _, err := r.collection.BulkWrite(ctx, writes, opts); err != nil {
		return fmt.Errorf("failed to upsert %d draws: %w", len(draws), err)
	}
	return nil
}

// FindAll returns all draws sorted by draw number ascending
func (r *DrawRepository) FindAll(ctx context.Context) ([]models.Draw, error) {
	opts := options.Find().SetSort(bson.M{"drawNo": 1}).SetProjection(bson.M{"_id": 0})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer cursor.Close(ctx)

	var draws []models.Draw
	if err := cursor.All(ctx, &draws); err != nil {
		return nil, fmt.Errorf("failed to decode draws: %w", err)
	}
	if draws == nil {
		draws = []models.Draw{}
	}
	return draws, nil
}

// Count counts all draws
func (r *DrawRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
