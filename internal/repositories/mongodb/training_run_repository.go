package mongodb

import (
	"context"
	"fmt"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TrainingRunRepository implements the repositories.TrainingRunRepository interface
type TrainingRunRepository struct {
	collection *mongo.Collection
}

// NewTrainingRunRepository creates a new TrainingRunRepository
func NewTrainingRunRepository(db *mongo.Database) repositories.TrainingRunRepository {
	return &TrainingRunRepository{
		collection: db.Collection("training_runs"),
	}
}

// Create inserts a training run record
func (r *TrainingRunRepository) Create(ctx context.Context, run *models.TrainingRun) error {
	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to insert training run: %w", err)
	}
	return nil
}

// FindRecent returns the newest training runs first
func (r *TrainingRunRepository) FindRecent(ctx context.Context, limit int) ([]*models.TrainingRun, error) {
	opts := options.Find().SetSort(bson.M{"trainedAt": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*models.TrainingRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []*models.TrainingRun{}
	}
	return runs, nil
}
