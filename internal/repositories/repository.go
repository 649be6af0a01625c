package repositories

import (
	"context"
	"errors"

	"github.com/lottoml/lotto-engine/internal/models"
)

// ErrNotFound is returned by repositories when a keyed lookup has no match
var ErrNotFound = errors.New("record not found")

// DrawRepository defines the interface for draw data operations
type DrawRepository interface {
	// UpsertMany writes draws keyed by draw number, replacing existing records
	UpsertMany(ctx context.Context, draws []models.Draw) error
	// FindAll returns every draw ordered by draw number ascending
	FindAll(ctx context.Context) ([]models.Draw, error)
	// Count returns the number of stored draws, valid or not
	Count(ctx context.Context) (int64, error)
}

// SystemConfigRepository defines the interface for system configuration operations
type SystemConfigRepository interface {
	FindByKey(ctx context.Context, key string) (*models.SystemConfig, error)
	UpsertByKey(ctx context.Context, key string, value interface{}, description string) error
}

// TrainingRunRepository stores the history of model training runs
type TrainingRunRepository interface {
	Create(ctx context.Context, run *models.TrainingRun) error
	// FindRecent returns at most limit runs, newest first
	FindRecent(ctx context.Context, limit int) ([]*models.TrainingRun, error)
}
