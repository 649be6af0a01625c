package services

import (
	"context"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/ml"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/recommend"
	"github.com/lottoml/lotto-engine/internal/simulation"
	"github.com/lottoml/lotto-engine/internal/statistics"
)

// DrawService defines the interface for draw archive operations
type DrawService interface {
	// ListResults returns a page of draws
	ListResults(ctx context.Context, q archive.ListQuery) (archive.Page, error)

	// GetResult returns one draw by number
	GetResult(ctx context.Context, drawNo int) (models.Draw, error)

	// GetLatest returns the highest-numbered draw
	GetLatest(ctx context.Context) (models.Draw, error)

	// Sync pulls draws from the publisher feed
	Sync(ctx context.Context, mode archive.SyncMode) (archive.SyncResult, error)

	// Import stores draws from an offline source such as a CSV export
	Import(ctx context.Context, draws []models.Draw) (int, error)

	// LastSync returns when the last successful sync finished, or nil
	LastSync(ctx context.Context) (*time.Time, error)
}

// StatisticsService computes frequency statistics over the archive
type StatisticsService interface {
	// GetStatistics computes statistics over the most recent draws; 0 means all
	GetStatistics(ctx context.Context, recent int) (*statistics.Snapshot, error)
}

// PredictionService trains the model ensemble and produces predictions
type PredictionService interface {
	Train(ctx context.Context) (*ml.TrainReport, error)
	Predict(ctx context.Context) (*ml.Prediction, error)
	ModelStatus() ml.Status
	TrainingRuns(ctx context.Context, limit int) ([]*models.TrainingRun, error)
}

// RecommendationService generates rule-based combinations
type RecommendationService interface {
	// Recommend runs every strategy; a nil seed picks a fresh one
	Recommend(ctx context.Context, seed *int64) (*Recommendations, error)
}

// SimulationService runs Monte-Carlo simulations against a reference draw
type SimulationService interface {
	Info(ctx context.Context) (*SimulationInfo, error)
	Status(ctx context.Context) SimulationStatus
	// Run blocks until the simulation finishes or ctx is cancelled
	Run(ctx context.Context, n int64, seed *uint64) (*simulation.Result, error)
	StartJob(ctx context.Context, n int64, seed *uint64) (*SimulationJob, error)
	GetJob(ctx context.Context, id string) (*SimulationJob, error)
	CancelJob(ctx context.Context, id string) (*SimulationJob, error)
	ListJobs(ctx context.Context) []*SimulationJob
}

// StatusService reports archive, model and sync state
type StatusService interface {
	GetStatus(ctx context.Context) (*SystemStatus, error)
}

// Recommendations is the output of every strategy keyed by name
type Recommendations struct {
	Recommendations map[string]recommend.Recommendation `json:"recommendations"`
	Seed            int64                               `json:"seed"`
}
