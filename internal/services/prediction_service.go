package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/metrics"
	"github.com/lottoml/lotto-engine/internal/ml"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"golang.org/x/exp/slog"
)

var _ PredictionService = (*PredictionServiceImpl)(nil)

// PredictionServiceImpl trains the ensemble on the archive and serves
// predictions from the latest trained state
type PredictionServiceImpl struct {
	archive         *archive.Archive
	ensemble        *ml.Ensemble
	trainingRunRepo repositories.TrainingRunRepository
}

// NewPredictionService creates a new PredictionServiceImpl
func NewPredictionService(a *archive.Archive, ensemble *ml.Ensemble, trainingRunRepo repositories.TrainingRunRepository) *PredictionServiceImpl {
	return &PredictionServiceImpl{
		archive:         a,
		ensemble:        ensemble,
		trainingRunRepo: trainingRunRepo,
	}
}

// Train fits every model family on the current archive snapshot
func (s *PredictionServiceImpl) Train(ctx context.Context) (*ml.TrainReport, error) {
	snap := s.archive.Snapshot()
	start := time.Now()
	report, err := s.ensemble.Train(ctx, snap.Draws())
	duration := time.Since(start)
	metrics.RecordTraining(duration, err == nil)
	if err != nil {
		slog.Error("Model training failed", "draws", snap.Len(), "error", err)
		return nil, err
	}

	latest, _ := snap.Latest()
	run := &models.TrainingRun{
		ID:              uuid.NewString(),
		Models:          report.Models,
		TrainedAt:       report.TrainedAt,
		TrainingSamples: report.TrainingSamples,
		TestSamples:     report.TestSamples,
		LatestDraw:      latest.DrawNo,
		DurationMillis:  duration.Milliseconds(),
	}
	if err := s.trainingRunRepo.Create(ctx, run); err != nil {
		slog.Warn("Failed to record training run", "runID", run.ID, "error", err)
	}
	slog.Info("Models trained", "runID", run.ID, "trainingSamples", report.TrainingSamples,
		"testSamples", report.TestSamples, "featureMode", report.FeatureMode, "duration", duration)
	return report, nil
}

// Predict runs every trained family against the latest archive state
func (s *PredictionServiceImpl) Predict(ctx context.Context) (*ml.Prediction, error) {
	if !s.ensemble.Status().Trained {
		return nil, errs.New(errs.KindModelNotTrained, "Models not trained. Please train models first.")
	}
	snap := s.archive.Snapshot()
	if snap.Len() == 0 {
		return nil, errs.New(errs.KindEmptyArchive, "No draws in archive. Please sync data first.")
	}
	return s.ensemble.Predict(snap.Draws())
}

// ModelStatus reports whether models are available
func (s *PredictionServiceImpl) ModelStatus() ml.Status {
	return s.ensemble.Status()
}

// TrainingRuns returns recent training records, newest first
func (s *PredictionServiceImpl) TrainingRuns(ctx context.Context, limit int) ([]*models.TrainingRun, error) {
	runs, err := s.trainingRunRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load training runs: %w", err)
	}
	return runs, nil
}
