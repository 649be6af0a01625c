package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/metrics"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceImpl serves the draw archive and keeps it in sync with the feed
type DrawServiceImpl struct {
	archive          *archive.Archive
	feed             archive.Feed
	systemConfigRepo repositories.SystemConfigRepository
}

// NewDrawService creates a new DrawServiceImpl
func NewDrawService(a *archive.Archive, feed archive.Feed, systemConfigRepo repositories.SystemConfigRepository) *DrawServiceImpl {
	metrics.SetArchiveSize(a.Snapshot().Len())
	return &DrawServiceImpl{
		archive:          a,
		feed:             feed,
		systemConfigRepo: systemConfigRepo,
	}
}

// ListResults returns a page of draws
func (s *DrawServiceImpl) ListResults(ctx context.Context, q archive.ListQuery) (archive.Page, error) {
	return s.archive.List(q)
}

// GetResult returns one draw by number
func (s *DrawServiceImpl) GetResult(ctx context.Context, drawNo int) (models.Draw, error) {
	return s.archive.Get(drawNo)
}

// GetLatest returns the highest-numbered draw
func (s *DrawServiceImpl) GetLatest(ctx context.Context) (models.Draw, error) {
	return s.archive.Latest()
}

// Sync pulls draws from the feed. Draws fetched before a failure are kept
// and the last sync time is only recorded for runs without error.
func (s *DrawServiceImpl) Sync(ctx context.Context, mode archive.SyncMode) (archive.SyncResult, error) {
	start := time.Now()
	res, err := s.archive.Sync(ctx, s.feed, mode)
	metrics.RecordSync(string(mode), res.SyncedCount, err == nil)
	metrics.SetArchiveSize(s.archive.Snapshot().Len())
	if err != nil {
		slog.Error("Draw sync failed", "mode", mode, "synced", res.SyncedCount, "latestDraw", res.LatestDraw, "error", err)
		return res, err
	}

	now := time.Now().UTC()
	if err := s.systemConfigRepo.UpsertByKey(ctx, models.ConfigKeyLastSync, now, "Time of the last successful draw sync"); err != nil {
		slog.Warn("Failed to record last sync time", "error", err)
	}
	slog.Info("Draw sync completed", "mode", mode, "synced", res.SyncedCount, "latestDraw", res.LatestDraw, "duration", time.Since(start))
	return res, nil
}

// Import stores draws from an offline source
func (s *DrawServiceImpl) Import(ctx context.Context, draws []models.Draw) (int, error) {
	n, err := s.archive.AppendMany(ctx, draws)
	if err != nil {
		return 0, err
	}
	metrics.SetArchiveSize(s.archive.Snapshot().Len())
	slog.Info("Draws imported", "submitted", len(draws), "changed", n)
	return n, nil
}

// LastSync returns when the last successful sync finished
func (s *DrawServiceImpl) LastSync(ctx context.Context) (*time.Time, error) {
	cfg, err := s.systemConfigRepo.FindByKey(ctx, models.ConfigKeyLastSync)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}
	// The Value field is interface{}; Mongo decodes stored times as DateTime
	switch v := cfg.Value.(type) {
	case time.Time:
		return &v, nil
	case primitive.DateTime:
		t := v.Time().UTC()
		return &t, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid last sync value %q: %w", v, err)
		}
		return &t, nil
	default:
		slog.Warn("Unexpected last sync value type", "valueType", fmt.Sprintf("%T", cfg.Value))
		return nil, nil
	}
}
