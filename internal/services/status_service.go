package services

import (
	"context"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/ml"
	"golang.org/x/exp/slog"
)

// DatabaseStatus summarizes the archive. StoredDraws counts repository
// records, including any rejected on load.
type DatabaseStatus struct {
	TotalDraws  int     `json:"total_draws"`
	StoredDraws *int64  `json:"stored_draws,omitempty"`
	LatestDraw  *int    `json:"latest_draw,omitempty"`
	LatestDate  *string `json:"latest_date,omitempty"`
}

// SystemStatus is the admin status payload
type SystemStatus struct {
	Database DatabaseStatus `json:"database"`
	MLModels ml.Status      `json:"ml_models"`
	LastSync *time.Time     `json:"last_sync"`
}

var _ StatusService = (*StatusServiceImpl)(nil)

// StatusServiceImpl aggregates archive, model and sync state
type StatusServiceImpl struct {
	archive     *archive.Archive
	drawService DrawService
	prediction  PredictionService
}

// NewStatusService creates a new StatusServiceImpl
func NewStatusService(a *archive.Archive, drawService DrawService, prediction PredictionService) *StatusServiceImpl {
	return &StatusServiceImpl{archive: a, drawService: drawService, prediction: prediction}
}

// GetStatus reports the current system state
func (s *StatusServiceImpl) GetStatus(ctx context.Context) (*SystemStatus, error) {
	snap := s.archive.Snapshot()
	st := &SystemStatus{
		Database: DatabaseStatus{TotalDraws: snap.Len()},
		MLModels: s.prediction.ModelStatus(),
	}
	if latest, err := snap.Latest(); err == nil {
		no, date := latest.DrawNo, latest.DrawDate
		st.Database.LatestDraw = &no
		st.Database.LatestDate = &date
	}

	if stored, err := s.archive.Stored(ctx); err == nil {
		st.Database.StoredDraws = &stored
	} else {
		slog.Warn("Failed to count stored draws", "error", err)
	}

	lastSync, err := s.drawService.LastSync(ctx)
	if err != nil {
		// status stays available when the config store is not
		slog.Warn("Failed to read last sync time", "error", err)
	}
	st.LastSync = lastSync
	return st, nil
}
