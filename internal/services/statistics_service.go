package services

import (
	"context"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/statistics"
)

var _ StatisticsService = (*StatisticsServiceImpl)(nil)

// StatisticsServiceImpl computes statistics over archive snapshots
type StatisticsServiceImpl struct {
	archive *archive.Archive
}

// NewStatisticsService creates a new StatisticsServiceImpl
func NewStatisticsService(a *archive.Archive) *StatisticsServiceImpl {
	return &StatisticsServiceImpl{archive: a}
}

// GetStatistics computes statistics over the most recent draws. A window
// larger than the archive is clamped.
func (s *StatisticsServiceImpl) GetStatistics(ctx context.Context, recent int) (*statistics.Snapshot, error) {
	if recent < 0 {
		return nil, errs.New(errs.KindValidation, "recent must be a positive number of draws")
	}
	return statistics.Compute(s.archive.Snapshot().Recent(recent)), nil
}
