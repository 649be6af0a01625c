package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/recommend"
	"github.com/lottoml/lotto-engine/internal/statistics"
	"golang.org/x/exp/slog"
)

var _ RecommendationService = (*RecommendationServiceImpl)(nil)

// RecommendationServiceImpl runs the recommendation strategies over the
// statistics of the whole archive
type RecommendationServiceImpl struct {
	archive *archive.Archive
	now     func() time.Time
}

// NewRecommendationService creates a new RecommendationServiceImpl
func NewRecommendationService(a *archive.Archive) *RecommendationServiceImpl {
	return &RecommendationServiceImpl{archive: a, now: time.Now}
}

// Recommend runs every strategy with one generator
func (s *RecommendationServiceImpl) Recommend(ctx context.Context, seed *int64) (*Recommendations, error) {
	snap := s.archive.Snapshot()
	if snap.Len() == 0 {
		return nil, errs.New(errs.KindEmptyArchive, "No draws in archive. Please sync data first.")
	}

	var sd int64
	if seed != nil {
		sd = *seed
	} else {
		sd = s.now().UnixNano()
	}

	recs, err := recommend.All(statistics.Compute(snap.Draws()), rand.New(rand.NewPCG(uint64(sd), 0)))
	if err != nil {
		slog.Error("Recommendation generation failed", "seed", sd, "error", err)
		return nil, err
	}
	return &Recommendations{Recommendations: recs, Seed: sd}, nil
}
