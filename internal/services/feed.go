package services

import (
	"context"
	"errors"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/pkg/lottofeed"
)

// FeedAdapter exposes a lottofeed.Client as an archive.Feed
type FeedAdapter struct {
	client *lottofeed.Client
}

var _ archive.Feed = (*FeedAdapter)(nil)

// NewFeedAdapter creates a new FeedAdapter
func NewFeedAdapter(client *lottofeed.Client) *FeedAdapter {
	return &FeedAdapter{client: client}
}

// LatestDrawNo implements archive.Feed
func (f *FeedAdapter) LatestDrawNo(ctx context.Context) (int, error) {
	return f.client.LatestDrawNo(ctx)
}

// FetchDraw implements archive.Feed
func (f *FeedAdapter) FetchDraw(ctx context.Context, drawNo int) (models.Draw, error) {
	res, err := f.client.FetchDraw(ctx, drawNo)
	if errors.Is(err, lottofeed.ErrNotPublished) {
		return models.Draw{}, archive.ErrNotPublished
	}
	if err != nil {
		return models.Draw{}, err
	}
	d := models.Draw{
		DrawNo:   res.DrawNo,
		DrawDate: res.DrawDate,
		Numbers:  res.Numbers,
		Bonus:    res.Bonus,
	}
	if res.Prize1st > 0 {
		prize := res.Prize1st
		d.Prize1st = &prize
	}
	return d, nil
}
