// Package drawtest provides deterministic draw fixtures and a scripted feed
// for tests.
package drawtest

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/models"
)

var firstDrawDate = time.Date(2002, 12, 7, 0, 0, 0, 0, time.UTC)

// Generate returns n valid draws numbered 1..n, reproducible for a given seed
func Generate(n int, seed int64) []models.Draw {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	out := make([]models.Draw, 0, n)
	for i := 1; i <= n; i++ {
		perm := rng.Perm(models.MaxNumber)
		nums := make([]int, models.NumbersPerDraw)
		for j := range nums {
			nums[j] = perm[j] + 1
		}
		sort.Ints(nums)
		out = append(out, models.Draw{
			DrawNo:   i,
			DrawDate: firstDrawDate.AddDate(0, 0, 7*(i-1)).Format(models.DateLayout),
			Numbers:  nums,
			Bonus:    perm[models.NumbersPerDraw] + 1,
		})
	}
	return out
}

// Feed is a scripted archive.Feed backed by a fixed set of draws
type Feed struct {
	mu      sync.Mutex
	draws   map[int]models.Draw
	latest  int
	failAt  int
	err     error
	fetches int
}

// NewFeed creates a feed publishing the given draws
func NewFeed(draws []models.Draw) *Feed {
	f := &Feed{draws: make(map[int]models.Draw)}
	f.Publish(draws...)
	return f
}

// Publish adds or replaces draws and advances the latest draw number
func (f *Feed) Publish(draws ...models.Draw) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range draws {
		f.draws[d.DrawNo] = d
		if d.DrawNo > f.latest {
			f.latest = d.DrawNo
		}
	}
}

// SetLatest overrides the advertised latest draw number
func (f *Feed) SetLatest(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = n
}

// FailAt makes FetchDraw return err for the given draw number
func (f *Feed) FailAt(drawNo int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = drawNo
	f.err = err
}

// Fetches returns the number of FetchDraw calls made
func (f *Feed) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *Feed) LatestDrawNo(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *Feed) FetchDraw(ctx context.Context, drawNo int) (models.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.failAt == drawNo && f.err != nil {
		return models.Draw{}, f.err
	}
	d, ok := f.draws[drawNo]
	if !ok {
		return models.Draw{}, archive.ErrNotPublished
	}
	return d, nil
}
