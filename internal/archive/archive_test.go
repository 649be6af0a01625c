package archive_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/drawtest"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchive(t *testing.T, draws []models.Draw) (*archive.Archive, *memory.DrawRepository) {
	t.Helper()
	repo := memory.NewDrawRepository()
	a := archive.New(repo)
	for _, d := range draws {
		_, err := a.AppendOrUpdate(context.Background(), d)
		require.NoError(t, err)
	}
	return a, repo
}

func TestAppendOrUpdateRejectsInvalidDraw(t *testing.T) {
	a, repo := newArchive(t, nil)
	_, err := a.AppendOrUpdate(context.Background(), models.Draw{DrawNo: 1, DrawDate: "2002-12-07", Numbers: []int{1, 2, 3, 4, 5, 5}, Bonus: 9})
	assert.ErrorIs(t, err, errs.ErrInvalidDraw)
	assert.Equal(t, 0, a.Snapshot().Len())
	assert.Equal(t, 0, repo.Writes())
}

func TestAppendOrUpdateIsIdempotent(t *testing.T) {
	draws := drawtest.Generate(3, 1)
	a, repo := newArchive(t, draws)

	changed, err := a.AppendOrUpdate(context.Background(), draws[1])
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 3, repo.Writes())

	corrected := draws[1]
	corrected.Bonus = firstMissing(corrected)
	changed, err = a.AppendOrUpdate(context.Background(), corrected)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, a.Snapshot().Len())

	got, err := a.Get(2)
	require.NoError(t, err)
	assert.Equal(t, corrected.Bonus, got.Bonus)
}

func firstMissing(d models.Draw) int {
	for n := 1; n <= 45; n++ {
		if n == d.Bonus {
			continue
		}
		found := false
		for _, x := range d.Numbers {
			if x == n {
				found = true
			}
		}
		if !found {
			return n
		}
	}
	return 0
}

func TestGetAndLatest(t *testing.T) {
	a, _ := newArchive(t, nil)
	_, err := a.Latest()
	assert.ErrorIs(t, err, errs.ErrEmptyArchive)

	a, _ = newArchive(t, drawtest.Generate(5, 2))
	latest, err := a.Latest()
	require.NoError(t, err)
	assert.Equal(t, 5, latest.DrawNo)

	_, err = a.Get(99)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListPaginationAndSort(t *testing.T) {
	a, _ := newArchive(t, drawtest.Generate(25, 3))

	page, err := a.List(archive.ListQuery{Page: 1, Limit: 10, Sort: archive.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Results, 10)
	assert.Equal(t, 25, page.Results[0].DrawNo)
	assert.Equal(t, 16, page.Results[9].DrawNo)

	page, err = a.List(archive.ListQuery{Page: 3, Limit: 10, Sort: archive.SortAsc})
	require.NoError(t, err)
	require.Len(t, page.Results, 5)
	assert.Equal(t, 21, page.Results[0].DrawNo)

	page, err = a.List(archive.ListQuery{Page: 1, Limit: 100, Sort: archive.SortAsc, FromDraw: 5, ToDraw: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []int{5, 6, 7}, []int{page.Results[0].DrawNo, page.Results[1].DrawNo, page.Results[2].DrawNo})

	page, err = a.List(archive.ListQuery{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)

	_, err = a.List(archive.ListQuery{Page: 0, Limit: 10})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = a.List(archive.ListQuery{Page: 1, Limit: 10, Sort: "sideways"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestListEmptyArchive(t *testing.T) {
	a, _ := newArchive(t, nil)
	page, err := a.List(archive.ListQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestIncrementalSyncIsIdempotent(t *testing.T) {
	draws := drawtest.Generate(150, 4)
	feed := drawtest.NewFeed(draws)
	a, repo := newArchive(t, nil)
	ctx := context.Background()

	res, err := a.Sync(ctx, feed, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 150, res.SyncedCount)
	assert.Equal(t, 150, res.LatestDraw)
	writes := repo.Writes()

	for i := 0; i < 2; i++ {
		res, err = a.Sync(ctx, feed, archive.SyncIncremental)
		require.NoError(t, err)
		assert.Equal(t, 0, res.SyncedCount)
		assert.Equal(t, 150, res.LatestDraw)
	}
	assert.Equal(t, writes, repo.Writes())

	feed.Publish(drawtest.Generate(152, 4)[150:]...)
	res, err = a.Sync(ctx, feed, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SyncedCount)
	assert.Equal(t, 152, res.LatestDraw)
}

func TestFullSyncOverwritesCorrectedDraws(t *testing.T) {
	draws := drawtest.Generate(20, 5)
	a, _ := newArchive(t, draws)
	ctx := context.Background()

	corrected := draws[9]
	corrected.DrawDate = "2003-02-15"
	feed := drawtest.NewFeed(draws)
	feed.Publish(corrected)

	res, err := a.Sync(ctx, feed, archive.SyncFull)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Equal(t, 20, feed.Fetches())

	got, err := a.Get(10)
	require.NoError(t, err)
	assert.Equal(t, "2003-02-15", got.DrawDate)
}

func TestSyncStopsAtUnpublishedDraw(t *testing.T) {
	feed := drawtest.NewFeed(drawtest.Generate(10, 6))
	feed.SetLatest(12)
	a, _ := newArchive(t, nil)

	res, err := a.Sync(context.Background(), feed, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 10, res.SyncedCount)
	assert.Equal(t, 10, res.LatestDraw)
}

func TestSyncKeepsFetchedPrefixOnError(t *testing.T) {
	feed := drawtest.NewFeed(drawtest.Generate(10, 7))
	boom := errors.New("upstream unavailable")
	feed.FailAt(7, boom)
	a, _ := newArchive(t, nil)

	res, err := a.Sync(context.Background(), feed, archive.SyncIncremental)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 6, res.SyncedCount)
	assert.Equal(t, 6, res.LatestDraw)
}

func TestReadersSeeConsistentSnapshotsDuringSync(t *testing.T) {
	draws := drawtest.Generate(400, 8)
	a, _ := newArchive(t, draws[:100])
	feed := drawtest.NewFeed(draws)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := a.Snapshot()
			ds := snap.Draws()
			for i, d := range ds {
				if d.DrawNo != i+1 {
					t.Errorf("torn snapshot: position %d holds draw %d", i, d.DrawNo)
					return
				}
			}
		}
	}()

	_, err := a.Sync(context.Background(), feed, archive.SyncIncremental)
	close(stop)
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, 400, a.Snapshot().Len())
}

func TestLoadSkipsInvalidStoredDraws(t *testing.T) {
	repo := memory.NewDrawRepository()
	good := drawtest.Generate(2, 9)
	bad := models.Draw{DrawNo: 3, DrawDate: "2003-01-01", Numbers: []int{1, 1, 2, 3, 4, 5}, Bonus: 6}
	require.NoError(t, repo.UpsertMany(context.Background(), append(good, bad)))

	a := archive.New(repo)
	require.NoError(t, a.Load(context.Background()))
	assert.Equal(t, 2, a.Snapshot().Len())

	stored, err := a.Stored(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored)
}

func TestRecentClampsToSize(t *testing.T) {
	a, _ := newArchive(t, drawtest.Generate(5, 10))
	snap := a.Snapshot()
	assert.Len(t, snap.Recent(3), 3)
	assert.Equal(t, 3, snap.Recent(3)[0].DrawNo)
	assert.Len(t, snap.Recent(50), 5)
	assert.Len(t, snap.Recent(0), 5)
}

func TestAppendManyValidatesWholeBatch(t *testing.T) {
	a, repo := newArchive(t, nil)
	draws := drawtest.Generate(10, 11)
	bad := draws[4]
	bad.Bonus = bad.Numbers[0]
	batch := append(append([]models.Draw{}, draws[:4]...), bad)

	_, err := a.AppendMany(context.Background(), batch)
	assert.ErrorIs(t, err, errs.ErrInvalidDraw)
	assert.Equal(t, 0, a.Snapshot().Len())
	assert.Equal(t, 0, repo.Writes())

	n, err := a.AppendMany(context.Background(), draws)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	corrected := draws[2]
	corrected.Prize1st = new(int64)
	n, err = a.AppendMany(context.Background(), append(append([]models.Draw{}, draws...), corrected))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := a.Get(3)
	require.NoError(t, err)
	assert.NotNil(t, got.Prize1st)
	assert.Equal(t, 10, a.Snapshot().Len())
}
