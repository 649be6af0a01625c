package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/drawtest"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/ml"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories/memory"
	"github.com/lottoml/lotto-engine/internal/simulation"
	"github.com/lottoml/lotto-engine/pkg/lottofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	archive    *archive.Archive
	feed       *drawtest.Feed
	configRepo *memory.SystemConfigRepository
	runs       *memory.TrainingRunRepository
	draws      *DrawServiceImpl
	prediction *PredictionServiceImpl
}

func fastConfig() ml.Config {
	cfg := ml.DefaultConfig()
	cfg.Forest.Trees = 5
	cfg.Forest.MaxDepth = 4
	cfg.Boosting.Stages = 5
	cfg.Boosting.MaxDepth = 3
	cfg.Network.Hidden = []int{16, 8, 4}
	cfg.Network.MaxEpochs = 20
	return cfg
}

func newFixture(t *testing.T, published []models.Draw) *fixture {
	t.Helper()
	f := &fixture{
		archive:    archive.New(memory.NewDrawRepository()),
		feed:       drawtest.NewFeed(published),
		configRepo: memory.NewSystemConfigRepository(),
		runs:       memory.NewTrainingRunRepository(),
	}
	f.draws = NewDrawService(f.archive, f.feed, f.configRepo)
	f.prediction = NewPredictionService(f.archive, ml.NewEnsemble(fastConfig()), f.runs)
	return f
}

func TestSyncRecordsLastSync(t *testing.T) {
	f := newFixture(t, drawtest.Generate(30, 1))
	ctx := context.Background()

	last, err := f.draws.LastSync(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	res, err := f.draws.Sync(ctx, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 30, res.SyncedCount)
	assert.Equal(t, 30, res.LatestDraw)

	last, err = f.draws.LastSync(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, time.Now(), *last, time.Minute)

	res, err = f.draws.Sync(ctx, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SyncedCount)
}

func TestSyncFailureDoesNotRecordLastSync(t *testing.T) {
	f := newFixture(t, drawtest.Generate(30, 2))
	f.feed.FailAt(12, errors.New("connection reset"))

	res, err := f.draws.Sync(context.Background(), archive.SyncFull)
	require.Error(t, err)
	assert.Equal(t, 11, res.SyncedCount)

	last, err := f.draws.LastSync(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastSyncAcceptsStoredString(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.configRepo.UpsertByKey(context.Background(), models.ConfigKeyLastSync, "2024-01-06T12:00:00Z", ""))
	last, err := f.draws.LastSync(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2024, last.Year())
}

func TestReadOperations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.draws.GetLatest(ctx)
	assert.ErrorIs(t, err, errs.ErrEmptyArchive)

	n, err := f.draws.Import(ctx, drawtest.Generate(25, 3))
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	d, err := f.draws.GetResult(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, d.DrawNo)

	_, err = f.draws.GetResult(ctx, 26)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	page, err := f.draws.ListResults(ctx, archive.ListQuery{Page: 2, Limit: 10, Sort: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 11, page.Results[0].DrawNo)
	assert.Equal(t, 3, page.TotalPages)
}

func TestStatisticsWindow(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.draws.Import(context.Background(), drawtest.Generate(40, 4))
	require.NoError(t, err)
	svc := NewStatisticsService(f.archive)

	all, err := svc.GetStatistics(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 40, all.TotalDraws)

	recent, err := svc.GetStatistics(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, recent.TotalDraws)

	clamped, err := svc.GetStatistics(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, all, clamped)

	_, err = svc.GetStatistics(context.Background(), -1)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestTrainAndPredict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.prediction.Predict(ctx)
	assert.ErrorIs(t, err, errs.ErrModelNotTrained)

	_, err = f.draws.Import(ctx, drawtest.Generate(9, 5))
	require.NoError(t, err)
	_, err = f.prediction.Train(ctx)
	assert.ErrorIs(t, err, errs.ErrInsufficientData)

	_, err = f.draws.Import(ctx, drawtest.Generate(40, 5))
	require.NoError(t, err)
	report, err := f.prediction.Train(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Models, 3)

	pred, err := f.prediction.Predict(ctx)
	require.NoError(t, err)
	require.Len(t, pred.Predictions, 3)
	for _, p := range pred.Predictions {
		assert.Len(t, p.Numbers, 6)
	}
	assert.True(t, f.prediction.ModelStatus().Trained)

	runs, err := f.prediction.TrainingRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 40, runs[0].LatestDraw)
	assert.NotEmpty(t, runs[0].ID)
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewRecommendationService(f.archive)

	_, err := svc.Recommend(context.Background(), nil)
	assert.ErrorIs(t, err, errs.ErrEmptyArchive)

	_, err = f.draws.Import(context.Background(), drawtest.Generate(60, 6))
	require.NoError(t, err)

	seed := int64(17)
	a, err := svc.Recommend(context.Background(), &seed)
	require.NoError(t, err)
	b, err := svc.Recommend(context.Background(), &seed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.Recommendations, 5)
	assert.Equal(t, seed, a.Seed)
}

func TestSimulationReferenceResolution(t *testing.T) {
	f := newFixture(t, nil)
	engine := simulation.NewEngine(simulation.Config{Workers: 2})

	svc := NewSimulationService(f.archive, engine, 0, 4)
	info, err := svc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReferenceBuiltin, info.Source)
	assert.Equal(t, 1205, info.LatestDraw.DrawNo)
	assert.Equal(t, []int{1, 4, 16, 23, 31, 41}, info.LatestDraw.WinningNumbers)

	_, err = f.draws.Import(context.Background(), drawtest.Generate(20, 7))
	require.NoError(t, err)
	info, err = svc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReferenceArchive, info.Source)
	assert.Equal(t, 20, info.LatestDraw.DrawNo)

	pinned := NewSimulationService(f.archive, engine, 5, 4)
	info, err = pinned.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReferenceConfigured, info.Source)
	assert.Equal(t, 5, info.LatestDraw.DrawNo)

	missing := NewSimulationService(f.archive, engine, 500, 4)
	info, err = missing.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReferenceArchive, info.Source)
}

func TestSimulationRun(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewSimulationService(f.archive, simulation.NewEngine(simulation.Config{Workers: 2}), 0, 4)

	seed := uint64(9)
	a, err := svc.Run(context.Background(), 20000, &seed)
	require.NoError(t, err)
	b, err := svc.Run(context.Background(), 20000, &seed)
	require.NoError(t, err)
	assert.Equal(t, a.WinnerStats, b.WinnerStats)
	assert.Equal(t, int64(20000), a.TotalPredictions)
	assert.Equal(t, 1205, a.DrawInfo.DrawNo)

	_, err = svc.Run(context.Background(), simulation.MaxTrials+1, nil)
	assert.ErrorIs(t, err, errs.ErrSimulationOverflow)
}

func TestSimulationJobs(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewSimulationService(f.archive, simulation.NewEngine(simulation.Config{Workers: 2, BatchSize: 10000}), 0, 2)
	defer svc.Shutdown()
	ctx := context.Background()

	job, err := svc.StartJob(ctx, simulation.MaxTrials, nil)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.State)

	require.Eventually(t, func() bool {
		j, err := svc.GetJob(ctx, job.ID)
		return err == nil && j.Progress.Completed > 0
	}, 10*time.Second, time.Millisecond)

	cancelled, err := svc.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, cancelled.State)
	require.NotNil(t, cancelled.Result)
	assert.True(t, cancelled.Result.Cancelled)
	assert.Less(t, cancelled.Result.TotalPredictions, int64(simulation.MaxTrials))

	done, err := svc.StartJob(ctx, 1000, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j, err := svc.GetJob(ctx, done.ID)
		return err == nil && j.State == JobCompleted
	}, 10*time.Second, time.Millisecond)

	// the cancelled job is the oldest finished one and makes room
	_, err = svc.StartJob(ctx, 1000, nil)
	require.NoError(t, err)
	_, err = svc.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Len(t, svc.ListJobs(ctx), 2)

	_, err = svc.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSimulationJobLimit(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewSimulationService(f.archive, simulation.NewEngine(simulation.Config{Workers: 1, BatchSize: 1000}), 0, 1)
	defer svc.Shutdown()

	_, err := svc.StartJob(context.Background(), simulation.MaxTrials, nil)
	require.NoError(t, err)
	_, err = svc.StartJob(context.Background(), 1000, nil)
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, errs.HTTPStatus(err))
	assert.Equal(t, 1, svc.Status(context.Background()).RunningJobs)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, drawtest.Generate(12, 8))
	svc := NewStatusService(f.archive, f.draws, f.prediction)

	st, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Database.TotalDraws)
	assert.Nil(t, st.Database.LatestDraw)
	assert.Nil(t, st.LastSync)
	assert.False(t, st.MLModels.Trained)
	assert.Empty(t, st.MLModels.ModelsAvailable)

	_, err = f.draws.Sync(context.Background(), archive.SyncIncremental)
	require.NoError(t, err)
	st, err = svc.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, st.Database.TotalDraws)
	require.NotNil(t, st.Database.StoredDraws)
	assert.EqualValues(t, 12, *st.Database.StoredDraws)
	require.NotNil(t, st.Database.LatestDraw)
	assert.Equal(t, 12, *st.Database.LatestDraw)
	assert.NotNil(t, st.LastSync)
}

func TestFeedAdapterMapsPublisherResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("drwNo") == "1" {
			fmt.Fprint(w, `{"returnValue":"success","drwNo":1,"drwNoDate":"2002-12-07","drwtNo1":40,"drwtNo2":10,"drwtNo3":23,"drwtNo4":29,"drwtNo5":33,"drwtNo6":37,"bnusNo":16,"firstWinamnt":0}`)
			return
		}
		fmt.Fprint(w, `{"returnValue":"fail"}`)
	}))
	defer srv.Close()

	feed := NewFeedAdapter(lottofeed.NewClient(lottofeed.Options{BaseURL: srv.URL, CurrentDrawNo: 2}))
	d, err := feed.FetchDraw(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 23, 29, 33, 37, 40}, d.Numbers)
	assert.Nil(t, d.Prize1st)
	require.NoError(t, d.Validate())

	_, err = feed.FetchDraw(context.Background(), 2)
	assert.ErrorIs(t, err, archive.ErrNotPublished)

	a := archive.New(memory.NewDrawRepository())
	res, err := a.Sync(context.Background(), feed, archive.SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SyncedCount)
}

func TestAuthLogin(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	ctx := context.Background()

	s := NewAuthService("admin", hash, "s3cret", time.Hour)
	tok, err := s.Login(ctx, "admin", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	_, err = s.Login(ctx, "admin", "nope")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = s.Login(ctx, "root", "hunter2")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = NewAuthService("admin", "", "s3cret", time.Hour).Login(ctx, "admin", "hunter2")
	assert.ErrorIs(t, err, errs.ErrValidation)
}
