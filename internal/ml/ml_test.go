package ml

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lottoml/lotto-engine/internal/drawtest"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Forest.Trees = 5
	cfg.Forest.MaxDepth = 4
	cfg.Boosting.Stages = 5
	cfg.Boosting.MaxDepth = 3
	cfg.Network.Hidden = []int{16, 8, 4}
	cfg.Network.MaxEpochs = 20
	return cfg
}

func assertValidNumbers(t *testing.T, nums []int) {
	t.Helper()
	require.Len(t, nums, 6)
	for i, n := range nums {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 45)
		if i > 0 {
			assert.Less(t, nums[i-1], n)
		}
	}
}

func TestPredictBeforeTrain(t *testing.T) {
	e := NewEnsemble(fastConfig())
	_, err := e.Predict(drawtest.Generate(10, 1))
	assert.ErrorIs(t, err, errs.ErrModelNotTrained)
	assert.False(t, e.Status().Trained)
	assert.Empty(t, e.Status().ModelsAvailable)
}

func TestTrainRequiresTenDraws(t *testing.T) {
	e := NewEnsemble(fastConfig())
	_, err := e.Train(context.Background(), drawtest.Generate(9, 2))
	require.ErrorIs(t, err, errs.ErrInsufficientData)
	assert.Equal(t, "Not enough data to train models. Please sync data first.", errs.Detail(err))
}

func TestTrainOnTenDrawsThenPredict(t *testing.T) {
	e := NewEnsemble(fastConfig())
	draws := drawtest.Generate(10, 3)

	report, err := e.Train(context.Background(), draws)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TrainingSamples)
	assert.Equal(t, 1, report.TestSamples)
	assert.Equal(t, features.Padded, report.FeatureMode)
	require.Len(t, report.Models, 3)
	for _, fam := range Families {
		score := report.Models[string(fam)]
		assert.True(t, score.Trained)
		assert.GreaterOrEqual(t, score.TestAccuracy, 0.0)
		assert.LessOrEqual(t, score.TestAccuracy, 1.0)
	}

	pred, err := e.Predict(draws)
	require.NoError(t, err)
	require.Len(t, pred.Predictions, 3)
	for _, fam := range Families {
		assertValidNumbers(t, pred.Predictions[string(fam)].Numbers)
	}
	assert.NotEmpty(t, pred.Disclaimer)
	require.NotNil(t, pred.LastTrained)

	st := e.Status()
	assert.True(t, st.Trained)
	assert.Equal(t, []string{"random_forest", "gradient_boosting", "neural_network"}, st.ModelsAvailable)
	assert.Len(t, e.States(), 3)
}

func TestTrainUsesStrictFeaturesOnDeepArchive(t *testing.T) {
	e := NewEnsemble(fastConfig())
	draws := drawtest.Generate(features.MinHistory+40, 4)
	report, err := e.Train(context.Background(), draws)
	require.NoError(t, err)
	assert.Equal(t, features.Strict, report.FeatureMode)
	assert.Equal(t, 40, report.TrainingSamples+report.TestSamples)
	assert.Equal(t, 8, report.TestSamples)
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	draws := drawtest.Generate(40, 5)
	a := NewEnsemble(fastConfig())
	b := NewEnsemble(fastConfig())
	_, err := a.Train(context.Background(), draws)
	require.NoError(t, err)
	_, err = b.Train(context.Background(), draws)
	require.NoError(t, err)

	pa, err := a.Predict(draws)
	require.NoError(t, err)
	pb, err := b.Predict(draws)
	require.NoError(t, err)
	assert.Equal(t, pa.Predictions, pb.Predictions)
}

func TestConcurrentTrainRejected(t *testing.T) {
	e := NewEnsemble(fastConfig())
	draws := drawtest.Generate(20, 6)

	// The run that wins the flag stops on its first clock read until released
	entered := make(chan struct{})
	release := make(chan struct{})
	var clockReads atomic.Int32
	e.now = func() time.Time {
		if clockReads.Add(1) == 1 {
			close(entered)
			<-release
		}
		return time.Now()
	}

	start := make(chan struct{})
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Train(context.Background(), draws)
			results <- err
		}()
	}
	close(start)

	<-entered
	assert.True(t, e.Training())
	// The other call cannot finish before release unless it was rejected
	first := <-results
	assert.ErrorIs(t, first, errs.ErrTrainingInProgress)

	close(release)
	wg.Wait()
	assert.NoError(t, <-results)
	assert.False(t, e.Training())
	assert.True(t, e.Status().Trained)

	_, err := e.Train(context.Background(), draws)
	assert.NoError(t, err)
}

func TestTrainHonorsCancellation(t *testing.T) {
	e := NewEnsemble(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Train(ctx, drawtest.Generate(20, 7))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Training())
	assert.False(t, e.Status().Trained)
}

func TestPostprocess(t *testing.T) {
	cases := []struct {
		name string
		raw  []float64
		want []int
	}{
		{"distinct", []float64{1.2, 7.5, 13.4, 22.49, 30, 44.6}, []int{1, 8, 13, 22, 30, 45}},
		{"clamped", []float64{-3, 0.4, 50, 46, 45, 44.9}, []int{1, 2, 42, 43, 44, 45}},
		{"duplicates prefer lower", []float64{10, 10, 10, 10.2, 9.8, 11}, []int{8, 9, 10, 11, 12, 13}},
		{"all same", []float64{23, 23, 23, 23, 23, 23}, []int{20, 21, 22, 23, 24, 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Postprocess(tc.raw))
		})
	}
}

func TestPostprocessAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 0))
	for i := 0; i < 1000; i++ {
		raw := make([]float64, 6)
		for j := range raw {
			raw[j] = rng.Float64()*70 - 10
		}
		nums := Postprocess(raw)
		require.Len(t, nums, 6)
		for j, n := range nums {
			require.True(t, n >= 1 && n <= 45)
			if j > 0 {
				require.Less(t, nums[j-1], n)
			}
		}
	}
}

func TestMatchScoreGreedyPairing(t *testing.T) {
	// (10,9) and (13,12) at distance 1 win over (10,12) at distance 2
	assert.InDelta(t, 2.0/6, MatchScore([]int{10, 13, 40, 41, 42, 43}, []int{9, 12, 1, 2, 3, 4}), 1e-12)
	assert.Equal(t, 1.0, MatchScore([]int{1, 2, 3, 4, 5, 6}, []int{1, 2, 3, 4, 5, 6}))
	// 24 is left without a partner once 21 pairs with 20
	assert.InDelta(t, 5.0/6, MatchScore([]int{4, 8, 12, 16, 20, 24}, []int{1, 5, 9, 13, 17, 21}), 1e-12)
	assert.Equal(t, 0.0, MatchScore([]int{1, 2, 3, 4, 5, 6}, []int{40, 41, 42, 43, 44, 45}))
	// one true number cannot satisfy two predictions
	assert.InDelta(t, 1.0/6, MatchScore([]int{20, 21, 40, 41, 42, 43}, []int{20, 1, 2, 3, 4, 5}), 1e-12)
}

func TestAccuracyThreshold(t *testing.T) {
	pred := [][]int{{1, 2, 3, 4, 5, 6}, {1, 2, 3, 40, 41, 42}, {1, 2, 3, 4, 41, 42}}
	truth := [][]int{{1, 2, 3, 4, 5, 6}, {1, 2, 3, 20, 21, 22}, {1, 2, 3, 4, 20, 21}}
	// scores: 1, 0.5 (not above threshold), 0.667
	assert.Equal(t, 0.6667, Accuracy(pred, truth))
	assert.Equal(t, 0.0, Accuracy(nil, nil))
}

func TestScalerHandlesConstantColumns(t *testing.T) {
	s := FitScaler([][]float64{{1, 5}, {3, 5}})
	assert.Equal(t, []float64{-1, 0}, s.Transform([]float64{1, 5}))
	assert.Equal(t, []float64{1, 0}, s.Transform([]float64{3, 5}))
}

func TestTreeFitsSeparableData(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {10}, {11}, {12}}
	Y := [][]float64{{1, 2}, {1, 2}, {1, 2}, {9, 8}, {9, 8}, {9, 8}}
	idx := []int{0, 1, 2, 3, 4, 5}
	tree := fitTree(X, Y, idx, treeParams{maxDepth: 3, minSamplesLeaf: 1}, rand.New(rand.NewPCG(1, 0)))
	assert.Equal(t, []float64{1, 2}, tree.predict([]float64{1.5}))
	assert.Equal(t, []float64{9, 8}, tree.predict([]float64{20}))
}
