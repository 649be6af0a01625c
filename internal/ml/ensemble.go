// Package ml trains and serves the three-family prediction ensemble.
package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/features"
	"github.com/lottoml/lotto-engine/internal/models"
	"golang.org/x/exp/slog"
)

// Family identifies one of the fixed model families
type Family string

const (
	RandomForest     Family = "random_forest"
	GradientBoosting Family = "gradient_boosting"
	NeuralNetwork    Family = "neural_network"
)

// Families lists every family in reporting order
var Families = []Family{RandomForest, GradientBoosting, NeuralNetwork}

// MinTrainingDraws is the smallest archive Train accepts
const MinTrainingDraws = 10

// strictHeadroom is how many strict samples an archive must offer before
// training switches from padded to strict feature extraction
const strictHeadroom = 20

// Disclaimer accompanies every prediction
const Disclaimer = "Lottery draws are random and cannot be predicted. These numbers are for reference only."

// Config holds the hyperparameters of all families
type Config struct {
	Forest       ForestParams   `mapstructure:"forest"`
	Boosting     BoostingParams `mapstructure:"boosting"`
	Network      NetworkParams  `mapstructure:"network"`
	TestFraction float64        `mapstructure:"test_fraction"`
	Seed         int64          `mapstructure:"seed"`
}

// DefaultConfig returns the production hyperparameters
func DefaultConfig() Config {
	return Config{
		Forest:   ForestParams{Trees: 100, MaxDepth: 10, MaxFeatures: features.Dim / 3, MinSamplesLeaf: 1},
		Boosting: BoostingParams{Stages: 50, MaxDepth: 5, LearningRate: 0.1, MinSamplesLeaf: 1},
		Network: NetworkParams{
			Hidden:       []int{128, 64, 32},
			MaxEpochs:    500,
			BatchSize:    200,
			LearningRate: 0.001,
			Alpha:        0.0001,
			Patience:     10,
			Tol:          1e-4,
		},
		TestFraction: 0.2,
		Seed:         42,
	}
}

type regressor interface {
	predict(x []float64) []float64
}

// ModelState is one trained family
type ModelState struct {
	Family        Family
	TrainAccuracy float64
	TestAccuracy  float64
	TrainedAt     time.Time
	model         regressor
}

type trainedState struct {
	mode            features.Mode
	scaler          *StandardScaler
	models          map[Family]*ModelState
	trainedAt       time.Time
	trainingSamples int
	testSamples     int
}

// TrainReport summarizes a completed training run
type TrainReport struct {
	Models          map[string]models.ModelScore `json:"models"`
	TrainedAt       time.Time                    `json:"trained_at"`
	TrainingSamples int                          `json:"training_samples"`
	TestSamples     int                          `json:"test_samples"`
	FeatureMode     features.Mode                `json:"feature_mode"`
}

// FamilyPrediction is one family's guess
type FamilyPrediction struct {
	Numbers  []int   `json:"numbers"`
	Accuracy float64 `json:"accuracy"`
}

// Prediction is the ensemble output for the next draw
type Prediction struct {
	Predictions map[string]FamilyPrediction `json:"predictions"`
	Disclaimer  string                      `json:"disclaimer"`
	LastTrained *time.Time                  `json:"last_trained,omitempty"`
}

// Status describes the trained state
type Status struct {
	Trained         bool       `json:"trained"`
	LastTrained     *time.Time `json:"last_trained,omitempty"`
	ModelsAvailable []string   `json:"models_available"`
}

// Ensemble owns the current ModelStates. At most one training run is active;
// a concurrent Train is rejected.
type Ensemble struct {
	cfg      Config
	training atomic.Bool
	current  atomic.Pointer[trainedState]
	now      func() time.Time
}

// NewEnsemble creates an untrained ensemble
func NewEnsemble(cfg Config) *Ensemble {
	return &Ensemble{cfg: cfg, now: time.Now}
}

// Training reports whether a training run is active
func (e *Ensemble) Training() bool { return e.training.Load() }

// Train fits every family on draws (ordered by draw number) and replaces the
// current state wholesale. Samples are split chronologically: the earliest
// ones train, the latest TestFraction evaluate.
func (e *Ensemble) Train(ctx context.Context, draws []models.Draw) (*TrainReport, error) {
	if !e.training.CompareAndSwap(false, true) {
		return nil, errs.New(errs.KindTrainingInProgress, "A training run is already in progress")
	}
	defer e.training.Store(false)

	if len(draws) < MinTrainingDraws {
		return nil, errs.New(errs.KindInsufficientData, "Not enough data to train models. Please sync data first.")
	}

	mode, first := features.Padded, features.LagDraws
	if len(draws) >= features.MinHistory+strictHeadroom {
		mode, first = features.Strict, features.MinHistory
	}
	X := make([][]float64, 0, len(draws)-first)
	Y := make([][]float64, 0, len(draws)-first)
	truth := make([][]int, 0, len(draws)-first)
	for i := first; i < len(draws); i++ {
		v, err := features.ExtractMode(mode, draws, i)
		if err != nil {
			return nil, err
		}
		X = append(X, v)
		y := make([]float64, models.NumbersPerDraw)
		for j, n := range draws[i].Numbers {
			y[j] = float64(n)
		}
		Y = append(Y, y)
		truth = append(truth, draws[i].Numbers)
	}

	nTest := int(math.Round(float64(len(X)) * e.cfg.TestFraction))
	if nTest < 1 {
		nTest = 1
	}
	nTrain := len(X) - nTest
	if nTrain < 1 {
		return nil, errs.New(errs.KindInsufficientData, "Not enough data to train models. Please sync data first.")
	}

	scaler := FitScaler(X[:nTrain])
	Xs := scaler.TransformAll(X)
	trainX, testX := Xs[:nTrain], Xs[nTrain:]
	trainY := Y[:nTrain]

	started := e.now()
	fitted := make(map[Family]regressor, len(Families))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for k, fam := range Families {
		wg.Add(1)
		go func(fam Family, seed int64) {
			defer wg.Done()
			m, err := e.fit(ctx, fam, trainX, trainY, rand.New(rand.NewPCG(uint64(seed), 0)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to train %s: %w", fam, err)
				}
				return
			}
			fitted[fam] = m
		}(fam, e.cfg.Seed+int64(k))
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	trainedAt := e.now()
	st := &trainedState{
		mode:            mode,
		scaler:          scaler,
		models:          make(map[Family]*ModelState, len(Families)),
		trainedAt:       trainedAt,
		trainingSamples: nTrain,
		testSamples:     nTest,
	}
	report := &TrainReport{
		Models:          make(map[string]models.ModelScore, len(Families)),
		TrainedAt:       trainedAt,
		TrainingSamples: nTrain,
		TestSamples:     nTest,
		FeatureMode:     mode,
	}
	for _, fam := range Families {
		m := fitted[fam]
		ms := &ModelState{
			Family:        fam,
			TrainAccuracy: Accuracy(predictAll(m, trainX), truth[:nTrain]),
			TestAccuracy:  Accuracy(predictAll(m, testX), truth[nTrain:]),
			TrainedAt:     trainedAt,
			model:         m,
		}
		st.models[fam] = ms
		report.Models[string(fam)] = models.ModelScore{
			TrainAccuracy: ms.TrainAccuracy,
			TestAccuracy:  ms.TestAccuracy,
			Trained:       true,
		}
	}
	e.current.Store(st)

	slog.Info("Prediction models trained",
		"samples", nTrain, "testSamples", nTest, "mode", mode, "duration", trainedAt.Sub(started))
	return report, nil
}

func (e *Ensemble) fit(ctx context.Context, fam Family, X, Y [][]float64, rng *rand.Rand) (regressor, error) {
	switch fam {
	case RandomForest:
		return fitForest(ctx, X, Y, e.cfg.Forest, rng)
	case GradientBoosting:
		return fitBoosting(ctx, X, Y, e.cfg.Boosting, rng)
	case NeuralNetwork:
		return fitPerceptron(ctx, X, Y, e.cfg.Network, rng)
	default:
		return nil, fmt.Errorf("unknown model family %q", fam)
	}
}

func predictAll(m regressor, X [][]float64) [][]int {
	out := make([][]int, len(X))
	for i, x := range X {
		out[i] = Postprocess(m.predict(x))
	}
	return out
}

// Predict guesses the draw following the last element of draws with every family
func (e *Ensemble) Predict(draws []models.Draw) (*Prediction, error) {
	st := e.current.Load()
	if st == nil {
		return nil, errs.New(errs.KindModelNotTrained, "Models not trained. Please train models first.")
	}
	v, err := features.ExtractMode(st.mode, draws, len(draws))
	if err != nil {
		return nil, err
	}
	x := st.scaler.Transform(v)

	trainedAt := st.trainedAt
	p := &Prediction{
		Predictions: make(map[string]FamilyPrediction, len(Families)),
		Disclaimer:  Disclaimer,
		LastTrained: &trainedAt,
	}
	for _, fam := range Families {
		ms := st.models[fam]
		p.Predictions[string(fam)] = FamilyPrediction{
			Numbers:  Postprocess(ms.model.predict(x)),
			Accuracy: ms.TestAccuracy,
		}
	}
	return p, nil
}

// Status reports whether models are available
func (e *Ensemble) Status() Status {
	st := e.current.Load()
	if st == nil {
		return Status{ModelsAvailable: []string{}}
	}
	t := st.trainedAt
	names := make([]string, len(Families))
	for i, f := range Families {
		names[i] = string(f)
	}
	return Status{Trained: true, LastTrained: &t, ModelsAvailable: names}
}

// States returns the current ModelStates in family order, or nil if untrained
func (e *Ensemble) States() []ModelState {
	st := e.current.Load()
	if st == nil {
		return nil
	}
	out := make([]ModelState, 0, len(Families))
	for _, f := range Families {
		out = append(out, *st.models[f])
	}
	return out
}
