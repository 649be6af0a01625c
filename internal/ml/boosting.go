package ml

import (
	"context"
	"math/rand/v2"
)

// BoostingParams configures the gradient boosting family
type BoostingParams struct {
	Stages         int     `mapstructure:"stages"`
	MaxDepth       int     `mapstructure:"max_depth"`
	LearningRate   float64 `mapstructure:"learning_rate"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf"`
}

// gradientBoosting fits squared-error boosting stages on residual vectors
type gradientBoosting struct {
	init  []float64
	rate  float64
	trees []*regressionTree
}

func fitBoosting(ctx context.Context, X, Y [][]float64, p BoostingParams, rng *rand.Rand) (*gradientBoosting, error) {
	nOut := len(Y[0])
	g := &gradientBoosting{init: make([]float64, nOut), rate: p.LearningRate}
	for _, y := range Y {
		for k := range y {
			g.init[k] += y[k]
		}
	}
	for k := range g.init {
		g.init[k] /= float64(len(Y))
	}

	current := make([][]float64, len(Y))
	residual := make([][]float64, len(Y))
	for i := range Y {
		current[i] = append([]float64(nil), g.init...)
		residual[i] = make([]float64, nOut)
	}

	tp := treeParams{maxDepth: p.MaxDepth, minSamplesLeaf: p.MinSamplesLeaf}
	idx := make([]int, len(X))
	for s := 0; s < p.Stages; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range Y {
			for k := range Y[i] {
				residual[i][k] = Y[i][k] - current[i][k]
			}
			idx[i] = i
		}
		t := fitTree(X, residual, idx, tp, rng)
		g.trees = append(g.trees, t)
		for i := range X {
			step := t.predict(X[i])
			for k := range step {
				current[i][k] += g.rate * step[k]
			}
		}
	}
	return g, nil
}

func (g *gradientBoosting) predict(x []float64) []float64 {
	out := append([]float64(nil), g.init...)
	for _, t := range g.trees {
		step := t.predict(x)
		for k := range step {
			out[k] += g.rate * step[k]
		}
	}
	return out
}
