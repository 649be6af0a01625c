package ml

import (
	"context"
	"math/rand/v2"
)

// ForestParams configures the random forest family
type ForestParams struct {
	Trees          int `mapstructure:"trees"`
	MaxDepth       int `mapstructure:"max_depth"`
	MaxFeatures    int `mapstructure:"max_features"`
	MinSamplesLeaf int `mapstructure:"min_samples_leaf"`
}

type randomForest struct {
	trees []*regressionTree
}

func fitForest(ctx context.Context, X, Y [][]float64, p ForestParams, rng *rand.Rand) (*randomForest, error) {
	f := &randomForest{trees: make([]*regressionTree, 0, p.Trees)}
	tp := treeParams{maxDepth: p.MaxDepth, minSamplesLeaf: p.MinSamplesLeaf, maxFeatures: p.MaxFeatures}
	idx := make([]int, len(X))
	for t := 0; t < p.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range idx {
			idx[i] = rng.IntN(len(X))
		}
		f.trees = append(f.trees, fitTree(X, Y, idx, tp, rng))
	}
	return f, nil
}

func (f *randomForest) predict(x []float64) []float64 {
	var out []float64
	for _, t := range f.trees {
		v := t.predict(x)
		if out == nil {
			out = make([]float64, len(v))
		}
		for k := range v {
			out[k] += v[k]
		}
	}
	for k := range out {
		out[k] /= float64(len(f.trees))
	}
	return out
}
