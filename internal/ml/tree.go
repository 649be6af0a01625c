package ml

import (
	"math/rand/v2"
	"sort"
)

// treeParams bounds the growth of one regression tree
type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	// maxFeatures is the number of features examined per split; 0 means all
	maxFeatures int
}

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64
}

// regressionTree is a CART tree with vector-valued leaves. Splits minimize
// the summed squared error over all outputs.
type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(x []float64) []float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type treeBuilder struct {
	X      [][]float64
	Y      [][]float64
	params treeParams
	rng    *rand.Rand
	tree   *regressionTree
	nOut   int
	feats  []int
	order  []int
	sumL   []float64
}

// fitTree grows a tree on the rows listed in idx. idx may contain repeats
// (bootstrap samples) and is reordered in place.
func fitTree(X, Y [][]float64, idx []int, params treeParams, rng *rand.Rand) *regressionTree {
	nOut := len(Y[0])
	b := &treeBuilder{
		X:      X,
		Y:      Y,
		params: params,
		rng:    rng,
		tree:   &regressionTree{},
		nOut:   nOut,
		feats:  make([]int, len(X[0])),
		order:  make([]int, len(idx)),
		sumL:   make([]float64, nOut),
	}
	for j := range b.feats {
		b.feats[j] = j
	}
	if b.params.minSamplesLeaf < 1 {
		b.params.minSamplesLeaf = 1
	}
	b.build(idx, 0)
	return b.tree
}

func (b *treeBuilder) leafValue(idx []int) []float64 {
	v := make([]float64, b.nOut)
	for _, i := range idx {
		for k, y := range b.Y[i] {
			v[k] += y
		}
	}
	for k := range v {
		v[k] /= float64(len(idx))
	}
	return v
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{feature: -1, value: b.leafValue(idx)})

	if depth >= b.params.maxDepth || len(idx) < 2*b.params.minSamplesLeaf {
		return id
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	mid := partition(idx, func(i int) bool { return b.X[i][feature] <= threshold })
	if mid == 0 || mid == len(idx) {
		return id
	}
	left := b.build(idx[:mid], depth+1)
	right := b.build(idx[mid:], depth+1)
	n := &b.tree.nodes[id]
	n.feature, n.threshold, n.left, n.right = feature, threshold, left, right
	n.value = nil
	return id
}

func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	candidates := b.feats
	if m := b.params.maxFeatures; m > 0 && m < len(b.feats) {
		b.rng.Shuffle(len(b.feats), func(i, j int) { b.feats[i], b.feats[j] = b.feats[j], b.feats[i] })
		candidates = b.feats[:m]
	}

	total := make([]float64, b.nOut)
	for _, i := range idx {
		for k, y := range b.Y[i] {
			total[k] += y
		}
	}

	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0
	parentScore := 0.0
	for _, s := range total {
		parentScore += s * s
	}
	parentScore /= float64(n)

	order := b.order[:n]
	for _, f := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })
		for k := range b.sumL {
			b.sumL[k] = 0
		}
		for pos := 0; pos < n-1; pos++ {
			row := order[pos]
			for k, y := range b.Y[row] {
				b.sumL[k] += y
			}
			nL := pos + 1
			nR := n - nL
			if nL < b.params.minSamplesLeaf || nR < b.params.minSamplesLeaf {
				continue
			}
			cur, next := b.X[row][f], b.X[order[pos+1]][f]
			if cur == next {
				continue
			}
			// SSE reduction equals sum_k(SL^2/nL + SR^2/nR) - sum_k(S^2/n)
			scoreL, scoreR := 0.0, 0.0
			for k := range b.sumL {
				sr := total[k] - b.sumL[k]
				scoreL += b.sumL[k] * b.sumL[k]
				scoreR += sr * sr
			}
			gain := scoreL/float64(nL) + scoreR/float64(nR) - parentScore
			if gain > bestGain+1e-12 {
				threshold := cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				bestGain, bestFeature, bestThreshold = gain, f, threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// partition moves elements satisfying keep to the front and returns their count
func partition(idx []int, keep func(int) bool) int {
	mid := 0
	for i := range idx {
		if keep(idx[i]) {
			idx[mid], idx[i] = idx[i], idx[mid]
			mid++
		}
	}
	return mid
}
