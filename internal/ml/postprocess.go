package ml

import (
	"math"
	"sort"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/montanaflynn/stats"
)

// Postprocess turns raw regressor outputs into 6 distinct numbers in 1..45.
// Each output is rounded half away from zero and clamped. Outputs are taken
// in position order; a value already taken is replaced by the nearest unused
// number, searching distance 1, 2, ... and trying the lower candidate before
// the higher one at each distance. The result is sorted ascending.
func Postprocess(raw []float64) []int {
	var used uint64
	out := make([]int, 0, models.NumbersPerDraw)
	for _, r := range raw {
		if len(out) == models.NumbersPerDraw {
			break
		}
		c := clampNumber(r)
		if used&(1<<uint(c)) != 0 {
			c = nearestUnused(c, used)
		}
		used |= 1 << uint(c)
		out = append(out, c)
	}
	for c := models.MinNumber; len(out) < models.NumbersPerDraw; c++ {
		if used&(1<<uint(c)) == 0 {
			used |= 1 << uint(c)
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

func clampNumber(v float64) int {
	if math.IsNaN(v) {
		return models.MinNumber
	}
	c := math.Round(v)
	if c < models.MinNumber {
		return models.MinNumber
	}
	if c > models.MaxNumber {
		return models.MaxNumber
	}
	return int(c)
}

func nearestUnused(c int, used uint64) int {
	for d := 1; d < models.MaxNumber; d++ {
		if lo := c - d; lo >= models.MinNumber && used&(1<<uint(lo)) == 0 {
			return lo
		}
		if hi := c + d; hi <= models.MaxNumber && used&(1<<uint(hi)) == 0 {
			return hi
		}
	}
	return c
}

// MatchTolerance is the largest distance at which a predicted number counts
// as matching a true number
const MatchTolerance = 3

// HitThreshold is the per-sample score a prediction must exceed to count as a hit
const HitThreshold = 0.5

// MatchScore pairs predicted and true numbers greedily without reuse: all 36
// pairs are ordered by distance, then predicted value, then true value, and
// taken in that order when neither side is already paired. The score is the
// number of taken pairs within MatchTolerance divided by 6.
func MatchScore(predicted, actual []int) float64 {
	type pair struct{ p, t, d int }
	pairs := make([]pair, 0, len(predicted)*len(actual))
	for _, p := range predicted {
		for _, t := range actual {
			d := p - t
			if d < 0 {
				d = -d
			}
			if d <= MatchTolerance {
				pairs = append(pairs, pair{p, t, d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.d != b.d {
			return a.d < b.d
		}
		if a.p != b.p {
			return a.p < b.p
		}
		return a.t < b.t
	})
	var usedP, usedT uint64
	matched := 0
	for _, pr := range pairs {
		if usedP&(1<<uint(pr.p)) != 0 || usedT&(1<<uint(pr.t)) != 0 {
			continue
		}
		usedP |= 1 << uint(pr.p)
		usedT |= 1 << uint(pr.t)
		matched++
	}
	return float64(matched) / float64(models.NumbersPerDraw)
}

// Accuracy is the share of samples whose MatchScore exceeds HitThreshold,
// rounded to 4 decimals. It is 0 for no samples.
func Accuracy(predicted, actual [][]int) float64 {
	if len(predicted) == 0 {
		return 0
	}
	hits := 0
	for i := range predicted {
		if MatchScore(predicted[i], actual[i]) > HitThreshold {
			hits++
		}
	}
	acc, _ := stats.Round(float64(hits)/float64(len(predicted)), 4)
	return acc
}
