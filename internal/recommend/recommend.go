// Package recommend generates rule-based number combinations from a
// statistics snapshot.
package recommend

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/statistics"
)

// Strategy names one of the fixed generators
type Strategy string

const (
	HighFrequency   Strategy = "high_frequency"
	LowFrequency    Strategy = "low_frequency"
	BalancedOddEven Strategy = "balanced_odd_even"
	SectionSpread   Strategy = "section_spread"
	OptimalSum      Strategy = "optimal_sum"
)

// Strategies lists every strategy in generation order
var Strategies = []Strategy{HighFrequency, LowFrequency, BalancedOddEven, SectionSpread, OptimalSum}

const (
	OptimalSumMin = 130
	OptimalSumMax = 150
	// MaxAttempts bounds rejection sampling for optimal_sum
	MaxAttempts = 10000
)

// Recommendation is one generated combination
type Recommendation struct {
	Numbers     []int  `json:"numbers"`
	Description string `json:"description"`
}

type generator func(s *statistics.Snapshot, rng *rand.Rand) (Recommendation, error)

var generators = map[Strategy]generator{
	HighFrequency:   highFrequency,
	LowFrequency:    lowFrequency,
	BalancedOddEven: balancedOddEven,
	SectionSpread:   sectionSpread,
	OptimalSum:      optimalSum,
}

// Generate runs one strategy
func Generate(strategy Strategy, s *statistics.Snapshot, rng *rand.Rand) (Recommendation, error) {
	gen, ok := generators[strategy]
	if !ok {
		return Recommendation{}, errs.New(errs.KindValidation, "unknown strategy %q", strategy)
	}
	return gen(s, rng)
}

// All runs every strategy in Strategies order against one generator, so a
// fixed seed reproduces the whole set
func All(s *statistics.Snapshot, rng *rand.Rand) (map[string]Recommendation, error) {
	out := make(map[string]Recommendation, len(Strategies))
	for _, st := range Strategies {
		r, err := Generate(st, s, rng)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", st, err)
		}
		out[string(st)] = r
	}
	return out, nil
}

// byFrequency returns 1..45 ordered by frequency (descending when high) with
// smaller numbers first on ties
func byFrequency(s *statistics.Snapshot, high bool) []int {
	nums := make([]int, 0, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		nums = append(nums, n)
	}
	sort.SliceStable(nums, func(i, j int) bool {
		fi, fj := s.Frequency[nums[i]], s.Frequency[nums[j]]
		if fi != fj {
			if high {
				return fi > fj
			}
			return fi < fj
		}
		return nums[i] < nums[j]
	})
	return nums
}

func sorted(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}

func highFrequency(s *statistics.Snapshot, _ *rand.Rand) (Recommendation, error) {
	return Recommendation{
		Numbers:     sorted(byFrequency(s, true)[:models.NumbersPerDraw]),
		Description: fmt.Sprintf("The six most frequent numbers across %d draws", s.TotalDraws),
	}, nil
}

func lowFrequency(s *statistics.Snapshot, _ *rand.Rand) (Recommendation, error) {
	return Recommendation{
		Numbers:     sorted(byFrequency(s, false)[:models.NumbersPerDraw]),
		Description: fmt.Sprintf("The six least frequent numbers across %d draws", s.TotalDraws),
	}, nil
}

func pick(rng *rand.Rand, from []int, k int) []int {
	pool := append([]int(nil), from...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:k]
}

// Bounds on the odd count of balanced_odd_even
const (
	MinBalancedOdd = 2
	MaxBalancedOdd = 4
)

// OddTarget is how many of the six numbers balanced_odd_even makes odd: the
// archive odd share scaled to six, kept within MinBalancedOdd..MaxBalancedOdd.
// Any share between 5/12 and 7/12 gives three.
func OddTarget(s *statistics.Snapshot) int {
	k := int(math.Round(s.OddRatio * models.NumbersPerDraw))
	return min(max(k, MinBalancedOdd), MaxBalancedOdd)
}

func balancedOddEven(s *statistics.Snapshot, rng *rand.Rand) (Recommendation, error) {
	var odd, even []int
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if n%2 == 1 {
			odd = append(odd, n)
		} else {
			even = append(even, n)
		}
	}
	k := OddTarget(s)
	nums := append(pick(rng, odd, k), pick(rng, even, models.NumbersPerDraw-k)...)
	return Recommendation{
		Numbers: sorted(nums),
		Description: fmt.Sprintf("%d odd and %d even numbers, matching the archive odd share of %.1f%%",
			k, models.NumbersPerDraw-k, s.OddRatio*100),
	}, nil
}

// weightedPick draws k distinct numbers from pool with probability
// proportional to frequency+1
func weightedPick(rng *rand.Rand, s *statistics.Snapshot, pool []int, k int) []int {
	pool = append([]int(nil), pool...)
	out := make([]int, 0, k)
	for len(out) < k && len(pool) > 0 {
		total := 0
		for _, n := range pool {
			total += s.Frequency[n] + 1
		}
		r := rng.IntN(total)
		for i, n := range pool {
			r -= s.Frequency[n] + 1
			if r < 0 {
				out = append(out, n)
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}
	return out
}

func sectionSpread(s *statistics.Snapshot, rng *rand.Rand) (Recommendation, error) {
	bands := [][2]int{
		{models.MinNumber, statistics.LowMax},
		{statistics.LowMax + 1, statistics.MidMax},
		{statistics.MidMax + 1, statistics.HighMax},
	}
	nums := make([]int, 0, models.NumbersPerDraw)
	for _, b := range bands {
		pool := make([]int, 0, b[1]-b[0]+1)
		for n := b[0]; n <= b[1]; n++ {
			pool = append(pool, n)
		}
		nums = append(nums, weightedPick(rng, s, pool, 2)...)
	}
	return Recommendation{
		Numbers:     sorted(nums),
		Description: "Two numbers from each of the low, mid and high bands, favoring frequent ones",
	}, nil
}

func optimalSum(_ *statistics.Snapshot, rng *rand.Rand) (Recommendation, error) {
	nums, err := sampleWithSum(rng, OptimalSumMin, OptimalSumMax, MaxAttempts)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{
		Numbers:     nums,
		Description: fmt.Sprintf("A combination whose sum lies between %d and %d", OptimalSumMin, OptimalSumMax),
	}, nil
}

func sampleWithSum(rng *rand.Rand, lo, hi, attempts int) ([]int, error) {
	var deck [models.MaxNumber]int
	for i := range deck {
		deck[i] = i + 1
	}
	for a := 0; a < attempts; a++ {
		sum := 0
		for i := 0; i < models.NumbersPerDraw; i++ {
			j := i + rng.IntN(models.MaxNumber-i)
			deck[i], deck[j] = deck[j], deck[i]
			sum += deck[i]
		}
		if sum >= lo && sum <= hi {
			return sorted(deck[:models.NumbersPerDraw]), nil
		}
	}
	return nil, errs.New(errs.KindGenerationTimeout,
		"No combination with sum in [%d,%d] after %d attempts", lo, hi, attempts)
}
