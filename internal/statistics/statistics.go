// Package statistics computes aggregate distributions over a window of draws.
package statistics

import (
	"strconv"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/montanaflynn/stats"
)

// Sum buckets cover every reachable sum of six distinct numbers in 1..45
// (1+2+3+4+5+6 = 21 up to 40+41+42+43+44+45 = 255). Upper edges are inclusive.
var (
	SumRanges = []string{"21-80", "81-100", "101-120", "121-140", "141-160", "161-180", "181-200", "201-270"}
	sumEdges  = []int{80, 100, 120, 140, 160, 180, 200, 270}
)

// Section keys and their inclusive upper bounds
const (
	SectionLow  = "low_1_15"
	SectionMid  = "mid_16_30"
	SectionHigh = "high_31_45"

	LowMax  = 15
	MidMax  = 30
	HighMax = 45
)

// Snapshot is the immutable result of Compute
type Snapshot struct {
	NumberFrequency     map[string]int     `json:"number_frequency"`
	OddEvenDistribution map[string]int     `json:"odd_even_distribution"`
	SumDistribution     SumDistribution    `json:"sum_distribution"`
	ConsecutiveStats    ConsecutiveStats   `json:"consecutive_stats"`
	SectionDistribution map[string]Section `json:"section_distribution"`
	TotalDraws          int                `json:"total_draws"`

	// Frequency is NumberFrequency indexed by number; index 0 is unused
	Frequency [models.MaxNumber + 1]int `json:"-"`
	// OddRatio is the share of odd numbers across all drawn numbers in the window
	OddRatio float64 `json:"-"`
}

// SumDistribution is a fixed-bucket histogram of the six-number sums
type SumDistribution struct {
	Ranges []string `json:"ranges"`
	Counts []int    `json:"counts"`
}

// ConsecutiveStats counts draws with and without at least one adjacent pair
type ConsecutiveStats struct {
	HasConsecutive int `json:"has_consecutive"`
	NoConsecutive  int `json:"no_consecutive"`
}

// Section summarizes how many numbers per draw fall in one band
type Section struct {
	Avg          float64        `json:"avg"`
	Distribution map[string]int `json:"distribution"`
}

// SectionOf returns the section key a number belongs to
func SectionOf(n int) string {
	switch {
	case n <= LowMax:
		return SectionLow
	case n <= MidMax:
		return SectionMid
	default:
		return SectionHigh
	}
}

// Compute derives a Snapshot from the window. It is pure: the same window
// always yields the same values.
func Compute(window []models.Draw) *Snapshot {
	s := &Snapshot{
		NumberFrequency:     make(map[string]int, models.MaxNumber),
		OddEvenDistribution: make(map[string]int, models.NumbersPerDraw+1),
		SumDistribution: SumDistribution{
			Ranges: append([]string(nil), SumRanges...),
			Counts: make([]int, len(SumRanges)),
		},
		SectionDistribution: make(map[string]Section, 3),
		TotalDraws:          len(window),
	}

	perSection := map[string][]float64{SectionLow: {}, SectionMid: {}, SectionHigh: {}}
	odd := 0
	for _, d := range window {
		drawOdd, sum := 0, 0
		var mask uint64
		counts := map[string]int{SectionLow: 0, SectionMid: 0, SectionHigh: 0}
		for _, n := range d.Numbers {
			s.Frequency[n]++
			sum += n
			if n%2 == 1 {
				drawOdd++
			}
			mask |= 1 << uint(n)
			counts[SectionOf(n)]++
		}
		odd += drawOdd
		s.OddEvenDistribution[strconv.Itoa(drawOdd)+"_odd"]++
		s.SumDistribution.Counts[sumBucket(sum)]++
		if mask&(mask>>1) != 0 {
			s.ConsecutiveStats.HasConsecutive++
		} else {
			s.ConsecutiveStats.NoConsecutive++
		}
		for k, c := range counts {
			perSection[k] = append(perSection[k], float64(c))
		}
	}

	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		s.NumberFrequency[strconv.Itoa(n)] = s.Frequency[n]
	}
	for k := 0; k <= models.NumbersPerDraw; k++ {
		key := strconv.Itoa(k) + "_odd"
		if _, ok := s.OddEvenDistribution[key]; !ok {
			s.OddEvenDistribution[key] = 0
		}
	}
	for key, values := range perSection {
		s.SectionDistribution[key] = summarizeSection(values)
	}
	if total := len(window) * models.NumbersPerDraw; total > 0 {
		s.OddRatio = float64(odd) / float64(total)
	} else {
		s.OddRatio = 0.5
	}
	return s
}

func sumBucket(sum int) int {
	for i, edge := range sumEdges {
		if sum <= edge {
			return i
		}
	}
	return len(sumEdges) - 1
}

func summarizeSection(values []float64) Section {
	sec := Section{Distribution: map[string]int{}}
	if len(values) == 0 {
		return sec
	}
	for _, v := range values {
		sec.Distribution[strconv.Itoa(int(v))]++
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return sec
	}
	sec.Avg, _ = stats.Round(mean, 2)
	return sec
}
