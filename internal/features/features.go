// Package features turns draw history into fixed-length model inputs.
//
// Field order of every vector (Dim = 79):
//
//	[0:30)  numbers of the 5 preceding draws, most recent first, 6 each ascending
//	30      odd count / 6 of the preceding draw
//	31      count of numbers above 23 / 6 of the preceding draw
//	32      mean of the preceding draw's numbers
//	33      population standard deviation of the preceding draw's numbers
//	[34:79) occurrences of numbers 1..45 per draw over up to 100 preceding draws
package features

import (
	"fmt"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/montanaflynn/stats"
)

const (
	LagDraws        = 5
	FrequencyWindow = 100
	// MinHistory is the number of preceding draws strict extraction needs
	MinHistory = LagDraws + FrequencyWindow
	// HighThreshold splits the number range for the high ratio feature
	HighThreshold = 23

	OffsetLags      = 0
	OffsetOddRatio  = LagDraws * models.NumbersPerDraw
	OffsetHighRatio = OffsetOddRatio + 1
	OffsetMean      = OffsetOddRatio + 2
	OffsetStd       = OffsetOddRatio + 3
	OffsetFrequency = OffsetOddRatio + 4
	Dim             = OffsetFrequency + models.MaxNumber
)

// Defaults used for the preceding-draw scalars when no preceding draw exists
const (
	DefaultOddRatio  = 0.5
	DefaultHighRatio = 0.5
	DefaultMean      = 23.0
	DefaultStd       = 10.0
)

// Mode selects how missing history is treated
type Mode string

const (
	// Strict requires MinHistory preceding draws
	Strict Mode = "strict"
	// Padded zero-fills missing lags and uses defaults for missing scalars
	Padded Mode = "padded"
)

// Names returns the feature names in vector order
func Names() []string {
	names := make([]string, 0, Dim)
	for lag := 1; lag <= LagDraws; lag++ {
		for pos := 1; pos <= models.NumbersPerDraw; pos++ {
			names = append(names, fmt.Sprintf("lag%d_n%d", lag, pos))
		}
	}
	names = append(names, "prev_odd_ratio", "prev_high_ratio", "prev_mean", "prev_std")
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		names = append(names, fmt.Sprintf("freq_%d", n))
	}
	return names
}

// Extract builds the vector for the draw at target from the draws before it.
// target may equal len(draws) to describe the next, not yet drawn, result.
// It fails with an insufficient_history error if fewer than MinHistory draws
// precede target.
func Extract(draws []models.Draw, target int) ([]float64, error) {
	if target < 0 || target > len(draws) {
		return nil, errs.New(errs.KindValidation, "target index %d outside 0..%d", target, len(draws))
	}
	if target < MinHistory {
		return nil, errs.New(errs.KindInsufficientHistory,
			"Feature extraction needs %d preceding draws, only %d available", MinHistory, target)
	}
	return build(draws, target), nil
}

// ExtractPadded builds the vector like Extract but accepts any target in
// 0..len(draws), zero-filling absent lags and using defaults for the
// preceding-draw scalars.
func ExtractPadded(draws []models.Draw, target int) ([]float64, error) {
	if target < 0 || target > len(draws) {
		return nil, errs.New(errs.KindValidation, "target index %d outside 0..%d", target, len(draws))
	}
	return build(draws, target), nil
}

// ExtractMode dispatches on mode
func ExtractMode(mode Mode, draws []models.Draw, target int) ([]float64, error) {
	if mode == Strict {
		return Extract(draws, target)
	}
	return ExtractPadded(draws, target)
}

func build(draws []models.Draw, target int) []float64 {
	v := make([]float64, Dim)

	for lag := 1; lag <= LagDraws; lag++ {
		i := target - lag
		if i < 0 {
			continue
		}
		base := OffsetLags + (lag-1)*models.NumbersPerDraw
		for j, n := range draws[i].Numbers {
			v[base+j] = float64(n)
		}
	}

	v[OffsetOddRatio] = DefaultOddRatio
	v[OffsetHighRatio] = DefaultHighRatio
	v[OffsetMean] = DefaultMean
	v[OffsetStd] = DefaultStd
	if target > 0 {
		prev := draws[target-1].Numbers
		data := make(stats.Float64Data, len(prev))
		odd, high := 0, 0
		for j, n := range prev {
			data[j] = float64(n)
			if n%2 == 1 {
				odd++
			}
			if n > HighThreshold {
				high++
			}
		}
		v[OffsetOddRatio] = float64(odd) / float64(models.NumbersPerDraw)
		v[OffsetHighRatio] = float64(high) / float64(models.NumbersPerDraw)
		if mean, err := stats.Mean(data); err == nil {
			v[OffsetMean] = mean
		}
		if std, err := stats.StandardDeviationPopulation(data); err == nil {
			v[OffsetStd] = std
		}
	}

	start := target - FrequencyWindow
	if start < 0 {
		start = 0
	}
	if span := target - start; span > 0 {
		for _, d := range draws[start:target] {
			for _, n := range d.Numbers {
				v[OffsetFrequency+n-1]++
			}
		}
		for n := 0; n < models.MaxNumber; n++ {
			v[OffsetFrequency+n] /= float64(span)
		}
	}
	return v
}
