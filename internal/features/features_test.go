package features

import (
	"math"
	"testing"

	"github.com/lottoml/lotto-engine/internal/drawtest"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionAndNames(t *testing.T) {
	assert.Equal(t, 79, Dim)
	names := Names()
	require.Len(t, names, Dim)
	assert.Equal(t, "lag1_n1", names[0])
	assert.Equal(t, "prev_odd_ratio", names[OffsetOddRatio])
	assert.Equal(t, "prev_std", names[OffsetStd])
	assert.Equal(t, "freq_1", names[OffsetFrequency])
	assert.Equal(t, "freq_45", names[Dim-1])
}

func TestExtractRequiresHistory(t *testing.T) {
	draws := drawtest.Generate(MinHistory, 21)

	_, err := Extract(draws, MinHistory-1)
	assert.ErrorIs(t, err, errs.ErrInsufficientHistory)

	v, err := Extract(draws, MinHistory)
	require.NoError(t, err)
	assert.Len(t, v, Dim)

	_, err = Extract(draws, MinHistory+1)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestExtractLayout(t *testing.T) {
	draws := drawtest.Generate(120, 22)
	target := 110
	v, err := Extract(draws, target)
	require.NoError(t, err)

	for lag := 1; lag <= LagDraws; lag++ {
		for j, n := range draws[target-lag].Numbers {
			assert.Equal(t, float64(n), v[OffsetLags+(lag-1)*6+j])
		}
	}

	prev := draws[target-1].Numbers
	odd, high, sum := 0, 0, 0
	for _, n := range prev {
		if n%2 == 1 {
			odd++
		}
		if n > HighThreshold {
			high++
		}
		sum += n
	}
	mean := float64(sum) / 6
	variance := 0.0
	for _, n := range prev {
		variance += (float64(n) - mean) * (float64(n) - mean)
	}
	assert.InDelta(t, float64(odd)/6, v[OffsetOddRatio], 1e-12)
	assert.InDelta(t, float64(high)/6, v[OffsetHighRatio], 1e-12)
	assert.InDelta(t, mean, v[OffsetMean], 1e-9)
	assert.InDelta(t, math.Sqrt(variance/6), v[OffsetStd], 1e-9)

	total := 0.0
	for n := 0; n < models.MaxNumber; n++ {
		total += v[OffsetFrequency+n]
	}
	// every window draw contributes six numbers
	assert.InDelta(t, 6.0, total, 1e-9)
}

func TestExtractPaddedDefaults(t *testing.T) {
	draws := drawtest.Generate(3, 23)

	v, err := ExtractPadded(draws, 0)
	require.NoError(t, err)
	for i := 0; i < OffsetOddRatio; i++ {
		assert.Zero(t, v[i])
	}
	assert.Equal(t, DefaultOddRatio, v[OffsetOddRatio])
	assert.Equal(t, DefaultHighRatio, v[OffsetHighRatio])
	assert.Equal(t, DefaultMean, v[OffsetMean])
	assert.Equal(t, DefaultStd, v[OffsetStd])
	for i := OffsetFrequency; i < Dim; i++ {
		assert.Zero(t, v[i])
	}

	v, err = ExtractPadded(draws, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(draws[1].Numbers[0]), v[0])
	assert.Equal(t, float64(draws[0].Numbers[0]), v[6])
	assert.Zero(t, v[12])
}

func TestExtractMatchesPaddedWhenHistoryIsDeep(t *testing.T) {
	draws := drawtest.Generate(200, 24)
	strict, err := ExtractMode(Strict, draws, 150)
	require.NoError(t, err)
	padded, err := ExtractMode(Padded, draws, 150)
	require.NoError(t, err)
	assert.Equal(t, strict, padded)
}
