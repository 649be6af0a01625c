package ml

import "math"

// StandardScaler removes the mean and scales each column to unit variance.
// Columns with zero variance are left unscaled.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes column statistics over X
func FitScaler(X [][]float64) *StandardScaler {
	if len(X) == 0 {
		return &StandardScaler{}
	}
	d := len(X[0])
	s := &StandardScaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	n := float64(len(X))
	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			dv := v - s.Mean[j]
			s.Scale[j] += dv * dv
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] < 1e-12 {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns a scaled copy of x
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll scales every row of X
func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}
