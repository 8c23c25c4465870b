package ml

import "gonum.org/v1/gonum/stat"

// Scaler standardizes features to zero mean and unit variance per column.
// It is fit once on a training set and then applied unchanged to every
// later inference against the same artifact.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-column mean and population standard deviation.
// Constant columns get std 1 so transforming maps them to 0 instead of
// dividing by zero.
func FitScaler(x [][]float64) *Scaler {
	if len(x) == 0 {
		return &Scaler{}
	}

	nCols := len(x[0])
	s := &Scaler{
		Mean: make([]float64, nCols),
		Std:  make([]float64, nCols),
	}

	col := make([]float64, len(x))
	for j := 0; j < nCols; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean := stat.Mean(col, nil)
		std := stat.PopStdDev(col, nil)
		s.Mean[j] = mean
		if std > 0 {
			s.Std[j] = std
		} else {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform standardizes a single vector. The input length must match the
// column count the scaler was fit on.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes every row of a matrix.
func (s *Scaler) TransformAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.Transform(row)
	}
	return out
}
