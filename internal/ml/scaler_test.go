package ml

import (
	"math"
	"testing"
)

func TestFitScaler_MeanAndStd(t *testing.T) {
	x := [][]float64{
		{2, 10},
		{4, 10},
		{6, 10},
	}

	s := FitScaler(x)

	if math.Abs(s.Mean[0]-4) > 1e-12 {
		t.Errorf("mean[0] = %v, want 4", s.Mean[0])
	}
	wantStd := math.Sqrt(8.0 / 3.0) // population std of {2,4,6}
	if math.Abs(s.Std[0]-wantStd) > 1e-12 {
		t.Errorf("std[0] = %v, want %v", s.Std[0], wantStd)
	}

	// Constant column keeps std 1 so transforming yields 0.
	if s.Std[1] != 1 {
		t.Errorf("std[1] = %v, want 1 for constant column", s.Std[1])
	}
}

func TestScaler_TransformStandardizes(t *testing.T) {
	x := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s := FitScaler(x)

	scaled := s.TransformAll(x)

	for j := 0; j < 2; j++ {
		var sum float64
		for i := range scaled {
			sum += scaled[i][j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("column %d not centered: sum %v", j, sum)
		}
	}
	for i := range scaled {
		if scaled[i][1] != 0 {
			t.Errorf("constant column row %d = %v, want 0", i, scaled[i][1])
		}
	}
}

func TestFitScaler_EmptyInput(t *testing.T) {
	s := FitScaler(nil)
	if len(s.Mean) != 0 || len(s.Std) != 0 {
		t.Errorf("expected empty scaler, got %+v", s)
	}
}
