package ml

import (
	"testing"
)

func testGBTConfig() GBTConfig {
	return GBTConfig{
		Trees:        25,
		MaxDepth:     3,
		LearningRate: 0.2,
		MinLeaf:      1,
		Lambda:       1.0,
		Seed:         42,
	}
}

func stepData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{float64(i)}
		if i >= n/2 {
			y[i] = 1
		}
	}
	return x, y
}

func TestGBT_SeparatesStepFunction(t *testing.T) {
	x, y := stepData(100)

	model := NewGBT(testGBTConfig())
	if err := model.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	low := model.Score([]float64{10})
	high := model.Score([]float64{90})

	if low >= 0.5 || high <= 0.5 {
		t.Errorf("scores low=%v high=%v, want below/above 0.5", low, high)
	}
	if high-low < 0.5 {
		t.Errorf("weak separation: low=%v high=%v", low, high)
	}
	if model.Class([]float64{10}) != 0 || model.Class([]float64{90}) != 1 {
		t.Error("hard classes disagree with scores")
	}
}

func TestGBT_DeterministicAcrossRuns(t *testing.T) {
	x, y := stepData(100)

	a := NewGBT(testGBTConfig())
	b := NewGBT(testGBTConfig())
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if err := b.Fit(x, y); err != nil {
		t.Fatalf("Fit b: %v", err)
	}

	for _, probe := range []float64{0, 25, 49.5, 50.5, 75, 99} {
		sa := a.Score([]float64{probe})
		sb := b.Score([]float64{probe})
		if sa != sb {
			t.Errorf("probe %v: scores differ, %v vs %v", probe, sa, sb)
		}
	}
}

func TestGBT_SingleClassStaysFinite(t *testing.T) {
	x := make([][]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		x[i] = []float64{float64(i)}
		y[i] = 1
	}

	model := NewGBT(testGBTConfig())
	if err := model.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	score := model.Score([]float64{5})
	if score <= 0.5 || score > 1 {
		t.Errorf("score = %v, want (0.5, 1] for all-positive training set", score)
	}
}

func TestGBT_FitRejectsBadShapes(t *testing.T) {
	model := NewGBT(testGBTConfig())
	if err := model.Fit(nil, nil); err == nil {
		t.Error("expected error on empty input")
	}
	if err := model.Fit([][]float64{{1}}, []float64{1, 0}); err == nil {
		t.Error("expected error on row/label mismatch")
	}
}
