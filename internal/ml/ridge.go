package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ridge is an L2-regularized linear regression, solved in closed form via
// the normal equations. The intercept is the training-set mean of the
// outcome and is not penalized.
type Ridge struct {
	Alpha     float64
	Coef      []float64
	Intercept float64
}

// NewRidge returns an untrained ridge model with the given penalty.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit solves (XᵀX + αI)w = Xᵀ(y − ȳ) for the coefficient vector.
func (r *Ridge) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return fmt.Errorf("ridge fit: %d rows, %d labels", n, len(y))
	}
	p := len(x[0])

	r.Intercept = stat.Mean(y, nil)

	xm := mat.NewDense(n, p, nil)
	for i, row := range x {
		xm.SetRow(i, row)
	}
	yv := mat.NewVecDense(n, nil)
	for i, v := range y {
		yv.SetVec(i, v-r.Intercept)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xm.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(xm.T(), yv)

	var chol mat.Cholesky
	if !chol.Factorize(&gram) {
		return fmt.Errorf("ridge fit: gram matrix not positive definite")
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return fmt.Errorf("ridge fit: solve failed: %w", err)
	}

	r.Coef = make([]float64, p)
	copy(r.Coef, w.RawVector().Data)
	return nil
}

// Score returns the predicted outcome value for one feature vector.
func (r *Ridge) Score(x []float64) float64 {
	v := r.Intercept
	for j, c := range r.Coef {
		v += c * x[j]
	}
	return v
}

// CrossValR2 reports the mean coefficient of determination over k
// sequential folds, matching the evaluation driver analysis exposes.
func CrossValR2(x [][]float64, y []float64, folds int, alpha float64) (float64, error) {
	n := len(x)
	if folds < 2 || n < folds {
		return 0, fmt.Errorf("cross-validation needs at least %d rows, got %d", folds, n)
	}

	var total float64
	for k := 0; k < folds; k++ {
		lo := k * n / folds
		hi := (k + 1) * n / folds

		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]float64, 0, n-(hi-lo))
		trainX = append(trainX, x[:lo]...)
		trainX = append(trainX, x[hi:]...)
		trainY = append(trainY, y[:lo]...)
		trainY = append(trainY, y[hi:]...)

		model := NewRidge(alpha)
		if err := model.Fit(trainX, trainY); err != nil {
			return 0, err
		}

		total += r2Score(model, x[lo:hi], y[lo:hi])
	}
	return total / float64(folds), nil
}

func r2Score(model *Ridge, x [][]float64, y []float64) float64 {
	mean := stat.Mean(y, nil)

	var ssRes, ssTot float64
	for i, row := range x {
		d := y[i] - model.Score(row)
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		// Constant fold: perfect if residuals are zero, else worst case.
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
