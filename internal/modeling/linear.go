package modeling

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept. Rank-deficient
// designs get the minimum-norm solution.
type LinearRegression struct {
	Coef      []float64
	Intercept float64
}

// rcond is the relative singular value cutoff used to determine rank.
const rcond = 1e-12

func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return errors.New("linear: empty or mismatched input")
	}
	p := len(X[0])
	xMean := make([]float64, p)
	yMean := 0.0
	for i, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
		yMean += y[i]
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v-xMean[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}

	m.Coef = make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return fmt.Errorf("linear: svd did not converge")
	}
	if rank := svd.Rank(rcond); rank > 0 {
		var coef mat.Dense
		svd.SolveTo(&coef, b, rank)
		for j := range m.Coef {
			m.Coef[j] = coef.At(j, 0)
		}
	}
	m.Intercept = yMean
	for j, c := range m.Coef {
		m.Intercept -= c * xMean[j]
	}
	return nil
}

func (m *LinearRegression) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		v := m.Intercept
		for j, c := range m.Coef {
			v += c * row[j]
		}
		out[i] = v
	}
	return out
}
