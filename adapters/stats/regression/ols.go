// Package regression fits ordinary least squares and binary logistic models.
package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"statlab/adapters/stats/descriptives"
	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// ConditionLimit is the design condition number above which a model is treated as singular
const ConditionLimit = 1e12

// Coefficient is one row of a coefficients table
type Coefficient struct {
	Name      string
	B         float64
	SE        float64
	Beta      float64
	T         float64
	P         float64
	Lower     float64
	Upper     float64
	Tolerance float64
	VIF       float64
}

// OLSResult is a fitted linear model
type OLSResult struct {
	N            int
	Predictors   int
	Coefficients []Coefficient // intercept first
	R            float64
	RSquared     float64
	AdjRSquared  float64
	SEEstimate   float64
	DurbinWatson float64
	SSRegression float64
	SSResidual   float64
	SSTotal      float64
	DFRegression int
	DFResidual   int
	F            float64
	P            float64
	Fitted       []float64
	Residuals    []float64
}

// MaxVIF returns the largest variance inflation factor among predictors, or NaN
// with a single predictor
func (r *OLSResult) MaxVIF() float64 {
	worst := math.NaN()
	if len(r.Coefficients) < 3 {
		return worst
	}
	for _, c := range r.Coefficients[1:] {
		if math.IsNaN(worst) || c.VIF > worst {
			worst = c.VIF
		}
	}
	return worst
}

// designMatrix builds [1 | x1 | x2 ...] from predictor columns
func designMatrix(columns [][]float64, n int) *mat.Dense {
	x := mat.NewDense(n, len(columns)+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, col := range columns {
			x.Set(i, j+1, col[i])
		}
	}
	return x
}

// leastSquares solves min ||Xb - y|| by QR, failing on rank deficient designs
func leastSquares(x *mat.Dense, y []float64) (*mat.VecDense, error) {
	beta, _, err := factorAndSolve(x, y)
	return beta, err
}

func factorAndSolve(x *mat.Dense, y []float64) (*mat.VecDense, *mat.QR, error) {
	n, _ := x.Dims()
	qr := &mat.QR{}
	qr.Factorize(x)
	if c := qr.Cond(); c > ConditionLimit || math.IsNaN(c) {
		return nil, nil, core.NewSingularMatrixError("predictors are perfectly collinear")
	}
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, nil, core.NewSingularMatrixError(err.Error())
	}
	return &beta, qr, nil
}

// fit returns fitted values and residual sum of squares
func fit(x *mat.Dense, beta *mat.VecDense, y []float64) (fitted []float64, rss float64) {
	var f mat.VecDense
	f.MulVec(x, beta)
	fitted = make([]float64, len(y))
	for i := range y {
		fitted[i] = f.AtVec(i)
		e := y[i] - fitted[i]
		rss += e * e
	}
	return fitted, rss
}

func totalSS(y []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var ss float64
	for _, v := range y {
		ss += (v - mean) * (v - mean)
	}
	return ss
}

// RSquared regresses y on the columns (with intercept) and returns R^2
func RSquared(y []float64, columns [][]float64) (float64, error) {
	x := designMatrix(columns, len(y))
	beta, err := leastSquares(x, y)
	if err != nil {
		return math.NaN(), err
	}
	_, rss := fit(x, beta, y)
	tss := totalSS(y)
	if tss == 0 {
		return math.NaN(), nil
	}
	return 1 - rss/tss, nil
}

// OLS fits y on the predictor columns with an intercept
func OLS(y []float64, names []string, columns [][]float64, confidence float64) (*OLSResult, error) {
	n, k := len(y), len(columns)
	p := k + 1
	if k == 0 {
		return nil, core.NewInsufficientDataError("linear regression (predictors)", 1, 0)
	}
	if n <= p {
		return nil, core.NewInsufficientDataError("linear regression", p+1, n)
	}
	x := designMatrix(columns, n)
	beta, qr, err := factorAndSolve(x, y)
	if err != nil {
		return nil, err
	}
	r := &OLSResult{N: n, Predictors: k, DFRegression: k, DFResidual: n - p}
	r.Fitted, r.SSResidual = fit(x, beta, y)
	r.Residuals = make([]float64, n)
	for i := range y {
		r.Residuals[i] = y[i] - r.Fitted[i]
	}
	r.SSTotal = totalSS(y)
	r.SSRegression = r.SSTotal - r.SSResidual
	mse := r.SSResidual / float64(r.DFResidual)
	r.SEEstimate = math.Sqrt(mse)
	if r.SSTotal > 0 {
		r.RSquared = math.Max(0, 1-r.SSResidual/r.SSTotal)
		r.R = math.Sqrt(r.RSquared)
		r.AdjRSquared = 1 - (1-r.RSquared)*float64(n-1)/float64(r.DFResidual)
	} else {
		r.RSquared, r.R, r.AdjRSquared = math.NaN(), math.NaN(), math.NaN()
	}
	msr := r.SSRegression / float64(k)
	switch {
	case mse > 0:
		r.F = msr / mse
		r.P = distributions.FUpperTail(r.F, float64(k), float64(r.DFResidual))
	case msr > 0:
		r.F, r.P = math.Inf(1), 0
	default:
		r.F, r.P = math.NaN(), math.NaN()
	}
	r.DurbinWatson = durbinWatson(r.Residuals)

	inv, err := crossProductInverse(qr, p)
	if err != nil {
		return nil, err
	}
	_, sdY := descriptives.MeanSD(y)
	crit := distributions.TCritical(confidence, float64(r.DFResidual))
	vifs := VarianceInflation(columns)
	for j := 0; j < p; j++ {
		c := Coefficient{B: beta.AtVec(j), SE: math.Sqrt(mse * inv.At(j, j))}
		if j == 0 {
			c.Name = "(Constant)"
			c.Beta, c.Tolerance, c.VIF = math.NaN(), math.NaN(), math.NaN()
		} else {
			c.Name = names[j-1]
			_, sdX := descriptives.MeanSD(columns[j-1])
			c.Beta = c.B * sdX / sdY
			c.VIF = vifs[j-1]
			c.Tolerance = 1 / c.VIF
		}
		if c.SE > 0 {
			c.T = c.B / c.SE
			c.P = distributions.TwoTailedT(c.T, float64(r.DFResidual))
		} else {
			c.T, c.P = math.NaN(), math.NaN()
		}
		c.Lower, c.Upper = c.B-crit*c.SE, c.B+crit*c.SE
		r.Coefficients = append(r.Coefficients, c)
	}
	return r, nil
}

// crossProductInverse returns (X'X)^-1 = R^-1 R^-T from the p x p triangle of the
// QR factor of X
func crossProductInverse(qr *mat.QR, p int) (*mat.SymDense, error) {
	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(p, mat.Upper, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			r.SetTri(i, j, full.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(r); err != nil {
		return nil, core.NewSingularMatrixError(err.Error())
	}
	var inv mat.SymDense
	inv.SymOuterK(1, &rinv)
	return &inv, nil
}

// VarianceInflation computes 1/(1-R^2_j) from regressing each predictor on the others
func VarianceInflation(columns [][]float64) []float64 {
	k := len(columns)
	out := make([]float64, k)
	if k == 1 {
		out[0] = 1
		return out
	}
	for j := range columns {
		others := make([][]float64, 0, k-1)
		for i, c := range columns {
			if i != j {
				others = append(others, c)
			}
		}
		r2, err := RSquared(columns[j], others)
		switch {
		case err != nil || r2 >= 1:
			out[j] = math.Inf(1)
		case math.IsNaN(r2):
			out[j] = math.NaN()
		default:
			out[j] = 1 / (1 - r2)
		}
	}
	return out
}

func durbinWatson(e []float64) float64 {
	var num, den float64
	for i, v := range e {
		den += v * v
		if i > 0 {
			d := v - e[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// ResetResult is Ramsey's RESET test for omitted non-linearity
type ResetResult struct {
	F   float64
	DF1 int
	DF2 int
	P   float64
}

// Reset adds the squared and cubed fitted values to the model and tests them jointly
func Reset(y []float64, columns [][]float64, base *OLSResult) (*ResetResult, error) {
	n := len(y)
	p := len(columns) + 1
	df2 := n - p - 2
	if df2 < 1 {
		return nil, core.NewInsufficientDataError("RESET linearity test", p+3, n)
	}
	sq := make([]float64, n)
	cu := make([]float64, n)
	for i, f := range base.Fitted {
		sq[i] = f * f
		cu[i] = f * f * f
	}
	aug := append(append([][]float64(nil), columns...), sq, cu)
	x := designMatrix(aug, n)
	beta, err := leastSquares(x, y)
	if err != nil {
		return nil, err
	}
	_, rss := fit(x, beta, y)
	r := &ResetResult{DF1: 2, DF2: df2}
	if rss <= 0 {
		r.F, r.P = math.NaN(), math.NaN()
		return r, nil
	}
	r.F = math.Max(0, (base.SSResidual-rss)/2) / (rss / float64(df2))
	r.P = distributions.FUpperTail(r.F, 2, float64(df2))
	return r, nil
}
