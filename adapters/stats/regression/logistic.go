package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// Logistic fitting limits
const (
	DefaultMaxIterations = 25
	MaxIterationsCeiling = 100
	llTolerance          = 1e-8
	betaTolerance        = 1e-6
	maxHalvings          = 30
	ClassificationCutoff = 0.5
)

// LogisticCoefficient is one row of a logistic coefficients table
type LogisticCoefficient struct {
	Name     string
	B        float64
	SE       float64
	Wald     float64
	DF       int
	P        float64
	ExpB     float64
	ExpLower float64
	ExpUpper float64
}

// Classification counts predictions at the .5 cutoff
type Classification struct {
	TruePositive  int
	FalseNegative int
	FalsePositive int
	TrueNegative  int
}

// Sensitivity is the percentage of events predicted correctly
func (c Classification) Sensitivity() float64 {
	return percent(c.TruePositive, c.TruePositive+c.FalseNegative)
}

// Specificity is the percentage of non-events predicted correctly
func (c Classification) Specificity() float64 {
	return percent(c.TrueNegative, c.TrueNegative+c.FalsePositive)
}

// Overall is the percentage of all cases predicted correctly
func (c Classification) Overall() float64 {
	return percent(c.TruePositive+c.TrueNegative, c.TruePositive+c.TrueNegative+c.FalsePositive+c.FalseNegative)
}

func percent(a, b int) float64 {
	if b == 0 {
		return math.NaN()
	}
	return 100 * float64(a) / float64(b)
}

// ROCCurve is the receiver operating characteristic of the fitted probabilities
type ROCCurve struct {
	FPR []float64
	TPR []float64
	AUC float64
}

// LogisticResult is a fitted binary logistic model
type LogisticResult struct {
	N              int
	Events         int
	Coefficients   []LogisticCoefficient // intercept first
	Iterations     int
	Converged      bool
	LogLikelihood  float64
	NullLL         float64
	Neg2LL         float64
	ChiSquare      float64
	DF             int
	P              float64
	CoxSnell       float64
	Nagelkerke     float64
	Classification Classification
	ROC            ROCCurve
	Probabilities  []float64
}

// Logistic fits P(y=1) = 1/(1+exp(-Xb)) by Newton-Raphson (IRLS) with step halving.
// Convergence requires |dLL| < 1e-8 and max |db| < 1e-6. When the model does not
// converge within maxIter iterations (perfect separation included) the last estimates
// are returned together with a ConvergenceError.
func Logistic(y []float64, names []string, columns [][]float64, maxIter int, confidence float64) (*LogisticResult, error) {
	n, k := len(y), len(columns)
	p := k + 1
	if k == 0 {
		return nil, core.NewInsufficientDataError("logistic regression (predictors)", 1, 0)
	}
	if n <= p {
		return nil, core.NewInsufficientDataError("logistic regression", p+1, n)
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	if maxIter > MaxIterationsCeiling {
		maxIter = MaxIterationsCeiling
	}

	events := 0
	for _, v := range y {
		if v == 1 {
			events++
		}
	}
	if events == 0 || events == n {
		return nil, core.NewInvalidVariableError("dependent variable", "must contain both outcome categories")
	}
	x := designMatrix(columns, n)
	ybar := float64(events) / float64(n)

	beta := make([]float64, p)
	beta[0] = math.Log(ybar / (1 - ybar))
	ll := logLikelihood(x, y, beta)

	r := &LogisticResult{N: n, Events: events, DF: k}
	r.NullLL = float64(events)*math.Log(ybar) + float64(n-events)*math.Log(1-ybar)

	var hessianOK bool
	for r.Iterations = 1; r.Iterations <= maxIter; r.Iterations++ {
		grad, hess := scoreAndInformation(x, y, beta)
		var chol mat.Cholesky
		if hessianOK = chol.Factorize(hess); !hessianOK {
			break
		}
		var delta mat.VecDense
		if err := chol.SolveVecTo(&delta, grad); err != nil {
			hessianOK = false
			break
		}

		step := 1.0
		next := make([]float64, p)
		var nextLL float64
		for h := 0; ; h++ {
			for j := range beta {
				next[j] = beta[j] + step*delta.AtVec(j)
			}
			nextLL = logLikelihood(x, y, next)
			if nextLL >= ll-1e-12 || h >= maxHalvings {
				break
			}
			step /= 2
		}

		var maxDelta float64
		for j := range beta {
			maxDelta = math.Max(maxDelta, math.Abs(next[j]-beta[j]))
		}
		dLL := nextLL - ll
		beta, ll = next, nextLL
		if math.Abs(dLL) < llTolerance && maxDelta < betaTolerance {
			r.Converged = true
			break
		}
	}
	if r.Iterations > maxIter {
		r.Iterations = maxIter
	}

	r.LogLikelihood = ll
	r.Neg2LL = -2 * ll
	r.ChiSquare = 2 * (ll - r.NullLL)
	r.P = distributions.ChiSquareUpperTail(r.ChiSquare, float64(k))
	nf := float64(n)
	r.CoxSnell = 1 - math.Exp(2*(r.NullLL-ll)/nf)
	r.Nagelkerke = r.CoxSnell / (1 - math.Exp(2*r.NullLL/nf))

	cov := covariance(x, y, beta)
	z := distributions.NormalQuantile(1 - (1-confidence)/2)
	for j := 0; j < p; j++ {
		c := LogisticCoefficient{B: beta[j], DF: 1, ExpB: math.Exp(beta[j])}
		if j == 0 {
			c.Name = "Constant"
		} else {
			c.Name = names[j-1]
		}
		c.SE, c.Wald, c.P, c.ExpLower, c.ExpUpper = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		if cov != nil {
			if v := cov.At(j, j); v > 0 {
				c.SE = math.Sqrt(v)
				c.Wald = (c.B / c.SE) * (c.B / c.SE)
				c.P = distributions.ChiSquareUpperTail(c.Wald, 1)
				c.ExpLower = math.Exp(c.B - z*c.SE)
				c.ExpUpper = math.Exp(c.B + z*c.SE)
			}
		}
		r.Coefficients = append(r.Coefficients, c)
	}

	r.Probabilities = probabilities(x, beta)
	r.Classification = classify(y, r.Probabilities)
	r.ROC = roc(y, r.Probabilities)

	if !r.Converged {
		reason := "maximum iterations reached"
		if !hessianOK {
			reason = "information matrix became singular"
		}
		return r, fmt.Errorf("%w (%s; the outcome may be perfectly separated by the predictors)",
			core.NewConvergenceError("logistic regression", r.Iterations), reason)
	}
	return r, nil
}

func sigmoid(eta float64) float64 {
	if eta >= 0 {
		return 1 / (1 + math.Exp(-eta))
	}
	e := math.Exp(eta)
	return e / (1 + e)
}

func linearPredictor(x *mat.Dense, beta []float64, i int) float64 {
	var eta float64
	for j, b := range beta {
		eta += x.At(i, j) * b
	}
	return eta
}

func logLikelihood(x *mat.Dense, y, beta []float64) float64 {
	var ll float64
	for i, yi := range y {
		eta := linearPredictor(x, beta, i)
		// log(1+exp(eta)) computed without overflow
		softplus := math.Max(eta, 0) + math.Log1p(math.Exp(-math.Abs(eta)))
		ll += yi*eta - softplus
	}
	return ll
}

func scoreAndInformation(x *mat.Dense, y, beta []float64) (*mat.VecDense, *mat.SymDense) {
	n, p := x.Dims()
	grad := mat.NewVecDense(p, nil)
	info := mat.NewSymDense(p, nil)
	for i := 0; i < n; i++ {
		mu := sigmoid(linearPredictor(x, beta, i))
		w := mu * (1 - mu)
		for a := 0; a < p; a++ {
			xa := x.At(i, a)
			grad.SetVec(a, grad.AtVec(a)+xa*(y[i]-mu))
			for b := a; b < p; b++ {
				info.SetSym(a, b, info.At(a, b)+w*xa*x.At(i, b))
			}
		}
	}
	return grad, info
}

func covariance(x *mat.Dense, y, beta []float64) *mat.SymDense {
	_, info := scoreAndInformation(x, y, beta)
	var chol mat.Cholesky
	if !chol.Factorize(info) {
		return nil
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil
	}
	return &inv
}

func probabilities(x *mat.Dense, beta []float64) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(linearPredictor(x, beta, i))
	}
	return out
}

func classify(y, prob []float64) Classification {
	var c Classification
	for i, v := range y {
		predicted := prob[i] >= ClassificationCutoff
		switch {
		case v == 1 && predicted:
			c.TruePositive++
		case v == 1:
			c.FalseNegative++
		case predicted:
			c.FalsePositive++
		default:
			c.TrueNegative++
		}
	}
	return c
}

// roc sweeps every distinct fitted probability as a threshold
func roc(y, prob []float64) ROCCurve {
	scores := append([]float64(nil), prob...)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	curve := ROCCurve{FPR: fpr, TPR: tpr, AUC: math.NaN()}
	if len(fpr) >= 2 {
		curve.AUC = integrate.Trapezoidal(fpr, tpr)
	}
	return curve
}
