package reliability

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// Rotation methods
const (
	RotationVarimax = "varimax"
	RotationNone    = "none"
)

// Factor analysis limits
const (
	DefaultRotationIterations = 100
	MaxRotationIterations     = 1000
	varimaxAngleTolerance     = 1e-6
	singularCondition         = 1e12
)

// FactorOptions tunes the extraction and rotation
type FactorOptions struct {
	Factors       int // 0 selects the Kaiser criterion
	Rotation      string
	MaxIterations int
}

// FactorResult is a principal-component extraction with optional varimax rotation
type FactorResult struct {
	Names              []string
	N                  int
	KMO                float64
	MSA                []float64
	BartlettChiSquare  float64
	BartlettDF         int
	BartlettP          float64
	Eigenvalues        []float64 // descending
	Factors            int
	Loadings           [][]float64 // variables x factors, unrotated
	Rotated            [][]float64 // nil when not rotated
	RotationMatrix     [][]float64
	Communalities      []float64
	RotatedSS          []float64
	RotationIterations int
	Converged          bool
}

// Factor extracts principal components from the correlation matrix of complete cases
func Factor(names []string, columns [][]float64, opts FactorOptions) (*FactorResult, error) {
	p := len(columns)
	if p < 2 {
		return nil, core.NewInsufficientDataError("factor analysis (variables)", 2, p)
	}
	n := len(columns[0])
	if n <= p {
		return nil, core.NewInsufficientDataError("factor analysis", p+1, n)
	}
	for j, col := range columns {
		if _, sd := stat.MeanStdDev(col, nil); !(sd > 0) {
			return nil, core.NewInvalidVariableError(names[j], "has zero variance")
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, dataMatrix(columns), nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(&corr); !ok || chol.Cond() > singularCondition {
		return nil, core.NewSingularMatrixError("correlation matrix is not positive definite")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, core.NewSingularMatrixError(err.Error())
	}

	r := &FactorResult{Names: names, N: n, Converged: true}
	r.KMO, r.MSA = kmo(&corr, &inv)
	nf, pf := float64(n), float64(p)
	r.BartlettDF = p * (p - 1) / 2
	r.BartlettChiSquare = -(nf - 1 - (2*pf+5)/6) * chol.LogDet()
	r.BartlettP = distributions.ChiSquareUpperTail(r.BartlettChiSquare, float64(r.BartlettDF))

	var eig mat.EigenSym
	if ok := eig.Factorize(&corr, true); !ok {
		return nil, core.NewSingularMatrixError("eigendecomposition of the correlation matrix failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum returns ascending eigenvalues
	order := make([]int, p)
	for i := range order {
		order[i] = p - 1 - i
	}
	r.Eigenvalues = make([]float64, p)
	for i, o := range order {
		r.Eigenvalues[i] = values[o]
	}

	m := opts.Factors
	if m <= 0 || m > p {
		m = 0
		for _, v := range r.Eigenvalues {
			if v > 1 {
				m++
			}
		}
		if m == 0 {
			m = 1
		}
	}
	r.Factors = m

	r.Loadings = make([][]float64, p)
	for i := range r.Loadings {
		r.Loadings[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			r.Loadings[i][j] = vectors.At(i, order[j]) * math.Sqrt(math.Max(r.Eigenvalues[j], 0))
		}
	}
	alignSigns(r.Loadings)

	r.Communalities = make([]float64, p)
	for i, row := range r.Loadings {
		for _, l := range row {
			r.Communalities[i] += l * l
		}
	}

	if m >= 2 && opts.Rotation != RotationNone {
		maxIter := opts.MaxIterations
		if maxIter <= 0 {
			maxIter = DefaultRotationIterations
		}
		rotated, tt, iters, converged := Varimax(r.Loadings, maxIter)
		for j, flipped := range alignSigns(rotated) {
			if flipped {
				for i := range tt {
					tt[i][j] = -tt[i][j]
				}
			}
		}
		r.Rotated, r.RotationMatrix = sortFactors(rotated, tt)
		r.RotationIterations, r.Converged = iters, converged
		r.RotatedSS = columnSS(r.Rotated)
		if !converged {
			return r, core.NewConvergenceError("varimax rotation", iters)
		}
	}
	return r, nil
}

// kmo computes the Kaiser-Meyer-Olkin measure overall and per variable from the
// correlations and the partial correlations implied by the inverse correlation matrix
func kmo(corr, inv *mat.SymDense) (float64, []float64) {
	p := corr.SymmetricDim()
	msa := make([]float64, p)
	var r2Total, a2Total float64
	for i := 0; i < p; i++ {
		var r2, a2 float64
		for j := 0; j < p; j++ {
			if i == j {
				continue
			}
			rij := corr.At(i, j)
			aij := -inv.At(i, j) / math.Sqrt(inv.At(i, i)*inv.At(j, j))
			r2 += rij * rij
			a2 += aij * aij
		}
		msa[i] = r2 / (r2 + a2)
		r2Total += r2
		a2Total += a2
	}
	return r2Total / (r2Total + a2Total), msa
}

// Varimax rotates loadings with Kaiser normalization using Kaiser's pairwise
// planar rotations. Each sweep rotates every factor pair by the closed-form angle
// that maximizes the varimax criterion in that plane; iteration stops once no
// angle in a sweep exceeds 1e-6 radians. iterations counts sweeps.
func Varimax(loadings [][]float64, maxIter int) (rotated [][]float64, rotation [][]float64, iterations int, converged bool) {
	p, m := len(loadings), len(loadings[0])
	x := make([][]float64, p)
	sc := make([]float64, p)
	for i, row := range loadings {
		var ss float64
		for _, v := range row {
			ss += v * v
		}
		sc[i] = math.Sqrt(ss)
		x[i] = make([]float64, m)
		for j, v := range row {
			if sc[i] > 0 {
				x[i][j] = v / sc[i]
			}
		}
	}

	rotation = make([][]float64, m)
	for j := range rotation {
		rotation[j] = make([]float64, m)
		rotation[j][j] = 1
	}

	n := float64(p)
	for iterations = 1; iterations <= maxIter; iterations++ {
		var largest float64
		for j := 0; j < m-1; j++ {
			for k := j + 1; k < m; k++ {
				var a, b, c, d float64
				for i := 0; i < p; i++ {
					u := x[i][j]*x[i][j] - x[i][k]*x[i][k]
					v := 2 * x[i][j] * x[i][k]
					a += u
					b += v
					c += u*u - v*v
					d += 2 * u * v
				}
				phi := math.Atan2(d-2*a*b/n, c-(a*a-b*b)/n) / 4
				if math.Abs(phi) > largest {
					largest = math.Abs(phi)
				}
				cos, sin := math.Cos(phi), math.Sin(phi)
				planeRotate(x, j, k, cos, sin)
				planeRotate(rotation, j, k, cos, sin)
			}
		}
		if largest < varimaxAngleTolerance {
			converged = true
			break
		}
	}
	if iterations > maxIter {
		iterations = maxIter
	}

	rotated = make([][]float64, p)
	for i := range rotated {
		rotated[i] = make([]float64, m)
		for j := range rotated[i] {
			rotated[i][j] = x[i][j] * sc[i]
		}
	}
	return rotated, rotation, iterations, converged
}

// planeRotate replaces columns j and k of rows by (cj*cos + ck*sin, ck*cos - cj*sin)
func planeRotate(rows [][]float64, j, k int, cos, sin float64) {
	for _, row := range rows {
		xj, xk := row[j], row[k]
		row[j] = xj*cos + xk*sin
		row[k] = xk*cos - xj*sin
	}
}

// alignSigns flips factors so each column of loadings sums to a positive value and
// reports which columns were flipped
func alignSigns(loadings [][]float64) []bool {
	if len(loadings) == 0 {
		return nil
	}
	flipped := make([]bool, len(loadings[0]))
	for j := range loadings[0] {
		var sum float64
		for i := range loadings {
			sum += loadings[i][j]
		}
		if sum < 0 {
			flipped[j] = true
			for i := range loadings {
				loadings[i][j] = -loadings[i][j]
			}
		}
	}
	return flipped
}

// sortFactors orders rotated factors by explained variance, descending
func sortFactors(loadings, rotation [][]float64) ([][]float64, [][]float64) {
	ss := columnSS(loadings)
	m := len(ss)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ss[order[a]] > ss[order[b]] })
	out := make([][]float64, len(loadings))
	for i, row := range loadings {
		out[i] = make([]float64, m)
		for j, o := range order {
			out[i][j] = row[o]
		}
	}
	rot := make([][]float64, len(rotation))
	for i, row := range rotation {
		rot[i] = make([]float64, m)
		for j, o := range order {
			rot[i][j] = row[o]
		}
	}
	return out, rot
}

func columnSS(loadings [][]float64) []float64 {
	if len(loadings) == 0 {
		return nil
	}
	ss := make([]float64, len(loadings[0]))
	for _, row := range loadings {
		for j, v := range row {
			ss[j] += v * v
		}
	}
	return ss
}
