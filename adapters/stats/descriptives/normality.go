package descriptives

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"statlab/adapters/stats/distributions"
)

const (
	// ShapiroWilkMaxN is the largest sample Shapiro-Wilk is computed for
	ShapiroWilkMaxN = 5000
	shapiroWilkMinN = 3
	lillieforsMinN  = 5
)

// Normality test names
const (
	NameShapiroWilk = "Shapiro-Wilk"
	NameLilliefors  = "Kolmogorov-Smirnov (Lilliefors)"
)

// NormalityResult reports both normality tests and which one decides
type NormalityResult struct {
	N         int
	W         float64
	WPValue   float64
	D         float64
	DPValue   float64
	Decisive  string
	Statistic float64
	PValue    float64
	Normal    bool
	Undefined bool
}

// CheckNormality runs Shapiro-Wilk (3 <= n <= 5000) and Lilliefors (n >= 5).
// Shapiro-Wilk decides when available, Lilliefors otherwise. Constant data is Undefined.
func CheckNormality(x []float64, alpha float64) NormalityResult {
	r := NormalityResult{
		N:         len(x),
		W:         math.NaN(),
		WPValue:   math.NaN(),
		D:         math.NaN(),
		DPValue:   math.NaN(),
		Statistic: math.NaN(),
		PValue:    math.NaN(),
	}
	if r.N <= ShapiroWilkMaxN {
		r.W, r.WPValue = ShapiroWilk(x)
	}
	r.D, r.DPValue = Lilliefors(x)

	switch {
	case !math.IsNaN(r.WPValue):
		r.Decisive, r.Statistic, r.PValue = NameShapiroWilk, r.W, r.WPValue
	case !math.IsNaN(r.DPValue):
		r.Decisive, r.Statistic, r.PValue = NameLilliefors, r.D, r.DPValue
	default:
		r.Undefined = true
		return r
	}
	r.Normal = r.PValue >= alpha
	return r
}

// ShapiroWilk computes W and its p-value with Royston's (1995) approximation.
// It returns NaN for fewer than 3 or more than 5000 values, or constant data.
func ShapiroWilk(data []float64) (w, p float64) {
	n := len(data)
	if n < shapiroWilkMinN || n > ShapiroWilkMaxN {
		return math.NaN(), math.NaN()
	}
	x := sortedCopy(data)
	if x[n-1]-x[0] < 1e-12*math.Max(1, math.Abs(x[n-1])) {
		return math.NaN(), math.NaN()
	}

	a := shapiroWilkCoefficients(n)
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	var num, ss float64
	for i, v := range x {
		num += a[i] * v
		d := v - mean
		ss += d * d
	}
	w = num * num / ss
	if w > 1 {
		w = 1
	}
	return w, shapiroWilkPValue(w, n)
}

func shapiroWilkCoefficients(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0], a[2] = -math.Sqrt(0.5), math.Sqrt(0.5)
		return a
	}
	m := make([]float64, n)
	var summ2 float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		summ2 += m[i] * m[i]
	}
	ssumm2 := math.Sqrt(summ2)
	u := 1 / math.Sqrt(float64(n))

	an := m[n-1]/ssumm2 + poly([]float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}, u)
	var fac float64
	first := 1
	if n > 5 {
		an1 := m[n-2]/ssumm2 + poly([]float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}, u)
		fac = math.Sqrt((summ2 - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1))
		a[n-2], a[1] = an1, -an1
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[n-1]*m[n-1]) / (1 - 2*an*an))
	}
	a[n-1], a[0] = an, -an
	for i := first; i < n-first; i++ {
		a[i] = m[i] / fac
	}
	return a
}

func shapiroWilkPValue(w float64, n int) float64 {
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Max(0, math.Min(1, p))
	}
	y := math.Log(1 - w)
	var mu, sigma float64
	nf := float64(n)
	if n <= 11 {
		gamma := -2.273 + 0.459*nf
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = poly([]float64{0.5440, -0.39978, 0.025054, -6.714e-4}, nf)
		sigma = math.Exp(poly([]float64{1.3822, -0.77857, 0.062767, -0.0020322}, nf))
	} else {
		ln := math.Log(nf)
		mu = poly([]float64{-1.5861, -0.31082, -0.083751, 0.0038915}, ln)
		sigma = math.Exp(poly([]float64{-0.4803, -0.082676, 0.0030302}, ln))
	}
	return distuv.UnitNormal.Survival((y - mu) / sigma)
}

// Lilliefors computes the Kolmogorov-Smirnov distance to the fitted normal and the
// Dallal-Wilkinson p-value approximation. It needs at least 5 non-constant values.
func Lilliefors(data []float64) (d, p float64) {
	n := len(data)
	if n < lillieforsMinN {
		return math.NaN(), math.NaN()
	}
	x := sortedCopy(data)
	mean, sd := MeanSD(x)
	if !(sd > 0) {
		return math.NaN(), math.NaN()
	}
	nf := float64(n)
	for i, v := range x {
		f := distributions.NormalCDF((v - mean) / sd)
		if dp := float64(i+1)/nf - f; dp > d {
			d = dp
		}
		if dm := f - float64(i)/nf; dm > d {
			d = dm
		}
	}
	return d, lillieforsPValue(d, n)
}

func lillieforsPValue(k float64, n int) float64 {
	nf := float64(n)
	kd, nd := k, nf
	if n > 100 {
		kd = k * math.Pow(nf/100, 0.49)
		nd = 100
	}
	p := math.Exp(-7.01256*kd*kd*(nd+2.78019) + 2.99587*kd*math.Sqrt(nd+2.78019) -
		0.122119 + 0.974598/math.Sqrt(nd) + 1.67997/nd)
	if p <= 0.1 {
		return p
	}
	kk := (math.Sqrt(nf) - 0.01 + 0.85/math.Sqrt(nf)) * k
	switch {
	case kk <= 0.302:
		p = 1
	case kk <= 0.5:
		p = poly([]float64{2.76773, -19.828315, 80.709644, -138.55152, 81.218052}, kk)
	case kk <= 0.9:
		p = poly([]float64{-4.901232, 40.662806, -97.490286, 94.029866, -32.355711}, kk)
	case kk <= 1.31:
		p = poly([]float64{6.198765, -19.558097, 23.186922, -12.234627, 2.423045}, kk)
	default:
		p = 0
	}
	return math.Max(0, math.Min(1, p))
}

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	r := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

func sortedCopy(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	sort.Float64s(out)
	return out
}
