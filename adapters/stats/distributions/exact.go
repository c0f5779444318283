package distributions

import "math"

// ExactLimit is the largest sample for which exact rank distributions are enumerated
const ExactLimit = 20

// WilcoxonExactPValue computes the exact two-sided p-value of W+ for n untied,
// non-zero differences by enumerating the sign assignments of ranks 1..n.
func WilcoxonExactPValue(wPlus float64, n int) float64 {
	if n <= 0 {
		return 1
	}
	wObs := int(math.Round(wPlus))
	total := n * (n + 1) / 2
	if wObs < 0 {
		wObs = 0
	}
	if wObs > total {
		wObs = total
	}
	w := wObs
	if total-wObs < w {
		w = total - wObs
	}

	// dp[s] = number of sign assignments producing W+ = s
	dp := make([]float64, total+1)
	dp[0] = 1
	for r := 1; r <= n; r++ {
		for s := total; s >= r; s-- {
			dp[s] += dp[s-r]
		}
	}
	var cum float64
	for s := 0; s <= w; s++ {
		cum += dp[s]
	}
	return clamp01(2 * cum / math.Ldexp(1, n))
}

// MannWhitneyExactPValue computes the exact two-sided p-value of U for untied samples
// of sizes n1 and n2 from the distribution of rank sums.
func MannWhitneyExactPValue(u float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 1
	}
	n := n1 + n2
	maxSum := n * (n + 1) / 2
	// ways[m][s] = subsets of size m with rank sum s
	ways := make([][]float64, n1+1)
	for m := range ways {
		ways[m] = make([]float64, maxSum+1)
	}
	ways[0][0] = 1
	for r := 1; r <= n; r++ {
		top := r
		if top > n1 {
			top = n1
		}
		for m := top; m >= 1; m-- {
			for s := maxSum; s >= r; s-- {
				ways[m][s] += ways[m-1][s-r]
			}
		}
	}

	offset := n1 * (n1 + 1) / 2
	uObs := int(math.Round(u))
	uMax := n1 * n2
	if uObs < 0 {
		uObs = 0
	}
	if uObs > uMax {
		uObs = uMax
	}
	uLow := uObs
	if uMax-uObs < uLow {
		uLow = uMax - uObs
	}

	var cum, total float64
	for s := offset; s <= offset+uMax; s++ {
		total += ways[n1][s]
		if s-offset <= uLow {
			cum += ways[n1][s]
		}
	}
	if total == 0 {
		return 1
	}
	return clamp01(2 * cum / total)
}
