// Package nonparametric implements rank-based tests with midrank tie handling.
package nonparametric

import "sort"

// Ranks assigns 1-based ranks to x, giving tied values the average of their
// positions. It also returns the tie term sum(t^3 - t) over tie groups.
func Ranks(x []float64) (ranks []float64, ties float64) {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && x[idx[j]] == x[idx[i]] {
			j++
		}
		// positions i..j-1 share the average rank
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		if t := float64(j - i); t > 1 {
			ties += t*t*t - t
		}
		i = j
	}
	return ranks, ties
}
