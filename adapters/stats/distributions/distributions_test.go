package distributions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTwoTailedT(t *testing.T) {
	// t = -5 with 8 df
	assert.InDelta(t, 0.001054, TwoTailedT(-5, 8), 1e-5)
	assert.InDelta(t, 1.0, TwoTailedT(0, 8), 1e-12)
	assert.Equal(t, 0.0, TwoTailedT(math.Inf(-1), 8))
	assert.True(t, math.IsNaN(TwoTailedT(1, 0)))
}

func TestTCritical(t *testing.T) {
	assert.InDelta(t, 2.306, TCritical(0.95, 8), 1e-3)
	assert.InDelta(t, 1.960, TCritical(0.95, 1e7), 1e-3)
}

func TestCorrelationPValue(t *testing.T) {
	assert.Equal(t, 0.0, CorrelationPValue(1, 5))
	assert.True(t, math.IsNaN(CorrelationPValue(0.5, 2)))
	// r = .5, n = 20: t = 2.449, df = 18
	assert.InDelta(t, 0.0248, CorrelationPValue(0.5, 20), 5e-4)
}

func TestUpperTails(t *testing.T) {
	assert.InDelta(t, 0.05, FUpperTail(4.102821, 2, 10), 1e-4)
	assert.InDelta(t, 0.05, ChiSquareUpperTail(3.841459, 1), 1e-6)
	assert.Equal(t, 1.0, ChiSquareUpperTail(0, 3))
	assert.InDelta(t, 0.05, TwoTailedZ(1.959964), 1e-6)
}

func TestFisherZInterval(t *testing.T) {
	lo, hi := FisherZInterval(0.5, 28, 0.95)
	assert.InDelta(t, 0.1560, lo, 1e-3)
	assert.InDelta(t, 0.7358, hi, 1e-3)

	lo, hi = FisherZInterval(1, 10, 0.95)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, _ = FisherZInterval(0.5, 3, 0.95)
	assert.True(t, math.IsNaN(lo))
}

func TestWilcoxonExact(t *testing.T) {
	// all positive ranks among 5: P = 2/32
	assert.InDelta(t, 0.0625, WilcoxonExactPValue(15, 5), 1e-12)
	// symmetric centre
	assert.Equal(t, 1.0, WilcoxonExactPValue(7.5, 5))
}

func TestMannWhitneyExact(t *testing.T) {
	// complete separation of 5 vs 5: 2 / C(10,5)
	assert.InDelta(t, 2.0/252.0, MannWhitneyExactPValue(0, 5, 5), 1e-12)
	assert.InDelta(t, 2.0/252.0, MannWhitneyExactPValue(25, 5, 5), 1e-12)
	// 3 vs 3 with U = 1: P(U <= 1) = 2/20
	assert.InDelta(t, 0.2, MannWhitneyExactPValue(1, 3, 3), 1e-12)
}

func TestStudentizedRange(t *testing.T) {
	// published critical values of q at alpha = .05
	assert.InDelta(t, 0.95, StudentizedRangeCDF(3.877, 3, 10), 1e-3)
	assert.InDelta(t, 0.95, StudentizedRangeCDF(2.772, 2, math.Inf(1)), 1e-3)
	assert.InDelta(t, 0.95, StudentizedRangeCDF(4.102, 5, 30), 1e-3)
	assert.InDelta(t, 0.05, StudentizedRangePValue(3.877, 3, 10), 1e-3)
}

func TestStudentizedRangeMatchesT(t *testing.T) {
	// with two means q = sqrt(2)|t|
	q := math.Sqrt2 * 2.5
	assert.InDelta(t, TwoTailedT(2.5, 12), StudentizedRangePValue(q, 2, 12), 1e-5)
}

func TestStudentizedRangeQuantile(t *testing.T) {
	assert.InDelta(t, 3.877, StudentizedRangeQuantile(0.95, 3, 10), 2e-3)
}
