package adf

import (
	"math"
	"math/big"
	"math/bits"
)

// extendedPrec matches the significand of IEEE 754 binary128.
const extendedPrec = 113

func newExt(v float64) *big.Float {
	return new(big.Float).SetPrec(extendedPrec).SetFloat64(v)
}

func allFinite(f []float64) bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// rombergExtended is the Romberg tableau over 2^k+1 samples spaced dx,
// carried out in extendedPrec bits. Non-finite samples yield NaN.
func rombergExtended(f []float64, dx float64) float64 {
	if !allFinite(f) {
		return math.NaN()
	}
	n := len(f) - 1
	k := bits.Len(uint(n)) - 1

	two := newExt(2)
	h := newExt(dx * float64(n))

	// prev holds row i-1 of the tableau.
	r0 := newExt(f[0])
	r0.Add(r0, newExt(f[n]))
	r0.Mul(r0, h)
	r0.Quo(r0, two)
	prev := []*big.Float{r0}

	for i := 1; i <= k; i++ {
		stride := n >> i
		h.Quo(h, two)

		mid := newExt(0)
		for j := stride; j < n; j += 2 * stride {
			mid.Add(mid, newExt(f[j]))
		}
		mid.Mul(mid, h)

		cur := make([]*big.Float, i+1)
		cur[0] = newExt(0).Quo(prev[0], two)
		cur[0].Add(cur[0], mid)

		pow4 := newExt(1)
		for j := 1; j <= i; j++ {
			pow4.Mul(pow4, newExt(4))
			denom := newExt(0).Sub(pow4, newExt(1))
			diff := newExt(0).Sub(cur[j-1], prev[j-1])
			diff.Quo(diff, denom)
			cur[j] = newExt(0).Add(cur[j-1], diff)
		}
		prev = cur
	}

	v, _ := prev[k].Float64()
	return v
}

// weightedSumExtended returns Σ w[i]·f[i] accumulated in extendedPrec bits.
func weightedSumExtended(w, f []float64) float64 {
	if !allFinite(f) || !allFinite(w) {
		return math.NaN()
	}
	sum := newExt(0)
	term := newExt(0)
	for i := range f {
		term.Mul(newExt(w[i]), newExt(f[i]))
		sum.Add(sum, term)
	}
	v, _ := sum.Float64()
	return v
}
