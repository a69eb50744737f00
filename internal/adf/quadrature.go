package adf

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/integrate/quad"
)

// Rule is a fixed, deterministic quadrature rule over a closed interval.
// Implementations hold no mutable state: Nodes and Integrate may be called
// repeatedly, with different integrands, from any goroutine.
type Rule interface {
	// Name identifies the rule in configs and logs.
	Name() string
	// Nodes returns the abscissae at which the integrand must be sampled
	// to integrate over [a, b].
	Nodes(a, b float64) []float64
	// Integrate approximates the integral over [a, b] from samples f
	// taken at x = Nodes(a, b).
	Integrate(a, b float64, x, f []float64) float64
	// IntegrateExtended is Integrate with the reduction carried out in
	// extended precision.
	IntegrateExtended(a, b float64, x, f []float64) float64
}

// NewRule returns the named rule. levels sets 2^levels+1 uniform nodes for
// the Newton–Cotes family; nodes sets the Gauss–Legendre order.
func NewRule(name string, levels, nodes int) (Rule, error) {
	switch name {
	case "romberg":
		if levels < 1 {
			return nil, fmt.Errorf("%w: romberg needs at least 1 level, got %d", ErrInvalidOptions, levels)
		}
		return Romberg{Levels: levels}, nil
	case "simpson":
		if levels < 1 {
			return nil, fmt.Errorf("%w: simpson needs at least 1 level, got %d", ErrInvalidOptions, levels)
		}
		return Simpson{Levels: levels}, nil
	case "trapezoid":
		if levels < 1 {
			return nil, fmt.Errorf("%w: trapezoid needs at least 1 level, got %d", ErrInvalidOptions, levels)
		}
		return Trapezoid{Levels: levels}, nil
	case "legendre":
		if nodes < 2 {
			return nil, fmt.Errorf("%w: legendre needs at least 2 nodes, got %d", ErrInvalidOptions, nodes)
		}
		return Legendre{N: nodes}, nil
	}
	return nil, fmt.Errorf("%w: unknown quadrature rule %q", ErrInvalidOptions, name)
}

// uniformNodes returns n evenly spaced points with both end points exact.
func uniformNodes(a, b float64, n int) []float64 {
	x := make([]float64, n)
	h := (b - a) / float64(n-1)
	for i := range x {
		x[i] = a + float64(i)*h
	}
	x[n-1] = b
	return x
}

// Romberg is Richardson-extrapolated trapezoid integration on 2^Levels+1
// uniform nodes.
type Romberg struct {
	Levels int
}

func (r Romberg) Name() string { return "romberg" }

func (r Romberg) Nodes(a, b float64) []float64 {
	return uniformNodes(a, b, 1<<r.Levels+1)
}

func (r Romberg) Integrate(a, b float64, x, f []float64) float64 {
	return integrate.Romberg(f, (b-a)/float64(len(f)-1))
}

func (r Romberg) IntegrateExtended(a, b float64, x, f []float64) float64 {
	return rombergExtended(f, (b-a)/float64(len(f)-1))
}

// Simpson is composite Simpson integration on 2^Levels+1 uniform nodes.
type Simpson struct {
	Levels int
}

func (s Simpson) Name() string { return "simpson" }

func (s Simpson) Nodes(a, b float64) []float64 {
	return uniformNodes(a, b, 1<<s.Levels+1)
}

func (s Simpson) Integrate(a, b float64, x, f []float64) float64 {
	return integrate.Simpsons(x, f)
}

func (s Simpson) IntegrateExtended(a, b float64, x, f []float64) float64 {
	n := len(f) - 1
	h := (b - a) / float64(n)
	w := make([]float64, len(f))
	for i := range w {
		switch {
		case i == 0 || i == n:
			w[i] = h / 3
		case i%2 == 1:
			w[i] = 4 * h / 3
		default:
			w[i] = 2 * h / 3
		}
	}
	return weightedSumExtended(w, f)
}

// Trapezoid is the composite trapezoid rule on 2^Levels+1 uniform nodes.
type Trapezoid struct {
	Levels int
}

func (t Trapezoid) Name() string { return "trapezoid" }

func (t Trapezoid) Nodes(a, b float64) []float64 {
	return uniformNodes(a, b, 1<<t.Levels+1)
}

func (t Trapezoid) Integrate(a, b float64, x, f []float64) float64 {
	return integrate.Trapezoidal(x, f)
}

func (t Trapezoid) IntegrateExtended(a, b float64, x, f []float64) float64 {
	n := len(f) - 1
	h := (b - a) / float64(n)
	w := make([]float64, len(f))
	for i := range w {
		w[i] = h
	}
	w[0], w[n] = h/2, h/2
	return weightedSumExtended(w, f)
}

// Legendre is N-point Gauss–Legendre quadrature. The reference nodes and
// weights on [-1, 1] are computed once per N and mapped onto [a, b].
type Legendre struct {
	N int
}

func (l Legendre) Name() string { return "legendre" }

func (l Legendre) Nodes(a, b float64) []float64 {
	ref := legendreReference(l.N)
	half, mid := (b-a)/2, (a+b)/2
	x := make([]float64, l.N)
	for i, t := range ref.x {
		x[i] = mid + half*t
	}
	return x
}

func (l Legendre) Integrate(a, b float64, x, f []float64) float64 {
	ref := legendreReference(l.N)
	var sum float64
	for i, v := range f {
		sum += ref.w[i] * v
	}
	return (b - a) / 2 * sum
}

func (l Legendre) IntegrateExtended(a, b float64, x, f []float64) float64 {
	ref := legendreReference(l.N)
	half := (b - a) / 2
	w := make([]float64, l.N)
	for i, v := range ref.w {
		w[i] = half * v
	}
	return weightedSumExtended(w, f)
}

// legendreRule holds Gauss–Legendre nodes and weights on [-1, 1]. Entries
// of legendreCache are never modified once stored.
type legendreRule struct {
	x, w []float64
}

var (
	legendreMu    sync.Mutex
	legendreCache = map[int]*legendreRule{}
)

func legendreReference(n int) *legendreRule {
	legendreMu.Lock()
	defer legendreMu.Unlock()
	if r, ok := legendreCache[n]; ok {
		return r
	}
	r := &legendreRule{x: make([]float64, n), w: make([]float64, n)}
	quad.Legendre{}.FixedLocations(r.x, r.w, -1, 1)
	legendreCache[n] = r
	return r
}
