package tap

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Magnetization is the mean field surrogate for the marginal activation probabilities of both layers.
//
// A Magnetization is a value: operations on it return new Magnetizations and never write to the receiver's slices.
type Magnetization struct {
	V []float64 // visible, one entry per visible unit
	H []float64 // hidden, one entry per hidden unit
}

// RandomMagnetization draws every component uniformly in (0.005, 0.995).
func RandomMagnetization(r *rand.Rand, nv, nh int) Magnetization {
	draw := func(n int) []float64 {
		retVal := make([]float64, n)
		for i := range retVal {
			retVal[i] = seedSpan*r.Float64() + seedLow
		}
		return retVal
	}
	return Magnetization{V: draw(nv), H: draw(nh)}
}

// Uniform returns a magnetization with every component set to x.
func Uniform(nv, nh int, x float64) Magnetization {
	v := make([]float64, nv)
	h := make([]float64, nh)
	for i := range v {
		v[i] = x
	}
	for i := range h {
		h[i] = x
	}
	return Magnetization{V: v, H: h}
}

func (m Magnetization) Clone() Magnetization {
	return Magnetization{
		V: append([]float64(nil), m.V...),
		H: append([]float64(nil), m.H...),
	}
}

// Valid reports whether every component lies strictly inside (0, 1).
func (m Magnetization) Valid() bool { return m.check(len(m.V), len(m.H)) == nil }

// check verifies the sizes and the domain of m.
func (m Magnetization) check(nv, nh int) error {
	if len(m.V) != nv {
		return shapeError{"visible", len(m.V), nv}
	}
	if len(m.H) != nh {
		return shapeError{"hidden", len(m.H), nh}
	}
	for i, x := range m.V {
		if !(x > 0 && x < 1) {
			return domainError{"visible", i, x}
		}
	}
	for i, x := range m.H {
		if !(x > 0 && x < 1) {
			return domainError{"hidden", i, x}
		}
	}
	return nil
}

// step returns the provisional point m - lr·(gv, gh), clipped into [Epsilon, 1-Epsilon].
func (m Magnetization) step(lr float64, gv, gh []float64) Magnetization {
	v := make([]float64, len(m.V))
	h := make([]float64, len(m.H))
	floats.AddScaledTo(v, m.V, -lr, gv)
	floats.AddScaledTo(h, m.H, -lr, gh)
	clip(v, Epsilon, 1-Epsilon)
	clip(h, Epsilon, 1-Epsilon)
	return Magnetization{V: v, H: h}
}

// Equal reports whether both layers of m and other agree within tol.
func (m Magnetization) Equal(other Magnetization, tol float64) bool {
	return len(m.V) == len(other.V) && len(m.H) == len(other.H) &&
		floats.EqualApprox(m.V, other.V, tol) &&
		floats.EqualApprox(m.H, other.H, tol)
}

func clip(a []float64, lo, hi float64) {
	for i, x := range a {
		a[i] = math.Max(lo, math.Min(hi, x))
	}
}
