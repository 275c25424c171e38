package tap

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// RelaxSettings control a damped fixed point iteration.
type RelaxSettings struct {
	Damping   float64 // weight of the new estimate, in (0, 1]
	Tolerance float64 // successive Γ values closer than this end the iteration
	MaxIters  int
}

func DefaultRelaxSettings() RelaxSettings {
	return RelaxSettings{Damping: 0.9, Tolerance: 1e-7, MaxIters: 100}
}

func (s RelaxSettings) validate() error {
	switch {
	case !(s.Damping > 0 && s.Damping <= 1):
		return ConfigError{"Damping", s.Damping}
	case !(s.Tolerance > 0) || math.IsInf(s.Tolerance, 0):
		return ConfigError{"Tolerance", s.Tolerance}
	case s.MaxIters < 1:
		return ConfigError{"MaxIters", s.MaxIters}
	}
	return nil
}

// Relax looks for a stationary magnetization by iterating the self consistency equations of the expansion,
// hidden layer first:
//
//	h ← (1-d) h + d σ(b + Wᵀv + (½ - h)⊙(W²ᵀ q(v)))
//	v ← (1-d) v + d σ(a + Wh + (½ - v)⊙(W² q(h)))
//
// The Onsager terms are dropped for MeanField. TAP3 has no closed form update and is a ConfigError.
//
// Unlike the descent, the iteration is not monotone in Γ and may oscillate for strong couplings; it never
// reports Stalled.
func Relax(e *Expansion, seed Magnetization, s RelaxSettings) (Result, error) {
	if e.Order == TAP3 {
		return Result{}, ConfigError{"Order", e.Order}
	}
	if err := s.validate(); err != nil {
		return Result{}, err
	}
	if err := seed.check(e.c.nv, e.c.nh); err != nil {
		return Result{}, err
	}
	m := seed.Clone()
	gam, err := e.c.gamma(e.Order, m)
	if err != nil {
		return Result{}, err
	}

	its := 0
	status := Exhausted
	for its < s.MaxIters {
		its++
		if err = e.relaxLayer(m.H, m.V, e.c.b, e.c.wT, e.c.wwT, s.Damping); err != nil {
			return Result{}, err
		}
		if err = e.relaxLayer(m.V, m.H, e.c.a, e.c.w, e.c.ww, s.Damping); err != nil {
			return Result{}, err
		}
		next, err := e.c.gamma(e.Order, m)
		if err != nil {
			return Result{}, err
		}
		if math.Abs(next-gam) < s.Tolerance {
			gam = next
			status = Converged
			break
		}
		gam = next
	}
	return Result{M: m, Value: gam, Iters: its, Status: status}, nil
}

// relaxLayer updates x in place from the field the other layer y exerts through w1, and w2 for the Onsager term.
func (e *Expansion) relaxLayer(x, y, bias []float64, w1, w2 *tensor.Dense, d float64) error {
	var mb maebe
	field := mb.matvec(w1, y)
	var onsager []float64
	if e.Order == TAP2 {
		onsager = mb.matvec(w2, quad(y))
	}
	if mb.err != nil {
		return mb.err
	}
	floats.Add(field, bias)
	for i, xi := range x {
		f := field[i]
		if onsager != nil {
			f += (0.5 - xi) * onsager[i]
		}
		x[i] = (1-d)*xi + d*sigmoid(f)
	}
	clip(x, Epsilon, 1-Epsilon)
	return nil
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}
