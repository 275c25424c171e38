package tap

import (
	"math"

	"github.com/gorgonia/tapfit/rbm"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

/*
The expansions, with S(x) = Σ x log x + (1-x) log(1-x), q(x) = x - x², r(x) = (½ - x)·q(x):

	Γ₁ = S(v) + S(h) - a·v - b·h - vᵀWh
	Γ₂ = Γ₁ - ½ q(v)ᵀ W² q(h)
	Γ₃ = Γ₂ - ⁴⁄₃ r(v)ᵀ W³ r(h)

W² and W³ are elementwise powers. Every term is finite for magnetizations inside (0, 1).
*/

// Expansion evaluates one order of the TAP expansion of the Gibbs free energy for fixed model parameters,
// along with its gradients in magnetization space and parameter space.
type Expansion struct {
	Order
	c *coupling
}

// NewExpansion builds an Expansion of the given order for the couplings w (visible × hidden), visible biases a and
// hidden biases b. The parameters are only read.
func NewExpansion(o Order, w, a, b *tensor.Dense) (*Expansion, error) {
	if !o.IsValid() {
		return nil, ConfigError{"Order", o}
	}
	c, err := newCoupling(w, a, b)
	if err != nil {
		return nil, err
	}
	return &Expansion{Order: o, c: c}, nil
}

// Gamma is Γ at m.
func (e *Expansion) Gamma(m Magnetization) (float64, error) {
	if err := m.check(e.c.nv, e.c.nh); err != nil {
		return 0, err
	}
	return e.c.gamma(e.Order, m)
}

// GradV is ∂Γ/∂v at m.
func (e *Expansion) GradV(m Magnetization) ([]float64, error) {
	if err := m.check(e.c.nv, e.c.nh); err != nil {
		return nil, err
	}
	return e.c.gradV(e.Order, m)
}

// GradH is ∂Γ/∂h at m.
func (e *Expansion) GradH(m Magnetization) ([]float64, error) {
	if err := m.check(e.c.nv, e.c.nh); err != nil {
		return nil, err
	}
	return e.c.gradH(e.Order, m)
}

// GradW is ∂Γ/∂W at m, holding m fixed. At a stationary magnetization this is the total derivative.
func (e *Expansion) GradW(m Magnetization) (*tensor.Dense, error) {
	if err := m.check(e.c.nv, e.c.nh); err != nil {
		return nil, err
	}
	return e.c.gradW(e.Order, m)
}

// GradA is ∂Γ/∂a = -v.
func (e *Expansion) GradA(m Magnetization) []float64 {
	retVal := append([]float64(nil), m.V...)
	vecf64.Scale(retVal, -1)
	return retVal
}

// GradB is ∂Γ/∂b = -h.
func (e *Expansion) GradB(m Magnetization) []float64 {
	retVal := append([]float64(nil), m.H...)
	vecf64.Scale(retVal, -1)
	return retVal
}

// objective returns what the minimiser descends for this order.
//
// Third order steps under LineSearchCompat take TAP3 gradients but are accepted or rejected by the mean field Γ.
func (e *Expansion) objective(mode LineSearch) objective {
	o := e.Order
	lineSearch := o
	if o == TAP3 && mode == LineSearchCompat {
		lineSearch = MeanField
	}
	return objective{
		value: func(m Magnetization) (float64, error) { return e.c.gamma(lineSearch, m) },
		gradV: func(m Magnetization) ([]float64, error) { return e.c.gradV(o, m) },
		gradH: func(m Magnetization) ([]float64, error) { return e.c.gradH(o, m) },
	}
}

func (c *coupling) gamma(o Order, m Magnetization) (float64, error) {
	var mb maebe
	wh := mb.matvec(c.w, m.H)
	if mb.err != nil {
		return 0, mb.err
	}
	retVal := negEntropy(m.V) + negEntropy(m.H) -
		floats.Dot(c.a, m.V) - floats.Dot(c.b, m.H) - floats.Dot(m.V, wh)

	switch o {
	case MeanField:
		return retVal, nil
	case TAP2, TAP3:
		wwq := mb.matvec(c.ww, quad(m.H))
		if mb.err != nil {
			return 0, mb.err
		}
		retVal -= 0.5 * floats.Dot(quad(m.V), wwq)
		if o == TAP2 {
			return retVal, nil
		}
		wwwr := mb.matvec(c.www, cubic(m.H))
		if mb.err != nil {
			return 0, mb.err
		}
		return retVal - 4.0/3.0*floats.Dot(cubic(m.V), wwwr), nil
	}
	return 0, ConfigError{"Order", o}
}

// gradV and gradH share their shape: the derivative of each layer's entropy, minus its bias, minus the
// field the other layer exerts through W, W² and W³.
func (c *coupling) gradV(o Order, m Magnetization) ([]float64, error) {
	return c.layerGrad(o, m.V, m.H, c.a, c.w, c.ww, c.www)
}

func (c *coupling) gradH(o Order, m Magnetization) ([]float64, error) {
	return c.layerGrad(o, m.H, m.V, c.b, c.wT, c.wwT, c.wwwT)
}

// layerGrad computes ∂Γ/∂x where x is one layer, y is the other, bias is x's bias and w1, w2, w3 map y's
// layer onto x's (W, W², W³ or their transposes).
func (c *coupling) layerGrad(o Order, x, y, bias []float64, w1, w2, w3 *tensor.Dense) ([]float64, error) {
	if !o.IsValid() {
		return nil, ConfigError{"Order", o}
	}
	var mb maebe
	field := mb.matvec(w1, y)
	if mb.err != nil {
		return nil, mb.err
	}

	retVal := logit(x)
	floats.Sub(retVal, bias)
	floats.Sub(retVal, field)
	if o == MeanField {
		return retVal, nil
	}

	onsager := mb.matvec(w2, quad(y))
	if mb.err != nil {
		return nil, mb.err
	}
	for i, xi := range x {
		retVal[i] -= (0.5 - xi) * onsager[i]
	}
	if o == TAP2 {
		return retVal, nil
	}

	third := mb.matvec(w3, cubic(y))
	if mb.err != nil {
		return nil, mb.err
	}
	for i, xi := range x {
		retVal[i] -= 4.0 / 3.0 * dcubic(xi) * third[i]
	}
	return retVal, nil
}

func (c *coupling) gradW(o Order, m Magnetization) (*tensor.Dense, error) {
	if !o.IsValid() {
		return nil, ConfigError{"Order", o}
	}
	var mb maebe
	retVal := mb.outer(m.V, m.H)
	if mb.err != nil {
		return nil, mb.err
	}
	data := rbm.Float64s(retVal)
	vecf64.Scale(data, -1)
	if o == MeanField {
		return retVal, nil
	}

	qq := mb.outer(quad(m.V), quad(m.H))
	onsager := mb.hadamard(c.w, qq)
	if mb.err != nil {
		return nil, mb.err
	}
	vecf64.Sub(data, rbm.Float64s(onsager))
	if o == TAP2 {
		return retVal, nil
	}

	rr := mb.outer(cubic(m.V), cubic(m.H))
	third := mb.hadamard(c.ww, rr)
	if mb.err != nil {
		return nil, mb.err
	}
	floats.AddScaled(data, -4, rbm.Float64s(third))
	return retVal, nil
}

// negEntropy is Σ x log x + (1-x) log(1-x).
func negEntropy(x []float64) (retVal float64) {
	for _, xi := range x {
		retVal += xi*math.Log(xi) + (1-xi)*math.Log(1-xi)
	}
	return
}

// logit is log(x / (1-x)), the derivative of negEntropy.
func logit(x []float64) []float64 {
	retVal := make([]float64, len(x))
	for i, xi := range x {
		retVal[i] = math.Log(xi) - math.Log(1-xi)
	}
	return retVal
}

// quad is x - x².
func quad(x []float64) []float64 {
	retVal := make([]float64, len(x))
	for i, xi := range x {
		retVal[i] = xi - xi*xi
	}
	return retVal
}

// cubic is (½ - x)(x - x²).
func cubic(x []float64) []float64 {
	retVal := make([]float64, len(x))
	for i, xi := range x {
		retVal[i] = (0.5 - xi) * (xi - xi*xi)
	}
	return retVal
}

// dcubic is the derivative of cubic: ½ - 3x + 3x².
func dcubic(x float64) float64 { return 0.5 - 3*x + 3*x*x }
