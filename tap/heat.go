package tap

import (
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// betaBeta is the functional minimised for the heat capacity, built from the third order term of the expansion:
//
//	B = 2 (S(v) + S(h) - ⁴⁄₃ r(v)ᵀ W³ r(h))
//
// The biases and the first two orders of coupling do not enter it.
func (c *coupling) betaBeta(m Magnetization) (float64, error) {
	var mb maebe
	wwwr := mb.matvec(c.www, cubic(m.H))
	if mb.err != nil {
		return 0, mb.err
	}
	return 2 * (negEntropy(m.V) + negEntropy(m.H) - 4.0/3.0*floats.Dot(cubic(m.V), wwwr)), nil
}

func (c *coupling) betaBetaGradV(m Magnetization) ([]float64, error) {
	return betaBetaLayerGrad(m.V, m.H, c.www)
}

func (c *coupling) betaBetaGradH(m Magnetization) ([]float64, error) {
	return betaBetaLayerGrad(m.H, m.V, c.wwwT)
}

// betaBetaLayerGrad is ∂B/∂x = 2 (logit(x) - ⁴⁄₃ (½ - 3x + 3x²) ⊙ W³ r(y)), where w3 maps y's layer onto x's.
func betaBetaLayerGrad(x, y []float64, w3 *tensor.Dense) ([]float64, error) {
	var mb maebe
	third := mb.matvec(w3, cubic(y))
	if mb.err != nil {
		return nil, mb.err
	}
	retVal := logit(x)
	for i, xi := range x {
		retVal[i] = 2 * (retVal[i] - 4.0/3.0*dcubic(xi)*third[i])
	}
	return retVal, nil
}

func (c *coupling) heatObjective() objective {
	return objective{
		value: c.betaBeta,
		gradV: c.betaBetaGradV,
		gradH: c.betaBetaGradH,
	}
}
