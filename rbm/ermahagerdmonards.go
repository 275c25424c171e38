package rbm

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

// maebe carries the first error of a chain of tensor operations.
type maebe struct {
	err error
}

// do runs f unless an earlier step failed.
func (m *maebe) do(f func() (*tensor.Dense, error)) (retVal *tensor.Dense) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) matmul(a, b *tensor.Dense) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) { return a.MatMul(b) })
}

func (m *maebe) transpose(a *tensor.Dense) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) {
		t, err := tensor.Transpose(a)
		if err != nil {
			return nil, err
		}
		return t.(*tensor.Dense), nil
	})
}

// addRows adds bias to every row of a (rows × len(bias)) matrix, in place.
func (m *maebe) addRows(a, bias *tensor.Dense) *tensor.Dense {
	if m.err != nil {
		return nil
	}
	cols := bias.Shape().TotalSize()
	if a.Dims() != 2 || a.Shape()[1] != cols {
		m.err = errors.Errorf("cannot broadcast bias of shape %v over %v", bias.Shape(), a.Shape())
		return nil
	}
	data := Float64s(a)
	bs := Float64s(bias)
	for start := 0; start < len(data); start += cols {
		vecf64.Add(data[start:start+cols], bs)
	}
	return a
}

func (m *maebe) apply(a *tensor.Dense, fn func(float64) float64) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) {
		t, err := a.Apply(fn, tensor.UseUnsafe())
		if err != nil {
			return nil, err
		}
		return t.(*tensor.Dense), nil
	})
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softplus is log(1 + e^x), computed without overflowing for large x.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
