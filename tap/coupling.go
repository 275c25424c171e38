package tap

import (
	"github.com/gorgonia/tapfit/rbm"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

// coupling caches the model parameters together with the elementwise powers of the weight matrix, and their
// transposes, that the expansion terms need. It is built once per minimisation; parameters are read, never written.
type coupling struct {
	nv, nh int
	a, b   []float64

	w, ww, www    *tensor.Dense // W, W², W³ (visible × hidden)
	wT, wwT, wwwT *tensor.Dense // their transposes (hidden × visible)
}

func newCoupling(w, a, b *tensor.Dense) (*coupling, error) {
	if w == nil || a == nil || b == nil {
		return nil, errors.New("nil parameter")
	}
	if w.Dtype() != tensor.Float64 || a.Dtype() != tensor.Float64 || b.Dtype() != tensor.Float64 {
		return nil, errors.Errorf("parameters must be %v. Got %v, %v, %v", tensor.Float64, w.Dtype(), a.Dtype(), b.Dtype())
	}
	if w.Dims() != 2 {
		return nil, errors.Errorf("weights must be a matrix. Got shape %v", w.Shape())
	}
	nv, nh := w.Shape()[0], w.Shape()[1]
	if a.Shape().TotalSize() != nv || b.Shape().TotalSize() != nh {
		return nil, errors.Errorf("biases of shapes %v and %v do not fit weights of shape %v", a.Shape(), b.Shape(), w.Shape())
	}

	c := &coupling{
		nv: nv,
		nh: nh,
		a:  rbm.Float64s(a),
		b:  rbm.Float64s(b),
		w:  w,
	}
	var m maebe
	c.ww = m.hadamard(w, w)
	c.www = m.hadamard(c.ww, w)
	c.wT = m.transpose(w)
	c.wwT = m.transpose(c.ww)
	c.wwwT = m.transpose(c.www)
	if m.err != nil {
		return nil, m.err
	}
	return c, nil
}

// maebe carries the first error of a chain of tensor operations.
type maebe struct {
	err error
}

func (m *maebe) do(f func() (*tensor.Dense, error)) (retVal *tensor.Dense) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// hadamard returns a new a⊙b.
func (m *maebe) hadamard(a, b *tensor.Dense) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) {
		if !a.Shape().Eq(b.Shape()) {
			return nil, errors.Errorf("shape mismatch: %v vs %v", a.Shape(), b.Shape())
		}
		retVal := a.Clone().(*tensor.Dense)
		vecf64.Mul(rbm.Float64s(retVal), rbm.Float64s(b))
		return retVal, nil
	})
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

// outer returns x yᵀ.
func (m *maebe) outer(x, y []float64) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) {
		return column(x).MatMul(row(y))
	})
}

func (m *maebe) matmul(a, b *tensor.Dense) *tensor.Dense {
	return m.do(func() (*tensor.Dense, error) { return a.MatMul(b) })
}

// matvec returns mat·x as a fresh slice.
func (m *maebe) matvec(mat *tensor.Dense, x []float64) []float64 {
	r := m.matmul(mat, column(x))
	if r == nil {
		return nil
	}
	return rbm.Float64s(r)
}

// column and row wrap x in an n×1 or 1×n matrix without copying. Single unit layers stay matrices this way.
func column(x []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(x), 1), tensor.WithBacking(x))
}

func row(x []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(1, len(x)), tensor.WithBacking(x))
}
