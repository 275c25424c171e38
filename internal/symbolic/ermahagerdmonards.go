package symbolic

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

type maebe struct {
	err error
}

// do runs f unless an earlier step failed.
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) add(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Add(a, b) })
}

func (m *maebe) sub(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Sub(a, b) })
}

func (m *maebe) hadamard(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.HadamardProd(a, b) })
}

func (m *maebe) scale(a *G.Node, s float64) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(a, G.NewConstant(s)) })
}

func (m *maebe) square(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Square(a) })
}

func (m *maebe) cube(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Cube(a) })
}

// dot is the inner product of two vectors.
func (m *maebe) dot(x, y *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(x, y) })
}

// bilinear is xᵀ M y.
func (m *maebe) bilinear(x, M, y *G.Node) *G.Node {
	My := m.do(func() (*G.Node, error) { return G.Mul(M, y) })
	return m.dot(x, My)
}

// negEntropy is Σ x log x + (1-x) log(1-x).
func (m *maebe) negEntropy(x *G.Node) *G.Node {
	omx := m.sub(G.NewConstant(1.0), x)
	xlogx := m.hadamard(x, m.do(func() (*G.Node, error) { return G.Log(x) }))
	omxlog := m.hadamard(omx, m.do(func() (*G.Node, error) { return G.Log(omx) }))
	terms := m.add(xlogx, omxlog)
	return m.do(func() (*G.Node, error) { return G.Sum(terms) })
}

// quad is x - x².
func (m *maebe) quad(x *G.Node) *G.Node {
	return m.sub(x, m.square(x))
}

// cubic is (½ - x)(x - x²).
func (m *maebe) cubic(x *G.Node) *G.Node {
	return m.hadamard(m.sub(G.NewConstant(0.5), x), m.quad(x))
}
