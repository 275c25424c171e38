// Package symbolic builds the TAP free energy functionals as gorgonia expression graphs, so that their
// gradients can be taken by symbolic differentiation instead of by hand.
package symbolic

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Kind names a functional of the magnetizations.
type Kind int

const (
	MeanField Kind = iota + 1
	TAP2
	TAP3
	BetaBeta
)

func (k Kind) String() string {
	switch k {
	case MeanField:
		return "MeanField"
	case TAP2:
		return "TAP2"
	case TAP3:
		return "TAP3"
	case BetaBeta:
		return "BetaBeta"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Functional is a compiled graph of one functional for fixed parameters.
type Functional struct {
	Kind

	g       *G.ExprGraph
	v, h    *G.Node
	cost    *G.Node
	gv, gh  *G.Node
	nv, nh  int
	machine G.VM
}

// New builds the graph of the functional k for the couplings w (visible × hidden) and biases a, b.
// The parameters are copied into the graph as valued input nodes; only v and h are differentiated.
func New(k Kind, w *tensor.Dense, a, b []float64) (*Functional, error) {
	if k < MeanField || k > BetaBeta {
		return nil, errors.Errorf("unknown functional %v", k)
	}
	if w.Dtype() != tensor.Float64 {
		return nil, errors.Errorf("expected %v weights. Got %v", tensor.Float64, w.Dtype())
	}
	if w.Dims() != 2 || w.Shape()[0] != len(a) || w.Shape()[1] != len(b) {
		return nil, errors.Errorf("weights of shape %v do not fit %d visible and %d hidden biases", w.Shape(), len(a), len(b))
	}
	nv, nh := len(a), len(b)
	g := G.NewGraph()
	f := &Functional{
		Kind: k,
		g:    g,
		nv:   nv,
		nh:   nh,
		v:    G.NewVector(g, G.Float64, G.WithShape(nv), G.WithName("v")),
		h:    G.NewVector(g, G.Float64, G.WithShape(nh), G.WithName("h")),
	}

	W := G.NewMatrix(g, G.Float64, G.WithShape(nv, nh), G.WithName("W"), G.WithValue(w.Clone().(*tensor.Dense)))
	A := G.NewVector(g, G.Float64, G.WithShape(nv), G.WithName("a"), G.WithValue(vector(a)))
	B := G.NewVector(g, G.Float64, G.WithShape(nh), G.WithName("b"), G.WithValue(vector(b)))

	var m maebe
	switch k {
	case BetaBeta:
		third := m.bilinear(m.cubic(f.v), m.cube(W), m.cubic(f.h))
		cost := m.sub(m.add(m.negEntropy(f.v), m.negEntropy(f.h)), m.scale(third, 4.0/3.0))
		f.cost = m.scale(cost, 2)
	default:
		cost := m.add(m.negEntropy(f.v), m.negEntropy(f.h))
		cost = m.sub(cost, m.dot(A, f.v))
		cost = m.sub(cost, m.dot(B, f.h))
		cost = m.sub(cost, m.bilinear(f.v, W, f.h))
		if k >= TAP2 {
			onsager := m.bilinear(m.quad(f.v), m.square(W), m.quad(f.h))
			cost = m.sub(cost, m.scale(onsager, 0.5))
		}
		if k == TAP3 {
			third := m.bilinear(m.cubic(f.v), m.cube(W), m.cubic(f.h))
			cost = m.sub(cost, m.scale(third, 4.0/3.0))
		}
		f.cost = cost
	}
	if m.err != nil {
		return nil, m.err
	}

	grads, err := G.Grad(f.cost, f.v, f.h)
	if err != nil {
		return nil, errors.Wrapf(err, "differentiating %v", k)
	}
	f.gv, f.gh = grads[0], grads[1]
	f.machine = G.NewTapeMachine(g)
	return f, nil
}

// Eval returns the value of the functional at (v, h) and its gradient with respect to each layer.
func (f *Functional) Eval(v, h []float64) (val float64, gv, gh []float64, err error) {
	if len(v) != f.nv || len(h) != f.nh {
		return 0, nil, nil, errors.Errorf("expected %d visible and %d hidden units. Got %d and %d", f.nv, f.nh, len(v), len(h))
	}
	if err = G.Let(f.v, vector(v)); err != nil {
		return
	}
	if err = G.Let(f.h, vector(h)); err != nil {
		return
	}
	defer f.machine.Reset()
	if err = f.machine.RunAll(); err != nil {
		return 0, nil, nil, errors.Wrapf(err, "evaluating %v", f.Kind)
	}

	var ok bool
	if val, ok = f.cost.Value().Data().(float64); !ok {
		return 0, nil, nil, errors.Errorf("expected a float64 scalar. Got %v", f.cost.Value())
	}
	gv = floats(f.gv.Value())
	gh = floats(f.gh.Value())
	return
}

// Close releases the machine.
func (f *Functional) Close() error { return f.machine.Close() }

func vector(x []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(x)), tensor.WithBacking(append([]float64(nil), x...)))
}

func floats(v G.Value) []float64 {
	t, ok := v.(*tensor.Dense)
	if !ok {
		return nil
	}
	return append([]float64(nil), t.Float64s()...)
}
