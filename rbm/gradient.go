package rbm

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

// Gradient holds one entry per layer and one per weight of a model, each shaped like its parameter.
// A nil entry is an entry that has not been filled.
type Gradient struct {
	Layers  []*tensor.Dense
	Weights []*tensor.Dense
}

// NewGradient creates an empty gradient with the given number of layer and weight entries.
func NewGradient(layers, weights int) *Gradient {
	return &Gradient{
		Layers:  make([]*tensor.Dense, layers),
		Weights: make([]*tensor.Dense, weights),
	}
}

// Entries lists the layer entries followed by the weight entries.
func (g *Gradient) Entries() []*tensor.Dense {
	retVal := make([]*tensor.Dense, 0, len(g.Layers)+len(g.Weights))
	retVal = append(retVal, g.Layers...)
	return append(retVal, g.Weights...)
}

// Complete reports whether every entry has been filled.
func (g *Gradient) Complete() bool {
	for _, e := range g.Entries() {
		if e == nil {
			return false
		}
	}
	return true
}

// Accumulate sums fn over the filled entries.
func (g *Gradient) Accumulate(fn func(*tensor.Dense) float64) (retVal float64) {
	for _, e := range g.Entries() {
		if e != nil {
			retVal += fn(e)
		}
	}
	return
}

// Map returns a new gradient where fn has been applied to every element. Absent entries stay absent.
func (g *Gradient) Map(fn func(float64) float64) (*Gradient, error) {
	retVal := NewGradient(len(g.Layers), len(g.Weights))
	var err error
	mapped := func(dst []*tensor.Dense, src []*tensor.Dense) {
		for i, e := range src {
			if e == nil || err != nil {
				continue
			}
			var t tensor.Tensor
			if t, err = e.Apply(fn); err != nil {
				err = errors.WithStack(err)
				return
			}
			dst[i] = t.(*tensor.Dense)
		}
	}
	mapped(retVal.Layers, g.Layers)
	mapped(retVal.Weights, g.Weights)
	return retVal, err
}

// Add adds other into g, entry by entry. Both gradients must have the same layout and shapes.
func (g *Gradient) Add(other *Gradient) error {
	if len(g.Layers) != len(other.Layers) || len(g.Weights) != len(other.Weights) {
		return errors.Errorf("gradient layouts differ: %d/%d vs %d/%d", len(g.Layers), len(g.Weights), len(other.Layers), len(other.Weights))
	}
	src := other.Entries()
	for i, dst := range g.Entries() {
		switch {
		case dst == nil && src[i] == nil:
		case dst == nil || src[i] == nil:
			return errors.Errorf("entry %d is present in only one gradient", i)
		case !dst.Shape().Eq(src[i].Shape()):
			return errors.Errorf("entry %d: shape %v vs %v", i, dst.Shape(), src[i].Shape())
		default:
			vecf64.Add(Float64s(dst), Float64s(src[i]))
		}
	}
	return nil
}

// Magnitude is the root mean square of the gradient: the square root of the average over entries of each entry's mean square.
func (g *Gradient) Magnitude() float64 {
	var n int
	ms := g.Accumulate(func(t *tensor.Dense) float64 {
		n++
		data := Float64s(t)
		var s float64
		for _, x := range data {
			s += x * x
		}
		return s / float64(len(data))
	})
	if n == 0 {
		return 0
	}
	return math.Sqrt(ms / float64(n))
}
