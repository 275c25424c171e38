package rbm

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf64"
)

// GradientSource is anything that can compute a gradient for a minibatch of visible states.
// The gradient points uphill on the log likelihood.
type GradientSource interface {
	Gradient(batch *tensor.Dense) (*Gradient, error)
}

// paramGrad pairs a parameter with its gradient so that a gorgonia Solver can update it.
type paramGrad struct {
	value, grad *tensor.Dense
}

func (p paramGrad) Value() G.Value         { return p.value }
func (p paramGrad) Grad() (G.Value, error) { return p.grad, nil }

// Step applies an ascent gradient to the model with the given solver.
//
// gorgonia's solvers descend, so the gradient is negated on its way in. grad is left untouched.
func Step(m *Model, grad *Gradient, solver G.Solver) error {
	if len(grad.Layers) != 2 || len(grad.Weights) != 1 || !grad.Complete() {
		return errors.Errorf("expected a complete gradient with 2 layers and 1 weight. Got %d layers, %d weights", len(grad.Layers), len(grad.Weights))
	}
	model := []G.ValueGrad{
		paramGrad{m.W, negated(grad.Weights[0])},
		paramGrad{m.A, negated(grad.Layers[0])},
		paramGrad{m.B, negated(grad.Layers[1])},
	}
	for _, vg := range model {
		p := vg.(paramGrad)
		if !p.value.Shape().Eq(p.grad.Shape()) {
			return errors.Errorf("gradient of shape %v does not fit parameter of shape %v", p.grad.Shape(), p.value.Shape())
		}
	}
	return solver.Step(model)
}

func negated(t *tensor.Dense) *tensor.Dense {
	retVal := t.Clone().(*tensor.Dense)
	vecf64.Scale(Float64s(retVal), -1)
	return retVal
}

// Train is a basic trainer. For every epoch the rows of data are shuffled, split into minibatches of batchSize
// (a trailing partial batch is dropped), and each minibatch moves the model one solver step along the gradient src computes.
//
// The rows of data are shuffled in place: pass a copy to keep their order.
func Train(m *Model, src GradientSource, solver G.Solver, data *tensor.Dense, batchSize, epochs int, r *rand.Rand, logger *log.Logger) error {
	if err := checkBatch(data, m.NumVisible); err != nil {
		return err
	}
	if batchSize < 1 {
		return errors.Errorf("batch size must be positive. Got %d", batchSize)
	}
	batches := data.Shape()[0] / batchSize
	if batches == 0 {
		return errors.Errorf("%d rows cannot fill a batch of %d", data.Shape()[0], batchSize)
	}

	var s slicer
	for i := 0; i < epochs; i++ {
		if err := shuffleRows(r, data); err != nil {
			return err
		}
		for bat := 0; bat < batches; bat++ {
			batchStart := bat * batchSize
			batchEnd := batchStart + batchSize

			view := s.Slice(data, sli(batchStart, batchEnd))
			if s.err != nil {
				return s.err
			}
			batch := view.Materialize().(*tensor.Dense)

			grad, err := src.Gradient(batch)
			if err != nil {
				return errors.Wrapf(err, "gradient of batch %d in epoch %d", bat, i)
			}
			if err = Step(m, grad, solver); err != nil {
				return errors.Wrapf(err, "solver step on batch %d in epoch %d", bat, i)
			}
			if logger != nil {
				logger.Printf("epoch %d batch %d: |grad| %1.4g", i, bat, grad.Magnitude())
			}
		}
	}
	return nil
}

// shuffleRows shuffles the rows of a matrix in place.
func shuffleRows(r *rand.Rand, xs *tensor.Dense) (err error) {
	var mat [][]float64
	if mat, err = native.MatrixF64(xs); err != nil {
		return errors.Wrapf(err, "shuffle rows failed")
	}

	tmp := make([]float64, xs.Shape()[1])
	for i := range mat {
		j := r.Intn(i + 1)

		rowI := mat[i]
		rowJ := mat[j]
		copy(tmp, rowI)
		copy(rowI, rowJ)
		copy(rowJ, tmp)
	}
	return nil
}
