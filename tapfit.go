// Package tapfit fits restricted Boltzmann machines to binary data without sampling. The log partition function
// is estimated by minimising the Thouless-Anderson-Palmer expansion of the Gibbs free energy (see package tap),
// and the resulting gradient is applied with a gorgonia solver.
package tapfit

import (
	"bytes"
	"encoding/gob"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gorgonia/tapfit/metrics"
	"github.com/gorgonia/tapfit/rbm"
	"github.com/gorgonia/tapfit/tap"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Fitter is the top level structure and the entry point of the API.
// It is a wrapper around the model, the TAP machine that computes its gradients and the solver that applies them.
type Fitter struct {
	// state
	Statistics
	Model   *rbm.Model
	Machine *tap.Machine
	epoch   int

	// config
	name      string
	tapConf   tap.Config
	batchSize int
	solver    G.Solver
	metrics   []metrics.Metric
	aug       Augmenter
	rand      *rand.Rand

	// io
	outEnc OutputEncoder
	buf    bytes.Buffer
	logger *log.Logger
}

// New creates a Fitter with a freshly initialised model.
func New(conf Config) (*Fitter, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	retVal := &Fitter{
		name:      conf.Name,
		tapConf:   conf.TAPConf,
		batchSize: conf.BatchSize,
		solver:    G.NewVanillaSolver(G.WithLearnRate(conf.LearnRate)),
		metrics:   conf.Metrics,
		aug:       conf.Augmenter,
		outEnc:    conf.OutputEncoder,
		rand:      rand.New(rand.NewSource(seed)),
	}
	if retVal.metrics == nil {
		retVal.metrics = metrics.Defaults()
	}
	names := make([]string, 0, len(retVal.metrics))
	for _, m := range retVal.metrics {
		names = append(names, m.Name())
	}
	retVal.Statistics = makeStatistics(names)
	retVal.logger = log.New(&retVal.buf, "", log.Ltime)

	retVal.Model = rbm.New(conf.ModelConf)
	if err := retVal.Model.Init(); err != nil {
		return nil, err
	}
	if err := retVal.newMachine(); err != nil {
		return nil, err
	}
	return retVal, nil
}

func (f *Fitter) newMachine() (err error) {
	f.Machine, err = tap.New(f.Model, f.tapConf, tap.WithRand(f.rand), tap.WithLogger(f.logger))
	return
}

// Learn fits the model to data (examples × visible) for the given number of epochs. data is not modified.
//
// Every epoch shuffles the examples, steps the model once per full minibatch, evaluates the metrics over the
// data and records the result in the Statistics.
func (f *Fitter) Learn(data *tensor.Dense, epochs int) error {
	data, err := f.prepare(data)
	if err != nil {
		return err
	}

	for e := 0; e < epochs; e++ {
		f.logger.Printf("Epoch %d of %q", f.epoch, f.name)
		f.logger.SetPrefix("\t")
		if err = rbm.Train(f.Model, f.Machine, f.solver, data, f.batchSize, 1, f.rand, f.logger); err != nil {
			return errors.WithMessagef(err, "Train fail in epoch %d", f.epoch)
		}
		f.logger.SetPrefix("")

		values, err := f.Evaluate(data)
		if err != nil {
			return errors.WithMessagef(err, "Evaluation fail in epoch %d", f.epoch)
		}
		stats := f.Machine.Stats()
		rec := Record{
			Name:       f.name,
			Epoch:      f.epoch,
			Metrics:    values,
			FreeEnergy: stats.LastValue,
			TAP:        stats,
		}
		f.update(rec)
		f.logger.Printf("Epoch %d: %v", f.epoch, values)
		if f.outEnc != nil {
			if err = f.outEnc.Encode(rec); err != nil {
				return errors.WithMessage(err, "OutputEncoder")
			}
		}
		f.epoch++
	}
	if f.outEnc != nil {
		return f.outEnc.Flush()
	}
	return nil
}

// prepare validates data and returns the copy training works on, augmented if the Fitter has an Augmenter.
// The batch size is checked against the augmented examples.
func (f *Fitter) prepare(data *tensor.Dense) (*tensor.Dense, error) {
	if data == nil || data.Dims() != 2 || data.Shape()[1] != f.Model.NumVisible {
		var shape tensor.Shape
		if data != nil {
			shape = data.Shape()
		}
		return nil, errors.Errorf("expected data of shape (n, %d). Got %v", f.Model.NumVisible, shape)
	}
	copied := data.Clone().(*tensor.Dense)
	if f.aug != nil {
		var err error
		if copied, err = f.augment(copied); err != nil {
			return nil, err
		}
	}
	if copied.Shape()[0] < f.batchSize {
		return nil, errors.Errorf("%d examples cannot fill a batch of %d", copied.Shape()[0], f.batchSize)
	}
	return copied, nil
}

// augment replaces every example by what the Augmenter makes of it.
func (f *Fitter) augment(copied *tensor.Dense) (*tensor.Dense, error) {
	rows, cols := copied.Shape()[0], copied.Shape()[1]
	backing := rbm.Float64s(copied)
	var examples [][]float64
	for i := 0; i < rows; i++ {
		examples = append(examples, f.aug(backing[i*cols:(i+1)*cols])...)
	}
	return Stack(examples)
}

// Evaluate resets the metrics, updates them with every full minibatch of data in order, and returns the values of
// the metrics that have one.
func (f *Fitter) Evaluate(data *tensor.Dense) (map[string]float64, error) {
	for _, m := range f.metrics {
		m.Reset()
	}
	rows, cols := data.Shape()[0], data.Shape()[1]
	backing := rbm.Float64s(data)
	for start := 0; start+f.batchSize <= rows; start += f.batchSize {
		batch := tensor.New(tensor.WithShape(f.batchSize, cols), tensor.WithBacking(backing[start*cols:(start+f.batchSize)*cols]))
		recon, err := f.Model.Reconstruct(batch)
		if err != nil {
			return nil, err
		}
		s := metrics.State{
			Minibatch:       batch,
			Reconstructions: recon,
			RandomSamples:   f.randomSamples(f.batchSize, cols),
			Model:           f.Model,
			Machine:         f.Machine,
		}
		for _, m := range f.metrics {
			if err = m.Update(s); err != nil {
				return nil, errors.WithMessage(err, m.Name())
			}
		}
	}

	retVal := make(map[string]float64)
	for _, m := range f.metrics {
		if v, ok := m.Value(); ok {
			retVal[m.Name()] = v
		}
	}
	return retVal, nil
}

// randomSamples draws uniformly random binary states.
func (f *Fitter) randomSamples(rows, cols int) *tensor.Dense {
	backing := make([]float64, rows*cols)
	for i := range backing {
		if f.rand.Intn(2) == 1 {
			backing[i] = 1
		}
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// ExecLog returns the log of the fit so far.
func (f *Fitter) ExecLog() string { return f.buf.String() }

// Save the model into filename
func (f *Fitter) Save(filename string) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	return enc.Encode(f.Model)
}

// Load a model from filename. The persistent magnetizations start over.
func (f *Fitter) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	model := new(rbm.Model)
	dec := gob.NewDecoder(file)
	if err = dec.Decode(model); err != nil {
		return errors.WithStack(err)
	}
	f.Model = model
	return f.newMachine()
}
