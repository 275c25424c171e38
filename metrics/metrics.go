// Package metrics provides scalar measures of how well a restricted Boltzmann machine fits its data.
//
// A metric is reset at the start of an evaluation, updated once per minibatch with the current State, and read
// at the end. Value reports false until the metric has seen something to measure.
package metrics

import (
	"math"

	"github.com/gorgonia/tapfit/rbm"
	"github.com/gorgonia/tapfit/tap"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// State is what a metric may look at. Metrics only use the fields they need; unused ones may be nil.
type State struct {
	Minibatch       *tensor.Dense // observed visible states (batch × visible)
	Reconstructions *tensor.Dense // the model's reconstructions of Minibatch
	RandomSamples   *tensor.Dense // uniformly random visible states, as a baseline
	Model           *rbm.Model
	Machine         *tap.Machine
}

// Metric is a running measure of fit.
type Metric interface {
	Name() string
	Reset()
	Update(s State) error
	Value() (float64, bool)
}

// Defaults returns one of every metric.
func Defaults() []Metric {
	return []Metric{
		new(ReconstructionError),
		&EnergyDistance{Downsample: 100},
		new(EnergyGap),
		new(EnergyZscore),
		&HeatCapacity{Settings: tap.DefaultHeatCapacitySettings()},
	}
}

// ReconstructionError is the root mean square distance between observations and their reconstructions,
// per observation.
type ReconstructionError struct {
	meanSquareError float64
	norm            int
}

func (m *ReconstructionError) Name() string { return "ReconstructionError" }
func (m *ReconstructionError) Reset()       { *m = ReconstructionError{} }

func (m *ReconstructionError) Update(s State) error {
	if s.Minibatch == nil || s.Reconstructions == nil {
		return errors.New("reconstruction error needs a minibatch and its reconstructions")
	}
	if !s.Minibatch.Shape().Eq(s.Reconstructions.Shape()) {
		return errors.Errorf("minibatch of shape %v and reconstructions of shape %v differ", s.Minibatch.Shape(), s.Reconstructions.Shape())
	}
	d := floats.Distance(rbm.Float64s(s.Minibatch), rbm.Float64s(s.Reconstructions), 2)
	m.meanSquareError += d * d
	m.norm += s.Minibatch.Shape()[0]
	return nil
}

func (m *ReconstructionError) Value() (float64, bool) {
	if m.norm == 0 {
		return 0, false
	}
	return math.Sqrt(m.meanSquareError / float64(m.norm)), true
}

// EnergyDistance is Székely's energy distance between the observations and their reconstructions,
// averaged over updates:
//	2 E|X - Y| - E|X - X'| - E|Y - Y'|
// with every expectation taken over all pairs of rows. It is zero when both sets are equal.
type EnergyDistance struct {
	Downsample int // rows of each set used per update. 0 uses them all

	energyDistance float64
	norm           int
}

func (m *EnergyDistance) Name() string { return "EnergyDistance" }
func (m *EnergyDistance) Reset()       { m.energyDistance, m.norm = 0, 0 }

func (m *EnergyDistance) Update(s State) error {
	if s.Minibatch == nil || s.Reconstructions == nil {
		return errors.New("energy distance needs a minibatch and its reconstructions")
	}
	if s.Minibatch.Dims() != 2 || s.Reconstructions.Dims() != 2 || s.Minibatch.Shape()[1] != s.Reconstructions.Shape()[1] {
		return errors.Errorf("cannot compare a minibatch of shape %v with reconstructions of shape %v", s.Minibatch.Shape(), s.Reconstructions.Shape())
	}
	x := m.rows(s.Minibatch)
	y := m.rows(s.Reconstructions)
	m.energyDistance += 2*meanDistance(x, y) - meanDistance(x, x) - meanDistance(y, y)
	m.norm++
	return nil
}

func (m *EnergyDistance) Value() (float64, bool) {
	if m.norm == 0 {
		return 0, false
	}
	return m.energyDistance / float64(m.norm), true
}

// rows splits the first Downsample rows of t.
func (m *EnergyDistance) rows(t *tensor.Dense) [][]float64 {
	n, cols := t.Shape()[0], t.Shape()[1]
	if m.Downsample > 0 && m.Downsample < n {
		n = m.Downsample
	}
	data := rbm.Float64s(t)
	retVal := make([][]float64, n)
	for i := range retVal {
		retVal[i] = data[i*cols : (i+1)*cols]
	}
	return retVal
}

// meanDistance is the mean Euclidean distance over all pairs (x, y).
func meanDistance(xs, ys [][]float64) float64 {
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		for _, y := range ys {
			sum += floats.Distance(x, y, 2)
		}
	}
	return sum / float64(len(xs)*len(ys))
}

// EnergyGap is the mean marginal free energy of the observations minus that of random samples, averaged over
// updates. A well fit model gives observations the lower energy.
type EnergyGap struct {
	gap  float64
	norm int
}

func (m *EnergyGap) Name() string { return "EnergyGap" }
func (m *EnergyGap) Reset()       { *m = EnergyGap{} }

func (m *EnergyGap) Update(s State) error {
	data, random, err := energies(s)
	if err != nil {
		return err
	}
	m.gap += stat.Mean(data, nil) - stat.Mean(random, nil)
	m.norm++
	return nil
}

func (m *EnergyGap) Value() (float64, bool) {
	if m.norm == 0 {
		return 0, false
	}
	return m.gap / float64(m.norm), true
}

// EnergyZscore measures the distance between the mean marginal free energies of the observations and of random
// samples in units of the random samples' root mean square energy.
type EnergyZscore struct {
	dataMean, randomMean, randomMeanSquare float64
}

func (m *EnergyZscore) Name() string { return "EnergyZscore" }
func (m *EnergyZscore) Reset()       { *m = EnergyZscore{} }

func (m *EnergyZscore) Update(s State) error {
	data, random, err := energies(s)
	if err != nil {
		return err
	}
	m.dataMean += stat.Mean(data, nil)
	m.randomMean += stat.Mean(random, nil)
	sq := make([]float64, len(random))
	floats.MulTo(sq, random, random)
	m.randomMeanSquare += stat.Mean(sq, nil)
	return nil
}

func (m *EnergyZscore) Value() (float64, bool) {
	if m.randomMeanSquare == 0 {
		return 0, false
	}
	return (m.dataMean - m.randomMean) / math.Sqrt(m.randomMeanSquare), true
}

// HeatCapacity accumulates the TAP heat capacity estimate of the model, one descent per update.
// It does not look at the data.
type HeatCapacity struct {
	Settings tap.Settings

	heatCapacity float64
	updates      int
}

func (m *HeatCapacity) Name() string { return "HeatCapacity" }
func (m *HeatCapacity) Reset()       { m.heatCapacity, m.updates = 0, 0 }

func (m *HeatCapacity) Update(s State) error {
	if s.Machine == nil {
		return errors.New("heat capacity needs a TAP machine")
	}
	hc, err := s.Machine.HeatCapacity(nil, m.Settings)
	if err != nil {
		return err
	}
	m.heatCapacity += hc
	m.updates++
	return nil
}

// Value is the running sum of the estimates.
func (m *HeatCapacity) Value() (float64, bool) { return m.heatCapacity, m.updates > 0 }

func energies(s State) (data, random []float64, err error) {
	if s.Model == nil || s.Minibatch == nil || s.RandomSamples == nil {
		return nil, nil, errors.New("energy metrics need a model, a minibatch and random samples")
	}
	if data, err = s.Model.MarginalFreeEnergy(s.Minibatch); err != nil {
		return nil, nil, errors.Wrap(err, "minibatch")
	}
	if random, err = s.Model.MarginalFreeEnergy(s.RandomSamples); err != nil {
		return nil, nil, errors.Wrap(err, "random samples")
	}
	return
}
