package rbm

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

var Float = tensor.Float64

// Model is a restricted Boltzmann machine with a Bernoulli visible layer and a Bernoulli hidden layer.
//
// The energy of a joint configuration is
//	E(v, h) = -a·v - b·h - vᵀWh
type Model struct {
	Config

	W *tensor.Dense // couplings, visible × hidden
	A *tensor.Dense // visible biases
	B *tensor.Dense // hidden biases
}

// New returns a new *Model with all parameters set to zero.
func New(conf Config) *Model {
	retVal := &Model{Config: conf}
	retVal.reset()
	return retVal
}

func (m *Model) reset() {
	m.W = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumVisible, m.NumHidden))
	m.A = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumVisible))
	m.B = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumHidden))
}

// Init draws the couplings from a zero mean Gaussian of WeightScale standard deviation and zeroes the biases.
func (m *Model) Init() error {
	if !m.IsValid() {
		return errors.Errorf("invalid model config %+v", m.Config)
	}
	m.reset()
	if m.WeightScale == 0 {
		return nil
	}
	backing := G.Gaussian(0, m.WeightScale)(Float, m.NumVisible, m.NumHidden).([]float64)
	copy(Float64s(m.W), backing)
	return nil
}

// Params returns the couplings and the visible and hidden biases. They are not copies.
func (m *Model) Params() (w, a, b *tensor.Dense) { return m.W, m.A, m.B }

// SetParams copies the given parameters into the model.
func (m *Model) SetParams(w, a, b []float64) error {
	if len(w) != m.NumVisible*m.NumHidden || len(a) != m.NumVisible || len(b) != m.NumHidden {
		return errors.Errorf("parameter sizes %d, %d, %d do not fit a %d × %d model", len(w), len(a), len(b), m.NumVisible, m.NumHidden)
	}
	copy(Float64s(m.W), w)
	copy(Float64s(m.A), a)
	copy(Float64s(m.B), b)
	return nil
}

// HiddenMean is the conditional activation of the hidden layer given a batch of visible states (batch × visible).
// It returns sigmoid(vW + b), of shape batch × hidden.
func (m *Model) HiddenMean(v *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBatch(v, m.NumVisible); err != nil {
		return nil, err
	}
	var mb maebe
	field := mb.matmul(v, m.W)
	field = mb.addRows(field, m.B)
	retVal := mb.apply(field, sigmoid)
	return retVal, mb.err
}

// VisibleMean is the conditional activation of the visible layer given a batch of hidden states (batch × hidden).
func (m *Model) VisibleMean(h *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBatch(h, m.NumHidden); err != nil {
		return nil, err
	}
	var mb maebe
	wT := mb.transpose(m.W)
	field := mb.matmul(h, wT)
	field = mb.addRows(field, m.A)
	retVal := mb.apply(field, sigmoid)
	return retVal, mb.err
}

// Reconstruct runs a deterministic up-down pass: the visible means given the hidden means given v.
func (m *Model) Reconstruct(v *tensor.Dense) (*tensor.Dense, error) {
	h, err := m.HiddenMean(v)
	if err != nil {
		return nil, err
	}
	return m.VisibleMean(h)
}

// MarginalFreeEnergy returns, for every row of v, the free energy with the hidden layer summed out:
//	F(v) = -a·v - Σⱼ log(1 + exp(bⱼ + (vW)ⱼ))
func (m *Model) MarginalFreeEnergy(v *tensor.Dense) ([]float64, error) {
	if err := checkBatch(v, m.NumVisible); err != nil {
		return nil, err
	}
	var mb maebe
	field := mb.matmul(v, m.W)
	field = mb.addRows(field, m.B)
	if mb.err != nil {
		return nil, mb.err
	}

	rows := v.Shape()[0]
	vs := Float64s(v)
	fs := Float64s(field)
	as := Float64s(m.A)
	retVal := make([]float64, rows)
	for i := range retVal {
		row := vs[i*m.NumVisible : (i+1)*m.NumVisible]
		var f float64
		for j, x := range row {
			f -= as[j] * x
		}
		for _, x := range fs[i*m.NumHidden : (i+1)*m.NumHidden] {
			f -= softplus(x)
		}
		retVal[i] = f
	}
	return retVal, nil
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	m2 := New(m.Config)
	copy(Float64s(m2.W), Float64s(m.W))
	copy(Float64s(m2.A), Float64s(m.A))
	copy(Float64s(m2.B), Float64s(m.B))
	return m2
}

// NewGradient returns an empty gradient shaped for this model: two layers, one weight.
func (m *Model) NewGradient() *Gradient { return NewGradient(2, 1) }

func (m *Model) GobEncode() (retVal []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(m.Config); err != nil {
		return nil, err
	}
	for _, p := range []*tensor.Dense{m.W, m.A, m.B} {
		if err = enc.Encode(Float64s(p)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (m *Model) GobDecode(p []byte) error {
	buf := bytes.NewBuffer(p)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&m.Config); err != nil {
		return err
	}
	m.reset()
	for _, t := range []*tensor.Dense{m.W, m.A, m.B} {
		var data []float64
		if err := dec.Decode(&data); err != nil {
			return err
		}
		if len(data) != t.Shape().TotalSize() {
			return errors.Errorf("decoded %d values for a parameter of shape %v", len(data), t.Shape())
		}
		copy(Float64s(t), data)
	}
	return nil
}

func checkBatch(t *tensor.Dense, width int) error {
	if t == nil {
		return errors.New("nil batch")
	}
	if t.Dtype() != Float {
		return errors.Errorf("expected a batch of %v. Got %v", Float, t.Dtype())
	}
	if t.Dims() != 2 || t.Shape()[1] != width {
		return errors.Errorf("expected a batch of shape (n, %d). Got %v", width, t.Shape())
	}
	return nil
}

// Means returns the column means of a (rows × cols) matrix.
func Means(t *tensor.Dense) ([]float64, error) {
	if t.Dims() != 2 {
		return nil, errors.Errorf("expected a matrix. Got shape %v", t.Shape())
	}
	sum, err := t.Sum(0)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	retVal := make([]float64, sum.Shape().TotalSize())
	copy(retVal, Float64s(sum))
	vecf64.Scale(retVal, 1/float64(t.Shape()[0]))
	return retVal, nil
}
