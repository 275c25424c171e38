package tap

import (
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorgonia/tapfit/rbm"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

// Model is the parameter container a Machine fits.
type Model interface {
	// Params returns the couplings (visible × hidden) and the visible and hidden biases.
	Params() (w, a, b *tensor.Dense)

	// HiddenMean maps a batch of visible states (batch × visible) to the conditional hidden activations.
	HiddenMean(v *tensor.Dense) (*tensor.Dense, error)

	// NewGradient returns an empty gradient with two layer entries and one weight entry.
	NewGradient() *rbm.Gradient
}

// Stats counts what the descents of a Machine have done.
type Stats struct {
	Minimizations int
	Converged     int
	Stalled       int
	Exhausted     int

	// the descent that seeded the last gradient
	LastSlot  int // pool slot it came from; -1 without a pool
	LastValue float64
}

// Machine computes TAP gradients and heat capacities for a model.
//
// All methods serialise on one lock, because gradient computations replace the persistent magnetizations in place.
type Machine struct {
	lock sync.Mutex
	Config

	model   Model
	pool    *Pool
	rand    *rand.Rand
	logger  *log.Logger
	observe Observer
	stats   Stats
}

// Option configures optional parts of a Machine.
type Option func(*Machine)

// WithRand sets the generator random seeds are drawn from.
func WithRand(r *rand.Rand) Option { return func(m *Machine) { m.rand = r } }

// WithLogger sets where stalls and other diagnostics are logged.
func WithLogger(l *log.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithObserver instruments every descent the Machine runs.
func WithObserver(o Observer) Option { return func(m *Machine) { m.observe = o } }

// New creates a Machine for model. The configuration is validated here, and an invalid one is an error.
func New(model Model, conf Config, opts ...Option) (*Machine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, errors.New("nil model")
	}
	retVal := &Machine{
		Config: conf,
		model:  model,
		pool:   NewPool(conf.PersistentSamples),
	}
	for _, opt := range opts {
		opt(retVal)
	}
	if retVal.rand == nil {
		retVal.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if retVal.logger == nil {
		retVal.logger = log.New(io.Discard, "", 0)
	}
	return retVal, nil
}

// Pool returns the persistent magnetizations. Callers must not use it while another method of m runs.
func (m *Machine) Pool() *Pool { return m.pool }

// Stats returns a snapshot of the descent counters.
func (m *Machine) Stats() Stats {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.stats
}

// FreeEnergy minimises Γ of the configured order from seed, or from a random magnetization if seed is nil.
// The returned value approximates the Gibbs free energy -log Z from above.
func (m *Machine) FreeEnergy(seed *Magnetization, s Settings) (Result, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := s.validate(); err != nil {
		return Result{}, err
	}
	e, err := m.expansion()
	if err != nil {
		return Result{}, err
	}
	start, err := m.seed(e.c, seed)
	if err != nil {
		return Result{}, err
	}
	return m.minimize(e.objective(m.LineSearch), start, s)
}

// Gradient computes the gradient of the average log likelihood of batch (batch × visible) with respect to the
// model's couplings and biases.
//
// The log partition function is replaced by the TAP free energy at a minimising magnetization. Without a pool
// that magnetization comes from one descent from a random seed. With a pool every slot is descended from, every
// slot is replaced by its result, and the lowest free energy is used (the first slot wins ties).
//
// The result is Weights[0] = ⟨v hᵀ⟩ - ∂Γ/∂W, Layers[0] = ⟨v⟩ - ∂Γ/∂a, Layers[1] = ⟨h⟩ - ∂Γ/∂b, where the averages
// run over the batch with h the conditional hidden activation, and the Γ terms are negated by construction
// (∂Γ/∂a = -v and so on).
func (m *Machine) Gradient(batch *tensor.Dense) (*rbm.Gradient, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	e, err := m.expansion()
	if err != nil {
		return nil, err
	}
	// a bad batch must leave the pool and the stats untouched
	grad, err := m.dataGradient(batch, e.c.nv, e.c.nh)
	if err != nil {
		return nil, err
	}
	s := m.Config.Settings()
	obj := e.objective(m.LineSearch)

	var best Result
	slot := -1
	if m.pool.Len() == 0 {
		start := RandomMagnetization(m.rand, e.c.nv, e.c.nh)
		if best, err = m.minimize(obj, start, s); err != nil {
			return nil, err
		}
	} else {
		for i := 0; i < m.pool.Len(); i++ {
			start, ok := m.pool.Slot(i)
			if !ok {
				start = RandomMagnetization(m.rand, e.c.nv, e.c.nh)
			}
			res, err := m.minimize(obj, start, s)
			if err != nil {
				return nil, errors.Wrapf(err, "persistent sample %d", i)
			}
			m.pool.set(i, res.M)
			if slot < 0 || res.Value < best.Value {
				best, slot = res, i
			}
		}
	}
	m.stats.LastSlot = slot
	m.stats.LastValue = best.Value

	dwEMF, err := e.GradW(best.M)
	if err != nil {
		return nil, err
	}
	vecf64.Add(rbm.Float64s(grad.Weights[0]), rbm.Float64s(dwEMF))
	vecf64.Add(rbm.Float64s(grad.Layers[0]), e.GradA(best.M))
	vecf64.Add(rbm.Float64s(grad.Layers[1]), e.GradB(best.M))
	return grad, nil
}

// dataGradient computes the batch averages ⟨v⟩, ⟨h⟩ and ⟨v hᵀ⟩ with h the conditional hidden activation.
func (m *Machine) dataGradient(batch *tensor.Dense, nv, nh int) (*rbm.Gradient, error) {
	if batch == nil || batch.Dims() != 2 || batch.Shape()[1] != nv || batch.Shape()[0] == 0 {
		var shape tensor.Shape
		if batch != nil {
			shape = batch.Shape()
		}
		return nil, errors.Errorf("expected a non empty batch of shape (n, %d). Got %v", nv, shape)
	}
	hidden, err := m.model.HiddenMean(batch)
	if err != nil {
		return nil, errors.Wrap(err, "conditional hidden activations")
	}
	da, err := rbm.Means(batch)
	if err != nil {
		return nil, err
	}
	db, err := rbm.Means(hidden)
	if err != nil {
		return nil, err
	}

	var mb maebe
	dw := mb.matmul(mb.transpose(batch), hidden)
	if mb.err != nil {
		return nil, mb.err
	}
	vecf64.Scale(rbm.Float64s(dw), 1/float64(batch.Shape()[0]))

	grad := m.model.NewGradient()
	if len(grad.Layers) != 2 || len(grad.Weights) != 1 {
		return nil, errors.Errorf("a two layer machine needs 2 layer and 1 weight entries. The model gave %d and %d", len(grad.Layers), len(grad.Weights))
	}
	if !dw.Shape().Eq(tensor.Shape{nv, nh}) || len(db) != nh {
		return nil, errors.Errorf("hidden activations of shape %v do not fit %d hidden units", hidden.Shape(), nh)
	}
	grad.Weights[0] = dw
	grad.Layers[0] = tensor.New(tensor.WithShape(nv), tensor.WithBacking(da))
	grad.Layers[1] = tensor.New(tensor.WithShape(nh), tensor.WithBacking(db))
	return grad, nil
}

// HeatCapacity estimates the heat capacity of the model: the negated minimum of the beta-beta functional
// (the second derivative of the free energy in inverse temperature, to third order), descended from seed or from a
// random magnetization if seed is nil.
func (m *Machine) HeatCapacity(seed *Magnetization, s Settings) (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := s.validate(); err != nil {
		return 0, err
	}
	w, a, b := m.model.Params()
	c, err := newCoupling(w, a, b)
	if err != nil {
		return 0, err
	}
	start, err := m.seed(c, seed)
	if err != nil {
		return 0, err
	}
	res, err := m.minimize(c.heatObjective(), start, s)
	if err != nil {
		return 0, err
	}
	return -res.Value, nil
}

// expansion builds the expansion of the configured order from the current parameters.
// The order was validated by New; it is checked again in case the Config was edited since.
func (m *Machine) expansion() (*Expansion, error) {
	if !m.Order.IsValid() {
		return nil, ConfigError{"Order", m.Order}
	}
	w, a, b := m.model.Params()
	return NewExpansion(m.Order, w, a, b)
}

func (m *Machine) seed(c *coupling, seed *Magnetization) (Magnetization, error) {
	if seed == nil {
		return RandomMagnetization(m.rand, c.nv, c.nh), nil
	}
	if err := seed.check(c.nv, c.nh); err != nil {
		return Magnetization{}, errors.Wrap(err, "seed")
	}
	return seed.Clone(), nil
}

func (m *Machine) minimize(obj objective, start Magnetization, s Settings) (Result, error) {
	res, err := minimize(obj, start, s, m.observe)
	if err != nil {
		return res, err
	}
	m.stats.Minimizations++
	switch res.Status {
	case Converged:
		m.stats.Converged++
	case Stalled:
		m.stats.Stalled++
		m.logger.Printf("descent stalled after %d iterations at %v", res.Iters, res.Value)
	case Exhausted:
		m.stats.Exhausted++
	}
	return res, nil
}
