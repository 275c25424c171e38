package tap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gorgonia/tapfit/rbm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gorgonia.org/tensor"
)

var orders = []Order{MeanField, TAP2, TAP3}

// randomModel returns a model with couplings uniform in [-scale, scale] and biases uniform in [-0.5, 0.5].
func randomModel(r *rand.Rand, nv, nh int, scale float64) *rbm.Model {
	m := rbm.New(rbm.DefaultConf(nv, nh))
	uniform := func(n int, s float64) []float64 {
		retVal := make([]float64, n)
		for i := range retVal {
			retVal[i] = s * (2*r.Float64() - 1)
		}
		return retVal
	}
	if err := m.SetParams(uniform(nv*nh, scale), uniform(nv, 0.5), uniform(nh, 0.5)); err != nil {
		panic(err)
	}
	return m
}

// interior draws a magnetization in (0.1, 0.9), away from where the entropy terms get steep.
func interior(r *rand.Rand, nv, nh int) Magnetization {
	m := RandomMagnetization(r, nv, nh)
	for _, x := range [][]float64{m.V, m.H} {
		for i := range x {
			x[i] = 0.1 + 0.8*x[i]
		}
	}
	return m
}

func split(x []float64, nv int) Magnetization {
	return Magnetization{V: x[:nv], H: x[nv:]}
}

func join(m Magnetization) []float64 {
	return append(append([]float64(nil), m.V...), m.H...)
}

func assertClose(t *testing.T, want, got []float64, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, len(want), len(got), msgAndArgs...)
	for i := range want {
		scale := math.Max(1, math.Abs(want[i]))
		assert.InDelta(t, want[i], got[i], tol*scale, msgAndArgs...)
	}
}

var central = &fd.Settings{Formula: fd.Central}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	const nv, nh = 5, 4
	for trial := 0; trial < 5; trial++ {
		model := randomModel(r, nv, nh, 0.5)
		m := interior(r, nv, nh)
		for _, o := range orders {
			e, err := NewExpansion(o, model.W, model.A, model.B)
			require.NoError(t, err)

			f := func(x []float64) float64 {
				g, err := e.Gamma(split(x, nv))
				require.NoError(t, err)
				return g
			}
			numeric := fd.Gradient(nil, f, join(m), central)

			gv, err := e.GradV(m)
			require.NoError(t, err)
			gh, err := e.GradH(m)
			require.NoError(t, err)
			assertClose(t, numeric, append(gv, gh...), 1e-6, "%v trial %d", o, trial)
		}
	}
}

func TestGradWMatchesFiniteDifferences(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	const nv, nh = 4, 3
	model := randomModel(r, nv, nh, 0.8)
	m := interior(r, nv, nh)

	for _, o := range orders {
		e, err := NewExpansion(o, model.W, model.A, model.B)
		require.NoError(t, err)
		gw, err := e.GradW(m)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{nv, nh}, gw.Shape())

		f := func(w []float64) float64 {
			wt := tensor.New(tensor.WithShape(nv, nh), tensor.WithBacking(w))
			e2, err := NewExpansion(o, wt, model.A, model.B)
			require.NoError(t, err)
			g, err := e2.Gamma(m)
			require.NoError(t, err)
			return g
		}
		w0 := append([]float64(nil), rbm.Float64s(model.W)...)
		numeric := fd.Gradient(nil, f, w0, central)
		assertClose(t, numeric, rbm.Float64s(gw), 1e-6, "%v", o)

		assertClose(t, []float64{-m.V[0], -m.V[1], -m.V[2], -m.V[3]}, e.GradA(m), 0)
		assertClose(t, []float64{-m.H[0], -m.H[1], -m.H[2]}, e.GradB(m), 0)
	}
}

func TestBetaBetaGradientsMatchFiniteDifferences(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const nv, nh = 3, 6
	model := randomModel(r, nv, nh, 1)
	c, err := newCoupling(model.W, model.A, model.B)
	require.NoError(t, err)
	m := interior(r, nv, nh)

	f := func(x []float64) float64 {
		b, err := c.betaBeta(split(x, nv))
		require.NoError(t, err)
		return b
	}
	numeric := fd.Gradient(nil, f, join(m), central)
	gv, err := c.betaBetaGradV(m)
	require.NoError(t, err)
	gh, err := c.betaBetaGradH(m)
	require.NoError(t, err)
	assertClose(t, numeric, append(gv, gh...), 1e-6)
}

func TestOrdersAgreeWithoutCouplings(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	const nv, nh = 6, 4
	model := randomModel(r, nv, nh, 0)
	for trial := 0; trial < 10; trial++ {
		m := RandomMagnetization(r, nv, nh)
		var gammas []float64
		for _, o := range orders {
			e, err := NewExpansion(o, model.W, model.A, model.B)
			require.NoError(t, err)
			g, err := e.Gamma(m)
			require.NoError(t, err)
			gammas = append(gammas, g)
		}
		assert.Equal(t, gammas[0], gammas[1], "trial %d", trial)
		assert.Equal(t, gammas[0], gammas[2], "trial %d", trial)
	}
}

func TestEntropyAtHalf(t *testing.T) {
	model := rbm.New(rbm.DefaultConf(4, 3))
	e, err := NewExpansion(TAP2, model.W, model.A, model.B)
	require.NoError(t, err)
	g, err := e.Gamma(Uniform(4, 3, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, -7*math.Ln2, g, 1e-12)
}

func TestExpansionErrors(t *testing.T) {
	model := rbm.New(rbm.DefaultConf(2, 2))

	_, err := NewExpansion(Order(4), model.W, model.A, model.B)
	require.Error(t, err)
	cerr, ok := errors.Cause(err).(ConfigError)
	require.True(t, ok, "expected a ConfigError. Got %T", err)
	assert.Equal(t, "Order", cerr.Field)

	_, err = NewExpansion(Order(0), model.W, model.A, model.B)
	assert.Error(t, err)

	_, err = NewExpansion(TAP2, model.W, model.B, rbm.New(rbm.DefaultConf(3, 3)).A)
	assert.Error(t, err, "mismatched biases")

	e, err := NewExpansion(TAP2, model.W, model.A, model.B)
	require.NoError(t, err)

	_, err = e.Gamma(Magnetization{V: []float64{0.5, 1}, H: []float64{0.5, 0.5}})
	assert.IsType(t, domainError{}, err)
	_, err = e.GradV(Magnetization{V: []float64{0.5, 0}, H: []float64{0.5, 0.5}})
	assert.IsType(t, domainError{}, err)
	_, err = e.GradH(Magnetization{V: []float64{0.5, 0.5}, H: []float64{0.5}})
	assert.IsType(t, shapeError{}, err)
	_, err = e.GradW(Magnetization{V: []float64{0.5}, H: []float64{0.5, 0.5}})
	assert.IsType(t, shapeError{}, err)
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "MeanField", MeanField.String())
	assert.Equal(t, "TAP2", TAP2.String())
	assert.Equal(t, "TAP3", TAP3.String())
	assert.Equal(t, "Order(7)", Order(7).String())
}
