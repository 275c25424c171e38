package rbm

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func fullGradient(m *Model, fill float64) *Gradient {
	g := m.NewGradient()
	g.Weights[0] = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumVisible, m.NumHidden))
	g.Layers[0] = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumVisible))
	g.Layers[1] = tensor.New(tensor.Of(Float), tensor.WithShape(m.NumHidden))
	for _, e := range g.Entries() {
		e.Memset(fill)
	}
	return g
}

func TestStepAscends(t *testing.T) {
	assert := assert.New(t)
	m := New(DefaultConf(2, 2))
	grad := fullGradient(m, 1)

	solver := G.NewVanillaSolver(G.WithLearnRate(0.5))
	if err := Step(m, grad, solver); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDeltaSlice([]float64{0.5, 0.5, 0.5, 0.5}, m.W.Data(), 1e-12)
	assert.InDeltaSlice([]float64{0.5, 0.5}, m.A.Data(), 1e-12)
	assert.InDeltaSlice([]float64{0.5, 0.5}, m.B.Data(), 1e-12)
	assert.Equal([]float64{1, 1, 1, 1}, grad.Weights[0].Data(), "the caller's gradient must survive the step")

	grad.Layers[1] = nil
	assert.Error(Step(m, grad, solver))
}

type constSource struct {
	m     *Model
	calls int
}

func (s *constSource) Gradient(batch *tensor.Dense) (*Gradient, error) {
	s.calls++
	return fullGradient(s.m, 0.01), nil
}

func TestTrain(t *testing.T) {
	m := New(DefaultConf(3, 2))
	data := tensor.New(tensor.WithShape(10, 3), tensor.WithBacking(make([]float64, 30)))
	src := &constSource{m: m}
	solver := G.NewVanillaSolver(G.WithLearnRate(1))
	r := rand.New(rand.NewSource(1337))

	if err := Train(m, src, solver, data, 4, 3, r, nil); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, 6, src.calls, "2 full batches of 4 per epoch over 3 epochs")
	assert.InDeltaSlice(t, []float64{0.06, 0.06}, m.B.Data(), 1e-12)

	assert.Error(t, Train(m, src, solver, data, 11, 1, r, nil), "batch larger than data")
	assert.Error(t, Train(m, src, solver, data, 0, 1, r, nil), "empty batches")
}

func TestTrainShufflesInPlace(t *testing.T) {
	m := New(DefaultConf(2, 2))
	rows := 20
	backing := make([]float64, rows*2)
	for i := 0; i < rows; i++ {
		backing[2*i] = float64(i)
		backing[2*i+1] = float64(i)
	}
	data := tensor.New(tensor.WithShape(rows, 2), tensor.WithBacking(backing))
	kept := data.Clone().(*tensor.Dense)

	solver := G.NewVanillaSolver(G.WithLearnRate(1))
	if err := Train(m, &constSource{m: m}, solver, kept, 5, 1, rand.New(rand.NewSource(1337)), nil); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.NotEqual(t, data.Data(), kept.Data(), "the rows Train was given are reordered")
	assert.Equal(t, float64(0), backing[0], "a copy keeps the original order")
}

func TestShuffleRows(t *testing.T) {
	rows := 20
	backing := make([]float64, rows*2)
	for i := 0; i < rows; i++ {
		backing[2*i] = float64(i)
		backing[2*i+1] = float64(i)
	}
	xs := tensor.New(tensor.WithShape(rows, 2), tensor.WithBacking(backing))
	original := xs.Clone().(*tensor.Dense)

	if err := shuffleRows(rand.New(rand.NewSource(1337)), xs); err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, original.Data(), xs.Data(), "rows should have moved")

	// rows move as units and none go missing
	var seen sort.Float64Slice
	for i := 0; i < rows; i++ {
		assert.Equal(t, backing[2*i], backing[2*i+1])
		seen = append(seen, backing[2*i])
	}
	seen.Sort()
	for i := range seen {
		assert.Equal(t, float64(i), seen[i])
	}
}
