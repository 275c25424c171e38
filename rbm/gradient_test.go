package rbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func vec(data ...float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(data)), tensor.WithBacking(data))
}

func TestGradientAbsence(t *testing.T) {
	g := NewGradient(2, 1)
	assert.Len(t, g.Entries(), 3)
	assert.False(t, g.Complete())
	assert.Zero(t, g.Magnitude(), "an empty gradient has no magnitude")

	g.Layers[0] = vec(1)
	g.Layers[1] = vec(1)
	assert.False(t, g.Complete())
	g.Weights[0] = batch(1, 1, 1)
	assert.True(t, g.Complete())
}

func TestGradientAdd(t *testing.T) {
	g := NewGradient(1, 1)
	g.Layers[0] = vec(1, 2)
	g.Weights[0] = batch(1, 2, 3, 4)

	h := NewGradient(1, 1)
	h.Layers[0] = vec(10, 20)
	h.Weights[0] = batch(1, 2, 30, 40)

	if err := g.Add(h); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []float64{11, 22}, g.Layers[0].Data())
	assert.Equal(t, []float64{33, 44}, g.Weights[0].Data())

	h.Layers[0] = vec(1, 2, 3)
	assert.Error(t, g.Add(h), "shape mismatch")

	h.Layers[0] = nil
	assert.Error(t, g.Add(h), "absent in one only")

	assert.Error(t, g.Add(NewGradient(2, 1)), "layout mismatch")
}

func TestGradientMap(t *testing.T) {
	g := NewGradient(2, 1)
	g.Layers[0] = vec(1, -2)
	g.Weights[0] = batch(1, 1, 3)

	sq, err := g.Map(func(x float64) float64 { return x * x })
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []float64{1, 4}, sq.Layers[0].Data())
	assert.Nil(t, sq.Layers[1])
	assert.Equal(t, []float64{9}, sq.Weights[0].Data())
	assert.Equal(t, []float64{1, -2}, g.Layers[0].Data(), "Map must not modify its receiver")
}

func TestGradientMagnitude(t *testing.T) {
	g := NewGradient(1, 1)
	g.Layers[0] = vec(3, 3)          // mean square 9
	g.Weights[0] = batch(1, 2, 1, 1) // mean square 1
	assert.InDelta(t, math.Sqrt(5), g.Magnitude(), 1e-12)
}
