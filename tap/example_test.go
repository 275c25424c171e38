package tap_test

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/gorgonia/tapfit/rbm"
	"github.com/gorgonia/tapfit/tap"
	"gorgonia.org/tensor"
)

func ExampleMachine_FreeEnergy() {
	// a machine without couplings or biases is minimised at ½ everywhere, where Γ = -(4+3) log 2
	model := rbm.New(rbm.DefaultConf(4, 3))
	m, err := tap.New(model, tap.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}

	seed := tap.Uniform(4, 3, 0.5)
	res, err := m.FreeEnergy(&seed, tap.Settings{InitLR: 0.1, Tolerance: 1e-6, MaxIters: 50})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Γ = %.4f, %v after %d iteration(s)\n", res.Value, res.Status, res.Iters)

	// Output:
	// Γ = -4.8520, converged after 1 iteration(s)
}

func ExampleMachine_Gradient() {
	r := rand.New(rand.NewSource(1337))
	model := rbm.New(rbm.DefaultConf(6, 4))
	if err := model.Init(); err != nil {
		log.Fatal(err)
	}

	conf := tap.DefaultConfig()
	conf.Order = tap.TAP3
	conf.PersistentSamples = 2
	m, err := tap.New(model, conf, tap.WithRand(r))
	if err != nil {
		log.Fatal(err)
	}

	batch := tensor.New(tensor.WithShape(2, 6), tensor.WithBacking([]float64{
		1, 1, 1, 0, 0, 0,
		0, 0, 0, 1, 1, 1,
	}))
	grad, err := m.Gradient(batch)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(grad.Weights[0].Shape(), grad.Layers[0].Shape(), grad.Layers[1].Shape())

	// Output:
	// (6, 4) (6) (4)
}
