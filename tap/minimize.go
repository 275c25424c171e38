package tap

import (
	"fmt"
	"math"
)

// objective is a scalar functional over magnetizations together with its gradient for each layer.
type objective struct {
	value        func(Magnetization) (float64, error)
	gradV, gradH func(Magnetization) ([]float64, error)
}

// Settings control one run of the backtracking descent.
type Settings struct {
	InitLR    float64 // initial step size; halved whenever a step would ascend
	Tolerance float64 // a decrease smaller than this ends the descent
	MaxIters  int     // maximum number of provisional steps
}

func (s Settings) validate() error {
	switch {
	case !(s.InitLR > 0) || math.IsInf(s.InitLR, 0):
		return ConfigError{"InitLR", s.InitLR}
	case !(s.Tolerance > 0) || math.IsInf(s.Tolerance, 0):
		return ConfigError{"Tolerance", s.Tolerance}
	case s.MaxIters < 1:
		return ConfigError{"MaxIters", s.MaxIters}
	}
	return nil
}

// Status tells how a descent ended.
type Status int

const (
	// Exhausted means MaxIters steps were taken without meeting the tolerance.
	Exhausted Status = iota
	// Converged means a step decreased the functional by less than the tolerance.
	Converged
	// Stalled means the step size fell below its floor while every step still ascended.
	Stalled
)

func (s Status) String() string {
	switch s {
	case Exhausted:
		return "exhausted"
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of a descent. Value is an upper bound on the minimum, not a certified optimum.
type Result struct {
	M      Magnetization
	Value  float64
	Iters  int
	Status Status
}

// Observer is called with the value at the starting point (iteration 0) and after every accepted step.
type Observer func(iter int, value float64)

// minimize runs a monotone backtracking gradient descent of obj from seed.
//
// Each iteration proposes seed - lr·∇ clipped into [Epsilon, 1-Epsilon]. A proposal that increases the value
// halves lr and is discarded; one that decreases it by less than the tolerance is accepted and ends the descent;
// any other decrease is accepted and the descent continues. The step size only ever shrinks.
func minimize(obj objective, seed Magnetization, s Settings, observe Observer) (res Result, err error) {
	m := seed
	lr := s.InitLR
	var gam float64
	if gam, err = obj.value(m); err != nil {
		return
	}
	if observe != nil {
		observe(0, gam)
	}

	var gv, gh []float64
	status := Exhausted
	its := 0
loop:
	for its < s.MaxIters {
		its++
		// the gradient only changes when a step is accepted
		if gv == nil {
			if gv, err = obj.gradV(m); err != nil {
				return
			}
			if gh, err = obj.gradH(m); err != nil {
				return
			}
		}
		candidate := m.step(lr, gv, gh)
		var gamCandidate float64
		if gamCandidate, err = obj.value(candidate); err != nil {
			return
		}

		decrease := gam - gamCandidate
		switch {
		case decrease < 0 || math.IsNaN(decrease):
			lr *= 0.5
			if lr < lrFloor {
				status = Stalled
				break loop
			}
		case decrease < s.Tolerance:
			m, gam = candidate, gamCandidate
			if observe != nil {
				observe(its, gam)
			}
			status = Converged
			break loop
		default:
			m, gam = candidate, gamCandidate
			gv, gh = nil, nil
			if observe != nil {
				observe(its, gam)
			}
		}
	}
	return Result{M: m, Value: gam, Iters: its, Status: status}, nil
}
