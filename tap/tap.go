// Package tap fits restricted Boltzmann machines deterministically. Instead of sampling, the log partition
// function is approximated by minimising the Thouless-Anderson-Palmer (TAP) expansion of the Gibbs free energy
// over a pair of magnetization vectors.
//
// The expansion Γ is a series in inverse temperature around β = 0. Truncating it gives three approximations:
//
//	MeanField: the naive mean field free energy
//	TAP2:      mean field plus the Onsager reaction term
//	TAP3:      TAP2 plus the third order correlation term
//
// A Machine minimises the chosen Γ with a backtracking gradient descent, and turns the minimiser into a parameter
// gradient that can be handed to any optimiser.
package tap

import "fmt"

const (
	// Epsilon is the clip margin: every magnetization component is kept in [Epsilon, 1-Epsilon] after a step.
	Epsilon = 1e-6

	// lrFloor is the learning rate below which the descent is considered stalled.
	lrFloor = 1e-10

	// random seeds are drawn uniformly in (seedLow, seedLow+seedSpan)
	seedLow  = 0.005
	seedSpan = 0.99
)

// Order is the number of terms kept in the TAP expansion.
type Order int

const (
	MeanField Order = iota + 1
	TAP2
	TAP3
)

func (o Order) IsValid() bool { return o >= MeanField && o <= TAP3 }

func (o Order) String() string {
	switch o {
	case MeanField:
		return "MeanField"
	case TAP2:
		return "TAP2"
	case TAP3:
		return "TAP3"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// LineSearch selects the functional the minimiser compares successive points with.
type LineSearch int

const (
	// LineSearchCompat compares third order steps against the mean field Γ.
	// Orders 1 and 2 always compare against their own Γ.
	LineSearchCompat LineSearch = iota

	// LineSearchConsistent compares every order against its own Γ.
	LineSearchConsistent
)

func (l LineSearch) String() string {
	switch l {
	case LineSearchCompat:
		return "compat"
	case LineSearchConsistent:
		return "consistent"
	}
	return fmt.Sprintf("LineSearch(%d)", int(l))
}
