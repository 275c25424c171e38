package rbm

import "gorgonia.org/tensor"

// Float64s returns the backing slice of a float64 tensor. Writes to it are writes to the tensor.
//
// It reads the tensor's memory header directly, so it also works for tensors whose Data would be reported as a
// scalar, and it ignores any view: only call it on tensors that own their data.
func Float64s(t *tensor.Dense) []float64 { return t.Float64s() }
