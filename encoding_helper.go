package tapfit

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf64"
)

// EncodeBits encodes set bits as 1 and unset bits as 0.
func EncodeBits(a []bool, prealloc []float64) []float64 {
	if len(prealloc) != len(a) {
		prealloc = make([]float64, len(a))
	}

	for i := range a {
		if a[i] {
			prealloc[i] = 1
		} else {
			prealloc[i] = 0
		}
	}
	return prealloc
}

// EncodeInverted encodes set bits as 0 and unset bits as 1.
func EncodeInverted(a []bool, prealloc []float64) []float64 {
	retVal := EncodeBits(a, prealloc)
	vecf64.Scale(retVal, -1)
	vecf64.Trans(retVal, 1)
	return retVal
}

// Stack packs examples of equal length into a (examples × length) matrix, copying them.
func Stack(examples [][]float64) (*tensor.Dense, error) {
	if len(examples) == 0 {
		return nil, errors.New("no examples to stack")
	}
	width := len(examples[0])
	backing := make([]float64, 0, len(examples)*width)
	for i, ex := range examples {
		if len(ex) != width {
			return nil, errors.Errorf("example %d has %d units. Expected %d", i, len(ex), width)
		}
		backing = append(backing, ex...)
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(len(examples), width)), nil
}

// RotateImage turns a square m × n image (row major) a quarter turn counterclockwise.
func RotateImage(image []float64, m, n int) ([]float64, error) {
	if m != n {
		return nil, errors.Errorf("Cannot handle m %d, n %d. This function only takes square images", m, n)
	}
	if len(image) != m*n {
		return nil, errors.Errorf("image has %d pixels. Expected %d", len(image), m*n)
	}
	copied := make([]float64, len(image))
	copy(copied, image)
	it := MakeIterator(copied, m, n)
	for i := 0; i < m/2; i++ {
		mi1 := m - i - 1
		for j := i; j < mi1; j++ {
			mj1 := m - j - 1
			tmp := it[i][j]
			// right to top
			it[i][j] = it[j][mi1]

			// bottom to right
			it[j][mi1] = it[mi1][mj1]

			// left to bottom
			it[mi1][mj1] = it[mj1][i]

			// tmp is left
			it[mj1][i] = tmp
		}
	}
	ReturnIterator(m, n, it)
	return copied, nil
}

// Rotations is an Augmenter for square m × m images: every example and its three quarter turns.
func Rotations(m int) Augmenter {
	return func(example []float64) [][]float64 {
		retVal := [][]float64{example}
		cur := example
		for i := 0; i < 3; i++ {
			next, err := RotateImage(cur, m, m)
			if err != nil {
				return retVal[:1]
			}
			retVal = append(retVal, next)
			cur = next
		}
		return retVal
	}
}
