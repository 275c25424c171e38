package tapfit

// MakeIterator makes a row iterator over an m × n image: row i of the result aliases image[i*n:(i+1)*n].
func MakeIterator(image []float64, m, n int) (retVal [][]float64) {
	retVal = borrowIterator(m)
	for i := range retVal {
		start := i * n
		retVal[i] = image[start : start+n : start+n]
	}
	return
}
