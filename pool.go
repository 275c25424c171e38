package tapfit

import (
	"sync"
)

// iterPool keeps the row headers of iterators, by row count.
var iterPool sync.Map // map[int]*sync.Pool

func borrowIterator(m int) [][]float64 {
	if p, ok := iterPool.Load(m); ok {
		if it, ok := p.(*sync.Pool).Get().([][]float64); ok {
			return it
		}
	}
	return make([][]float64, m)
}

// ReturnIterator hands an iterator made by MakeIterator back for reuse. The rows are detached from the image first.
func ReturnIterator(m, n int, it [][]float64) {
	if len(it) != m {
		return
	}
	for i := range it {
		it[i] = nil
	}
	p, _ := iterPool.LoadOrStore(m, new(sync.Pool))
	p.(*sync.Pool).Put(it)
}
