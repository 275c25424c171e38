package main

import (
	"testing"

	"github.com/gorgonia/tapfit"
	"github.com/stretchr/testify/assert"
)

func TestFilters(t *testing.T) {
	// 2 visible × 2 hidden, row major
	w := []float64{2, 0, -4, 0}
	got := filters(w, 2, 2)
	assert.Equal(t, [][]float32{{0.5, -1}, {0, 0}}, got)
}

func TestEncodeDropsWithoutClient(t *testing.T) {
	enc := NewEncoder(2, 2)
	for i := 0; i < cap(enc.records)+3; i++ {
		assert.NoError(t, enc.Encode(tapfit.Record{Epoch: i}))
	}
	assert.Len(t, enc.records, cap(enc.records))
	u := <-enc.records
	assert.Equal(t, 0, u.Epoch)
	assert.Nil(t, u.Filters)
	assert.NoError(t, enc.Flush())
}
