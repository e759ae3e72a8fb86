package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleTopology(t *testing.T) {
	var c Single
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())
	assert.False(t, c.Distributed())
	assert.Equal(t, [3]int{0, 0, 0}, c.CartCoords())
	assert.Equal(t, 0, c.RankOfFragment(0, 0, 0))
	assert.Equal(t, -1, c.RankOfFragment(1, 0, 0))
	assert.Equal(t, -1, c.RankOfFragment(0, -1, 0))
}

func TestSingleAllReduceSum(t *testing.T) {
	var c Single
	src := []float64{1, 2, 3}
	dst := make([]float64, 3)
	assert.NoError(t, c.AllReduceSum(dst, src))
	assert.Equal(t, src, dst)

	// aliasing dst==src must not corrupt data
	buf := []float64{4, 5}
	assert.NoError(t, c.AllReduceSum(buf, buf))
	assert.Equal(t, []float64{4, 5}, buf)

	mismatched := make([]float64, 2)
	assert.Error(t, c.AllReduceSum(mismatched, src))
}

func TestSingleBarrierNoop(t *testing.T) {
	var c Single
	assert.NotPanics(t, func() { c.Barrier() })
}

func TestSingleSendRecvPanics(t *testing.T) {
	var c Single
	assert.Panics(t, func() { c.ISend(1, 0, nil) })
	assert.Panics(t, func() { c.IRecv(1, 0, 4) })
}
