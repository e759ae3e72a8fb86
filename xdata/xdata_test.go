package xdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/simerr"
)

func TestCreateChannelIdempotentAndConflict(t *testing.T) {
	m := NewManager(3)
	require.NoError(t, m.CreateChannel("force", 3, Transient))
	require.NoError(t, m.CreateChannel("force", 3, Transient)) // idempotent

	err := m.CreateChannel("force", 1, Transient)
	require.Error(t, err)
	var serr *simerr.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, simerr.ChannelTypeConflict, serr.Kind)
}

func TestGetChannelMissing(t *testing.T) {
	m := NewManager(1)
	_, err := m.GetChannel("nope")
	assert.Error(t, err)
	assert.False(t, m.CheckExists("nope"))
}

func TestClearTransientLeavesPersistentAlone(t *testing.T) {
	m := NewManager(2)
	require.NoError(t, m.CreateChannel("density", 1, Persistent))
	require.NoError(t, m.CreateChannel("force", 3, Transient))

	dens, _ := m.GetChannel("density")
	force, _ := m.GetChannel("force")
	for i := range dens.Data {
		dens.Data[i] = 7
	}
	for i := range force.Data {
		force.Data[i] = 9
	}

	m.ClearTransient(device.Default())

	for _, v := range dens.Data {
		assert.Equal(t, 7.0, v)
	}
	for _, v := range force.Data {
		assert.Equal(t, 0.0, v)
	}
}

func TestPersistentNamesSorted(t *testing.T) {
	m := NewManager(1)
	require.NoError(t, m.CreateChannel("zeta", 1, Persistent))
	require.NoError(t, m.CreateChannel("alpha", 1, Persistent))
	require.NoError(t, m.CreateChannel("force", 3, Transient))
	assert.Equal(t, []string{"alpha", "zeta"}, m.PersistentNames())
	assert.Equal(t, []string{"zeta", "alpha", "force"}, m.Names())
}

func TestResizeGrowsAndShrinks(t *testing.T) {
	m := NewManager(2)
	require.NoError(t, m.CreateChannel("density", 1, Persistent))
	ch, _ := m.GetChannel("density")
	ch.Data[0], ch.Data[1] = 1, 2

	m.Resize(4)
	assert.Equal(t, 4, m.Count())
	ch, _ = m.GetChannel("density")
	assert.Equal(t, []float64{1, 2, 0, 0}, ch.Data)

	m.Resize(1)
	ch, _ = m.GetChannel("density")
	assert.Equal(t, []float64{1}, ch.Data)
}

func TestReorderAppliesPermutation(t *testing.T) {
	m := NewManager(3)
	require.NoError(t, m.CreateChannel("density", 1, Persistent))
	ch, _ := m.GetChannel("density")
	ch.Data[0], ch.Data[1], ch.Data[2] = 10, 20, 30

	// new[0] = old[2], new[1] = old[0], new[2] = old[1]
	m.Reorder([]int{2, 0, 1})
	ch, _ = m.GetChannel("density")
	assert.Equal(t, []float64{30, 10, 20}, ch.Data)
}

func TestReorderWrongLengthPanics(t *testing.T) {
	m := NewManager(2)
	assert.Panics(t, func() { m.Reorder([]int{0}) })
}

func TestAccumulateIntoAndGatherFromRoundTrip(t *testing.T) {
	src := NewManager(2) // secondary cell-list storage
	dst := NewManager(3) // owning partition

	require.NoError(t, src.CreateChannel("density", 1, Persistent))
	require.NoError(t, dst.CreateChannel("density", 1, Persistent))

	srcCh, _ := src.GetChannel("density")
	srcCh.Data[0], srcCh.Data[1] = 5, 7

	// perm[newIndex] = oldIndex into dst: src entry 0 belongs to dst particle 2,
	// src entry 1 belongs to dst particle 0.
	perm := []int{2, 0}
	require.NoError(t, src.AccumulateInto(dst, []string{"density"}, perm))

	dstCh, _ := dst.GetChannel("density")
	assert.Equal(t, []float64{7, 0, 5}, dstCh.Data)

	// GatherFrom pulls values the other direction using the same perm shape.
	gathered := NewManager(2)
	require.NoError(t, gathered.CreateChannel("density", 1, Persistent))
	require.NoError(t, gathered.GatherFrom(dst, []string{"density"}, perm))
	gatheredCh, _ := gathered.GetChannel("density")
	assert.Equal(t, []float64{5, 7}, gatheredCh.Data)
}

func TestAccumulateIntoStrideMismatch(t *testing.T) {
	src := NewManager(1)
	dst := NewManager(1)
	require.NoError(t, src.CreateChannel("force", 3, Transient))
	require.NoError(t, dst.CreateChannel("force", 1, Transient))
	err := src.AccumulateInto(dst, []string{"force"}, []int{0})
	assert.Error(t, err)
}
