package celllist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/xdata"
)

func seedParticles(p *pv.Vector, pos []r3.Vec) {
	n := len(pos)
	vel := make([]r3.Vec, n)
	id1 := make([]uint32, n)
	id2 := make([]uint32, n)
	for i := range id1 {
		id1[i] = uint32(i)
	}
	p.Local.Append(pos, vel, id1, id2)
}

func TestNewRejectsNonPositiveCutoff(t *testing.T) {
	p := pv.NewVector("beads")
	_, err := New(p, 0, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	assert.Error(t, err)
}

func TestPrimaryCellListReordersInPlace(t *testing.T) {
	p := pv.NewVector("beads")
	seedParticles(p, []r3.Vec{
		{X: 9, Y: 9, Z: 9},
		{X: 0.1, Y: 0.1, Z: 0.1},
		{X: 9, Y: 0.1, Z: 0.1},
	})
	cl, err := New(p, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	require.NoError(t, err)

	require.NoError(t, cl.Build(device.Default()))
	assert.Same(t, p.Local, cl.Storage())
	assert.Equal(t, 3, p.Local.Count())
	// cell-sorted: sum of CellSizes equals particle count, prefix sums match
	sum := 0
	for _, sz := range cl.CellSizes {
		sum += sz
	}
	assert.Equal(t, 3, sum)
	assert.Equal(t, 0, cl.CellStarts[0])
	assert.Equal(t, 3, cl.CellStarts[len(cl.CellStarts)-1])
}

func TestNeedsRebuildTracksMotionStamp(t *testing.T) {
	p := pv.NewVector("beads")
	seedParticles(p, []r3.Vec{{X: 1, Y: 1, Z: 1}})
	cl, err := New(p, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	require.NoError(t, err)

	assert.True(t, cl.NeedsRebuild())
	require.NoError(t, cl.Build(device.Default()))
	assert.False(t, cl.NeedsRebuild())

	p.BumpMotion()
	assert.True(t, cl.NeedsRebuild())
}

func TestSecondaryCellListLeavesOwnerUntouched(t *testing.T) {
	p := pv.NewVector("beads")
	seedParticles(p, []r3.Vec{
		{X: 9, Y: 9, Z: 9},
		{X: 0.1, Y: 0.1, Z: 0.1},
	})
	originalOrder := append([]r3.Vec(nil), p.Local.Pos...)

	cl, err := New(p, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, false)
	require.NoError(t, err)
	require.NoError(t, cl.Build(device.Default()))

	assert.Equal(t, originalOrder, p.Local.Pos)
	assert.NotSame(t, p.Local, cl.Storage())
	assert.Equal(t, 2, cl.Storage().Count())
}

func TestPrimaryCellListRejectedForObject(t *testing.T) {
	o := pv.NewObjectVector("chains", 3)
	_, err := New(o, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	assert.Error(t, err)
}

func TestAccumulateAndGatherChannelsRoundTripOnSecondary(t *testing.T) {
	p := pv.NewVector("beads")
	seedParticles(p, []r3.Vec{
		{X: 9, Y: 9, Z: 9},
		{X: 0.1, Y: 0.1, Z: 0.1},
	})
	require.NoError(t, p.Local.Extra.CreateChannel("density", 1, xdata.Persistent))

	densOwner, _ := p.Local.Extra.GetChannel("density")
	densOwner.Data[0] = 3
	densOwner.Data[1] = 5

	cl, err := New(p, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, false)
	require.NoError(t, err)
	require.NoError(t, cl.Build(device.Default()))

	require.NoError(t, cl.GatherChannels([]string{"density"}, device.Default()))
	privDens, err := cl.Storage().Extra.GetChannel("density")
	require.NoError(t, err)
	sum := 0.0
	for _, v := range privDens.Data {
		sum += v
	}
	assert.Equal(t, 8.0, sum)

	// mutate private copy (now 13 and 15), accumulate back: the owner adds
	// the private values onto its own 3 and 5
	for i := range privDens.Data {
		privDens.Data[i] += 10
	}
	require.NoError(t, cl.AccumulateChannels([]string{"density"}, device.Default()))
	densOwner, _ = p.Local.Extra.GetChannel("density")
	total := densOwner.Data[0] + densOwner.Data[1]
	assert.Equal(t, 8.0+28.0, total)
}

func TestPrimaryAccumulateGatherAreNoops(t *testing.T) {
	p := pv.NewVector("beads")
	seedParticles(p, []r3.Vec{{X: 1, Y: 1, Z: 1}})
	require.NoError(t, p.Local.Extra.CreateChannel("density", 1, xdata.Persistent))
	cl, err := New(p, 1.0, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	require.NoError(t, err)
	require.NoError(t, cl.Build(device.Default()))
	assert.NoError(t, cl.AccumulateChannels([]string{"density"}, device.Default()))
	assert.NoError(t, cl.GatherChannels([]string{"density"}, device.Default()))
}

func TestFamilyEnsureCutoffDeduplicatesAndOrdersByRc(t *testing.T) {
	p := pv.NewVector("beads")
	f := NewFamily(p, r3.Vec{X: 10, Y: 10, Z: 10})

	cl1, err := f.EnsureCutoff(1.0, 0.05)
	require.NoError(t, err)
	cl2, err := f.EnsureCutoff(1.02, 0.05) // within tolerance of cl1
	require.NoError(t, err)
	assert.Same(t, cl1, cl2)

	cl3, err := f.EnsureCutoff(2.0, 0.05)
	require.NoError(t, err)
	assert.NotSame(t, cl1, cl3)

	lists := f.Lists()
	require.Len(t, lists, 2)
	assert.True(t, lists[0].Rc < lists[1].Rc)
	assert.Same(t, cl3, f.Largest())
	assert.True(t, cl1.Primary)
	assert.False(t, cl3.Primary)
}

func TestFamilySmallestCoveringAndMissing(t *testing.T) {
	p := pv.NewVector("beads")
	f := NewFamily(p, r3.Vec{X: 10, Y: 10, Z: 10})
	_, err := f.EnsureCutoff(1.0, 0.05)
	require.NoError(t, err)
	_, err = f.EnsureCutoff(2.0, 0.05)
	require.NoError(t, err)

	cl, err := f.SmallestCovering(1.5, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cl.Rc)

	_, err = f.SmallestCovering(5.0, 0.05)
	assert.Error(t, err)
}

func TestObjectVectorCutoffAlwaysSecondary(t *testing.T) {
	o := pv.NewObjectVector("chains", 3)
	f := NewFamily(o, r3.Vec{X: 10, Y: 10, Z: 10})
	cl, err := f.EnsureCutoff(1.0, 0.05)
	require.NoError(t, err)
	assert.False(t, cl.Primary)
}
