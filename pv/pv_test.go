package pv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/xdata"
)

func fourParticles() *Partition {
	p := NewPartition()
	pos := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	vel := make([]r3.Vec, 4)
	id1 := []uint32{10, 11, 12, 13}
	id2 := make([]uint32, 4)
	p.Append(pos, vel, id1, id2)
	return p
}

func TestPartitionAppendAndResize(t *testing.T) {
	p := fourParticles()
	assert.Equal(t, 4, p.Count())
	p.Resize(2)
	assert.Equal(t, 2, p.Count())
	assert.Equal(t, []r3.Vec{{X: 0}, {X: 1}}, p.Pos)
	p.Resize(3)
	assert.Equal(t, 3, p.Count())
	assert.Equal(t, r3.Vec{}, p.Pos[2])
}

func TestPartitionReorder(t *testing.T) {
	p := fourParticles()
	p.Reorder([]int{3, 2, 1, 0})
	assert.Equal(t, []uint32{13, 12, 11, 10}, p.Id1)
}

func TestPartitionReorderWrongLengthPanics(t *testing.T) {
	p := fourParticles()
	assert.Panics(t, func() { p.Reorder([]int{0, 1}) })
}

func TestPartitionAppendMismatchedLengthsPanics(t *testing.T) {
	p := NewPartition()
	assert.Panics(t, func() {
		p.Append([]r3.Vec{{}}, nil, nil, nil)
	})
}

func TestPartitionKeepMask(t *testing.T) {
	p := fourParticles()
	p.KeepMask([]bool{true, false, true, false})
	assert.Equal(t, []uint32{10, 12}, p.Id1)
	assert.Equal(t, 2, p.Count())
}

func TestPartitionKeepMaskWrongLengthPanics(t *testing.T) {
	p := fourParticles()
	assert.Panics(t, func() { p.KeepMask([]bool{true}) })
}

func TestVectorMotionStampBumpsOnly(t *testing.T) {
	v := NewVector("beads")
	assert.Equal(t, "beads", v.Name())
	assert.False(t, v.IsObject())
	assert.Equal(t, 0, v.MotionStamp())
	v.BumpMotion()
	assert.Equal(t, 1, v.MotionStamp())
}

func TestObjectVectorCountsAndGeometry(t *testing.T) {
	o := NewObjectVector("chains", 2)
	assert.True(t, o.IsObject())
	pos := []r3.Vec{{X: 0}, {X: 2}, {X: 10}, {X: 12}}
	vel := make([]r3.Vec, 4)
	id1 := make([]uint32, 4)
	id2 := make([]uint32, 4)
	o.Local.Append(pos, vel, id1, id2)

	assert.Equal(t, 2, o.NumObjects())
	start, end := o.ObjectParticles(1)
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)

	com := o.ObjectCOM(0)
	assert.InDelta(t, 1.0, com.X, 1e-12)

	lo, hi := o.ObjectExtent(1)
	assert.InDelta(t, 10.0, lo.X, 1e-12)
	assert.InDelta(t, 12.0, hi.X, 1e-12)
}

func TestObjectVectorMeshSizeMismatch(t *testing.T) {
	o := NewObjectVector("chains", 3)
	err := o.SetMesh(&Mesh{Verts: [][3]float64{{0, 0, 0}, {1, 0, 0}}})
	assert.Error(t, err)
}

func TestNewObjectVectorRejectsNonPositiveSize(t *testing.T) {
	assert.Panics(t, func() { NewObjectVector("chains", 0) })
}

func TestVectorCheckpointRestartRoundTrip(t *testing.T) {
	for _, enctype := range []string{"gob", "json"} {
		enctype := enctype
		t.Run(enctype, func(t *testing.T) {
			dir := t.TempDir()
			v := NewVector("beads")
			pos := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
			vel := make([]r3.Vec, 2)
			id1 := []uint32{1, 2}
			id2 := make([]uint32, 2)
			v.Local.Append(pos, vel, id1, id2)
			require.NoError(t, v.Local.Extra.CreateChannel("density", 1, xdata.Persistent))
			dens, _ := v.Local.Extra.GetChannel("density")
			dens.Data[0], dens.Data[1] = 1.5, 2.5

			require.NoError(t, v.Checkpoint(comm.Single{}, dir, enctype))

			restored := NewVector("beads")
			require.NoError(t, restored.Restart(comm.Single{}, dir, enctype))
			assert.Equal(t, pos, restored.Local.Pos)
			assert.Equal(t, []uint32{1, 2}, restored.Local.Id1)
			rdens, err := restored.Local.Extra.GetChannel("density")
			require.NoError(t, err)
			assert.InDelta(t, 1.5, rdens.Data[0], 1e-12)
			assert.InDelta(t, 2.5, rdens.Data[1], 1e-12)
			assert.Equal(t, 1, restored.MotionStamp())
		})
	}
}

func TestVectorRestartMissingFileErrors(t *testing.T) {
	v := NewVector("beads")
	err := v.Restart(comm.Single{}, t.TempDir(), "gob")
	assert.Error(t, err)
}

func TestObjectVectorCheckpointRestartRoundTrip(t *testing.T) {
	dir := t.TempDir()
	o := NewObjectVector("chains", 2)
	pos := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	vel := make([]r3.Vec, 4)
	id1 := make([]uint32, 4)
	id2 := make([]uint32, 4)
	o.Local.Append(pos, vel, id1, id2)
	o.ResizeObjects()
	require.NoError(t, o.ObjLocal.CreateChannel("stretch", 1, xdata.Persistent))
	s, _ := o.ObjLocal.GetChannel("stretch")
	s.Data[0], s.Data[1] = 0.1, 0.2

	require.NoError(t, o.Checkpoint(comm.Single{}, dir, "gob"))

	restored := NewObjectVector("chains", 2)
	require.NoError(t, restored.Restart(comm.Single{}, dir, "gob"))
	assert.Equal(t, pos, restored.Local.Pos)
	rs, err := restored.ObjLocal.GetChannel("stretch")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, rs.Data[0], 1e-12)
	assert.InDelta(t, 0.2, rs.Data[1], 1e-12)
}
