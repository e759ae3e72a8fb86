package interaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/interaction"
	"github.com/cpmech/gomero/kernels"
	"github.com/cpmech/gomero/pv"
)

func seed(p *pv.Vector, pos ...r3.Vec) {
	n := len(pos)
	vel := make([]r3.Vec, n)
	id1 := make([]uint32, n)
	id2 := make([]uint32, n)
	p.Local.Append(pos, vel, id1, id2)
}

func TestRegisterRequiresFamily(t *testing.T) {
	beads := pv.NewVector("beads")
	m := interaction.NewManager(0.01)
	k := kernels.NewDensityKernel("d", beads, beads, kernels.NewDensityState(1.0))
	err := m.Register(k)
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateWriteChannel(t *testing.T) {
	beads := pv.NewVector("beads")
	m := interaction.NewManager(0.01)
	fam := celllist.NewFamily(beads, r3.Vec{X: 10, Y: 10, Z: 10})
	_, err := fam.EnsureCutoff(1.0, 0.01)
	require.NoError(t, err)
	m.RegisterPVFamily(beads, fam)

	k1 := kernels.NewDensityKernel("d1", beads, beads, kernels.NewDensityState(1.0))
	require.NoError(t, m.Register(k1))
	k2 := kernels.NewDensityKernel("d2", beads, beads, kernels.NewDensityState(1.0))
	err = m.Register(k2)
	assert.Error(t, err)
}

func TestManagerFullCycleDensityThenForce(t *testing.T) {
	beads := pv.NewVector("beads")
	seed(beads, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1.3, Y: 1, Z: 1})

	fam := celllist.NewFamily(beads, r3.Vec{X: 10, Y: 10, Z: 10})
	_, err := fam.EnsureCutoff(1.0, 0.01)
	require.NoError(t, err)

	m := interaction.NewManager(0.01)
	m.RegisterPVFamily(beads, fam)

	dens := kernels.NewDensityKernel("density", beads, beads, kernels.NewDensityState(1.0))
	require.NoError(t, m.Register(dens))

	forceState := kernels.NewForceState(1.0, 10.0)
	forceState.Pscale = 2.0
	force := kernels.NewForceKernel("force", beads, beads, forceState)
	require.NoError(t, m.Register(force))

	assert.Equal(t, 1.0, m.EffectiveCutoff(beads))

	stream := device.Default()
	require.NoError(t, fam.BuildAll(stream))

	require.NoError(t, m.ClearIntermediates(0, stream))
	require.NoError(t, m.ExecuteLocalIntermediate(0, stream))
	require.NoError(t, m.AccumulateIntermediates(0, stream))

	densCh, err := beads.Local.Extra.GetChannel("density")
	require.NoError(t, err)
	assert.Greater(t, densCh.Data[0], 0.0)
	assert.Equal(t, densCh.Data[0], densCh.Data[1])

	require.NoError(t, m.GatherIntermediate(0, stream))
	require.NoError(t, m.ClearFinal(0, stream))
	require.NoError(t, m.ExecuteLocalFinal(0, stream))
	require.NoError(t, m.AccumulateFinal(0, stream))

	forceCh, err := beads.Local.Extra.GetChannel("force")
	require.NoError(t, err)
	// particle 0 sits at smaller X, repulsion should push it toward -X.
	assert.Less(t, forceCh.Data[0], 0.0)
	assert.Greater(t, forceCh.Data[3], 0.0)
}

func TestClearIntermediatesResetsAcrossSteps(t *testing.T) {
	beads := pv.NewVector("beads")
	seed(beads, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vec{X: 0.2, Y: 0.1, Z: 0.1})
	fam := celllist.NewFamily(beads, r3.Vec{X: 10, Y: 10, Z: 10})
	_, err := fam.EnsureCutoff(1.0, 0.01)
	require.NoError(t, err)
	m := interaction.NewManager(0.01)
	m.RegisterPVFamily(beads, fam)
	dens := kernels.NewDensityKernel("density", beads, beads, kernels.NewDensityState(1.0))
	require.NoError(t, m.Register(dens))

	stream := device.Default()
	require.NoError(t, fam.BuildAll(stream))
	require.NoError(t, m.ExecuteLocalIntermediate(0, stream))
	require.NoError(t, m.AccumulateIntermediates(0, stream))
	densCh, _ := beads.Local.Extra.GetChannel("density")
	assert.Greater(t, densCh.Data[0], 0.0)

	require.NoError(t, m.ClearIntermediates(1, stream))
	densCh, _ = beads.Local.Extra.GetChannel("density")
	assert.Equal(t, 0.0, densCh.Data[0])
}
