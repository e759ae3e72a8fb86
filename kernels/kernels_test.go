package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/interaction"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simstate"
	"github.com/cpmech/gomero/xdata"
)

func seedBeads(pos ...r3.Vec) *pv.Vector {
	p := pv.NewVector("beads")
	n := len(pos)
	vel := make([]r3.Vec, n)
	id1 := make([]uint32, n)
	id2 := make([]uint32, n)
	p.Local.Append(pos, vel, id1, id2)
	return p
}

func buildCellList(t *testing.T, p *pv.Vector, rc float64) *celllist.CellList {
	t.Helper()
	cl, err := celllist.New(p, rc, r3.Vec{X: 10, Y: 10, Z: 10}, true)
	require.NoError(t, err)
	require.NoError(t, cl.Build(device.Default()))
	return cl
}

func TestDensityKernelDeclaresIntermediateStage(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1})
	k := NewDensityKernel("d", p, p, NewDensityState(1.0))
	assert.Equal(t, interaction.Intermediate, k.Stage())
	assert.Equal(t, []string{"density"}, k.WriteChannels())
	assert.Nil(t, k.ReadChannels())
	assert.Equal(t, 1.0, k.Cutoff())
	assert.True(t, k.Active(0))
	assert.True(t, k.Active(7))
}

func TestDensityKernelAccumulatesSymmetrically(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1.2, Y: 1, Z: 1})
	cl := buildCellList(t, p, 1.0)
	k := NewDensityKernel("d", p, p, NewDensityState(1.0))

	require.NoError(t, k.ExecuteLocal(device.Default(), cl, cl))
	ch, err := p.Local.Extra.GetChannel("density")
	require.NoError(t, err)
	assert.Greater(t, ch.Data[0], 0.0)
	assert.Equal(t, ch.Data[0], ch.Data[1])
}

func TestDensityKernelBeyondCutoffIsNoop(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 5, Y: 1, Z: 1})
	cl := buildCellList(t, p, 1.0)
	k := NewDensityKernel("d", p, p, NewDensityState(1.0))
	require.NoError(t, k.ExecuteLocal(device.Default(), cl, cl))
	ch, _ := p.Local.Extra.GetChannel("density")
	assert.Equal(t, 0.0, ch.Data[0])
	assert.Equal(t, 0.0, ch.Data[1])
}

func TestForceKernelIsFinalAndRepulsive(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1.4, Y: 1, Z: 1})
	cl := buildCellList(t, p, 1.0)
	state := NewForceState(1.0, 10.0)
	k := NewForceKernel("f", p, p, state)
	assert.Equal(t, interaction.Final, k.Stage())
	assert.Nil(t, k.ReadChannels()) // Pscale is 0

	require.NoError(t, k.ExecuteLocal(device.Default(), cl, cl))
	fch, err := p.Local.Extra.GetChannel("force")
	require.NoError(t, err)
	assert.Less(t, fch.Data[0], 0.0)  // particle 0 pushed toward -X
	assert.Greater(t, fch.Data[3], 0.0) // particle 1 pushed toward +X
}

func TestForceKernelReadsDensityWhenPscaleSet(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1})
	state := NewForceState(1.0, 1.0)
	state.Pscale = 3.0
	k := NewForceKernel("f", p, p, state)
	assert.Equal(t, []string{"density"}, k.ReadChannels())
}

func TestForceKernelStrideSkipsOffSteps(t *testing.T) {
	p := seedBeads(r3.Vec{X: 1, Y: 1, Z: 1})
	k := NewForceKernel("f", p, p, NewForceState(1.0, 1.0))
	k.StepStride = 2
	assert.True(t, k.Active(0))
	assert.False(t, k.Active(1))
	assert.True(t, k.Active(2))
}

func TestEulerIntegratorAppliesForce(t *testing.T) {
	p := seedBeads(r3.Vec{X: 0, Y: 0, Z: 0})
	require.NoError(t, p.Local.Extra.CreateChannel("force", 3, xdata.Transient))
	fch, _ := p.Local.Extra.GetChannel("force")
	fch.Data[0], fch.Data[1], fch.Data[2] = 2, 0, 0

	it := NewEulerIntegrator("integ", p, 2.0)
	state := simstate.New(0.5, simstate.DomainInfo{})
	startStamp := p.MotionStamp()

	require.NoError(t, it.Step(device.Default(), state))

	assert.InDelta(t, 0.5, p.Local.Vel[0].X, 1e-12) // v += (F/m)*dt = (2/2)*0.5
	assert.InDelta(t, 0.25, p.Local.Pos[0].X, 1e-12) // pos += v*dt = 0.5*0.5
	assert.Equal(t, startStamp+1, p.MotionStamp())
}

func TestEulerIntegratorMissingForceChannelErrors(t *testing.T) {
	p := seedBeads(r3.Vec{X: 0, Y: 0, Z: 0})
	it := &EulerIntegrator{IntegName: "integ", P: p, Mass: 1.0}
	state := simstate.New(0.1, simstate.DomainInfo{})
	err := it.Step(device.Default(), state)
	assert.Error(t, err)
}
