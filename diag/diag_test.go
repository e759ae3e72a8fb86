package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/pv"
)

func vecWithVelocities(vel ...r3.Vec) *pv.Vector {
	p := pv.NewVector("beads")
	n := len(vel)
	pos := make([]r3.Vec, n)
	id1 := make([]uint32, n)
	id2 := make([]uint32, n)
	p.Local.Append(pos, vel, id1, id2)
	return p
}

func TestMomentumSumsMassTimesVelocity(t *testing.T) {
	p := vecWithVelocities(r3.Vec{X: 1, Y: 0, Z: 0}, r3.Vec{X: -0.5, Y: 2, Z: 0})
	m, err := Momentum(comm.Single{}, []pv.PV{p}, []float64{2.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.X, 1e-12) // 2*(1-0.5)
	assert.InDelta(t, 4.0, m.Y, 1e-12) // 2*(0+2)
}

func TestMomentumAcrossMultipleSpecies(t *testing.T) {
	a := vecWithVelocities(r3.Vec{X: 1})
	b := vecWithVelocities(r3.Vec{X: 1})
	m, err := Momentum(comm.Single{}, []pv.PV{a, b}, []float64{1.0, 3.0})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, m.X, 1e-12)
}

func TestKineticTemperatureSumsEnergyAndCount(t *testing.T) {
	p := vecWithVelocities(r3.Vec{X: 2, Y: 0, Z: 0}, r3.Vec{X: 0, Y: 3, Z: 0})
	energy, count, err := KineticTemperature(comm.Single{}, []pv.PV{p}, []float64{1.0})
	require.NoError(t, err)
	assert.InDelta(t, 4.0+9.0, energy, 1e-12)
	assert.Equal(t, 2, count)
}

func TestEmptyPVsYieldZero(t *testing.T) {
	m, err := Momentum(comm.Single{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{}, m)
	energy, count, err := KineticTemperature(comm.Single{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, energy)
	assert.Equal(t, 0, count)
}
