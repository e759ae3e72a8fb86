package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/xdata"
)

var box = r3.Vec{X: 10, Y: 10, Z: 10}

func oneParticle(pos r3.Vec) *pv.Vector {
	p := pv.NewVector("beads")
	p.Local.Append([]r3.Vec{pos}, []r3.Vec{{X: 1, Y: 2, Z: 3}}, []uint32{7}, []uint32{0})
	return p
}

func runEngine(t *testing.T, ex Exchanger) {
	t.Helper()
	eng := SingleNodeEngine{}
	stream := device.Default()
	require.NoError(t, eng.Init(stream, []Exchanger{ex}))
	require.NoError(t, eng.Finalize(stream, []Exchanger{ex}))
}

func TestParticleHaloExchangerWrapsAcrossSelf(t *testing.T) {
	p := oneParticle(r3.Vec{X: 0.4, Y: 5, Z: 5})
	ex := NewParticleHaloExchanger(p, box, 1.0)
	runEngine(t, ex)

	halo := p.HaloPartition()
	require.Equal(t, 1, halo.Count())
	assert.InDelta(t, 10.4, halo.Pos[0].X, 1e-12)
	assert.InDelta(t, 5.0, halo.Pos[0].Y, 1e-12)
	assert.Equal(t, uint32(7), halo.Id1[0])
	// local partition is untouched by a halo exchange
	assert.Equal(t, 1, p.Local.Count())
}

func TestParticleHaloExchangerCarriesPersistentChannels(t *testing.T) {
	p := oneParticle(r3.Vec{X: 0.4, Y: 5, Z: 5})
	require.NoError(t, p.Local.Extra.CreateChannel("density", 1, xdata.Persistent))
	require.NoError(t, p.Local.Extra.CreateChannel("force", 3, xdata.Transient))
	dens, _ := p.Local.Extra.GetChannel("density")
	dens.Data[0] = 3.5

	ex := NewParticleHaloExchanger(p, box, 1.0)
	runEngine(t, ex)

	halo := p.HaloPartition()
	require.True(t, halo.Extra.CheckExists("density"))
	ch, err := halo.Extra.GetChannel("density")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, ch.Data[0], 1e-12)
	// "force" is Transient and never rides a halo exchange.
	assert.False(t, halo.Extra.CheckExists("force"))
}

func TestParticleHaloExchangerInteriorParticleStaysHome(t *testing.T) {
	p := oneParticle(r3.Vec{X: 5, Y: 5, Z: 5})
	ex := NewParticleHaloExchanger(p, box, 1.0)
	runEngine(t, ex)
	assert.Equal(t, 0, p.HaloPartition().Count())
}

func TestParticleRedistributorMovesDepartedParticle(t *testing.T) {
	p := oneParticle(r3.Vec{X: -0.5, Y: 5, Z: 5})
	ex := NewParticleRedistributor(p, box)
	runEngine(t, ex)

	require.Equal(t, 1, p.Local.Count())
	assert.InDelta(t, 9.5, p.Local.Pos[0].X, 1e-12)
	assert.Equal(t, uint32(7), p.Local.Id1[0])
}

func TestParticleRedistributorKeepsInteriorParticle(t *testing.T) {
	p := oneParticle(r3.Vec{X: 5, Y: 5, Z: 5})
	ex := NewParticleRedistributor(p, box)
	stamp := p.MotionStamp()
	runEngine(t, ex)
	assert.Equal(t, 1, p.Local.Count())
	assert.InDelta(t, 5.0, p.Local.Pos[0].X, 1e-12)
	assert.Equal(t, stamp+1, p.MotionStamp())
}

func TestParticleRedistributorBulkFragmentIsInvariantViolation(t *testing.T) {
	ex := &ParticleRedistributor{PVObj: oneParticle(r3.Vec{X: 5, Y: 5, Z: 5}), LocalSize: box}
	ex.sendCounts[BulkFragment] = 1
	err := ex.CombineAndUploadData(device.Default())
	assert.Error(t, err)
}

func TestFragmentIndexRoundTrip(t *testing.T) {
	for _, d := range [][3]int{{1, 0, 0}, {-1, 1, 0}, {1, 1, 1}, {-1, -1, -1}} {
		i := FragmentIndex(d[0], d[1], d[2])
		require.GreaterOrEqual(t, i, 0)
		assert.Equal(t, d, FragmentDir(i))
	}
	assert.Equal(t, BulkFragment, FragmentIndex(0, 0, 0))
}

func TestOppositeFragmentIsInvolution(t *testing.T) {
	for _, i := range Fragments() {
		j := oppositeFragment(i)
		assert.Equal(t, i, oppositeFragment(j))
		assert.NotEqual(t, i, j)
	}
	assert.Equal(t, BulkFragment, oppositeFragment(BulkFragment))
}
