package simstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/comm"
)

func testDomain() DomainInfo {
	return DomainInfo{
		Origin:     r3.Vec{X: 1, Y: 2, Z: 3},
		LocalSize:  r3.Vec{X: 10, Y: 10, Z: 10},
		GlobalSize: r3.Vec{X: 20, Y: 20, Z: 20},
	}
}

func TestLocalGlobalRoundTrip(t *testing.T) {
	s := New(0.01, testDomain())
	p := r3.Vec{X: 4, Y: 5, Z: 6}
	g := s.Local2Global(p)
	assert.Equal(t, r3.Vec{X: 5, Y: 7, Z: 9}, g)
	back := s.Global2Local(g)
	assert.InDelta(t, p.X, back.X, 1e-12)
	assert.InDelta(t, p.Y, back.Y, 1e-12)
	assert.InDelta(t, p.Z, back.Z, 1e-12)
}

func TestAdvanceBumpsClock(t *testing.T) {
	s := New(0.5, testDomain())
	s.Advance()
	s.Advance()
	assert.Equal(t, 2, s.CurrentStep)
	assert.InDelta(t, 1.0, s.CurrentTime, 1e-12)
}

func TestCheckpointRestartRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(0.1, testDomain())
	s.CurrentStep = 42
	s.CurrentTime = 4.2

	require.NoError(t, s.Checkpoint(comm.Single{}, dir))
	assert.FileExists(t, filepath.Join(dir, "_simulation.state"))

	restored := New(0.1, testDomain())
	require.NoError(t, restored.Restart(comm.Single{}, dir))
	assert.Equal(t, 42, restored.CurrentStep)
	assert.InDelta(t, 4.2, restored.CurrentTime, 1e-9)
}

func TestRestartMissingFileErrors(t *testing.T) {
	s := New(0.1, testDomain())
	err := s.Restart(comm.Single{}, filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCheckpointOnlyRank0Writes(t *testing.T) {
	dir := t.TempDir()
	s := New(0.1, testDomain())
	// A non-zero rank never touches the filesystem.
	nonZero := fakeRankComm{rank: 1}
	require.NoError(t, s.Checkpoint(nonZero, dir))
	_, err := os.Stat(filepath.Join(dir, "_simulation.state"))
	assert.True(t, os.IsNotExist(err))
}

type fakeRankComm struct{ rank int }

func (f fakeRankComm) Rank() int                              { return f.rank }
func (f fakeRankComm) Size() int                               { return 2 }
func (f fakeRankComm) Distributed() bool                       { return true }
func (f fakeRankComm) CartCoords() [3]int                      { return [3]int{f.rank, 0, 0} }
func (f fakeRankComm) RankOfFragment(dx, dy, dz int) int       { return -1 }
func (f fakeRankComm) AllReduceSum(dst, src []float64) error   { copy(dst, src); return nil }
func (f fakeRankComm) Barrier()                                {}
func (f fakeRankComm) ISend(to, tag int, data []float64) comm.Request {
	return nil
}
func (f fakeRankComm) IRecv(from, tag, n int) (comm.Request, *[]float64) {
	return nil, nil
}
