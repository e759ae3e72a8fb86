// Package comm wraps the process-topology primitives the orchestration
// engine needs: rank/size queries, a handful of collectives, and the
// fragment-addressed point-to-point transport used by the exchange layer.
//
// Two implementations exist: Single, for a one-subdomain run where no MPI
// call is ever made, and MPI, a thin Cartesian-communicator wrapper over
// github.com/cpmech/gosl/mpi. Everything above this package programs
// against the Communicator interface so that swapping implementations
// never ripples upward.
package comm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/mpi"
)

// Communicator is the process-topology handle threaded explicitly through
// every component that needs to know where it runs. Nothing in this
// codebase reads ambient global MPI state directly outside this package.
type Communicator interface {
	// Rank returns this process's rank within the simulation communicator.
	Rank() int
	// Size returns the number of ranks in the simulation communicator.
	Size() int
	// Distributed reports whether Size() > 1; a false value lets callers
	// skip exchange machinery entirely (spec.md §8 boundary behaviour).
	Distributed() bool
	// CartCoords returns this rank's (x,y,z) position in the rank grid.
	CartCoords() [3]int
	// RankOfFragment returns the rank owning the neighbour subdomain in
	// direction code (dx,dy,dz) ∈ {-1,0,1}³, or -1 if there is none (a
	// non-periodic boundary).
	RankOfFragment(dx, dy, dz int) int
	// AllReduceSum reduces src into dst element-wise across all ranks.
	// dst and src may alias on a single-rank communicator.
	AllReduceSum(dst, src []float64) error
	// Barrier blocks until every rank has called it.
	Barrier()

	// ISend posts a non-blocking send of data to rank `to`, tagged tag
	// (fragment index), returning a Request to wait on. Never called by
	// the single-node engine, which never leaves the rank.
	ISend(to int, tag int, data []float64) Request
	// IRecv posts a non-blocking receive of exactly n float64s from rank
	// `from`, tagged tag. The returned Request's Wait populates the
	// returned slice.
	IRecv(from int, tag int, n int) (Request, *[]float64)
}

// Request is a handle to a posted non-blocking send or receive.
type Request interface {
	Wait()
}

// Single is the Communicator for a one-subdomain run. It never touches
// MPI: its collectives are local and synchronous, and ISend/IRecv panic,
// since a single-subdomain run has no peer to talk to.
type Single struct{}

func (Single) Rank() int       { return 0 }
func (Single) Size() int       { return 1 }
func (Single) Distributed() bool { return false }
func (Single) CartCoords() [3]int { return [3]int{0, 0, 0} }

func (Single) RankOfFragment(dx, dy, dz int) int {
	if dx == 0 && dy == 0 && dz == 0 {
		return 0
	}
	return -1
}

func (Single) AllReduceSum(dst, src []float64) error {
	if len(dst) != len(src) {
		return chk.Err("comm.Single.AllReduceSum: dst and src length mismatch: %d != %d", len(dst), len(src))
	}
	if &dst[0] != &src[0] {
		copy(dst, src)
	}
	return nil
}

func (Single) Barrier() {}

func (Single) ISend(to, tag int, data []float64) Request {
	chk.Panic("comm.Single.ISend: a single-subdomain run must never call MPI send/recv (spec.md §8 boundary behaviour)")
	return nil
}

func (Single) IRecv(from, tag, n int) (Request, *[]float64) {
	chk.Panic("comm.Single.IRecv: a single-subdomain run must never call MPI send/recv (spec.md §8 boundary behaviour)")
	return nil, nil
}

// MPI wraps github.com/cpmech/gosl/mpi over a Cartesian rank grid of shape
// nx×ny×nz. It must only be constructed after mpi.Start has been called.
type MPI struct {
	nx, ny, nz int
	rank       int
	raw        *mpi.Communicator
}

// NewMPI builds the Communicator for a nx*ny*nz Cartesian decomposition.
// It requires mpi.Size() == nx*ny*nz, matching spec.md §6's process
// topology contract.
func NewMPI(nx, ny, nz int) (*MPI, error) {
	if !mpi.IsOn() {
		return nil, chk.Err("comm.NewMPI: MPI has not been started")
	}
	if mpi.Size() != nx*ny*nz {
		return nil, chk.Err("comm.NewMPI: world size %d does not match rank grid %d x %d x %d", mpi.Size(), nx, ny, nz)
	}
	return &MPI{nx: nx, ny: ny, nz: nz, rank: mpi.Rank(), raw: mpi.NewCommunicator(nil)}, nil
}

func (o *MPI) Rank() int         { return o.rank }
func (o *MPI) Size() int         { return o.nx * o.ny * o.nz }
func (o *MPI) Distributed() bool { return o.Size() > 1 }

func (o *MPI) CartCoords() [3]int {
	x := o.rank % o.nx
	y := (o.rank / o.nx) % o.ny
	z := o.rank / (o.nx * o.ny)
	return [3]int{x, y, z}
}

func (o *MPI) RankOfFragment(dx, dy, dz int) int {
	c := o.CartCoords()
	x, y, z := c[0]+dx, c[1]+dy, c[2]+dz
	if x < 0 || x >= o.nx || y < 0 || y >= o.ny || z < 0 || z >= o.nz {
		return -1
	}
	return x + y*o.nx + z*o.nx*o.ny
}

func (o *MPI) AllReduceSum(dst, src []float64) error {
	mpi.AllReduceSum(dst, src)
	return nil
}

func (o *MPI) Barrier() {
	// gosl/mpi exposes no explicit barrier primitive beyond collectives;
	// a zero-length all-reduce is a correct, if unusual, substitute.
	var z [0]float64
	mpi.AllReduceSum(z[:], z[:])
}

// mpiRequest adapts gosl/mpi's request handle to the Request interface.
type mpiRequest struct {
	raw *mpi.Communicator
	req int
}

func (r mpiRequest) Wait() {
	r.raw.WaitAll()
}

// ISend posts a tagged, non-blocking send to rank `to` over the raw
// Cartesian communicator.
func (o *MPI) ISend(to int, tag int, data []float64) Request {
	id := o.raw.Isend(to, tag, data)
	return mpiRequest{raw: o.raw, req: id}
}

// IRecv posts a tagged, non-blocking receive of exactly n float64s from
// rank `from`. The returned slice is only valid after Wait returns.
func (o *MPI) IRecv(from int, tag int, n int) (Request, *[]float64) {
	buf := make([]float64, n)
	id := o.raw.Irecv(from, tag, buf)
	return mpiRequest{raw: o.raw, req: id}, &buf
}
