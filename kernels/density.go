// Package kernels provides example black-box interaction kernels: concrete
// interaction.Kernel implementations a simulation can register, grounded on
// gofem's msolid.State "plain data struct + Update" shape, generalised from
// continuum stress/strain state to a per-pair density/force accumulator.
// The numerics here are illustrative, not the point of the exercise (spec.md
// explicitly treats individual pair-interaction numerics as an external
// collaborator); what matters is that each kernel expresses only
// ReadChannels/WriteChannels/Cutoff/ExecuteLocal/ExecuteHalo, the shape
// interaction.Manager drives.
package kernels

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/interaction"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/xdata"
)

// DensityState holds the kernel's tunable weighting, analogous to
// msolid.State's role as the plain data a kernel carries alongside the
// particles it acts on.
type DensityState struct {
	Rc   float64 // cutoff radius
	Norm float64 // normalisation constant for the weight function
}

// NewDensityState returns a DensityState at cutoff rc with Norm set to
// 15/(π rc³).
func NewDensityState(rc float64) *DensityState {
	return &DensityState{Rc: rc, Norm: 15.0 / (math.Pi * rc * rc * rc)}
}

// weight is a simple linearly-decaying SPH-style kernel: 1 - r/rc inside
// the cutoff, zero beyond it.
func (s *DensityState) weight(r float64) float64 {
	if r >= s.Rc {
		return 0
	}
	return s.Norm * (1 - r/s.Rc)
}

// DensityKernel is an Intermediate interaction.Kernel computing a number
// density field ("density") from pair proximity within Rc, the same role
// SPH-style pressure terms play upstream of a final force kernel.
type DensityKernel struct {
	KernelName string
	A, B       pv.PV
	State      *DensityState
	StepStride int
}

// NewDensityKernel returns a density kernel between a and b (equal for a
// self-interaction) at state.Rc. The "density" channel is declared
// Persistent, not because its value must survive a checkpoint, but so it
// rides along on a ParticleHaloExchanger's second per-step round the same
// way any other persistent channel does, carrying this step's freshly
// accumulated values out to existing halo copies before a Final kernel
// reads them (sim.Driver's halo-propagation task).
func NewDensityKernel(name string, a, b pv.PV, state *DensityState) *DensityKernel {
	a.LocalPartition().Extra.CreateChannel("density", 1, xdata.Persistent)
	b.LocalPartition().Extra.CreateChannel("density", 1, xdata.Persistent)
	return &DensityKernel{KernelName: name, A: a, B: b, State: state, StepStride: 1}
}

func (k *DensityKernel) Name() string             { return k.KernelName }
func (k *DensityKernel) PV1() pv.PV               { return k.A }
func (k *DensityKernel) PV2() pv.PV               { return k.B }
func (k *DensityKernel) Cutoff() float64          { return k.State.Rc }
func (k *DensityKernel) Stage() interaction.Stage { return interaction.Intermediate }
func (k *DensityKernel) ReadChannels() []string   { return nil }
func (k *DensityKernel) WriteChannels() []string  { return []string{"density"} }

func (k *DensityKernel) Active(step int) bool {
	stride := k.StepStride
	if stride <= 0 {
		stride = 1
	}
	return step%stride == 0
}

func (k *DensityKernel) ExecuteLocal(stream device.Stream, cl1, cl2 *celllist.CellList) error {
	defer stream.Sync()
	s1 := cl1.Storage()
	s2 := cl2.Storage()
	d1, err := s1.Extra.GetChannel("density")
	if err != nil {
		return err
	}
	d2, err := s2.Extra.GetChannel("density")
	if err != nil {
		return err
	}
	sameCellList := cl1 == cl2
	for ci := 0; ci < cl1.NumCells(); ci++ {
		for _, cj := range cl1.NeighborCells(ci) {
			for i := cl1.CellStarts[ci]; i < cl1.CellStarts[ci+1]; i++ {
				for j := cl2.CellStarts[cj]; j < cl2.CellStarts[cj+1]; j++ {
					if sameCellList && j <= i {
						continue
					}
					r := r3.Sub(s1.Pos[i], s2.Pos[j])
					dist := math.Sqrt(r.X*r.X + r.Y*r.Y + r.Z*r.Z)
					w := k.State.weight(dist)
					if w == 0 {
						continue
					}
					d1.Data[i] += w
					d2.Data[j] += w
				}
			}
		}
	}
	return nil
}

func (k *DensityKernel) ExecuteHalo(stream device.Stream, cl1, cl2 *celllist.CellList) error {
	defer stream.Sync()
	s1 := cl1.Storage()
	d1, err := s1.Extra.GetChannel("density")
	if err != nil {
		return err
	}
	halo := k.B.HaloPartition()
	for _, hp := range halo.Pos {
		cellID, ok := cl1.CellOf(hp, true)
		if !ok {
			continue
		}
		for _, ci := range cl1.NeighborCells(cellID) {
			for i := cl1.CellStarts[ci]; i < cl1.CellStarts[ci+1]; i++ {
				r := r3.Sub(s1.Pos[i], hp)
				dist := math.Sqrt(r.X*r.X + r.Y*r.Y + r.Z*r.Z)
				w := k.State.weight(dist)
				if w == 0 {
					continue
				}
				d1.Data[i] += w
			}
		}
	}
	return nil
}
