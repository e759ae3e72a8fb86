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

// ForceState carries the conservative and dissipative coefficients of a
// DPD-style pairwise force, the same "plain parameter struct beside the
// particles it acts on" shape as msolid.State.
type ForceState struct {
	Rc     float64 // cutoff radius
	A      float64 // conservative (repulsion) coefficient
	Gamma  float64 // dissipative coefficient
	Pscale float64 // weight on the "density" pressure-like term, 0 disables it
}

// NewForceState returns a ForceState with the given cutoff and
// conservative coefficient; Gamma and Pscale default to zero (pure soft
// repulsion) and can be set directly. ForceKernel applies only the
// conservative and density terms; Gamma is stored but not read by it.
func NewForceState(rc, a float64) *ForceState {
	return &ForceState{Rc: rc, A: a}
}

func (s *ForceState) conservativeWeight(r float64) float64 {
	if r >= s.Rc || r <= 0 {
		return 0
	}
	return 1 - r/s.Rc
}

// ForceKernel is a Final interaction.Kernel: a DPD-like conservative
// repulsion, optionally scaled by the "density" channel a prior
// Intermediate kernel (DensityKernel) wrote, accumulated into "force".
type ForceKernel struct {
	KernelName string
	A, B       pv.PV
	State      *ForceState
	StepStride int
}

// NewForceKernel returns a force kernel between a and b driven by state.
// "force" is Transient: cleared at the top of every step by
// interaction.Manager.ClearFinal and never shipped through a checkpoint.
func NewForceKernel(name string, a, b pv.PV, state *ForceState) *ForceKernel {
	a.LocalPartition().Extra.CreateChannel("force", 3, xdata.Transient)
	b.LocalPartition().Extra.CreateChannel("force", 3, xdata.Transient)
	return &ForceKernel{KernelName: name, A: a, B: b, State: state, StepStride: 1}
}

func (k *ForceKernel) Name() string             { return k.KernelName }
func (k *ForceKernel) PV1() pv.PV               { return k.A }
func (k *ForceKernel) PV2() pv.PV               { return k.B }
func (k *ForceKernel) Cutoff() float64          { return k.State.Rc }
func (k *ForceKernel) Stage() interaction.Stage { return interaction.Final }
func (k *ForceKernel) WriteChannels() []string  { return []string{"force"} }

func (k *ForceKernel) ReadChannels() []string {
	if k.State.Pscale != 0 {
		return []string{"density"}
	}
	return nil
}

func (k *ForceKernel) Active(step int) bool {
	stride := k.StepStride
	if stride <= 0 {
		stride = 1
	}
	return step%stride == 0
}

// pairForce returns the force applied to the particle at dr = pi - pj,
// pointing away from pj when positive (repulsive).
func (k *ForceKernel) pairForce(dr r3.Vec, dens float64) r3.Vec {
	dist := math.Sqrt(dr.X*dr.X + dr.Y*dr.Y + dr.Z*dr.Z)
	w := k.State.conservativeWeight(dist)
	if w == 0 {
		return r3.Vec{}
	}
	mag := k.State.A * w
	if k.State.Pscale != 0 {
		mag += k.State.Pscale * dens * w
	}
	return r3.Scale(mag/dist, dr)
}

func (k *ForceKernel) ExecuteLocal(stream device.Stream, cl1, cl2 *celllist.CellList) error {
	defer stream.Sync()
	s1 := cl1.Storage()
	s2 := cl2.Storage()
	f1, err := s1.Extra.GetChannel("force")
	if err != nil {
		return err
	}
	f2, err := s2.Extra.GetChannel("force")
	if err != nil {
		return err
	}
	var dens1, dens2 []float64
	if k.State.Pscale != 0 {
		c1, err := s1.Extra.GetChannel("density")
		if err != nil {
			return err
		}
		c2, err := s2.Extra.GetChannel("density")
		if err != nil {
			return err
		}
		dens1, dens2 = c1.Data, c2.Data
	}
	sameCellList := cl1 == cl2
	for ci := 0; ci < cl1.NumCells(); ci++ {
		for _, cj := range cl1.NeighborCells(ci) {
			for i := cl1.CellStarts[ci]; i < cl1.CellStarts[ci+1]; i++ {
				for j := cl2.CellStarts[cj]; j < cl2.CellStarts[cj+1]; j++ {
					if sameCellList && j <= i {
						continue
					}
					dr := r3.Sub(s1.Pos[i], s2.Pos[j])
					dens := 0.0
					if dens1 != nil {
						dens = 0.5 * (dens1[i] + dens2[j])
					}
					f := k.pairForce(dr, dens)
					f1.Data[3*i+0] += f.X
					f1.Data[3*i+1] += f.Y
					f1.Data[3*i+2] += f.Z
					f2.Data[3*j+0] -= f.X
					f2.Data[3*j+1] -= f.Y
					f2.Data[3*j+2] -= f.Z
				}
			}
		}
	}
	return nil
}

func (k *ForceKernel) ExecuteHalo(stream device.Stream, cl1, cl2 *celllist.CellList) error {
	defer stream.Sync()
	s1 := cl1.Storage()
	f1, err := s1.Extra.GetChannel("force")
	if err != nil {
		return err
	}
	var dens1 []float64
	var haloDens []float64
	if k.State.Pscale != 0 {
		c1, err := s1.Extra.GetChannel("density")
		if err != nil {
			return err
		}
		dens1 = c1.Data
		hc, err := k.B.HaloPartition().Extra.GetChannel("density")
		if err != nil {
			return err
		}
		haloDens = hc.Data
	}
	halo := k.B.HaloPartition()
	for hj, hp := range halo.Pos {
		cellID, ok := cl1.CellOf(hp, true)
		if !ok {
			continue
		}
		for _, ci := range cl1.NeighborCells(cellID) {
			for i := cl1.CellStarts[ci]; i < cl1.CellStarts[ci+1]; i++ {
				dr := r3.Sub(s1.Pos[i], hp)
				dens := 0.0
				if dens1 != nil {
					dens = 0.5 * (dens1[i] + haloDens[hj])
				}
				f := k.pairForce(dr, dens)
				f1.Data[3*i+0] += f.X
				f1.Data[3*i+1] += f.Y
				f1.Data[3*i+2] += f.Z
			}
		}
	}
	return nil
}
