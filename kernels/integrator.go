package kernels

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simstate"
)

// EulerIntegrator is an illustrative explicit-Euler time integrator:
// v += (force/mass)*dt, pos += v*dt. Real integrator numerics (velocity
// Verlet, symplectic schemes, rigid-body updates) are an external
// collaborator the orchestration engine never assumes a particular form
// of; this one exists so cmd/gomero has something concrete to register
// and run, the same illustrative role DensityKernel/ForceKernel play for
// pair interactions.
type EulerIntegrator struct {
	IntegName string
	P         pv.PV
	Mass      float64
}

// NewEulerIntegrator returns an integrator advancing p's Local partition
// at the given per-particle mass, reading the "force" channel ForceKernel
// (or any Final kernel) accumulates.
func NewEulerIntegrator(name string, p pv.PV, mass float64) *EulerIntegrator {
	return &EulerIntegrator{IntegName: name, P: p, Mass: mass}
}

func (e *EulerIntegrator) Name() string { return e.IntegName }
func (e *EulerIntegrator) PV() pv.PV     { return e.P }

func (e *EulerIntegrator) Step(stream device.Stream, state *simstate.State) error {
	defer stream.Sync()
	local := e.P.LocalPartition()
	force, err := local.Extra.GetChannel("force")
	if err != nil {
		return err
	}
	dt := state.Dt
	invMass := 1 / e.Mass
	for i := range local.Pos {
		a := r3.Vec{X: force.Data[3*i+0], Y: force.Data[3*i+1], Z: force.Data[3*i+2]}
		local.Vel[i] = r3.Add(local.Vel[i], r3.Scale(dt*invMass, a))
		local.Pos[i] = r3.Add(local.Pos[i], r3.Scale(dt, local.Vel[i]))
	}
	e.P.BumpMotion()
	return nil
}
