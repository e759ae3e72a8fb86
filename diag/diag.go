// Package diag implements the global reductions a plugin typically wants
// out of SerializeAndSend: total momentum and kinetic temperature, summed
// across every rank via the simulation communicator (spec.md §5:
// "occasional collectives (reductions for global stats and averaging)").
// These are genuinely global quantities, unlike the per-pair forces the
// spec treats as black boxes, so they live in the core rather than in a
// kernel.
package diag

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gosl/la"

	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/pv"
)

// Momentum sums mass*velocity over every local particle of every supplied
// Vector, then all-reduces across ranks. masses supplies one mass per PV
// (uniform within a PV); the core treats mass as an opaque per-species
// scalar, never interpreting it further (spec.md's Non-goals).
func Momentum(c comm.Communicator, pvs []pv.PV, masses []float64) (r3.Vec, error) {
	local := la.Vector(make([]float64, 3))
	for i, p := range pvs {
		m := masses[i]
		for _, v := range p.LocalPartition().Vel {
			local[0] += m * v.X
			local[1] += m * v.Y
			local[2] += m * v.Z
		}
	}
	global := la.Vector(make([]float64, 3))
	if err := c.AllReduceSum(global, local); err != nil {
		return r3.Vec{}, err
	}
	return r3.Vec{X: global[0], Y: global[1], Z: global[2]}, nil
}

// KineticTemperature returns sum(m*|v|^2) and the total particle count
// across every rank, letting the caller divide by (3N - constraints) per
// its own convention; the core does not assume a particular degrees-of-
// freedom formula.
func KineticTemperature(c comm.Communicator, pvs []pv.PV, masses []float64) (energy float64, count int, err error) {
	local := la.Vector(make([]float64, 2))
	for i, p := range pvs {
		m := masses[i]
		for _, v := range p.LocalPartition().Vel {
			local[0] += m * (v.X*v.X + v.Y*v.Y + v.Z*v.Z)
			local[1]++
		}
	}
	global := la.Vector(make([]float64, 2))
	if err := c.AllReduceSum(global, local); err != nil {
		return 0, 0, err
	}
	return global[0], int(global[1]), nil
}
