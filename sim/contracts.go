package sim

import (
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simstate"
)

// Integrator advances one PV's velocities/positions by one timestep. The
// actual time-integration scheme (velocity Verlet, etc.) is an external
// collaborator (spec.md §1 Non-goals); the driver only needs to know which
// PV an integrator owns and how to invoke it each step.
type Integrator interface {
	Name() string
	PV() pv.PV
	Step(stream device.Stream, state *simstate.State) error
}

// Bouncer reflects an ObjectVector's particles off of another PV's
// particles that have crossed its boundary (membrane/rigid-body contact).
// Registering a Bouncer for a PV with no Integrator is a ConfigurationError
// (spec.md §4.7 step 4, taxonomy "BouncerWithoutIntegrator").
type Bouncer interface {
	Name() string
	OV() *pv.ObjectVector
	PV() pv.PV
	BounceLocal(stream device.Stream) error
	BounceHalo(stream device.Stream) error
}

// Wall reflects a PV's particles off an analytic or mesh-described
// surface, checked on a configurable stride.
type Wall interface {
	Name() string
	PV() pv.PV
	Bounce(stream device.Stream) error
	// CheckIntegrity verifies no particle has tunnelled through the wall
	// since the last check (spec.md §4.6's "wall integrity check" task).
	CheckIntegrity(stream device.Stream) error
}

// BelongingChecker partitions a source PV's particles into "inside" and
// "outside" with respect to some geometry, applied once at registration
// (execSplitters, spec.md §4.7 step 7) and thereafter on its own stride.
type BelongingChecker interface {
	Name() string
	Split(stream device.Stream, src, inside, outside pv.PV) error
}

// wallEntry pairs a registered Wall with its check stride.
type wallEntry struct {
	wall       Wall
	checkEvery int
}

// belongingEntry pairs a registered BelongingChecker with the PVs it
// splits and its application stride.
type belongingEntry struct {
	checker                     BelongingChecker
	src, inside, outside        pv.PV
	checkEvery, checkpointEvery int
}
