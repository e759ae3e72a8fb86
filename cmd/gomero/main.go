// Command gomero runs a particle-dynamics simulation from a YAML config
// file, optionally restarting from a previously written checkpoint
// folder. The registered species/kernels here are the illustrative pair
// demonstrated by package kernels (density-weighted DPD-like repulsion);
// a real deployment registers its own PVs/kernels/integrators against
// sim.Driver the same way, in its own main package.
package main

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/kernels"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/sim"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				chk.Verbose = true
				for i := 8; i > 3; i-- {
					chk.CallerInfo(i)
				}
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	cfgPath, _ := io.ArgToFilename(0, "", ".yaml", true)
	restartFolder := io.ArgToString(1, "")

	cfg, err := sim.LoadConfig(cfgPath)
	if err != nil {
		chk.Panic("%v", err)
	}

	c, err := newCommunicator(cfg)
	if err != nil {
		chk.Panic("%v", err)
	}

	if c.Rank() == 0 && cfg.Verbose {
		io.PfWhite("\ngomero -- distributed particle-dynamics orchestration engine\n\n")
	}

	coords := c.CartCoords()
	origin := r3.Vec{
		X: float64(coords[0]) * cfg.SubdomainExtent[0],
		Y: float64(coords[1]) * cfg.SubdomainExtent[1],
		Z: float64(coords[2]) * cfg.SubdomainExtent[2],
	}
	driver := sim.New(cfg, c, origin)

	if err := registerBeads(driver, cfg); err != nil {
		chk.Panic("%v", err)
	}

	if restartFolder != "" {
		if err := driver.Restart(restartFolder); err != nil {
			chk.Panic("%v", err)
		}
	}

	if err := driver.Prepare(); err != nil {
		chk.Panic("%v", err)
	}
	if err := driver.Run(cfg.Nsteps); err != nil {
		chk.Panic("%v", err)
	}
}

// newCommunicator picks comm.Single for a one-subdomain run and
// comm.MPI otherwise, matching spec.md §8 boundary behaviour: a
// single-rank run never sends or receives over MPI.
func newCommunicator(cfg *sim.Config) (comm.Communicator, error) {
	n := cfg.RankGrid[0] * cfg.RankGrid[1] * cfg.RankGrid[2]
	if n <= 1 {
		return comm.Single{}, nil
	}
	return comm.NewMPI(cfg.RankGrid[0], cfg.RankGrid[1], cfg.RankGrid[2])
}

// registerBeads wires up a single self-interacting species, "beads",
// through the density/force pair from package kernels and an explicit
// Euler integrator, seeded with a uniform-random scatter across the
// local subdomain. This is the reference wiring a real simulation's own
// main package would replace with its own species and kernels.
func registerBeads(d *sim.Driver, cfg *sim.Config) error {
	beads := pv.NewVector("beads")
	if err := d.RegisterPV(beads, cfg.CheckpointEvery); err != nil {
		return err
	}

	rc := 1.0
	rng := rand.New(rand.NewSource(1))
	const n = 2000
	pos := make([]r3.Vec, n)
	vel := make([]r3.Vec, n)
	id1 := make([]uint32, n)
	id2 := make([]uint32, n)
	for i := 0; i < n; i++ {
		pos[i] = r3.Vec{
			X: rng.Float64() * cfg.SubdomainExtent[0],
			Y: rng.Float64() * cfg.SubdomainExtent[1],
			Z: rng.Float64() * cfg.SubdomainExtent[2],
		}
		id1[i] = uint32(i)
	}
	beads.Local.Append(pos, vel, id1, id2)

	density := kernels.NewDensityKernel("beads:density", beads, beads, kernels.NewDensityState(rc))
	if err := d.RegisterInteraction(density); err != nil {
		return err
	}
	forceState := kernels.NewForceState(rc, 25.0)
	forceState.Pscale = 5.0
	force := kernels.NewForceKernel("beads:force", beads, beads, forceState)
	if err := d.RegisterInteraction(force); err != nil {
		return err
	}

	return d.RegisterIntegrator(kernels.NewEulerIntegrator("beads:integrate", beads, 1.0))
}
