package sim

import (
	"time"

	"github.com/cpmech/gosl/io"

	"github.com/cpmech/gomero/device"
)

// Prepare runs every registration-pipeline phase of spec.md §4.7 once,
// after every PV/interaction/integrator/bouncer/wall/belonging-
// checker/plugin has been registered: cell lists, interaction bindings,
// bouncer/wall validation, exchange engines, the task graph, and finally
// execSplitters, mirroring gofem's fem.New → up.SetUpSolutionStructures
// sequencing of "wire everything, then compile once."
func (d *Driver) Prepare() error {
	if err := d.prepareCellLists(); err != nil {
		return err
	}
	if err := d.prepareInteractions(); err != nil {
		return err
	}
	if err := d.prepareBouncers(); err != nil {
		return err
	}
	if err := d.prepareWalls(); err != nil {
		return err
	}
	if err := d.prepareEngines(); err != nil {
		return err
	}
	phases, err := d.createTasks()
	if err != nil {
		return err
	}
	if err := d.buildDependencies(phases); err != nil {
		return err
	}
	if err := d.sched.Compile(); err != nil {
		return err
	}
	return d.execSplitters()
}

// execSplitters applies every registered BelongingChecker once, so a PV
// populated before registration (e.g. restored from a checkpoint, or
// loaded from an initial condition file) starts the run already split
// into its inside/outside PVs (spec.md §4.7 step 7).
func (d *Driver) execSplitters() error {
	stream := device.Default()
	for _, be := range d.belongings {
		if err := be.checker.Split(stream, be.src, be.inside, be.outside); err != nil {
			return err
		}
	}
	return nil
}

// Run advances the simulation nsteps steps, rebuilding cell lists one
// final time afterward so a caller inspecting PV state sees it in a
// consistent cell-sorted order, and prints a cpu-time banner on rank 0
// when Cfg.Verbose is set (spec.md §4.7 step 8, fem.FEM.Run's cputime
// banner idiom).
func (d *Driver) Run(nsteps int) error {
	stream := device.Default()
	cputime := time.Now()
	for i := 0; i < nsteps; i++ {
		if err := d.sched.Run(stream, d.State.CurrentStep); err != nil {
			return err
		}
		d.State.Advance()
	}
	for _, family := range d.families {
		if err := family.BuildAll(stream); err != nil {
			return err
		}
	}
	if d.Cfg.Verbose && d.Comm.Rank() == 0 {
		io.Pfblue2("cpu time   = %v\n", time.Now().Sub(cputime))
	}
	return nil
}
