package sim

import (
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/exchange"
	"github.com/cpmech/gomero/plugin"
	"github.com/cpmech/gomero/scheduler"
)

// runExchange drives one Exchanger through the driver's Engine, a
// single-exchanger batch. The exchangers in this package are never large
// enough in number to benefit from batching several into one Engine call,
// so every task keeps its own exchanger private and easy to name.
func (d *Driver) runExchange(stream device.Stream, ex exchange.Exchanger) error {
	batch := []exchange.Exchanger{ex}
	if err := d.engine.Init(stream, batch); err != nil {
		return err
	}
	return d.engine.Finalize(stream, batch)
}

// objReverseReady reports whether every channel ex reduces back to Local
// has actually been populated on the halo side. The example kernels in
// package kernels compute forces by ghost-duplication (each rank derives
// its own particles' forces independently from local-local and
// local-halo pairs) rather than by writing into halo-side storage, so
// for them this is always false and the reverse exchange is a deliberate
// no-op; a reverse-exchange-style kernel that does write its Final
// channel on OV.Halo.Extra makes this true and the reduction fires.
func objReverseReady(ex *exchange.ObjectReverseExchanger) bool {
	for _, name := range ex.Names {
		if !ex.Halo.OV.Halo.Extra.CheckExists(name) {
			return false
		}
	}
	return true
}

// addPhase registers every task in one execution phase and returns their
// names, so buildDependencies can chain the next phase onto all of them.
func (d *Driver) addPhase(tasks ...*scheduler.Task) ([]string, error) {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		if err := d.sched.AddTask(t); err != nil {
			return nil, err
		}
		names[i] = t.Name
	}
	return names, nil
}

// createTasks builds every Task spec.md §4.6 names, grouped into ordered
// phases: a step's correctness depends only on phase order, never on the
// relative order of tasks within the same phase, so within a phase tasks
// differ only in Priority (packing work runs High, interior compute
// Normal, spec.md §5).
func (d *Driver) createTasks() ([][]string, error) {
	var phases [][]string

	pluginTask := func(name string, hook plugin.Hook) *scheduler.Task {
		return &scheduler.Task{Name: name, Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.plugins.Dispatch(hook, stream, step) }}
	}

	phase, err := d.addPhase(pluginTask("plugin:beforeCellLists", plugin.BeforeCellLists))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var rebuild []*scheduler.Task
	for _, name := range d.pvOrder {
		name := name
		rebuild = append(rebuild, &scheduler.Task{
			Name: "cellrebuild:" + name, Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.families[name].BuildAll(stream) },
		})
	}
	phase, err = d.addPhase(rebuild...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var halo []*scheduler.Task
	for _, name := range d.pvOrder {
		name := name
		e := d.pvs[name]
		if e.p.IsObject() {
			ex := d.objHaloEx[name]
			halo = append(halo, &scheduler.Task{
				Name: "halo:" + name, Priority: scheduler.PriorityHigh,
				Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
			})
			continue
		}
		ex := d.haloExchangers[name]
		halo = append(halo, &scheduler.Task{
			Name: "halo:" + name, Priority: scheduler.PriorityHigh,
			Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
		})
	}
	phase, err = d.addPhase(halo...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var clearTransient []*scheduler.Task
	for _, name := range d.pvOrder {
		name := name
		e := d.pvs[name]
		clearTransient = append(clearTransient, &scheduler.Task{
			Name: "cleartransient:" + name, Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error {
				e.p.LocalPartition().Extra.ClearTransient(stream)
				e.p.HaloPartition().Extra.ClearTransient(stream)
				return nil
			},
		})
	}
	phase, err = d.addPhase(clearTransient...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(pluginTask("plugin:beforeForces", plugin.BeforeForces))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:clearIntermediates", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ClearIntermediates(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:localIntermediate", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ExecuteLocalIntermediate(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:haloIntermediate", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ExecuteHaloIntermediate(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:accumulateIntermediates", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.AccumulateIntermediates(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	// Second halo round: ships this step's freshly accumulated Intermediate
	// channels (e.g. "density") out to halo copies the first round already
	// established, so a Final kernel reading a neighbour's value never
	// observes a stale one (DESIGN.md "two-halo-round" decision).
	var propagate []*scheduler.Task
	for _, name := range d.pvOrder {
		name := name
		e := d.pvs[name]
		if e.p.IsObject() {
			ex, ok := d.objExtraEx[name]
			if !ok {
				continue
			}
			propagate = append(propagate, &scheduler.Task{
				Name: "haloextra:" + name, Priority: scheduler.PriorityHigh,
				Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
			})
			continue
		}
		ex := d.haloExchangers[name]
		propagate = append(propagate, &scheduler.Task{
			Name: "haloextra:" + name, Priority: scheduler.PriorityHigh,
			Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
		})
	}
	phase, err = d.addPhase(propagate...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:gatherIntermediate", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.GatherIntermediate(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:clearFinal", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ClearFinal(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:localFinal", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ExecuteLocalFinal(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:haloFinal", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.ExecuteHaloFinal(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "interaction:accumulateFinal", Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return d.interactionMgr.AccumulateFinal(step, stream) }},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var reverse []*scheduler.Task
	for _, name := range d.pvOrder {
		ex, ok := d.objReverseEx[name]
		if !ok {
			continue
		}
		reverse = append(reverse, &scheduler.Task{
			Name: "objreverse:" + name, Priority: scheduler.PriorityHigh,
			Fn: func(stream device.Stream, step int) error {
				if !objReverseReady(ex) {
					return nil
				}
				return d.runExchange(stream, ex)
			},
		})
	}
	phase, err = d.addPhase(reverse...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var bounce []*scheduler.Task
	for _, b := range d.bouncers {
		b := b
		bounce = append(bounce,
			&scheduler.Task{Name: "bounce:" + b.Name() + ":local", Priority: scheduler.PriorityNormal,
				Fn: func(stream device.Stream, step int) error { return b.BounceLocal(stream) }},
			&scheduler.Task{Name: "bounce:" + b.Name() + ":halo", Priority: scheduler.PriorityNormal,
				Fn: func(stream device.Stream, step int) error { return b.BounceHalo(stream) }},
		)
	}
	for _, we := range d.walls {
		we := we
		bounce = append(bounce,
			&scheduler.Task{Name: "wall:" + we.wall.Name() + ":bounce", Priority: scheduler.PriorityNormal, Stride: we.checkEvery,
				Fn: func(stream device.Stream, step int) error { return we.wall.Bounce(stream) }},
			&scheduler.Task{Name: "wall:" + we.wall.Name() + ":integrity", Priority: scheduler.PriorityNormal, Stride: we.checkEvery,
				Fn: func(stream device.Stream, step int) error { return we.wall.CheckIntegrity(stream) }},
		)
	}
	phase, err = d.addPhase(bounce...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(pluginTask("plugin:serializeAndSend", plugin.SerializeAndSend))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(pluginTask("plugin:beforeIntegration", plugin.BeforeIntegration))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var integrate []*scheduler.Task
	for _, it := range d.integrators {
		it := it
		integrate = append(integrate, &scheduler.Task{
			Name: "integrate:" + it.Name(), Priority: scheduler.PriorityNormal,
			Fn: func(stream device.Stream, step int) error { return it.Step(stream, d.State) },
		})
	}
	phase, err = d.addPhase(integrate...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(pluginTask("plugin:afterIntegration", plugin.AfterIntegration))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var split []*scheduler.Task
	for _, be := range d.belongings {
		be := be
		split = append(split, &scheduler.Task{
			Name: "belonging:" + be.checker.Name(), Priority: scheduler.PriorityNormal, Stride: be.checkEvery,
			Fn: func(stream device.Stream, step int) error {
				return be.checker.Split(stream, be.src, be.inside, be.outside)
			},
		})
	}
	phase, err = d.addPhase(split...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(pluginTask("plugin:beforeParticleDistribution", plugin.BeforeParticleDistribution))
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	var redistribute []*scheduler.Task
	for _, name := range d.pvOrder {
		name := name
		e := d.pvs[name]
		if e.p.IsObject() {
			ex := d.objRedistEx[name]
			redistribute = append(redistribute, &scheduler.Task{
				Name: "redistribute:" + name, Priority: scheduler.PriorityHigh,
				Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
			})
			continue
		}
		ex := d.redistExchangers[name]
		redistribute = append(redistribute, &scheduler.Task{
			Name: "redistribute:" + name, Priority: scheduler.PriorityHigh,
			Fn: func(stream device.Stream, step int) error { return d.runExchange(stream, ex) },
		})
	}
	phase, err = d.addPhase(redistribute...)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	phase, err = d.addPhase(
		&scheduler.Task{Name: "checkpoint:auto", Priority: scheduler.PriorityLow,
			Fn: d.checkpointTask},
	)
	if err != nil {
		return nil, err
	}
	phases = append(phases, phase)

	return phases, nil
}

// buildDependencies chains every phase onto the nearest non-empty phase
// before it: every task in that phase must complete before any task in
// the current one starts. A phase with no tasks (e.g. no bouncers
// registered) is simply skipped rather than breaking the chain, so
// ordering between the phases on either side of it is still enforced.
// Tasks within one phase carry no dependency on one another, so Compile
// is free to interleave them by Priority alone (spec.md §5).
func (d *Driver) buildDependencies(phases [][]string) error {
	var prev []string
	for _, phase := range phases {
		if len(phase) == 0 {
			continue
		}
		for _, before := range prev {
			for _, after := range phase {
				if err := d.sched.AddDependency(before, after); err != nil {
					return err
				}
			}
		}
		prev = phase
	}
	return nil
}
