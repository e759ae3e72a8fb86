package sim

import (
	"github.com/cpmech/gomero/device"
)

func (d *Driver) enctype() string {
	if d.Cfg.CheckpointJSON {
		return "json"
	}
	return "gob"
}

// Checkpoint writes the clock and every registered PV/OV's state to
// folder, each through its own uniform Checkpoint(comm, folder[, enctype])
// call (spec.md §6). Called directly for an explicit checkpoint, and from
// checkpointTask for the periodic one.
func (d *Driver) Checkpoint(folder string) error {
	if err := d.State.Checkpoint(d.Comm, folder); err != nil {
		return err
	}
	for _, name := range d.pvOrder {
		if err := d.pvs[name].p.Checkpoint(d.Comm, folder, d.enctype()); err != nil {
			return err
		}
	}
	return nil
}

// Restart reads back a Checkpoint written to folder, every rank its own
// copy of the shared folder.
func (d *Driver) Restart(folder string) error {
	if err := d.State.Restart(d.Comm, folder); err != nil {
		return err
	}
	for _, name := range d.pvOrder {
		if err := d.pvs[name].p.Restart(d.Comm, folder, d.enctype()); err != nil {
			return err
		}
	}
	return nil
}

// checkpointTask is the scheduled automatic checkpoint: the clock (and any
// PV/OV whose own checkpointEvery is due) write out at the cadence
// registered for them, falling back to Cfg.CheckpointEvery when a PV
// registered no cadence of its own.
func (d *Driver) checkpointTask(stream device.Stream, step int) error {
	if d.Cfg.CheckpointEvery > 0 && step%d.Cfg.CheckpointEvery == 0 {
		if err := d.State.Checkpoint(d.Comm, d.Cfg.CheckpointFolder); err != nil {
			return err
		}
	}
	enctype := d.enctype()
	for _, name := range d.pvOrder {
		e := d.pvs[name]
		every := e.checkpointEvery
		if every <= 0 {
			every = d.Cfg.CheckpointEvery
		}
		if every <= 0 || step%every != 0 {
			continue
		}
		if err := e.p.Checkpoint(d.Comm, d.Cfg.CheckpointFolder, enctype); err != nil {
			return err
		}
	}
	return nil
}
