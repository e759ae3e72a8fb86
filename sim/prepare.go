package sim

import (
	"sort"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/exchange"
	"github.com/cpmech/gomero/simerr"
)

// prepareCellLists gathers, per PV, the multiset of cutoffs declared by
// bound interactions, deduplicates within tolerance, and constructs one
// cell list per distinct cutoff — primary for a plain Vector's first
// cutoff, secondary for everything else and for every ObjectVector cutoff
// (spec.md §4.7 step 2).
func (d *Driver) prepareCellLists() error {
	cutoffsByPV := make(map[string][]float64)
	for _, k := range d.kernels {
		cutoffsByPV[k.PV1().Name()] = append(cutoffsByPV[k.PV1().Name()], k.Cutoff())
		cutoffsByPV[k.PV2().Name()] = append(cutoffsByPV[k.PV2().Name()], k.Cutoff())
	}

	for _, name := range d.pvOrder {
		e := d.pvs[name]
		cutoffs := cutoffsByPV[name]
		if len(cutoffs) == 0 {
			// A PV with no declared interactions still needs a default-cutoff
			// cell list so redistribute works (spec.md §8 boundary behaviour);
			// the subdomain extent's smallest axis halved is a harmless default.
			extent := d.State.Domain.LocalSize
			def := extent.X
			if extent.Y < def {
				def = extent.Y
			}
			if extent.Z < def {
				def = extent.Z
			}
			cutoffs = []float64{def / 2}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(cutoffs)))

		family := celllist.NewFamily(e.p, d.State.Domain.LocalSize)
		for _, rc := range cutoffs {
			if _, err := family.EnsureCutoff(rc, d.Cfg.CellListTolerance); err != nil {
				return err
			}
		}
		d.families[name] = family
		d.interactionMgr.RegisterPVFamily(e.p, family)
	}
	return nil
}

// prepareInteractions binds every registered Kernel to its best-fit cell
// list on each side (spec.md §4.7 step 3).
func (d *Driver) prepareInteractions() error {
	for _, k := range d.kernels {
		if err := d.interactionMgr.Register(k); err != nil {
			return err
		}
	}
	return nil
}

// prepareBouncers binds each Bouncer to its OV's and PV's cell lists and
// enforces that the bounced PV has a registered Integrator (spec.md §4.7
// step 4, taxonomy "BouncerWithoutIntegrator").
func (d *Driver) prepareBouncers() error {
	for _, b := range d.bouncers {
		if _, ok := d.families[b.OV().Name()]; !ok {
			return simerr.Newf(simerr.ConfigurationError, b.Name(), "bouncer's ObjectVector has no cell-list family")
		}
		if _, ok := d.families[b.PV().Name()]; !ok {
			return simerr.Newf(simerr.ConfigurationError, b.Name(), "bouncer's PV has no cell-list family")
		}
		if !d.hasIntegrator(b.PV().Name()) {
			return simerr.Newf(simerr.ConfigurationError, b.Name(),
				"bouncer's PV has no registered Integrator (BouncerWithoutIntegrator)")
		}
	}
	return nil
}

// prepareWalls binds each Wall's PV, likewise requiring an Integrator.
func (d *Driver) prepareWalls() error {
	for _, we := range d.walls {
		if !d.hasIntegrator(we.wall.PV().Name()) {
			return simerr.Newf(simerr.ConfigurationError, we.wall.Name(),
				"wall's PV has no registered Integrator (BouncerWithoutIntegrator)")
		}
	}
	return nil
}

func (d *Driver) hasIntegrator(pvName string) bool {
	for _, it := range d.integrators {
		if it.PV().Name() == pvName {
			return true
		}
	}
	return false
}

// prepareEngines instantiates one exchanger of each kind per PV/OV,
// attaching the appropriate halo thickness from the interaction manager's
// EffectiveCutoff, and wraps them all in a single ExchangeEngine chosen by
// world size (spec.md §4.7 step 5).
func (d *Driver) prepareEngines() error {
	if d.Comm.Distributed() {
		d.engine = exchange.NewMPIEngine(d.Comm, d.Cfg.GPUAware)
	} else {
		d.engine = &exchange.SingleNodeEngine{}
	}

	for _, name := range d.pvOrder {
		e := d.pvs[name]
		rc := d.interactionMgr.EffectiveCutoff(e.p)
		if rc == 0 {
			rc = d.families[name].Largest().Rc
		}
		if e.p.IsObject() {
			continue // object exchangers are built in prepareObjectEngines below
		}
		d.haloExchangers[name] = exchange.NewParticleHaloExchanger(e.p, d.State.Domain.LocalSize, rc)
		d.redistExchangers[name] = exchange.NewParticleRedistributor(e.p, d.State.Domain.LocalSize)
	}
	return d.prepareObjectEngines()
}
