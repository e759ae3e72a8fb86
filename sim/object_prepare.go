package sim

import (
	"github.com/cpmech/gomero/exchange"
	"github.com/cpmech/gomero/interaction"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simerr"
)

// writeNamesForStage collects, across every kernel touching pvName in the
// requested stage (Final when final is true, Intermediate otherwise), the
// distinct channel names those kernels write — for Intermediate the set an
// ObjectExtraExchanger forwards to existing halo copies, for Final the set
// an ObjectReverseExchanger accumulates back.
func (d *Driver) writeNamesForStage(pvName string, final bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range d.kernels {
		if k.PV1().Name() != pvName && k.PV2().Name() != pvName {
			continue
		}
		if (k.Stage() == interaction.Final) != final {
			continue
		}
		for _, name := range k.WriteChannels() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// prepareObjectEngines builds the ObjectHaloExchanger/ObjectRedistributor
// pair for every registered ObjectVector, plus the ObjectExtraExchanger
// (forwarding freshly-computed intermediate channels to existing halo
// copies) and ObjectReverseExchanger (accumulating final-stage
// contributions computed on halo copies back to the owner) that reuse the
// halo exchanger's membership (spec.md §4.4).
func (d *Driver) prepareObjectEngines() error {
	for _, name := range d.pvOrder {
		e := d.pvs[name]
		if !e.p.IsObject() {
			continue
		}
		ov, ok := e.p.(*pv.ObjectVector)
		if !ok {
			return simerr.Newf(simerr.ConfigurationError, name, "PV reports IsObject() but is not a *pv.ObjectVector")
		}
		rc := d.interactionMgr.EffectiveCutoff(e.p)
		if rc == 0 {
			rc = d.families[name].Largest().Rc
		}
		halo := exchange.NewObjectHaloExchanger(ov, d.State.Domain.LocalSize, rc)
		d.objHaloEx[name] = halo
		d.objRedistEx[name] = exchange.NewObjectRedistributor(ov, d.State.Domain.LocalSize)

		if names := d.writeNamesForStage(name, false); len(names) > 0 {
			d.objExtraEx[name] = exchange.NewObjectExtraExchanger(halo, names)
		}
		if names := d.writeNamesForStage(name, true); len(names) > 0 {
			d.objReverseEx[name] = exchange.NewObjectReverseExchanger(halo, names)
		}
	}
	return nil
}
