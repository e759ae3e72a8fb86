package interaction

import (
	"math"
	"sort"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simerr"
)

// binding is everything the manager remembers about one registered kernel:
// the kernel itself plus the cell lists it was bound to on each side.
type binding struct {
	kernel Kernel
	cl1    *celllist.CellList
	cl2    *celllist.CellList
}

// Manager is InteractionManager. It owns no cell lists itself (those belong
// to celllist.Family, one per PV, built by the driver); it only selects
// among them and drives the clear/execute/accumulate/gather sequence.
type Manager struct {
	tolerance float64
	families  map[string]*celllist.Family // PV name -> its cell-list family
	bindings  []*binding

	// writers tracks, per (pv1,pv2) pair key, which channel names have
	// already been claimed by a write, rejecting a second interaction that
	// declares the same output (Open Question: overlapping writer channels
	// are a registration-time ChannelTypeConflict, not a silent overwrite).
	writers map[string]map[string]string // pairKey -> channel -> owning kernel name
}

// NewManager returns an empty InteractionManager. tolerance is the cutoff
// comparison slack used both for cell-list deduplication and for
// is-this-cutoff-covered queries (spec.md §4.5).
func NewManager(tolerance float64) *Manager {
	return &Manager{
		tolerance: tolerance,
		families:  make(map[string]*celllist.Family),
		writers:   make(map[string]map[string]string),
	}
}

// Family returns the cell-list family registered for pvObj, or nil if none
// has been attached yet via RegisterPVFamily.
func (m *Manager) Family(pvObj pv.PV) *celllist.Family {
	return m.families[pvObj.Name()]
}

// RegisterPVFamily attaches the cell-list family the driver built for
// pvObj, so Register can bind kernels to it.
func (m *Manager) RegisterPVFamily(pvObj pv.PV, family *celllist.Family) {
	m.families[pvObj.Name()] = family
}

func pairKey(pv1, pv2 pv.PV) string { return pv1.Name() + "|" + pv2.Name() }

// Register binds a kernel to the best-fit cell list on each side: the
// smallest cell list in that PV's family whose cutoff is >= kernel.Cutoff()
// within tolerance (spec.md §4.5). It is an error to register a kernel
// whose write channel has already been claimed by another kernel on the
// same (pv1, pv2) pair.
func (m *Manager) Register(k Kernel) error {
	f1, ok := m.families[k.PV1().Name()]
	if !ok {
		return simerr.Newf(simerr.ConfigurationError, k.PV1().Name(),
			"interaction %q registered before a cell-list family exists for this PV", k.Name())
	}
	f2, ok := m.families[k.PV2().Name()]
	if !ok {
		return simerr.Newf(simerr.ConfigurationError, k.PV2().Name(),
			"interaction %q registered before a cell-list family exists for this PV", k.Name())
	}
	cl1, err := f1.SmallestCovering(k.Cutoff(), m.tolerance)
	if err != nil {
		return err
	}
	cl2, err := f2.SmallestCovering(k.Cutoff(), m.tolerance)
	if err != nil {
		return err
	}

	key := pairKey(k.PV1(), k.PV2())
	claimed, ok := m.writers[key]
	if !ok {
		claimed = make(map[string]string)
		m.writers[key] = claimed
	}
	for _, name := range k.WriteChannels() {
		if owner, taken := claimed[name]; taken {
			return simerr.Newf(simerr.ChannelTypeConflict, name,
				"channel already written by interaction %q, cannot also be written by %q", owner, k.Name())
		}
	}
	for _, name := range k.WriteChannels() {
		claimed[name] = k.Name()
	}

	m.bindings = append(m.bindings, &binding{kernel: k, cl1: cl1, cl2: cl2})
	return nil
}

// bindingsByStage returns every binding for the requested stage, in
// registration order (stable, for deterministic execution).
func (m *Manager) bindingsByStage(stage Stage) []*binding {
	var out []*binding
	for _, b := range m.bindings {
		if b.kernel.Stage() == stage {
			out = append(out, b)
		}
	}
	return out
}

// EffectiveCutoff returns the maximum cutoff across every kernel bound to
// pvObj on either side, the value the driver uses as that PV's halo
// thickness (spec.md §4.5, DESIGN.md Open Question "Halo thickness").
func (m *Manager) EffectiveCutoff(pvObj pv.PV) float64 {
	rc := 0.0
	for _, b := range m.bindings {
		if b.kernel.PV1().Name() == pvObj.Name() || b.kernel.PV2().Name() == pvObj.Name() {
			rc = math.Max(rc, b.kernel.Cutoff())
		}
	}
	return rc
}

func clearChannels(family *celllist.Family, names map[string]bool, stream device.Stream) error {
	var list []string
	for n := range names {
		list = append(list, n)
	}
	sort.Strings(list)
	for _, cl := range family.Lists() {
		if err := cl.ClearChannels(list, stream); err != nil {
			return err
		}
	}
	// Secondary lists add their private values into the owner on
	// accumulate, so the owner's own channels are zeroed as well.
	if lists := family.Lists(); len(lists) > 0 {
		owner := lists[0].PV.LocalPartition().Extra
		for _, n := range list {
			if !owner.CheckExists(n) {
				continue
			}
			if err := owner.ClearDevice(n, stream); err != nil {
				return err
			}
		}
	}
	return nil
}

func channelSet(bindings []*binding) map[string]bool {
	set := make(map[string]bool)
	for _, b := range bindings {
		for _, name := range b.kernel.WriteChannels() {
			set[name] = true
		}
	}
	return set
}

// ClearIntermediates zeroes every channel any Intermediate kernel writes,
// on every cell list of every PV those kernels touch and on that PV's own
// local channels.
func (m *Manager) ClearIntermediates(step int, stream device.Stream) error {
	return m.clearStage(Intermediate, step, stream)
}

// ClearFinal zeroes every channel any Final kernel writes.
func (m *Manager) ClearFinal(step int, stream device.Stream) error {
	return m.clearStage(Final, step, stream)
}

func (m *Manager) clearStage(stage Stage, step int, stream device.Stream) error {
	bindings := m.bindingsByStage(stage)
	touched := make(map[string]bool)
	names := channelSet(bindings)
	for _, b := range bindings {
		if !b.kernel.Active(step) {
			continue
		}
		for _, pvName := range []string{b.kernel.PV1().Name(), b.kernel.PV2().Name()} {
			if touched[pvName] {
				continue
			}
			touched[pvName] = true
			if err := clearChannels(m.families[pvName], names, stream); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExecuteLocalIntermediate runs every active Intermediate kernel on
// (pv1.local, pv2.local).
func (m *Manager) ExecuteLocalIntermediate(step int, stream device.Stream) error {
	return m.executeStage(Intermediate, step, stream, false)
}

// ExecuteHaloIntermediate runs every active Intermediate kernel on
// (pv1.local, pv2.halo).
func (m *Manager) ExecuteHaloIntermediate(step int, stream device.Stream) error {
	return m.executeStage(Intermediate, step, stream, true)
}

// ExecuteLocalFinal runs every active Final kernel on (pv1.local, pv2.local).
func (m *Manager) ExecuteLocalFinal(step int, stream device.Stream) error {
	return m.executeStage(Final, step, stream, false)
}

// ExecuteHaloFinal runs every active Final kernel on (pv1.local, pv2.halo).
func (m *Manager) ExecuteHaloFinal(step int, stream device.Stream) error {
	return m.executeStage(Final, step, stream, true)
}

func (m *Manager) executeStage(stage Stage, step int, stream device.Stream, halo bool) error {
	for _, b := range m.bindingsByStage(stage) {
		if !b.kernel.Active(step) {
			continue
		}
		var err error
		if halo {
			err = b.kernel.ExecuteHalo(stream, b.cl1, b.cl2)
		} else {
			err = b.kernel.ExecuteLocal(stream, b.cl1, b.cl2)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AccumulateIntermediates pushes every Intermediate kernel's cell-list
// private channels back to their owning PVs.
func (m *Manager) AccumulateIntermediates(step int, stream device.Stream) error {
	return m.accumulateStage(Intermediate, step, stream)
}

// AccumulateFinal pushes every Final kernel's cell-list private channels
// back to their owning PVs.
func (m *Manager) AccumulateFinal(step int, stream device.Stream) error {
	return m.accumulateStage(Final, step, stream)
}

func (m *Manager) accumulateStage(stage Stage, step int, stream device.Stream) error {
	bindings := m.bindingsByStage(stage)
	done := make(map[*celllist.CellList]bool)
	for _, b := range bindings {
		if !b.kernel.Active(step) {
			continue
		}
		for _, cl := range []*celllist.CellList{b.cl1, b.cl2} {
			if done[cl] {
				continue
			}
			done[cl] = true
			if err := cl.AccumulateChannels(b.kernel.WriteChannels(), stream); err != nil {
				return err
			}
		}
	}
	return nil
}

// GatherIntermediate copies accumulated intermediate channel values into
// every cell list that a Final kernel will read them from, so a consumer
// never observes a stale private copy (spec.md §4.5, §7 ordering
// invariant).
func (m *Manager) GatherIntermediate(step int, stream device.Stream) error {
	done := make(map[*celllist.CellList]bool)
	for _, b := range m.bindingsByStage(Final) {
		if !b.kernel.Active(step) {
			continue
		}
		for _, cl := range []*celllist.CellList{b.cl1, b.cl2} {
			if done[cl] {
				continue
			}
			done[cl] = true
			if err := cl.GatherChannels(b.kernel.ReadChannels(), stream); err != nil {
				return err
			}
		}
	}
	return nil
}
