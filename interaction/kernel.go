// Package interaction implements InteractionManager (spec.md §4.5): the
// registry that classifies declared pair interactions into intermediate and
// final stages, assigns each to the best-fit cell list, and owns the
// invariant that every consumer's input is produced and gathered before it
// runs. The numerics of any one interaction are an external collaborator
// (spec.md §1): a Kernel only ever declares what it touches, in the same
// "declare what you touch, the manager drives when" shape gofem's fem.Elem
// uses for AddToRhs/AddToKb/Update.
package interaction

import (
	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
)

// Stage is which of the two pipeline phases a Kernel belongs to (spec.md
// §4.5): Intermediate kernels produce scalar/vector fields consumed by
// other kernels within the same step (e.g. density feeding pressure); Final
// kernels produce forces consumed by the integrator.
type Stage int

const (
	Intermediate Stage = iota
	Final
)

func (s Stage) String() string {
	if s == Final {
		return "final"
	}
	return "intermediate"
}

// Kernel is the black-box per-pair interaction contract. The manager reads
// Cutoff/ReadChannels/WriteChannels/Stage to drive cell-list selection and
// dependency ordering; ExecuteLocal/ExecuteHalo are handed the two already
// cell-sorted CellLists to iterate over, one per side.
type Kernel interface {
	Name() string
	PV1() pv.PV
	PV2() pv.PV // equals PV1 for a self-interaction
	Cutoff() float64
	Stage() Stage
	ReadChannels() []string
	WriteChannels() []string
	// Active reports whether this kernel runs on the given step, supporting
	// per-step-stride behaviour (spec.md §4.5: "stress only every k steps").
	Active(step int) bool
	// ExecuteLocal accumulates contributions between cl1's and cl2's local
	// storage into their private channels.
	ExecuteLocal(stream device.Stream, cl1, cl2 *celllist.CellList) error
	// ExecuteHalo accumulates contributions between cl1's local storage and
	// cl2's halo-sourced neighbours into cl1's private channels.
	ExecuteHalo(stream device.Stream, cl1, cl2 *celllist.CellList) error
}
