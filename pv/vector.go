package pv

import "github.com/cpmech/gomero/comm"

// PV is the common capability set cell lists, the exchange layer, and the
// interaction manager program against; both Vector and ObjectVector
// satisfy it. Cell lists hold only a weak reference to their owning PV (a
// name plus this interface), never co-ownership — see DESIGN.md's note on
// breaking the PV/cell-list cyclic reference.
type PV interface {
	Name() string
	IsObject() bool
	LocalPartition() *Partition
	HaloPartition() *Partition
	// MotionStamp advances whenever Local positions change (integrate,
	// redistribute, belonging-split). CellList.Build compares this against
	// its own last-built stamp to decide whether a rebuild is needed.
	MotionStamp() int
	BumpMotion()
	// Checkpoint and Restart give sim.Driver a uniform way to persist every
	// registered PV/OV without a type switch (persist.go).
	Checkpoint(c comm.Communicator, folder, enctype string) error
	Restart(c comm.Communicator, folder, enctype string) error
}

// Vector is a plain ParticleVector: a named species with Local and Halo
// partitions and no object grouping (spec.md §3).
type Vector struct {
	VName string
	Local *Partition
	Halo  *Partition
	stamp int
}

// NewVector returns an empty ParticleVector named name.
func NewVector(name string) *Vector {
	return &Vector{VName: name, Local: NewPartition(), Halo: NewPartition()}
}

func (v *Vector) Name() string             { return v.VName }
func (v *Vector) IsObject() bool           { return false }
func (v *Vector) LocalPartition() *Partition { return v.Local }
func (v *Vector) HaloPartition() *Partition  { return v.Halo }
func (v *Vector) MotionStamp() int         { return v.stamp }
func (v *Vector) BumpMotion()              { v.stamp++ }
