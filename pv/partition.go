// Package pv implements ParticleVector and ObjectVector, the per-species
// particle containers of spec.md §3-4.1. A Vector holds a Local partition
// (particles resident in this subdomain) and a Halo partition (read-only
// ghost copies from neighbours, valid only between unpack and the next
// redistribute). An ObjectVector additionally groups fixed-size runs of
// particles into objects with their own per-object channels.
package pv

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/simerr"
	"github.com/cpmech/gomero/xdata"
)

// Partition is a contiguous sequence of particles: position, velocity, two
// 32-bit id fields, plus named extra channels (spec.md §3).
type Partition struct {
	Pos   []r3.Vec
	Vel   []r3.Vec
	Id1   []uint32
	Id2   []uint32
	Extra *xdata.Manager
}

// NewPartition returns an empty partition.
func NewPartition() *Partition {
	return &Partition{Extra: xdata.NewManager(0)}
}

// Count returns the number of particles currently in this partition.
func (p *Partition) Count() int { return len(p.Pos) }

// Resize grows or shrinks the partition to hold n particles, zero-filling
// new entries and truncating from the end when shrinking.
func (p *Partition) Resize(n int) {
	p.Pos = resizeVec(p.Pos, n)
	p.Vel = resizeVec(p.Vel, n)
	p.Id1 = resizeU32(p.Id1, n)
	p.Id2 = resizeU32(p.Id2, n)
	p.Extra.Resize(n)
}

func resizeVec(s []r3.Vec, n int) []r3.Vec {
	out := make([]r3.Vec, n)
	copy(out, s)
	return out
}

func resizeU32(s []uint32, n int) []uint32 {
	out := make([]uint32, n)
	copy(out, s)
	return out
}

// Reorder applies permutation perm (perm[newIndex] = oldIndex) to every
// field, used by celllist.Build to place the primary-owning PV into
// cell-sorted order (spec.md §4.3).
func (p *Partition) Reorder(perm []int) {
	if len(perm) != p.Count() {
		panic(simerr.New(simerr.InvariantViolation, "pv.Partition.Reorder: permutation length %d != particle count %d", len(perm), p.Count()))
	}
	newPos := make([]r3.Vec, len(perm))
	newVel := make([]r3.Vec, len(perm))
	newId1 := make([]uint32, len(perm))
	newId2 := make([]uint32, len(perm))
	for newIdx, oldIdx := range perm {
		newPos[newIdx] = p.Pos[oldIdx]
		newVel[newIdx] = p.Vel[oldIdx]
		newId1[newIdx] = p.Id1[oldIdx]
		newId2[newIdx] = p.Id2[oldIdx]
	}
	p.Pos, p.Vel, p.Id1, p.Id2 = newPos, newVel, newId1, newId2
	p.Extra.Reorder(perm)
}

// Append adds particles to the end of the partition, growing channel
// storage to match (channels are zero-filled for the appended range).
func (p *Partition) Append(pos, vel []r3.Vec, id1, id2 []uint32) {
	n := len(pos)
	if len(vel) != n || len(id1) != n || len(id2) != n {
		panic(simerr.New(simerr.InvariantViolation, "pv.Partition.Append: mismatched field lengths"))
	}
	p.Pos = append(p.Pos, pos...)
	p.Vel = append(p.Vel, vel...)
	p.Id1 = append(p.Id1, id1...)
	p.Id2 = append(p.Id2, id2...)
	p.Extra.Resize(p.Count())
}

// KeepMask compacts the partition in place, keeping only entries where
// keep[i] is true. Used by redistribute (particles that left the
// subdomain are dropped locally once shipped to their new owner) and by
// belonging-split (particles assigned to the "outside" PV are dropped
// from "inside").
func (p *Partition) KeepMask(keep []bool) {
	if len(keep) != p.Count() {
		panic(simerr.New(simerr.InvariantViolation, "pv.Partition.KeepMask: mask length %d != particle count %d", len(keep), p.Count()))
	}
	perm := make([]int, 0, p.Count())
	for i, k := range keep {
		if k {
			perm = append(perm, i)
		}
	}
	newPos := make([]r3.Vec, len(perm))
	newVel := make([]r3.Vec, len(perm))
	newId1 := make([]uint32, len(perm))
	newId2 := make([]uint32, len(perm))
	for newIdx, oldIdx := range perm {
		newPos[newIdx] = p.Pos[oldIdx]
		newVel[newIdx] = p.Vel[oldIdx]
		newId1[newIdx] = p.Id1[oldIdx]
		newId2[newIdx] = p.Id2[oldIdx]
	}
	p.Pos, p.Vel, p.Id1, p.Id2 = newPos, newVel, newId1, newId2
	p.Extra.Reorder(paddedPerm(perm, len(keep)))
	p.Extra.Resize(len(perm))
}

// paddedPerm extends perm (which only lists surviving indices, in order) to
// a full-length permutation Manager.Reorder can apply: the surviving
// entries are moved to the front, in order, and the remainder is filled
// with the dropped indices so every slot of the (pre-Resize) manager has a
// distinct source (mirrors exchange.paddedPerm at particle granularity).
func paddedPerm(perm []int, total int) []int {
	kept := make(map[int]bool, len(perm))
	for _, idx := range perm {
		kept[idx] = true
	}
	out := append([]int(nil), perm...)
	for idx := 0; idx < total; idx++ {
		if !kept[idx] {
			out = append(out, idx)
		}
	}
	return out
}
