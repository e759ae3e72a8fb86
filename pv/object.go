package pv

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/simerr"
	"github.com/cpmech/gomero/xdata"
)

// Mesh is an immutable vertex/triangle topology shared across every object
// of one ObjectVector (spec.md §3, "Mesh (optional on OV)").
type Mesh struct {
	Verts [][3]float64 // reference-frame vertex coordinates, one per particle-in-object
	Tris  [][3]int     // triangle connectivity, indices into Verts
}

// ObjectVector is a ParticleVector whose particles are grouped into
// fixed-size objects (membranes, rigid bodies). Halo exchange of an
// ObjectVector ships whole objects, never individual particles (spec.md
// §3, §4.4).
type ObjectVector struct {
	Vector
	ObjectSize int // particles per object, fixed

	// per-object channels, one entry per object (not per particle)
	ObjLocal *xdata.Manager
	ObjHalo  *xdata.Manager

	mesh *Mesh
}

// NewObjectVector returns an empty ObjectVector named name, grouping
// particles into objects of objectSize particles each.
func NewObjectVector(name string, objectSize int) *ObjectVector {
	if objectSize <= 0 {
		panic(simerr.Newf(simerr.ConfigurationError, name, "object size must be positive, got %d", objectSize))
	}
	return &ObjectVector{
		Vector:     Vector{VName: name, Local: NewPartition(), Halo: NewPartition()},
		ObjectSize: objectSize,
		ObjLocal:   xdata.NewManager(0),
		ObjHalo:    xdata.NewManager(0),
	}
}

// IsObject always returns true for an ObjectVector, shadowing the embedded
// Vector.IsObject. A primary cell list is never constructed for a PV where
// IsObject() is true (spec.md §3 invariants).
func (o *ObjectVector) IsObject() bool { return true }

// SetMesh attaches the shared vertex/triangle topology. The mesh vertex
// count must equal ObjectSize, otherwise this is an InvariantViolation
// (spec.md §7 taxonomy: "object-size vs mesh-vertices mismatch").
func (o *ObjectVector) SetMesh(m *Mesh) error {
	if len(m.Verts) != o.ObjectSize {
		return simerr.Newf(simerr.InvariantViolation, o.Name(),
			"mesh has %d vertices but object size is %d", len(m.Verts), o.ObjectSize)
	}
	o.mesh = m
	return nil
}

// Mesh returns the attached mesh, or nil if none was set.
func (o *ObjectVector) Mesh() *Mesh { return o.mesh }

// NumObjects returns how many whole objects are resident locally.
func (o *ObjectVector) NumObjects() int {
	return o.Local.Count() / o.ObjectSize
}

// ObjectParticles returns the [start,end) particle index range of object
// idx within the Local partition.
func (o *ObjectVector) ObjectParticles(idx int) (start, end int) {
	return idx * o.ObjectSize, (idx + 1) * o.ObjectSize
}

// ObjectCOM returns the centre of mass of local object idx, unweighted
// over its particles (mass is a kernel-owned property the core does not
// interpret, per spec.md's Non-goals; this is a plain geometric centroid).
func (o *ObjectVector) ObjectCOM(idx int) r3.Vec {
	start, end := o.ObjectParticles(idx)
	var sum r3.Vec
	for i := start; i < end; i++ {
		sum = r3.Add(sum, o.Local.Pos[i])
	}
	n := float64(end - start)
	return r3.Scale(1/n, sum)
}

// ObjectExtent returns the axis-aligned bounding box of local object idx.
func (o *ObjectVector) ObjectExtent(idx int) (lo, hi r3.Vec) {
	start, end := o.ObjectParticles(idx)
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := start; i < end; i++ {
		p := o.Local.Pos[i]
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return
}

// ResizeObjects grows or shrinks the per-object channel managers to
// reflect the current NumObjects(), called after any operation that adds
// or removes whole objects (redistribute, halo exchange).
func (o *ObjectVector) ResizeObjects() {
	o.ObjLocal.Resize(o.NumObjects())
}
