// Package celllist implements the CellList family of spec.md §3-4.3: a
// uniform grid spatial index built from a ParticleVector for a given
// cutoff, used by the interaction manager to find neighbours within rc in
// O(1) per pair. A primary cell list (at most one per non-object PV) owns
// and reorders the PV's local storage in place; every other cell list on
// the same PV is secondary and keeps its own private reordered copy
// (spec.md §3 invariants).
package celllist

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simerr"
)

// CellList is a uniform grid over one PV's local particles at one cutoff.
type CellList struct {
	PV      pv.PV
	Rc      float64
	Primary bool

	localSize r3.Vec
	dims      [3]int
	cellSize  r3.Vec

	CellStarts []int // len = nCells+1, prefix sum
	CellSizes  []int // len = nCells
	// Order[oldIndex] = newIndex in the cell-sorted storage (spec.md
	// §4.3's "permutation mapping original-index → cell-sorted-index").
	Order []int

	private     *pv.Partition // nil for a primary cell list
	scatterPerm []int         // newIndex -> oldIndex, valid when private != nil

	lastBuiltStamp int
	built          bool
}

// New constructs a cell list for pvObj at cutoff rc over a subdomain of
// extent localSize. A primary cell list may never be requested for an
// ObjectVector (spec.md §3: "A primary cell list is never created for an
// OV").
func New(pvObj pv.PV, rc float64, localSize r3.Vec, primary bool) (*CellList, error) {
	if rc <= 0 {
		return nil, simerr.Newf(simerr.ConfigurationError, pvObj.Name(), "cell list cutoff must be positive, got %g", rc)
	}
	if primary && pvObj.IsObject() {
		return nil, simerr.Newf(simerr.InvariantViolation, pvObj.Name(), "a primary cell list cannot be created for an ObjectVector")
	}
	cl := &CellList{PV: pvObj, Rc: rc, Primary: primary, localSize: localSize, lastBuiltStamp: -1}
	cl.dims, cl.cellSize = gridFor(localSize, rc)
	if !primary {
		cl.private = pv.NewPartition()
	}
	return cl, nil
}

func gridFor(localSize r3.Vec, rc float64) ([3]int, r3.Vec) {
	dim := func(extent float64) (int, float64) {
		n := int(math.Floor(extent / rc))
		if n < 1 {
			n = 1
		}
		return n, extent / float64(n)
	}
	nx, cx := dim(localSize.X)
	ny, cy := dim(localSize.Y)
	nz, cz := dim(localSize.Z)
	return [3]int{nx, ny, nz}, r3.Vec{X: cx, Y: cy, Z: cz}
}

// Dims returns the number of cells along each axis.
func (cl *CellList) Dims() [3]int { return cl.dims }

// NumCells returns the total cell count.
func (cl *CellList) NumCells() int { return cl.dims[0] * cl.dims[1] * cl.dims[2] }

// NeedsRebuild reports whether the owning PV has moved since this cell
// list was last built.
func (cl *CellList) NeedsRebuild() bool {
	return !cl.built || cl.PV.MotionStamp() != cl.lastBuiltStamp
}

// CellOf projects a position (already in this rank's local frame) onto a
// cell index using row-major (x fastest) encoding. When clamp is true,
// out-of-grid coordinates are clamped into range (used for owned
// particles, guaranteed in-range, and by the kernels' halo loops to find
// the boundary cell nearest a halo particle); when false, out-of-grid
// coordinates report ok=false with id=-1.
func (cl *CellList) CellOf(p r3.Vec, clamp bool) (id int, ok bool) {
	ix, okx := cl.axisIndex(p.X, cl.cellSize.X, cl.dims[0], clamp)
	iy, oky := cl.axisIndex(p.Y, cl.cellSize.Y, cl.dims[1], clamp)
	iz, okz := cl.axisIndex(p.Z, cl.cellSize.Z, cl.dims[2], clamp)
	if !okx || !oky || !okz {
		return -1, false
	}
	return ix + iy*cl.dims[0] + iz*cl.dims[0]*cl.dims[1], true
}

func (cl *CellList) axisIndex(x, cellSize float64, dim int, clamp bool) (int, bool) {
	i := int(math.Floor(x / cellSize))
	if i < 0 || i >= dim {
		if !clamp {
			return -1, false
		}
		if i < 0 {
			i = 0
		}
		if i >= dim {
			i = dim - 1
		}
	}
	return i, true
}

// NeighborCells returns the (up to 27) cell ids adjacent to (and
// including) id, clipped to the grid boundary.
func (cl *CellList) NeighborCells(id int) []int {
	ix := id % cl.dims[0]
	iy := (id / cl.dims[0]) % cl.dims[1]
	iz := id / (cl.dims[0] * cl.dims[1])
	var out []int
	for dz := -1; dz <= 1; dz++ {
		z := iz + dz
		if z < 0 || z >= cl.dims[2] {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			y := iy + dy
			if y < 0 || y >= cl.dims[1] {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				x := ix + dx
				if x < 0 || x >= cl.dims[0] {
					continue
				}
				out = append(out, x+y*cl.dims[0]+z*cl.dims[0]*cl.dims[1])
			}
		}
	}
	return out
}

// storage returns the partition this cell list's cell-sorted data
// physically lives in: the owning PV's Local partition for a primary
// cell list, or this cell list's own private copy for a secondary one.
func (cl *CellList) storage() *pv.Partition {
	if cl.private != nil {
		return cl.private
	}
	return cl.PV.LocalPartition()
}

// Storage exposes the cell-sorted partition a Kernel iterates pairs over:
// cl.PV.LocalPartition() itself for a primary cell list, or this cell
// list's own private reordered copy for a secondary one. Index i here is
// always in cell-sorted order, consistent with CellStarts/CellSizes.
func (cl *CellList) Storage() *pv.Partition { return cl.storage() }

// Build computes each particle's cell id, prefix-sums cell sizes, and
// produces the permutation that places particles in cell-major order
// (spec.md §4.3). A primary cell list reorders the owning PV's local
// storage in place; a secondary cell list reorders into its own private
// storage, leaving the owning PV untouched.
func (cl *CellList) Build(stream device.Stream) error {
	if !cl.NeedsRebuild() {
		stream.Sync()
		return nil
	}
	owner := cl.PV.LocalPartition()
	var source *pv.Partition
	if cl.private == nil {
		source = owner
	} else {
		source = snapshot(owner)
	}
	n := source.Count()
	nCells := cl.NumCells()
	cellIdx := make([]int, n)
	cl.CellSizes = make([]int, nCells)
	for i, p := range source.Pos {
		id, _ := cl.CellOf(p, true) // owned particles are guaranteed in-range
		cellIdx[i] = id
		cl.CellSizes[id]++
	}
	cl.CellStarts = make([]int, nCells+1)
	for c := 0; c < nCells; c++ {
		cl.CellStarts[c+1] = cl.CellStarts[c] + cl.CellSizes[c]
	}
	cursor := append([]int(nil), cl.CellStarts[:nCells]...)
	newToOld := make([]int, n)
	oldToNew := make([]int, n)
	for i, c := range cellIdx {
		newPos := cursor[c]
		cursor[c]++
		newToOld[newPos] = i
		oldToNew[i] = newPos
	}
	source.Reorder(newToOld)
	if cl.private == nil {
		// owner and source are the same object: already reordered in place.
	} else {
		cl.private = source
		cl.scatterPerm = newToOld
	}
	cl.Order = oldToNew
	cl.lastBuiltStamp = cl.PV.MotionStamp()
	cl.built = true
	stream.Sync()
	return nil
}

func snapshot(p *pv.Partition) *pv.Partition {
	cp := pv.NewPartition()
	cp.Append(append([]r3.Vec(nil), p.Pos...), append([]r3.Vec(nil), p.Vel...),
		append([]uint32(nil), p.Id1...), append([]uint32(nil), p.Id2...))
	for _, name := range p.Extra.Names() {
		ch, _ := p.Extra.GetChannel(name)
		_ = cp.Extra.CreateChannel(name, ch.Stride, ch.Persistence)
		dst, _ := cp.Extra.GetChannel(name)
		copy(dst.Data, ch.Data)
	}
	return cp
}

// AccumulateChannels adds this cell list's private channel values back
// into the owning PV's channels, in original particle indexing. A primary
// cell list's data already lives in the owning PV, so this is a no-op.
func (cl *CellList) AccumulateChannels(names []string, stream device.Stream) error {
	defer stream.Sync()
	if cl.private == nil {
		return nil
	}
	return cl.private.Extra.AccumulateInto(cl.PV.LocalPartition().Extra, names, cl.scatterPerm)
}

// GatherChannels copies the owning PV's channel values into this cell
// list's private reordered layout. A primary cell list already shares
// storage with the PV, so this is a no-op.
func (cl *CellList) GatherChannels(names []string, stream device.Stream) error {
	defer stream.Sync()
	if cl.private == nil {
		return nil
	}
	return cl.private.Extra.GatherFrom(cl.PV.LocalPartition().Extra, names, cl.scatterPerm)
}

// ClearChannels zeroes the named channels on this cell list's own storage.
func (cl *CellList) ClearChannels(names []string, stream device.Stream) error {
	storage := cl.storage()
	for _, name := range names {
		if err := storage.Extra.ClearDevice(name, stream); err != nil {
			return err
		}
	}
	return nil
}

// Family holds every distinct cutoff's CellList registered for one PV
// (spec.md §3: "For every PV, the union of declared cell-list cutoffs
// yields a sorted deduplicated set; one cell list is built per distinct
// cutoff").
type Family struct {
	pv        pv.PV
	localSize r3.Vec
	lists     []*CellList
}

// NewFamily returns an empty cell-list family for pvObj.
func NewFamily(pvObj pv.PV, localSize r3.Vec) *Family {
	return &Family{pv: pvObj, localSize: localSize}
}

// EnsureCutoff registers rc, deduplicating against any existing cutoff
// within tolerance, and returns the (possibly newly constructed) cell
// list for it. The first cutoff registered for a non-object PV becomes
// primary; every subsequent one, and every cutoff on an ObjectVector, is
// secondary.
func (f *Family) EnsureCutoff(rc, tolerance float64) (*CellList, error) {
	for _, cl := range f.lists {
		if math.Abs(cl.Rc-rc) <= tolerance {
			return cl, nil
		}
	}
	primary := len(f.lists) == 0 && !f.pv.IsObject()
	cl, err := New(f.pv, rc, f.localSize, primary)
	if err != nil {
		return nil, err
	}
	f.lists = append(f.lists, cl)
	sort.Slice(f.lists, func(i, j int) bool { return f.lists[i].Rc < f.lists[j].Rc })
	return cl, nil
}

// Lists returns every cell list in the family, ascending by cutoff.
func (f *Family) Lists() []*CellList { return f.lists }

// Largest returns the cell list with the greatest cutoff, which drives
// this PV's halo exchange thickness (spec.md §4.5).
func (f *Family) Largest() *CellList {
	if len(f.lists) == 0 {
		return nil
	}
	return f.lists[len(f.lists)-1]
}

// SmallestCovering returns the smallest cell list whose cutoff is >= rc
// within tolerance, the selection rule spec.md §4.5 uses to assign each
// interaction to a cell list.
func (f *Family) SmallestCovering(rc, tolerance float64) (*CellList, error) {
	for _, cl := range f.lists {
		if cl.Rc+tolerance >= rc {
			return cl, nil
		}
	}
	return nil, simerr.Newf(simerr.InvariantViolation, f.pv.Name(),
		"no cell list covers requested cutoff %g (largest registered is %g)", rc, f.Largest().Rc)
}

// BuildAll builds every cell list in the family, primary first so that
// secondary lists snapshot the owning PV after the primary has reordered
// it: a secondary's scatter permutation indexes into the PV's order at its
// own build time, so building it before the primary would leave that
// permutation pointing at the wrong particles.
func (f *Family) BuildAll(stream device.Stream) error {
	for _, cl := range f.lists {
		if cl.Primary {
			if err := cl.Build(stream); err != nil {
				return err
			}
		}
	}
	for _, cl := range f.lists {
		if !cl.Primary {
			if err := cl.Build(stream); err != nil {
				return err
			}
		}
	}
	return nil
}
