package exchange

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simerr"
	"github.com/cpmech/gomero/xdata"
)

// ObjectRedistributor ships whole objects whose centre of mass has crossed
// into a neighbour subdomain to that neighbour, and drops them locally
// (spec.md §4.4). An object never splits across ranks: the departure
// decision is made once per object from its COM, never per particle.
type ObjectRedistributor struct {
	OV        *pv.ObjectVector
	LocalSize r3.Vec

	particleExtraNames []string
	objectExtraNames   []string

	objDest []int // per local object: fragment index, or -1 to stay

	sendCounts [NumFragments]int
	sendBuf    [NumFragments][]float64

	recvCounts [NumFragments]int
	recvBuf    [NumFragments][]float64
}

// NewObjectRedistributor returns a redistributor for ov over a subdomain of
// extent localSize.
func NewObjectRedistributor(ov *pv.ObjectVector, localSize r3.Vec) *ObjectRedistributor {
	return &ObjectRedistributor{OV: ov, LocalSize: localSize}
}

func (e *ObjectRedistributor) Name() string { return e.OV.Name() + ":objectRedistribute" }

func (e *ObjectRedistributor) particleExtraWidth() int {
	w := 0
	for _, name := range e.particleExtraNames {
		ch, _ := e.OV.Local.Extra.GetChannel(name)
		w += ch.Stride
	}
	return w
}

func (e *ObjectRedistributor) objectExtraWidth() int {
	w := 0
	for _, name := range e.objectExtraNames {
		ch, _ := e.OV.ObjLocal.GetChannel(name)
		w += ch.Stride
	}
	return w
}

func (e *ObjectRedistributor) FloatsPerElement() int {
	return e.OV.ObjectSize*(8+e.particleExtraWidth()) + e.objectExtraWidth()
}

func (e *ObjectRedistributor) PrepareSizes(stream device.Stream) error {
	e.particleExtraNames = e.OV.Local.Extra.PersistentNames()
	e.objectExtraNames = e.OV.ObjLocal.PersistentNames()

	n := e.OV.NumObjects()
	e.objDest = make([]int, n)
	var counts [NumFragments]int
	for idx := 0; idx < n; idx++ {
		com := e.OV.ObjectCOM(idx)
		frag, left := departureFragment(com, e.LocalSize)
		if !left {
			e.objDest[idx] = -1
			continue
		}
		e.objDest[idx] = frag
		counts[frag]++
	}
	e.sendCounts = counts
	stream.Sync()
	return nil
}

func (e *ObjectRedistributor) SendCounts() [NumFragments]int { return e.sendCounts }

func (e *ObjectRedistributor) PrepareData(stream device.Stream) error {
	width := e.FloatsPerElement()
	pChannels := make([]*xdata.Channel, len(e.particleExtraNames))
	for k, name := range e.particleExtraNames {
		ch, _ := e.OV.Local.Extra.GetChannel(name)
		pChannels[k] = ch
	}
	oChannels := make([]*xdata.Channel, len(e.objectExtraNames))
	for k, name := range e.objectExtraNames {
		ch, _ := e.OV.ObjLocal.GetChannel(name)
		oChannels[k] = ch
	}

	var bufs [NumFragments][]float64
	for i, c := range e.sendCounts {
		bufs[i] = make([]float64, 0, c*width)
	}
	for idx, f := range e.objDest {
		if f < 0 {
			continue
		}
		start, end := e.OV.ObjectParticles(idx)
		shift := shiftForFragment(f, e.LocalSize)
		rec := bufs[f]
		for pi := start; pi < end; pi++ {
			p := r3.Sub(e.OV.Local.Pos[pi], shift)
			v := e.OV.Local.Vel[pi]
			rec = append(rec, p.X, p.Y, p.Z, v.X, v.Y, v.Z, float64(e.OV.Local.Id1[pi]), float64(e.OV.Local.Id2[pi]))
			for _, ch := range pChannels {
				s := ch.Stride
				rec = append(rec, ch.Data[pi*s:(pi+1)*s]...)
			}
		}
		for _, ch := range oChannels {
			s := ch.Stride
			rec = append(rec, ch.Data[idx*s:(idx+1)*s]...)
		}
		bufs[f] = rec
	}
	e.sendBuf = bufs
	stream.Sync()
	return nil
}

func (e *ObjectRedistributor) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ObjectRedistributor) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ObjectRedistributor) UnpackFragment(i int, data []float64) { e.recvBuf[i] = data }

// CombineAndUploadData drops every departed object's particles from Local,
// compacts ObjLocal to match, and appends every arrived object.
func (e *ObjectRedistributor) CombineAndUploadData(stream device.Stream) error {
	if e.sendCounts[BulkFragment] != 0 {
		return simerr.Newf(simerr.InvariantViolation, e.OV.Name(),
			"object redistribute assigned %d objects to the bulk fragment, which never departs", e.sendCounts[BulkFragment])
	}
	objSize := e.OV.ObjectSize

	keepParticles := make([]bool, e.OV.Local.Count())
	keepObjects := make([]bool, len(e.objDest))
	for idx, f := range e.objDest {
		stay := f < 0
		keepObjects[idx] = stay
		start, end := e.OV.ObjectParticles(idx)
		for pi := start; pi < end; pi++ {
			keepParticles[pi] = stay
		}
	}
	e.OV.Local.KeepMask(keepParticles)
	compactObjectChannels(e.OV.ObjLocal, keepObjects)

	width := e.FloatsPerElement()
	for i := 0; i < NumFragments; i++ {
		n := e.recvCounts[i]
		if n == 0 {
			continue
		}
		data := e.recvBuf[i]
		for obj := 0; obj < n; obj++ {
			rec := data[obj*width : (obj+1)*width]
			pos := make([]r3.Vec, objSize)
			vel := make([]r3.Vec, objSize)
			id1 := make([]uint32, objSize)
			id2 := make([]uint32, objSize)
			particleExtra := make([][]float64, len(e.particleExtraNames))
			cursor := 0
			for pi := 0; pi < objSize; pi++ {
				pos[pi] = r3.Vec{X: rec[cursor], Y: rec[cursor+1], Z: rec[cursor+2]}
				vel[pi] = r3.Vec{X: rec[cursor+3], Y: rec[cursor+4], Z: rec[cursor+5]}
				id1[pi] = uint32(rec[cursor+6])
				id2[pi] = uint32(rec[cursor+7])
				cursor += 8
				for k, name := range e.particleExtraNames {
					ch, _ := e.OV.Local.Extra.GetChannel(name)
					s := ch.Stride
					particleExtra[k] = append(particleExtra[k], rec[cursor:cursor+s]...)
					cursor += s
				}
			}
			start := e.OV.Local.Count()
			e.OV.Local.Append(pos, vel, id1, id2)
			for k, name := range e.particleExtraNames {
				ch, _ := e.OV.Local.Extra.GetChannel(name)
				copy(ch.Data[start*ch.Stride:], particleExtra[k])
			}

			objStart := e.OV.ObjLocal.Count()
			e.OV.ObjLocal.Resize(objStart + 1)
			for _, name := range e.objectExtraNames {
				ch, _ := e.OV.ObjLocal.GetChannel(name)
				s := ch.Stride
				copy(ch.Data[objStart*s:(objStart+1)*s], rec[cursor:cursor+s])
				cursor += s
			}
		}
	}
	e.OV.BumpMotion()
	stream.Sync()
	return nil
}

// compactObjectChannels keeps only the per-object channel rows where
// keep[idx] is true, mirroring pv.Partition.KeepMask at object (not
// particle) granularity.
func compactObjectChannels(m *xdata.Manager, keep []bool) {
	perm := make([]int, 0, len(keep))
	for idx, k := range keep {
		if k {
			perm = append(perm, idx)
		}
	}
	m.Reorder(paddedPerm(perm, m.Count()))
	m.Resize(len(perm))
}

// paddedPerm extends perm (which only lists surviving indices, in order) to
// a full-length permutation Manager.Reorder can apply: the surviving
// entries are moved to the front, in order, and the remainder is filled
// with the dropped indices so every slot of the (pre-Resize) manager has a
// distinct source.
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
