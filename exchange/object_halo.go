package exchange

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/xdata"
)

// ObjectHaloExchanger ships whole objects whose bounding box lies within rc
// of a subdomain boundary to that neighbour, preserving per-particle and
// per-object channel data atomically (spec.md §3, §4.4: "halo exchange of
// an ObjectVector ships whole objects, never individual particles").
type ObjectHaloExchanger struct {
	OV        *pv.ObjectVector
	LocalSize r3.Vec
	Rc        float64

	particleExtraNames []string
	objectExtraNames   []string

	sendCounts [NumFragments]int
	sendBuf    [NumFragments][]float64

	recvCounts [NumFragments]int
	recvBuf    [NumFragments][]float64

	// LastMembership records the fragments each local object was assigned
	// to by the most recent PrepareSizes, so ObjectExtraExchanger and
	// ObjectReverseExchanger ship to exactly the same destinations without
	// recomputing bounding boxes (spec.md §4.4).
	LastMembership [][]int
}

// NewObjectHaloExchanger returns a halo exchanger for ov over a subdomain
// of extent localSize at halo margin rc.
func NewObjectHaloExchanger(ov *pv.ObjectVector, localSize r3.Vec, rc float64) *ObjectHaloExchanger {
	return &ObjectHaloExchanger{OV: ov, LocalSize: localSize, Rc: rc}
}

func (e *ObjectHaloExchanger) Name() string { return e.OV.Name() + ":objectHalo" }

func (e *ObjectHaloExchanger) particleExtraWidth() int {
	w := 0
	for _, name := range e.particleExtraNames {
		ch, _ := e.OV.Local.Extra.GetChannel(name)
		w += ch.Stride
	}
	return w
}

func (e *ObjectHaloExchanger) objectExtraWidth() int {
	w := 0
	for _, name := range e.objectExtraNames {
		ch, _ := e.OV.ObjLocal.GetChannel(name)
		w += ch.Stride
	}
	return w
}

// FloatsPerElement is one whole object: ObjectSize particle records plus
// the object's own persistent-channel values.
func (e *ObjectHaloExchanger) FloatsPerElement() int {
	return e.OV.ObjectSize*(8+e.particleExtraWidth()) + e.objectExtraWidth()
}

func (e *ObjectHaloExchanger) PrepareSizes(stream device.Stream) error {
	e.particleExtraNames = e.OV.Local.Extra.PersistentNames()
	e.objectExtraNames = e.OV.ObjLocal.PersistentNames()

	n := e.OV.NumObjects()
	membership := make([][]int, n)
	var counts [NumFragments]int
	for idx := 0; idx < n; idx++ {
		lo, hi := e.OV.ObjectExtent(idx)
		frags := boundingBoxFragments(lo, hi, e.LocalSize, e.Rc)
		membership[idx] = frags
		for _, f := range frags {
			counts[f]++
		}
	}
	e.LastMembership = membership
	e.sendCounts = counts
	stream.Sync()
	return nil
}

func (e *ObjectHaloExchanger) SendCounts() [NumFragments]int { return e.sendCounts }

func (e *ObjectHaloExchanger) PrepareData(stream device.Stream) error {
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
	for idx, frags := range e.LastMembership {
		if len(frags) == 0 {
			continue
		}
		start, end := e.OV.ObjectParticles(idx)
		for _, f := range frags {
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
	}
	e.sendBuf = bufs
	stream.Sync()
	return nil
}

func (e *ObjectHaloExchanger) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ObjectHaloExchanger) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ObjectHaloExchanger) UnpackFragment(i int, data []float64) { e.recvBuf[i] = data }

// CombineAndUploadData rebuilds Halo and ObjHalo from scratch, mirroring
// ParticleHaloExchanger's "halo is transient" contract at object
// granularity.
func (e *ObjectHaloExchanger) CombineAndUploadData(stream device.Stream) error {
	e.OV.Halo.Resize(0)
	e.OV.ObjHalo.Resize(0)
	for _, name := range e.particleExtraNames {
		ch, err := e.OV.Local.Extra.GetChannel(name)
		if err != nil {
			return err
		}
		if err := e.OV.Halo.Extra.CreateChannel(name, ch.Stride, ch.Persistence); err != nil {
			return err
		}
	}
	for _, name := range e.objectExtraNames {
		ch, err := e.OV.ObjLocal.GetChannel(name)
		if err != nil {
			return err
		}
		if err := e.OV.ObjHalo.CreateChannel(name, ch.Stride, ch.Persistence); err != nil {
			return err
		}
	}

	width := e.FloatsPerElement()
	objSize := e.OV.ObjectSize
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
			start := e.OV.Halo.Count()
			e.OV.Halo.Append(pos, vel, id1, id2)
			for k, name := range e.particleExtraNames {
				ch, _ := e.OV.Halo.Extra.GetChannel(name)
				copy(ch.Data[start*ch.Stride:], particleExtra[k])
			}

			objStart := e.OV.ObjHalo.Count()
			e.OV.ObjHalo.Resize(objStart + 1)
			for _, name := range e.objectExtraNames {
				ch, _ := e.OV.ObjHalo.GetChannel(name)
				s := ch.Stride
				copy(ch.Data[objStart*s:(objStart+1)*s], rec[cursor:cursor+s])
				cursor += s
			}
		}
	}
	stream.Sync()
	return nil
}
