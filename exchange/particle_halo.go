package exchange

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/xdata"
)

// ParticleHaloExchanger ships read-only ghost copies of a plain Vector's
// boundary particles to every neighbour whose subdomain lies within rc
// (spec.md §4.4). It never removes particles from the local partition; the
// shipped copies only ever land in the receiver's Halo partition.
type ParticleHaloExchanger struct {
	PVObj     pv.PV
	LocalSize r3.Vec
	Rc        float64

	extraNames []string

	membership [][]int // per local particle, the fragments it is haloed into
	sendCounts [NumFragments]int
	sendBuf    [NumFragments][]float64

	recvCounts [NumFragments]int
	recvBuf    [NumFragments][]float64
}

// NewParticleHaloExchanger returns a halo exchanger for p over a subdomain
// of extent localSize at halo thickness rc (ordinarily the owning PV's
// largest registered cell-list cutoff, spec.md §4.5).
func NewParticleHaloExchanger(p pv.PV, localSize r3.Vec, rc float64) *ParticleHaloExchanger {
	return &ParticleHaloExchanger{PVObj: p, LocalSize: localSize, Rc: rc}
}

func (e *ParticleHaloExchanger) Name() string { return e.PVObj.Name() + ":halo" }

func (e *ParticleHaloExchanger) extraWidth() int {
	w := 0
	local := e.PVObj.LocalPartition()
	for _, name := range e.extraNames {
		ch, _ := local.Extra.GetChannel(name)
		w += ch.Stride
	}
	return w
}

// FloatsPerElement is 3 (pos) + 3 (vel) + 2 (ids) + the flattened width of
// every persistent channel, in PersistentNames order.
func (e *ParticleHaloExchanger) FloatsPerElement() int { return 8 + e.extraWidth() }

func (e *ParticleHaloExchanger) PrepareSizes(stream device.Stream) error {
	local := e.PVObj.LocalPartition()
	e.extraNames = local.Extra.PersistentNames()

	n := local.Count()
	e.membership = make([][]int, n)
	var counts [NumFragments]int
	for i, p := range local.Pos {
		frags := haloFragments(p, e.LocalSize, e.Rc)
		e.membership[i] = frags
		for _, f := range frags {
			counts[f]++
		}
	}
	e.sendCounts = counts
	stream.Sync()
	return nil
}

func (e *ParticleHaloExchanger) SendCounts() [NumFragments]int { return e.sendCounts }

func (e *ParticleHaloExchanger) PrepareData(stream device.Stream) error {
	local := e.PVObj.LocalPartition()
	width := e.FloatsPerElement()
	channels := make([]*xdata.Channel, len(e.extraNames))
	for k, name := range e.extraNames {
		ch, _ := local.Extra.GetChannel(name)
		channels[k] = ch
	}

	var bufs [NumFragments][]float64
	for i, c := range e.sendCounts {
		bufs[i] = make([]float64, 0, c*width)
	}
	for idx, frags := range e.membership {
		if len(frags) == 0 {
			continue
		}
		v := local.Vel[idx]
		id1, id2 := local.Id1[idx], local.Id2[idx]
		for _, f := range frags {
			p := r3.Sub(local.Pos[idx], shiftForFragment(f, e.LocalSize))
			rec := bufs[f]
			rec = append(rec, p.X, p.Y, p.Z, v.X, v.Y, v.Z, float64(id1), float64(id2))
			for _, ch := range channels {
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

func (e *ParticleHaloExchanger) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ParticleHaloExchanger) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ParticleHaloExchanger) UnpackFragment(i int, data []float64) {
	e.recvBuf[i] = data
}

// CombineAndUploadData rebuilds the Halo partition from scratch: halo
// contents are only ever valid for the step they were exchanged in (spec.md
// §3: "Halo is transient, replaced wholesale every exchange").
func (e *ParticleHaloExchanger) CombineAndUploadData(stream device.Stream) error {
	local := e.PVObj.LocalPartition()
	halo := e.PVObj.HaloPartition()
	halo.Resize(0)
	for _, name := range e.extraNames {
		ch, err := local.Extra.GetChannel(name)
		if err != nil {
			return err
		}
		if err := halo.Extra.CreateChannel(name, ch.Stride, ch.Persistence); err != nil {
			return err
		}
	}

	width := e.FloatsPerElement()
	for i := 0; i < NumFragments; i++ {
		n := e.recvCounts[i]
		if n == 0 {
			continue
		}
		data := e.recvBuf[i]
		pos := make([]r3.Vec, n)
		vel := make([]r3.Vec, n)
		id1 := make([]uint32, n)
		id2 := make([]uint32, n)
		extraVals := make([][]float64, len(e.extraNames))
		off := 0
		for j := 0; j < n; j++ {
			rec := data[off : off+width]
			pos[j] = r3.Vec{X: rec[0], Y: rec[1], Z: rec[2]}
			vel[j] = r3.Vec{X: rec[3], Y: rec[4], Z: rec[5]}
			id1[j] = uint32(rec[6])
			id2[j] = uint32(rec[7])
			cursor := 8
			for k, name := range e.extraNames {
				ch, _ := local.Extra.GetChannel(name)
				s := ch.Stride
				extraVals[k] = append(extraVals[k], rec[cursor:cursor+s]...)
				cursor += s
			}
			off += width
		}
		start := halo.Count()
		halo.Append(pos, vel, id1, id2)
		for k, name := range e.extraNames {
			ch, _ := halo.Extra.GetChannel(name)
			copy(ch.Data[start*ch.Stride:], extraVals[k])
		}
	}
	stream.Sync()
	return nil
}
