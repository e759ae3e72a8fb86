package exchange

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/simerr"
	"github.com/cpmech/gomero/xdata"
)

// ParticleRedistributor ships particles that have crossed out of the local
// subdomain to the rank that now owns them, and drops them from the local
// partition (spec.md §4.4). Unlike ParticleHaloExchanger, each departed
// particle belongs to exactly one destination fragment.
type ParticleRedistributor struct {
	PVObj     pv.PV
	LocalSize r3.Vec

	extraNames []string

	destination []int // per local particle: fragment index, or -1 to stay
	sendCounts  [NumFragments]int
	sendBuf     [NumFragments][]float64

	recvCounts [NumFragments]int
	recvBuf    [NumFragments][]float64
}

// NewParticleRedistributor returns a redistributor for p over a subdomain
// of extent localSize.
func NewParticleRedistributor(p pv.PV, localSize r3.Vec) *ParticleRedistributor {
	return &ParticleRedistributor{PVObj: p, LocalSize: localSize}
}

func (e *ParticleRedistributor) Name() string { return e.PVObj.Name() + ":redistribute" }

func (e *ParticleRedistributor) extraWidth() int {
	w := 0
	local := e.PVObj.LocalPartition()
	for _, name := range e.extraNames {
		ch, _ := local.Extra.GetChannel(name)
		w += ch.Stride
	}
	return w
}

func (e *ParticleRedistributor) FloatsPerElement() int { return 8 + e.extraWidth() }

func (e *ParticleRedistributor) PrepareSizes(stream device.Stream) error {
	local := e.PVObj.LocalPartition()
	e.extraNames = local.Extra.PersistentNames()

	n := local.Count()
	e.destination = make([]int, n)
	var counts [NumFragments]int
	for i, p := range local.Pos {
		frag, left := departureFragment(p, e.LocalSize)
		if !left {
			e.destination[i] = -1
			continue
		}
		e.destination[i] = frag
		counts[frag]++
	}
	e.sendCounts = counts
	stream.Sync()
	return nil
}

func (e *ParticleRedistributor) SendCounts() [NumFragments]int { return e.sendCounts }

func (e *ParticleRedistributor) PrepareData(stream device.Stream) error {
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
	for idx, f := range e.destination {
		if f < 0 {
			continue
		}
		p := r3.Sub(local.Pos[idx], shiftForFragment(f, e.LocalSize))
		v := local.Vel[idx]
		rec := bufs[f]
		rec = append(rec, p.X, p.Y, p.Z, v.X, v.Y, v.Z, float64(local.Id1[idx]), float64(local.Id2[idx]))
		for _, ch := range channels {
			s := ch.Stride
			rec = append(rec, ch.Data[idx*s:(idx+1)*s]...)
		}
		bufs[f] = rec
	}
	e.sendBuf = bufs
	stream.Sync()
	return nil
}

func (e *ParticleRedistributor) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ParticleRedistributor) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ParticleRedistributor) UnpackFragment(i int, data []float64) { e.recvBuf[i] = data }

// CombineAndUploadData drops every departed particle from the local
// partition and appends every arrived particle, bumping the PV's motion
// stamp so dependent cell lists rebuild (spec.md §4.3).
func (e *ParticleRedistributor) CombineAndUploadData(stream device.Stream) error {
	if e.sendCounts[BulkFragment] != 0 {
		return simerr.Newf(simerr.InvariantViolation, e.PVObj.Name(),
			"redistribute assigned %d particles to the bulk fragment, which never departs", e.sendCounts[BulkFragment])
	}
	local := e.PVObj.LocalPartition()

	keep := make([]bool, local.Count())
	for i, f := range e.destination {
		keep[i] = f < 0
	}
	local.KeepMask(keep)

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
		start := local.Count()
		local.Append(pos, vel, id1, id2)
		for k, name := range e.extraNames {
			ch, _ := local.Extra.GetChannel(name)
			copy(ch.Data[start*ch.Stride:], extraVals[k])
		}
	}
	e.PVObj.BumpMotion()
	stream.Sync()
	return nil
}
