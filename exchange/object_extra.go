package exchange

import "github.com/cpmech/gomero/device"
import "github.com/cpmech/gomero/xdata"

// ObjectExtraExchanger forwards additional per-particle channel values to
// halo copies an ObjectHaloExchanger has already established, reusing its
// most recent fragment assignment so the destinations never need
// recomputing (spec.md §4.4: "a later stage may push more channels to an
// existing halo without re-deriving membership").
type ObjectExtraExchanger struct {
	Halo  *ObjectHaloExchanger
	Names []string

	sendBuf    [NumFragments][]float64
	recvBuf    [NumFragments][]float64
	recvCounts [NumFragments]int
}

// NewObjectExtraExchanger forwards the named Local persistent channels of
// halo.OV to the halo copies halo last established.
func NewObjectExtraExchanger(halo *ObjectHaloExchanger, names []string) *ObjectExtraExchanger {
	return &ObjectExtraExchanger{Halo: halo, Names: names}
}

func (e *ObjectExtraExchanger) Name() string { return e.Halo.OV.Name() + ":objectExtra" }

func (e *ObjectExtraExchanger) channels(m *xdata.Manager) []*xdata.Channel {
	out := make([]*xdata.Channel, len(e.Names))
	for k, name := range e.Names {
		ch, _ := m.GetChannel(name)
		out[k] = ch
	}
	return out
}

func (e *ObjectExtraExchanger) perParticleWidth() int {
	w := 0
	for _, ch := range e.channels(e.Halo.OV.Local.Extra) {
		w += ch.Stride
	}
	return w
}

func (e *ObjectExtraExchanger) FloatsPerElement() int {
	return e.Halo.OV.ObjectSize * e.perParticleWidth()
}

func (e *ObjectExtraExchanger) PrepareSizes(stream device.Stream) error { stream.Sync(); return nil }

// SendCounts mirrors the halo exchanger's most recent object counts per
// fragment: these channels ride the same destinations.
func (e *ObjectExtraExchanger) SendCounts() [NumFragments]int { return e.Halo.sendCounts }

func (e *ObjectExtraExchanger) PrepareData(stream device.Stream) error {
	chans := e.channels(e.Halo.OV.Local.Extra)
	width := e.FloatsPerElement()
	var bufs [NumFragments][]float64
	for i, c := range e.Halo.sendCounts {
		bufs[i] = make([]float64, 0, c*width)
	}
	for idx, frags := range e.Halo.LastMembership {
		if len(frags) == 0 {
			continue
		}
		start, end := e.Halo.OV.ObjectParticles(idx)
		for _, f := range frags {
			rec := bufs[f]
			for pi := start; pi < end; pi++ {
				for _, ch := range chans {
					s := ch.Stride
					rec = append(rec, ch.Data[pi*s:(pi+1)*s]...)
				}
			}
			bufs[f] = rec
		}
	}
	e.sendBuf = bufs
	stream.Sync()
	return nil
}

func (e *ObjectExtraExchanger) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ObjectExtraExchanger) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ObjectExtraExchanger) UnpackFragment(i int, data []float64) { e.recvBuf[i] = data }

// CombineAndUploadData writes the forwarded values into OV.Halo at the same
// per-fragment particle offsets ObjectHaloExchanger.CombineAndUploadData
// used when it built those halo entries, since both walk fragments 0..25 in
// the same arrival order.
func (e *ObjectExtraExchanger) CombineAndUploadData(stream device.Stream) error {
	for _, name := range e.Names {
		if e.Halo.OV.Halo.Extra.CheckExists(name) {
			continue
		}
		ch, err := e.Halo.OV.Local.Extra.GetChannel(name)
		if err != nil {
			return err
		}
		if err := e.Halo.OV.Halo.Extra.CreateChannel(name, ch.Stride, ch.Persistence); err != nil {
			return err
		}
	}

	chans := e.channels(e.Halo.OV.Halo.Extra)
	width := e.perParticleWidth()
	objSize := e.Halo.OV.ObjectSize
	particleOffset := 0
	for i := 0; i < NumFragments; i++ {
		n := e.recvCounts[i]
		if n == 0 {
			continue
		}
		data := e.recvBuf[i]
		for obj := 0; obj < n; obj++ {
			for pi := 0; pi < objSize; pi++ {
				rec := data[(obj*objSize+pi)*width : (obj*objSize+pi+1)*width]
				target := particleOffset + obj*objSize + pi
				cursor := 0
				for _, ch := range chans {
					s := ch.Stride
					copy(ch.Data[target*s:(target+1)*s], rec[cursor:cursor+s])
					cursor += s
				}
			}
		}
		particleOffset += n * objSize
	}
	stream.Sync()
	return nil
}

// ObjectReverseExchanger ships per-particle results computed on halo copies
// back to the rank that owns the originals, accumulating (summing) into its
// Local channels so an object straddling more than one neighbour's halo
// receives every contribution exactly once (spec.md §4.4, §7's "exactly
// once per owned particle" force-accumulation contract, applied at object
// granularity).
type ObjectReverseExchanger struct {
	Halo  *ObjectHaloExchanger
	Names []string

	sendBuf    [NumFragments][]float64
	recvBuf    [NumFragments][]float64
	recvCounts [NumFragments]int
}

// NewObjectReverseExchanger reduces the named Halo persistent channels of
// halo.OV back into the corresponding Local channels.
func NewObjectReverseExchanger(halo *ObjectHaloExchanger, names []string) *ObjectReverseExchanger {
	return &ObjectReverseExchanger{Halo: halo, Names: names}
}

func (e *ObjectReverseExchanger) Name() string { return e.Halo.OV.Name() + ":objectReverse" }

func (e *ObjectReverseExchanger) channels(m *xdata.Manager) []*xdata.Channel {
	out := make([]*xdata.Channel, len(e.Names))
	for k, name := range e.Names {
		ch, _ := m.GetChannel(name)
		out[k] = ch
	}
	return out
}

func (e *ObjectReverseExchanger) perParticleWidth() int {
	w := 0
	for _, ch := range e.channels(e.Halo.OV.Halo.Extra) {
		w += ch.Stride
	}
	return w
}

func (e *ObjectReverseExchanger) FloatsPerElement() int {
	return e.Halo.OV.ObjectSize * e.perParticleWidth()
}

func (e *ObjectReverseExchanger) PrepareSizes(stream device.Stream) error { stream.Sync(); return nil }

// SendCounts is the halo exchanger's most recent recv counts: this rank
// ships results for exactly the halo copies it was given.
func (e *ObjectReverseExchanger) SendCounts() [NumFragments]int { return e.Halo.recvCounts }

func (e *ObjectReverseExchanger) PrepareData(stream device.Stream) error {
	chans := e.channels(e.Halo.OV.Halo.Extra)
	width := e.perParticleWidth()
	objSize := e.Halo.OV.ObjectSize
	var bufs [NumFragments][]float64
	particleOffset := 0
	for i := 0; i < NumFragments; i++ {
		n := e.Halo.recvCounts[i]
		if n == 0 {
			continue
		}
		rec := make([]float64, 0, n*objSize*width)
		for obj := 0; obj < n; obj++ {
			for pi := 0; pi < objSize; pi++ {
				idx := particleOffset + obj*objSize + pi
				for _, ch := range chans {
					s := ch.Stride
					rec = append(rec, ch.Data[idx*s:(idx+1)*s]...)
				}
			}
		}
		bufs[i] = rec
		particleOffset += n * objSize
	}
	e.sendBuf = bufs
	stream.Sync()
	return nil
}

func (e *ObjectReverseExchanger) PackFragment(i int) []float64 { return e.sendBuf[i] }

func (e *ObjectReverseExchanger) SetRecvCounts(counts [NumFragments]int) { e.recvCounts = counts }

func (e *ObjectReverseExchanger) UnpackFragment(i int, data []float64) { e.recvBuf[i] = data }

// CombineAndUploadData accumulates every returned contribution into Local,
// walking the same (object, fragment) order PrepareData used on the
// forward send so incoming records line up with their owning object.
func (e *ObjectReverseExchanger) CombineAndUploadData(stream device.Stream) error {
	local := e.Halo.OV.Local
	for _, name := range e.Names {
		if local.Extra.CheckExists(name) {
			continue
		}
		ch, err := e.Halo.OV.Halo.Extra.GetChannel(name)
		if err != nil {
			return err
		}
		if err := local.Extra.CreateChannel(name, ch.Stride, ch.Persistence); err != nil {
			return err
		}
	}
	chans := e.channels(local.Extra)
	width := e.perParticleWidth()
	objSize := e.Halo.OV.ObjectSize

	var cursor [NumFragments]int
	for idx, frags := range e.Halo.LastMembership {
		if len(frags) == 0 {
			continue
		}
		start, _ := e.Halo.OV.ObjectParticles(idx)
		for _, f := range frags {
			data := e.recvBuf[f]
			base := cursor[f]
			for pi := 0; pi < objSize; pi++ {
				rec := data[(base+pi)*width : (base+pi+1)*width]
				target := start + pi
				cOff := 0
				for _, ch := range chans {
					s := ch.Stride
					for k := 0; k < s; k++ {
						ch.Data[target*s+k] += rec[cOff+k]
					}
					cOff += s
				}
			}
			cursor[f] += objSize
		}
	}
	stream.Sync()
	return nil
}
