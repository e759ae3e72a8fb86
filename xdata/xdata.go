// Package xdata implements ExtraDataManager: named, typed channel storage
// with a persistence flag, attached to every ParticleVector partition
// (spec.md §4.2). Channels model per-particle scalar/float3/float4/custom
// buffers; "typed" here means a fixed stride, not a Go generic type,
// mirroring the spec's emphasis on persistence and existence-checking
// rather than static typing.
package xdata

import (
	"sort"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/simerr"
)

// Persistence governs whether a channel survives redistribution/restart
// (Persistent) or is zeroed at the start of every step (Transient).
type Persistence int

const (
	Persistent Persistence = iota
	Transient
)

// Channel is one named buffer. Data is flat, length = count*Stride; a
// stride of 1 is a scalar channel, 3/4 are float3/float4, anything else is
// a "custom" channel of that width.
type Channel struct {
	Name        string
	Stride      int
	Persistence Persistence
	Data        []float64
}

// Manager owns the named channels of one ParticleVector partition (local
// or halo). It has no notion of which PV it belongs to: that ownership is
// expressed one level up, in pv.Vector.
type Manager struct {
	count    int
	channels map[string]*Channel
	order    []string // insertion order, for deterministic iteration
}

// NewManager returns an empty channel manager for a partition currently
// holding n particles.
func NewManager(n int) *Manager {
	return &Manager{count: n, channels: make(map[string]*Channel)}
}

// CreateChannel creates a channel of the given stride and persistence.
// Creating an already-existing channel with the same stride is a no-op
// (idempotent); a different stride is a ChannelTypeConflict.
func (m *Manager) CreateChannel(name string, stride int, persistence Persistence) error {
	if ch, ok := m.channels[name]; ok {
		if ch.Stride != stride {
			return simerr.Newf(simerr.ChannelTypeConflict, name,
				"channel already exists with stride %d, cannot recreate with stride %d", ch.Stride, stride)
		}
		return nil
	}
	m.channels[name] = &Channel{
		Name:        name,
		Stride:      stride,
		Persistence: persistence,
		Data:        make([]float64, m.count*stride),
	}
	m.order = append(m.order, name)
	return nil
}

// CheckExists reports whether a channel of the given name has been
// created.
func (m *Manager) CheckExists(name string) bool {
	_, ok := m.channels[name]
	return ok
}

// GetChannel returns the named channel, or an error if it does not exist.
func (m *Manager) GetChannel(name string) (*Channel, error) {
	ch, ok := m.channels[name]
	if !ok {
		return nil, chk.Err("xdata.GetChannel: no such channel %q", name)
	}
	return ch, nil
}

// ClearDevice zeroes the named channel. The stream parameter is accepted
// for API fidelity with an async device backend; see device.Stream.
func (m *Manager) ClearDevice(name string, stream device.Stream) error {
	ch, err := m.GetChannel(name)
	if err != nil {
		return err
	}
	for i := range ch.Data {
		ch.Data[i] = 0
	}
	stream.Sync()
	return nil
}

// ClearTransient zeroes every Transient channel. The driver calls this at
// the top of each step so that forces and other Transient fields begin
// zero-valued (spec.md §3 invariants); Persistent intermediate channels
// such as "density" are zeroed by interaction.Manager's clear steps.
func (m *Manager) ClearTransient(stream device.Stream) {
	for _, name := range m.order {
		ch := m.channels[name]
		if ch.Persistence == Transient {
			for i := range ch.Data {
				ch.Data[i] = 0
			}
		}
	}
	stream.Sync()
}

// Names returns channel names in creation order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// PersistentNames returns, in sorted order, the names of every Persistent
// channel. Sorted so that pack/unpack order is deterministic across ranks.
func (m *Manager) PersistentNames() []string {
	var out []string
	for _, name := range m.order {
		if m.channels[name].Persistence == Persistent {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns the number of particles this manager's channels are sized
// for.
func (m *Manager) Count() int { return m.count }

// Resize grows or shrinks every channel to hold n particles, zero-filling
// any newly added entries. Exchange buffers and PV storage only grow
// within a run (spec.md §3); callers that need monotonic growth enforce
// that at the call site, this method itself is happy to shrink too (used
// when redistribute removes departed particles).
func (m *Manager) Resize(n int) {
	for _, name := range m.order {
		ch := m.channels[name]
		newData := make([]float64, n*ch.Stride)
		copy(newData, ch.Data)
		ch.Data = newData
	}
	m.count = n
}

// Reorder applies permutation perm (perm[newIndex] = oldIndex) to every
// channel. Used by celllist.Build to place a ParticleVector's primary
// storage into cell-sorted order (spec.md §4.3).
func (m *Manager) Reorder(perm []int) {
	if len(perm) != m.count {
		chk.Panic("xdata.Reorder: permutation length %d does not match particle count %d", len(perm), m.count)
	}
	for _, name := range m.order {
		ch := m.channels[name]
		s := ch.Stride
		newData := make([]float64, len(ch.Data))
		for newIdx, oldIdx := range perm {
			copy(newData[newIdx*s:(newIdx+1)*s], ch.Data[oldIdx*s:(oldIdx+1)*s])
		}
		ch.Data = newData
	}
}

// AccumulateInto adds this manager's channel values (indexed by perm, a
// secondary-cell-list-style reordering) back into dst's channels, used by
// celllist.CellList.AccumulateChannels (spec.md §4.3).
func (m *Manager) AccumulateInto(dst *Manager, names []string, perm []int) error {
	for _, name := range names {
		src, err := m.GetChannel(name)
		if err != nil {
			return err
		}
		dstCh, err := dst.GetChannel(name)
		if err != nil {
			return err
		}
		if src.Stride != dstCh.Stride {
			return chk.Err("xdata.AccumulateInto: stride mismatch for channel %q: %d != %d", name, src.Stride, dstCh.Stride)
		}
		s := src.Stride
		for newIdx, oldIdx := range perm {
			for k := 0; k < s; k++ {
				dstCh.Data[oldIdx*s+k] += src.Data[newIdx*s+k]
			}
		}
	}
	return nil
}

// GatherFrom copies src's channel values into this manager's storage using
// perm (perm[newIndex] = oldIndex into src), the mirror of AccumulateInto,
// used by celllist.CellList.GatherChannels (spec.md §4.3).
func (m *Manager) GatherFrom(src *Manager, names []string, perm []int) error {
	for _, name := range names {
		srcCh, err := src.GetChannel(name)
		if err != nil {
			return err
		}
		dstCh, err := m.GetChannel(name)
		if err != nil {
			return err
		}
		if srcCh.Stride != dstCh.Stride {
			return chk.Err("xdata.GatherFrom: stride mismatch for channel %q: %d != %d", name, srcCh.Stride, dstCh.Stride)
		}
		s := srcCh.Stride
		for newIdx, oldIdx := range perm {
			copy(dstCh.Data[newIdx*s:(newIdx+1)*s], srcCh.Data[oldIdx*s:(oldIdx+1)*s])
		}
	}
	return nil
}
