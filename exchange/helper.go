package exchange

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/simerr"
)

// ParticleRecord is one packed particle: position already shifted into
// the receiver's local frame, velocity, the two id fields, and the flat
// concatenation of this PV's persistent channels in sorted-name order
// (spec.md §3, §4.4).
type ParticleRecord struct {
	Pos   r3.Vec
	Vel   r3.Vec
	Id1   uint32
	Id2   uint32
	Extra []float64
}

// ObjectRecord is one packed whole object: its particles plus its
// per-object persistent channel values, shipped atomically so that no
// partial object ever appears in a halo (spec.md §3 invariants).
type ObjectRecord struct {
	Particles []ParticleRecord
	Extra     []float64
}

// Helper is ExchangeHelper: per (PV, kind) send/recv sizes, offsets, and
// buffers. Buffers are grow-only, standing in for spec.md §4.4's pinned
// device memory (spec.md §5's "Exchange buffers are exclusively owned by
// their ExchangeHelper").
type Helper[T any] struct {
	Name string

	SendSizes   [NumFragments]int
	SendOffsets [NumFragments]int
	SendBuf     []T

	RecvSizes   [NumFragments]int
	RecvOffsets [NumFragments]int
	RecvBuf     []T
}

// NewHelper returns an empty helper identified by name, e.g.
// "waterBeads:halo".
func NewHelper[T any](name string) *Helper[T] {
	return &Helper[T]{Name: name}
}

func prefixSum(sizes [NumFragments]int) (offsets [NumFragments]int, total int) {
	sum := 0
	for i, s := range sizes {
		offsets[i] = sum
		sum += s
	}
	return offsets, sum
}

// SetSendSizes records how many items go to each fragment and grows
// SendBuf (never shrinks capacity) to fit the new total.
func (h *Helper[T]) SetSendSizes(sizes [NumFragments]int) {
	h.SendSizes = sizes
	offsets, total := prefixSum(sizes)
	h.SendOffsets = offsets
	if cap(h.SendBuf) < total {
		grown := make([]T, total)
		copy(grown, h.SendBuf)
		h.SendBuf = grown
	}
	h.SendBuf = h.SendBuf[:total]
}

// SendSlice returns the portion of SendBuf reserved for fragment i.
func (h *Helper[T]) SendSlice(i int) []T {
	return h.SendBuf[h.SendOffsets[i] : h.SendOffsets[i]+h.SendSizes[i]]
}

// SetRecvSizes records how many items arrived in each fragment (filled in
// by the ExchangeEngine during finalize) and grows RecvBuf to match.
func (h *Helper[T]) SetRecvSizes(sizes [NumFragments]int) {
	h.RecvSizes = sizes
	offsets, total := prefixSum(sizes)
	h.RecvOffsets = offsets
	if cap(h.RecvBuf) < total {
		grown := make([]T, total)
		copy(grown, h.RecvBuf)
		h.RecvBuf = grown
	}
	h.RecvBuf = h.RecvBuf[:total]
}

// RecvSlice returns the portion of RecvBuf holding what arrived from
// fragment i.
func (h *Helper[T]) RecvSlice(i int) []T {
	return h.RecvBuf[h.RecvOffsets[i] : h.RecvOffsets[i]+h.RecvSizes[i]]
}

// TotalSend returns sum(SendSizes).
func (h *Helper[T]) TotalSend() int {
	n := 0
	for _, s := range h.SendSizes {
		n += s
	}
	return n
}

// TotalRecv returns sum(RecvSizes).
func (h *Helper[T]) TotalRecv() int {
	n := 0
	for _, s := range h.RecvSizes {
		n += s
	}
	return n
}

// CheckNoBulk returns an InvariantViolation if the bulk (self) fragment
// carries any send payload; a non-empty self-message indicates a broken
// exchanger (spec.md §4.4, ParticleRedistributor contract).
func (h *Helper[T]) CheckNoBulk() error {
	if h.SendSizes[BulkFragment] != 0 {
		return simerr.Newf(simerr.InvariantViolation, h.Name,
			"bulk (self) fragment is non-empty: %d items", h.SendSizes[BulkFragment])
	}
	return nil
}
