package exchange

import "github.com/cpmech/gomero/device"

// Exchanger is the per-(PV,kind) packing contract an ExchangeEngine drives
// through the two-phase init/finalize protocol (spec.md §4.4). Each
// concrete exchanger keeps its own per-fragment float64 buffers and only
// ever exposes flat float64 payloads to the engine, so a single Engine
// implementation drives every exchanger kind without knowing its element
// layout.
type Exchanger interface {
	// Name identifies this exchanger for logging, e.g. "waterBeads:halo".
	Name() string

	// PrepareSizes computes how many elements (not floats) this rank will
	// send to each fragment. Called once per step, before PrepareData.
	PrepareSizes(stream device.Stream) error
	// SendCounts returns the element counts per fragment computed by the
	// most recent PrepareSizes.
	SendCounts() [NumFragments]int
	// FloatsPerElement returns the fixed number of float64s one packed
	// element occupies; constant for a given exchanger instance.
	FloatsPerElement() int
	// PrepareData marshals this rank's local data into per-fragment
	// buffers, ready for PackFragment. Called after PrepareSizes.
	PrepareData(stream device.Stream) error
	// PackFragment returns the flat float64 payload for fragment i, valid
	// after PrepareData.
	PackFragment(i int) []float64

	// SetRecvCounts records how many elements arrived from each fragment,
	// supplied by the engine once sizes have been exchanged.
	SetRecvCounts(counts [NumFragments]int)
	// UnpackFragment hands the engine-delivered payload for fragment i back
	// to the exchanger so it can stage it for CombineAndUploadData.
	UnpackFragment(i int, data []float64)
	// CombineAndUploadData folds every unpacked fragment back into the
	// owning PV (or OV), completing the exchange. Called during Finalize,
	// after every fragment has been unpacked.
	CombineAndUploadData(stream device.Stream) error
}

// Engine is ExchangeEngine: drives the two-phase init/finalize contract
// across a batch of Exchangers in one call (spec.md §4.4, §5).
type Engine interface {
	// Init posts sizes exchange and payload sends/receives for every
	// exchanger in the batch, calling PrepareSizes then PrepareData on
	// each. Work on stream may continue while messages are in flight.
	Init(stream device.Stream, exchangers []Exchanger) error
	// Finalize waits for every posted message, delivers received payloads
	// via SetRecvCounts/UnpackFragment, and calls CombineAndUploadData on
	// every exchanger.
	Finalize(stream device.Stream, exchangers []Exchanger) error
}

// oppositeFragment returns the fragment slot reached by negating i's
// direction code; the bulk fragment is its own opposite.
func oppositeFragment(i int) int {
	if i == BulkFragment {
		return BulkFragment
	}
	d := FragmentDir(i)
	return FragmentIndex(-d[0], -d[1], -d[2])
}

// pairTag returns a tag shared by fragment i and its opposite, so that the
// sender's and the receiver's independently-computed fragment indices
// agree on the same wire tag for one logical neighbour link.
func pairTag(i int) int {
	j := oppositeFragment(i)
	if i < j {
		return i
	}
	return j
}
