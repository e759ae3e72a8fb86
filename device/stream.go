// Package device stands in for the accelerator execution queue that every
// build/accumulate/gather/clear operation in the spec is asynchronous with
// respect to (spec.md §4.3, §4.2). The physics kernels themselves are
// explicit Non-goals (spec.md §1); this package only carries the handle
// those black-box kernels would be launched on, so the orchestration API
// shapes match spec.md even though this repository executes everything
// synchronously on the host.
package device

// Stream is an opaque handle to one device work queue. The zero value is
// the default stream.
type Stream struct {
	id int
}

// Default returns the default device stream, the one the scheduler's
// single-threaded orchestration posts all work to (spec.md §5).
func Default() Stream { return Stream{id: 0} }

// Sync blocks until all work previously posted to this stream has
// completed. A host-only build has nothing to wait for; real device
// backends would call their equivalent of cudaStreamSynchronize here.
func (s Stream) Sync() {}

// ID returns a small integer identifying the stream, useful for logging.
func (s Stream) ID() int { return s.id }
