package exchange

import (
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/gomero/device"
)

// SingleNodeEngine implements Engine for a one-subdomain run. There being
// no neighbour ranks, every fragment's outgoing payload is delivered to
// this same rank's opposite fragment slot, modelling a single periodic
// self-wrapped subdomain (spec.md §8 boundary behaviour: "a single-rank
// run never calls MPI, but still exercises the full init/finalize
// protocol"). A non-empty bulk fragment is only ever a ParticleRedistributor
// or ObjectRedistributor bug, never reachable from configuration, so this
// engine warns rather than failing.
type SingleNodeEngine struct{}

func (SingleNodeEngine) Init(stream device.Stream, exchangers []Exchanger) error {
	for _, ex := range exchangers {
		if err := ex.PrepareSizes(stream); err != nil {
			return err
		}
		if err := ex.PrepareData(stream); err != nil {
			return err
		}
	}
	return nil
}

func (SingleNodeEngine) Finalize(stream device.Stream, exchangers []Exchanger) error {
	for _, ex := range exchangers {
		sendCounts := ex.SendCounts()
		if sendCounts[BulkFragment] != 0 {
			io.Pf("warning: %s: bulk fragment carries %d elements on a single-subdomain run\n", ex.Name(), sendCounts[BulkFragment])
		}
		var recvCounts [NumFragments]int
		for i := 0; i < NumFragments; i++ {
			recvCounts[i] = sendCounts[oppositeFragment(i)]
		}
		ex.SetRecvCounts(recvCounts)
		for i := 0; i < NumFragments; i++ {
			if recvCounts[i] == 0 {
				continue
			}
			ex.UnpackFragment(i, ex.PackFragment(oppositeFragment(i)))
		}
		if err := ex.CombineAndUploadData(stream); err != nil {
			return err
		}
	}
	return nil
}
