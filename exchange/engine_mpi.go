package exchange

import (
	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/device"
)

// sizeTagBase and dataTagBase partition the wire tag space so a sizes
// message never collides with the payload message that follows it on the
// same fragment link.
const (
	sizeTagBase = 0
	dataTagBase = NumFragments
)

type mpiPending struct {
	ex         Exchanger
	sendCounts [NumFragments]int

	sizeSendReq [NumFragments]comm.Request
	sizeRecvReq [NumFragments]comm.Request
	sizeRecvBuf [NumFragments]*[]float64

	dataSendReq [NumFragments]comm.Request
	dataRecvReq [NumFragments]comm.Request
	dataRecvBuf [NumFragments]*[]float64
}

// MPIEngine implements Engine over a distributed Cartesian communicator.
// It exchanges per-fragment element counts first, then posts payload
// sends/receives sized from the results, matching the two-phase contract
// of spec.md §4.4 ("a fragment's payload size is never known a priori by
// the receiver"). GPUAware records whether the device buffers backing
// PackFragment/UnpackFragment may be handed directly to the MPI library
// without a host round-trip; this build has no device backend, so it only
// affects logging.
type MPIEngine struct {
	Comm     comm.Communicator
	GPUAware bool

	pending []mpiPending
}

// NewMPIEngine returns an Engine driving exchanges over c.
func NewMPIEngine(c comm.Communicator, gpuAware bool) *MPIEngine {
	return &MPIEngine{Comm: c, GPUAware: gpuAware}
}

func (e *MPIEngine) Init(stream device.Stream, exchangers []Exchanger) error {
	e.pending = make([]mpiPending, len(exchangers))
	for k, ex := range exchangers {
		if err := ex.PrepareSizes(stream); err != nil {
			return err
		}
		p := &e.pending[k]
		p.ex = ex
		p.sendCounts = ex.SendCounts()
		for i := 0; i < BulkFragment; i++ {
			d := FragmentDir(i)
			peer := e.Comm.RankOfFragment(d[0], d[1], d[2])
			if peer < 0 {
				continue
			}
			tag := sizeTagBase + pairTag(i)
			req, buf := e.Comm.IRecv(peer, tag, 1)
			p.sizeRecvReq[i] = req
			p.sizeRecvBuf[i] = buf
			p.sizeSendReq[i] = e.Comm.ISend(peer, tag, []float64{float64(p.sendCounts[i])})
		}
		if err := ex.PrepareData(stream); err != nil {
			return err
		}
	}

	for k := range e.pending {
		p := &e.pending[k]
		var recvCounts [NumFragments]int
		for i := 0; i < BulkFragment; i++ {
			if p.sizeRecvReq[i] == nil {
				continue
			}
			p.sizeRecvReq[i].Wait()
			p.sizeSendReq[i].Wait()
			recvCounts[i] = int((*p.sizeRecvBuf[i])[0])
		}
		p.ex.SetRecvCounts(recvCounts)

		width := p.ex.FloatsPerElement()
		for i := 0; i < BulkFragment; i++ {
			d := FragmentDir(i)
			peer := e.Comm.RankOfFragment(d[0], d[1], d[2])
			if peer < 0 {
				continue
			}
			tag := dataTagBase + pairTag(i)
			if recvCounts[i] > 0 {
				req, buf := e.Comm.IRecv(peer, tag, recvCounts[i]*width)
				p.dataRecvReq[i] = req
				p.dataRecvBuf[i] = buf
			}
			if p.sendCounts[i] > 0 {
				p.dataSendReq[i] = e.Comm.ISend(peer, tag, p.ex.PackFragment(i))
			}
		}
	}
	return nil
}

func (e *MPIEngine) Finalize(stream device.Stream, exchangers []Exchanger) error {
	for k := range e.pending {
		p := &e.pending[k]
		for i := 0; i < BulkFragment; i++ {
			if p.dataRecvReq[i] != nil {
				p.dataRecvReq[i].Wait()
				p.ex.UnpackFragment(i, *p.dataRecvBuf[i])
			}
			if p.dataSendReq[i] != nil {
				p.dataSendReq[i].Wait()
			}
		}
		if err := p.ex.CombineAndUploadData(stream); err != nil {
			return err
		}
	}
	e.pending = nil
	return nil
}
