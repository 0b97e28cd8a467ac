//go:build linux

package udpcube

import "golang.org/x/net/ipv4"

type linuxBatchState struct {
	pc   *ipv4.PacketConn
	msgs []ipv4.Message
}

// readBatchPlatform uses recvmmsg under the hood via x/net/ipv4's
// PacketConn.ReadBatch, collecting up to BatchSize datagrams per call.
func (r *BatchReader) readBatchPlatform() ([][]byte, error) {
	st, ok := r.platform.(*linuxBatchState)
	if !ok {
		st = &linuxBatchState{
			pc:   ipv4.NewPacketConn(r.conn),
			msgs: make([]ipv4.Message, BatchSize),
		}
		for i := range st.msgs {
			st.msgs[i].Buffers = [][]byte{r.bufs[i]}
		}
		r.platform = st
	}

	n, err := st.pc.ReadBatch(st.msgs, 0)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = st.msgs[i].Buffers[0][:st.msgs[i].N]
	}
	return out, nil
}
