//go:build !linux

package udpcube

import "time"

// readBatchPlatform falls back to sequential reads on platforms without
// recvmmsg. It blocks for the first datagram, then drains more without
// blocking further, up to BatchSize datagrams in total.
func (r *BatchReader) readBatchPlatform() ([][]byte, error) {
	n, _, err := r.conn.ReadFromUDP(r.bufs[0])
	if err != nil {
		return nil, err
	}
	out := [][]byte{r.bufs[0][:n]}

	for len(out) < BatchSize {
		r.conn.SetReadDeadline(time.Now())
		m, _, err := r.conn.ReadFromUDP(r.bufs[len(out)])
		if err != nil {
			break
		}
		out = append(out, r.bufs[len(out)][:m])
	}
	r.conn.SetReadDeadline(time.Time{})
	return out, nil
}
