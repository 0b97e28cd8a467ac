package udpcube

import "net"

// BatchSize is the number of datagrams requested per underlying receive
// call. On Linux this drives a single recvmmsg syscall; elsewhere it caps
// a run of sequential ReadFromUDP calls at BatchSize datagrams.
const BatchSize = 64

// BatchReader pulls fixed-size SMS datagrams off a UDP socket in
// batches, amortizing the syscall overhead of the sensor's high packet
// rate.
type BatchReader struct {
	conn *net.UDPConn
	bufs [][]byte

	// platform holds the OS-specific receive state (e.g. an
	// *ipv4.PacketConn and its ipv4.Message batch on Linux), stashed as
	// an opaque value so this file stays platform-independent.
	platform any
}

// NewBatchReader wraps an already-bound UDP connection.
func NewBatchReader(conn *net.UDPConn) *BatchReader {
	bufs := make([][]byte, BatchSize)
	for i := range bufs {
		bufs[i] = make([]byte, PacketSize)
	}
	return &BatchReader{conn: conn, bufs: bufs}
}

// ReadBatch blocks until at least one datagram is available, then
// returns as many as arrived in one underlying receive (up to
// BatchSize). The returned slices alias the reader's internal buffers
// and are only valid until the next call to ReadBatch.
func (r *BatchReader) ReadBatch() ([][]byte, error) {
	return r.readBatchPlatform()
}

// Close releases the underlying socket.
func (r *BatchReader) Close() error {
	return r.conn.Close()
}
