package pipeline

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
)

// Sink is the orchestrator's sole publish surface, shared (read-mostly,
// cheaply cloneable) across every component that produces output.
// Implementers may back it with message passing, a trait-object-style
// indirection, or — as here — a concrete transport; the wire format
// the components hand it (CDR bytes plus a schema string) does not
// change either way.
type Sink interface {
	// Publish sends payload under topic, tagged with schema for
	// middleware routing. It may block under congestion; it never
	// silently reorders a single producer's own stream.
	Publish(topic string, payload []byte, schema string) error
}

// UDPSink publishes each message as one UDP datagram carrying a small
// self-describing envelope (topic, schema, payload), framed the same
// way the teacher frames its forwarded packets: a dedicated send
// goroutine owns the socket, reached through a channel so Publish
// itself never performs the syscall.
type UDPSink struct {
	conn    *net.UDPConn
	ch      chan envelope
	done    chan struct{}
	closeMu sync.Once
}

type envelope struct {
	topic, schema string
	payload       []byte
}

// NewUDPSink dials addr (typically a multicast group the middleware
// bridge listens on) and starts the background send loop.
func NewUDPSink(addr string) (*UDPSink, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolve sink address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("pipeline: dial sink address: %w", err)
	}
	s := &UDPSink{
		conn: conn,
		ch:   make(chan envelope, 64),
		done: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *UDPSink) run() {
	for {
		select {
		case e := <-s.ch:
			if _, err := s.conn.Write(encodeEnvelope(e)); err != nil {
				rlog.Debugf("pipeline: sink write failed for topic %s: %v", e.topic, err)
			}
		case <-s.done:
			return
		}
	}
}

// Publish blocks if the send channel is saturated: the bridge queue
// and the sink both apply backpressure upward rather than reorder or
// silently drop a stream's own messages.
func (s *UDPSink) Publish(topic string, payload []byte, schema string) error {
	select {
	case s.ch <- envelope{topic: topic, schema: schema, payload: payload}:
		return nil
	case <-s.done:
		return fmt.Errorf("pipeline: sink closed")
	}
}

// Close stops the send loop and releases the socket.
func (s *UDPSink) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return s.conn.Close()
}

// encodeEnvelope lays out [u16 topic_len][topic][u16 schema_len]
// [schema][u32 payload_len][payload]. This is the sink's own wire
// framing, distinct from the CDR payload it carries.
func encodeEnvelope(e envelope) []byte {
	buf := make([]byte, 2+len(e.topic)+2+len(e.schema)+4+len(e.payload))
	off := 0
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(e.topic)))
	off += 2
	off += copy(buf[off:], e.topic)
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(e.schema)))
	off += 2
	off += copy(buf[off:], e.schema)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.payload)))
	off += 4
	copy(buf[off:], e.payload)
	return buf
}
