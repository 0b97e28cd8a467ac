package pipeline

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/can"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
)

// crc16CCITT mirrors the framer's CRC so this package can build valid
// header frames without reaching into the can package's internals.
func crc16CCITT(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func headerFrames(frameCounter uint16, numTargets uint8, timestamp uint16) []can.RawFrame {
	var hdr [6]byte
	binary.LittleEndian.PutUint16(hdr[0:2], frameCounter)
	hdr[2] = numTargets
	binary.LittleEndian.PutUint16(hdr[3:5], timestamp)
	hdr[5] = 0

	crc := crc16CCITT(hdr[:])
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)

	return []can.RawFrame{
		{ID: can.HeaderID, Data: append([]byte{}, hdr[0:3]...)},
		{ID: can.HeaderID, Data: append([]byte{}, hdr[3:5]...)},
		{ID: can.HeaderID, Data: append(crcBytes, 0)},
	}
}

func targetFrames(index int) []can.RawFrame {
	f1 := []byte{0x88, 0x13, 30, 120}
	f2 := []byte{0x00, 0xF0, 80, 200}
	id := can.TargetBaseID + uint32(index)
	return []can.RawFrame{{ID: id, Data: f1}, {ID: id, Data: f2}}
}

// oneFrameWithTargets returns the raw CAN frame sequence for one
// complete radar frame carrying n targets.
func oneFrameWithTargets(frameCounter uint16, n int) []can.RawFrame {
	frames := headerFrames(frameCounter, uint8(n), frameCounter)
	for i := 0; i < n; i++ {
		frames = append(frames, targetFrames(i)...)
	}
	return frames
}

// fakeCANSource plays back a fixed raw-frame sequence, then blocks
// until Close is called, mirroring a real bus adapter's behavior once
// its input is exhausted.
type fakeCANSource struct {
	mu     sync.Mutex
	frames []can.RawFrame
	idx    int
	closed chan struct{}
}

func newFakeCANSource(frames []can.RawFrame) *fakeCANSource {
	return &fakeCANSource{frames: frames, closed: make(chan struct{})}
}

func (s *fakeCANSource) ReadFrame() (can.RawFrame, error) {
	s.mu.Lock()
	if s.idx < len(s.frames) {
		f := s.frames[s.idx]
		s.idx++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	<-s.closed
	return can.RawFrame{}, errClosed
}

func (s *fakeCANSource) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

var errClosed = canSourceClosedErr{}

type canSourceClosedErr struct{}

func (canSourceClosedErr) Error() string { return "fake can source closed" }

// fakeSink records every publish call, optionally delaying to create
// backpressure on the bridge queue.
type fakeSink struct {
	mu    sync.Mutex
	calls []fakeSinkCall
	delay time.Duration
}

type fakeSinkCall struct {
	topic, schema string
}

func (s *fakeSink) Publish(topic string, payload []byte, schema string) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.calls = append(s.calls, fakeSinkCall{topic: topic, schema: schema})
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) countTopic(topic string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.topic == topic {
			n++
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BridgeCapacity = 2
	cfg.StopDeadline = 2 * time.Second
	cfg.InfoInterval = time.Hour
	cfg.TFInterval = time.Hour
	return cfg
}

func TestOrchestratorStartStopWithinDeadline(t *testing.T) {
	src := newFakeCANSource(oneFrameWithTargets(1, 2))
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.ClusteringEnabled = false

	o := New(cfg, src, nil, sink, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	o.Stop()
	elapsed := time.Since(start)
	if elapsed > cfg.StopDeadline+500*time.Millisecond {
		t.Fatalf("Stop took %v, want within deadline %v", elapsed, cfg.StopDeadline)
	}

	if sink.countTopic(o.topic("targets")) == 0 {
		t.Errorf("expected at least one targets publish before stop")
	}
}

// TestBridgeBlocksRatherThanDrops verifies that when the clustering
// stage is slower than the CAN ingest path, every target list still
// reaches the clusters topic: the bounded bridge queue applies
// backpressure by blocking the producer, it never discards a frame to
// keep up.
func TestBridgeBlocksRatherThanDrops(t *testing.T) {
	cfg := testConfig()
	cfg.ClusteringEnabled = true
	cfg.Cluster.Epsilon = 100
	cfg.Cluster.MinPoints = 1

	sink := &fakeSink{delay: 5 * time.Millisecond}
	o := New(cfg, nil, nil, sink, nil)
	o.bridge = make(chan model.TargetList, cfg.BridgeCapacity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.wg.Add(1)
	go o.runClusterTrack(ctx)

	const n = 10
	for i := 0; i < n; i++ {
		list := model.TargetList{
			FrameCounter: uint32(i),
			Timestamp:    uint64(i) * 1000,
			Targets: []model.Target{
				{Range: 5, Azimuth: 0, Elevation: 0, Doppler: 0, RCS: 1, Power: 1},
			},
		}
		select {
		case o.bridge <- list:
		case <-time.After(2 * time.Second):
			t.Fatalf("send %d blocked past timeout", i)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.countTopic(o.topic("clusters")) < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := sink.countTopic(o.topic("clusters")); got != n {
		t.Fatalf("clusters published = %d, want %d (no frame should be dropped)", got, n)
	}

	cancel()
	o.wg.Wait()
}

func TestOrchestratorPublishesHeartbeats(t *testing.T) {
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.ClusteringEnabled = false
	cfg.InfoInterval = 20 * time.Millisecond
	cfg.TFInterval = 20 * time.Millisecond
	cfg.StaticTF.ChildFrameID = "radar_link"

	o := New(cfg, nil, nil, sink, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	o.Stop()

	if sink.countTopic(o.topic("info")) == 0 {
		t.Errorf("expected radar info heartbeat publishes")
	}
	if sink.countTopic(o.topic("tf_static")) == 0 {
		t.Errorf("expected tf_static heartbeat publishes")
	}
}
