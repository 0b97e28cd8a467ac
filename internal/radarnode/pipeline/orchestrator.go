// Package pipeline wires the CAN framer (A), the UDP cube assembler
// (B), the DBSCAN clusterer (C), and the tracker (D) into a shared
// Sink (E): A's target lists feed the targets topic directly and, when
// clustering is enabled, also cross a bounded bridge queue into a
// dedicated clustering+tracking thread that produces the clusters
// topic; B's cubes go straight to the cube topic. Two heartbeat topics
// republish static sensor description and mounting transform on their
// own schedule, independent of sensor rate.
package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/can"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/cluster"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/introspect"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/ros2"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/track"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/udpcube"
)

// Schema strings tag each published payload for middleware routing, the
// way the original node attached a schema string to every CDR publish.
const (
	SchemaPointCloud2      = "sensor_msgs/msg/PointCloud2"
	SchemaRadarCube        = "radarpub_msgs/msg/RadarCube"
	SchemaTransformStamped = "geometry_msgs/msg/TransformStamped"
	SchemaRadarInfo        = "radarpub_msgs/msg/RadarInfo"
)

// Orchestrator owns the CAN source, the UDP socket, and the sink, and
// runs the ingestion/clustering/publishing pipeline across them. Start
// and Stop form its lifecycle; every other method is internal.
type Orchestrator struct {
	cfg       Config
	canSource can.Source
	udpConn   *net.UDPConn
	sink      Sink
	recorder  TrackRecorder

	cancel   context.CancelFunc
	stopFlag atomic.Bool
	wg       sync.WaitGroup
	bridge   chan model.TargetList

	statsMu  sync.Mutex
	counters introspect.Counters
	tracks   []introspect.TrackInfo
}

// TrackRecorder is the optional sidecar that persists track lifecycle
// events for offline analysis. It never sits in the hot path: a nil
// TrackRecorder simply means no history is recorded.
type TrackRecorder interface {
	RecordSnapshots(snapshots []model.TrackSnapshot, at time.Time) error
}

// New builds an Orchestrator. udpConn may be nil to disable the UDP
// cube path entirely (CAN-only deployments); canSource may be nil to
// disable the CAN path (cube-replay-only deployments); recorder may be
// nil to disable track-history persistence entirely.
func New(cfg Config, canSource can.Source, udpConn *net.UDPConn, sink Sink, recorder TrackRecorder) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		canSource: canSource,
		udpConn:   udpConn,
		sink:      sink,
		recorder:  recorder,
	}
}

// Start launches every component's goroutine or dedicated OS thread and
// returns once they are all running. It does not block for the
// pipeline's lifetime; call Stop to shut down.
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.bridge = make(chan model.TargetList, o.cfg.BridgeCapacity)

	if o.canSource != nil {
		o.wg.Add(1)
		go o.runCAN(runCtx)
	}
	if o.cfg.ClusteringEnabled {
		o.wg.Add(1)
		go o.runClusterTrack(runCtx)
	}
	if o.udpConn != nil {
		o.wg.Add(1)
		go o.runUDP(runCtx)
	}
	o.wg.Add(1)
	go o.runHeartbeats(runCtx)

	return nil
}

// Stop signals every component to shut down, unblocks whichever one is
// parked in a blocking read, and waits up to the configured deadline
// for all of them to exit. Past the deadline it gives up and returns;
// any thread still running at that point is abandoned.
func (o *Orchestrator) Stop() {
	o.stopFlag.Store(true)
	if o.cancel != nil {
		o.cancel()
	}
	if closer, ok := o.canSource.(io.Closer); ok {
		_ = closer.Close()
	}
	if o.udpConn != nil {
		_ = o.udpConn.SetReadDeadline(time.Now())
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	deadline := o.cfg.StopDeadline
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	select {
	case <-done:
	case <-time.After(deadline):
		rlog.Logf("pipeline: stop deadline exceeded, abandoning outstanding components")
	}
}

// runCAN is the cooperative CAN ingest path: it shares the Go runtime's
// scheduler with every other goroutine in the process rather than
// pinning an OS thread, and checks the cancellation token every loop
// iteration.
func (o *Orchestrator) runCAN(ctx context.Context) {
	defer o.wg.Done()
	framer := can.NewFramer()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := o.canSource.ReadFrame()
		if o.stopFlag.Load() {
			return
		}
		if err != nil {
			rlog.Logf("pipeline: can transport error: %v", err)
			return
		}

		list, ferr := framer.Feed(raw)
		o.updateFramerStats(framer.Stats())
		if ferr != nil {
			continue
		}
		if list == nil {
			continue
		}

		o.publishTargets(*list)

		if o.cfg.ClusteringEnabled {
			select {
			case o.bridge <- *list:
			case <-ctx.Done():
				return
			}
		}
	}
}

// runUDP is the dedicated-OS-thread UDP ingest path: it owns the only
// blocking syscall in the process that cannot be multiplexed through a
// select, so it pins itself to an OS thread and checks the stop flag at
// every packet boundary and immediately after every batch read
// returns, the way the original read-deadline polling loop does.
func (o *Orchestrator) runUDP(ctx context.Context) {
	defer o.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	assembler := udpcube.NewAssembler()
	reader := udpcube.NewBatchReader(o.udpConn)

	for {
		if o.stopFlag.Load() {
			return
		}

		_ = o.udpConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		batch, err := reader.ReadBatch()

		if o.stopFlag.Load() {
			return
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			rlog.Logf("pipeline: udp transport error: %v", err)
			return
		}

		for _, datagram := range batch {
			if o.stopFlag.Load() {
				return
			}
			cube, cerr := assembler.Feed(datagram)
			o.updateAssemblerStats(assembler.Stats())
			if cerr != nil {
				continue
			}
			if cube != nil {
				if o.cfg.CenterDoppler {
					udpcube.CenterDoppler(cube)
				}
				o.publishCube(*cube)
			}
		}
	}
}

// runClusterTrack is the dedicated-OS-thread clustering+tracking path:
// it drains the bridge queue that runCAN feeds, runs DBSCAN and the
// tracker on every target list it receives, and publishes the result.
// It is pinned to its own OS thread because clustering and Kalman
// filtering are CPU-bound work that should not compete with the
// runtime's cooperative scheduler for the same thread as I/O-bound
// goroutines.
func (o *Orchestrator) runClusterTrack(ctx context.Context) {
	defer o.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tracker := track.NewTracker(o.cfg.Tracker)

	for {
		if o.stopFlag.Load() {
			return
		}
		select {
		case list, ok := <-o.bridge:
			if !ok {
				return
			}
			labels := cluster.Cluster(list, o.cfg.Cluster)
			clustered := model.ClusteredTargetList{List: list, Labels: labels}
			o.publishClusters(clustered)
			// Track snapshots are not part of the live publish
			// surface; they feed the optional history recorder.
			snapshots := tracker.Update(clustered)
			o.updateTracks(snapshots)
			if o.recorder != nil {
				if err := o.recorder.RecordSnapshots(snapshots, time.Now()); err != nil {
					rlog.Logf("pipeline: track recorder failed: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// runHeartbeats republishes the static sensor description and mounting
// transform on their own schedule, independent of sensor frame rate.
func (o *Orchestrator) runHeartbeats(ctx context.Context) {
	defer o.wg.Done()

	infoInterval := o.cfg.InfoInterval
	if infoInterval <= 0 {
		infoInterval = time.Second
	}
	tfInterval := o.cfg.TFInterval
	if tfInterval <= 0 {
		tfInterval = 10 * time.Second
	}

	infoTicker := time.NewTicker(infoInterval)
	tfTicker := time.NewTicker(tfInterval)
	defer infoTicker.Stop()
	defer tfTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-infoTicker.C:
			o.publishRadarInfo()
		case <-tfTicker.C:
			o.publishStaticTF()
		}
	}
}

func (o *Orchestrator) topic(name string) string {
	return o.cfg.TopicPrefix + "/" + name
}

func (o *Orchestrator) publishTargets(list model.TargetList) {
	payload := ros2.EncodeTargets(list, o.cfg.Mirror, o.cfg.FrameID, nowStamp())
	o.publish("targets", payload, SchemaPointCloud2)
}

func (o *Orchestrator) publishClusters(clustered model.ClusteredTargetList) {
	payload := ros2.EncodeClusters(clustered, o.cfg.Mirror, o.cfg.FrameID, nowStamp())
	o.publish("clusters", payload, SchemaPointCloud2)
}

func (o *Orchestrator) publishCube(cube model.RadarCube) {
	payload := ros2.EncodeCube(cube, o.cfg.FrameID, nowStamp())
	o.publish("cube", payload, SchemaRadarCube)
}

func (o *Orchestrator) publishRadarInfo() {
	info := ros2.RadarInfo{
		FrequencyGHz:     o.cfg.RadarInfo.FrequencyGHz,
		MaxRangeM:        o.cfg.RadarInfo.MaxRangeM,
		RangeResolutionM: o.cfg.RadarInfo.RangeResolutionM,
	}
	o.publish("info", info.Encode(), SchemaRadarInfo)
}

func (o *Orchestrator) publishStaticTF() {
	tf := ros2.TransformStamped{
		Header:       ros2.Header{Stamp: nowStamp(), FrameID: o.cfg.FrameID},
		ChildFrameID: o.cfg.StaticTF.ChildFrameID,
		Transform: ros2.Transform{
			Translation: ros2.Vector3{X: o.cfg.StaticTF.TX, Y: o.cfg.StaticTF.TY, Z: o.cfg.StaticTF.TZ},
			Rotation:    ros2.Quaternion{X: o.cfg.StaticTF.QX, Y: o.cfg.StaticTF.QY, Z: o.cfg.StaticTF.QZ, W: o.cfg.StaticTF.QW},
		},
	}
	o.publish("tf_static", tf.Encode(), SchemaTransformStamped)
}

func (o *Orchestrator) publish(name string, payload []byte, schema string) {
	if err := o.sink.Publish(o.topic(name), payload, schema); err != nil {
		rlog.Logf("pipeline: publish %s failed: %v", name, err)
	}
}

func (o *Orchestrator) updateFramerStats(stats can.Stats) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.counters.FramesReceived = stats.FramesReceived
	o.counters.CrcFailures = stats.CrcFailures
}

func (o *Orchestrator) updateAssemblerStats(stats udpcube.AssemblerStats) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.counters.PacketsSkipped = stats.PacketsSkipped
}

func (o *Orchestrator) updateTracks(snapshots []model.TrackSnapshot) {
	infos := make([]introspect.TrackInfo, 0, len(snapshots))
	var active uint64
	for _, s := range snapshots {
		infos = append(infos, introspect.TrackInfo{
			ID:              s.ID.String(),
			State:           s.State.String(),
			CX:              s.CX,
			CY:              s.CY,
			Hits:            s.Hits,
			Age:             s.Age,
			TimeSinceUpdate: s.TimeSinceUpdate,
		})
		if s.State == model.TrackTracked || s.State == model.TrackNew {
			active++
		}
	}

	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.tracks = infos
	o.counters.TracksActive = active
}

// Counters implements introspect.CounterSource.
func (o *Orchestrator) Counters() introspect.Counters {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.counters
}

// Tracks implements introspect.TrackSource.
func (o *Orchestrator) Tracks() []introspect.TrackInfo {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return append([]introspect.TrackInfo(nil), o.tracks...)
}

// nowStamp is a placeholder clock seam: callers that need reproducible
// timestamps (tests, replay) construct ros2.Time from their own frame
// timestamps instead of calling the live clock.
var nowStamp = func() ros2.Time {
	now := time.Now()
	return ros2.Time{Sec: int32(now.Unix()), NanoSec: uint32(now.Nanosecond())}
}
