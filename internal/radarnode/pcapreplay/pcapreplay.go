// Package pcapreplay drives the CAN framer and UDP cube assembler from a
// pcap/pcapng capture instead of a live transport, for integration
// testing and field-issue reproduction against a recorded sensor
// session. It is diagnostic tooling used by cmd/radarnode-replay, never
// linked into the live node, and does not participate in the bridge/
// backpressure machinery the live pipeline needs — a capture file has
// no real-time backpressure of its own to honor.
package pcapreplay

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/can"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/pipeline"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/ros2"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/udpcube"
)

// linktypeCANSocketCAN is LINKTYPE_CAN_SOCKETCAN (DLT 227): tcpdump and
// candump -L captures tag SocketCAN frames with this link type. gopacket's
// layers package has no decoder for it, so frames below are parsed by
// hand from the raw Linux struct can_frame layout instead of through a
// gopacket layer.
const linktypeCANSocketCAN = 227

// Options configures one replay pass over a capture file. A capture
// carries exactly one kind of traffic — its link-layer type decides
// which path Replay takes — so only the fields relevant to that kind
// need to be set.
type Options struct {
	Path string

	// UDPPort filters non-CAN captures down to cube datagrams on this
	// port, the same BPF filter the teacher's own pcap reader applies.
	UDPPort int

	TopicPrefix   string
	FrameID       string
	Mirror        bool
	CenterDoppler bool
}

// Stats summarizes one replay pass.
type Stats struct {
	PacketsRead    int
	TargetsEmitted int
	CubesEmitted   int
	CrcFailures    uint64
	PacketsSkipped uint64
}

// Replay opens the capture at opts.Path and feeds it through the CAN
// framer or the UDP cube assembler, publishing every decoded frame
// through sink with the same topic names and schema strings the live
// orchestrator uses. It returns once the capture is exhausted, ctx is
// canceled, or a transport-level error occurs.
func Replay(ctx context.Context, opts Options, sink pipeline.Sink) (Stats, error) {
	handle, err := pcap.OpenOffline(opts.Path)
	if err != nil {
		return Stats{}, fmt.Errorf("pcapreplay: open %s: %w", opts.Path, err)
	}
	defer handle.Close()

	if int(handle.LinkType()) == linktypeCANSocketCAN {
		return replayCAN(ctx, handle, opts, sink)
	}

	if opts.UDPPort != 0 {
		filter := fmt.Sprintf("udp port %d", opts.UDPPort)
		if err := handle.SetBPFFilter(filter); err != nil {
			return Stats{}, fmt.Errorf("pcapreplay: bpf filter %q: %w", filter, err)
		}
	}
	return replayUDP(ctx, handle, opts, sink)
}

func replayCAN(ctx context.Context, handle *pcap.Handle, opts Options, sink pipeline.Sink) (Stats, error) {
	var stats Stats
	framer := can.NewFramer()
	prefix := topicPrefix(opts.TopicPrefix)

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		data, capInfo, err := handle.ReadPacketData()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("pcapreplay: read packet %d: %w", stats.PacketsRead, err)
		}
		stats.PacketsRead++

		frame, ok := decodeSocketCANFrame(data)
		if !ok {
			stats.PacketsSkipped++
			continue
		}

		list, ferr := framer.Feed(frame)
		fstats := framer.Stats()
		stats.CrcFailures = fstats.CrcFailures
		if ferr != nil || list == nil {
			continue
		}

		stamp := timeToStamp(capInfo.Timestamp)
		payload := ros2.EncodeTargets(*list, opts.Mirror, opts.FrameID, stamp)
		if err := sink.Publish(prefix+"/targets", payload, pipeline.SchemaPointCloud2); err != nil {
			rlog.Logf("pcapreplay: publish targets failed: %v", err)
		}
		stats.TargetsEmitted++
	}
}

func replayUDP(ctx context.Context, handle *pcap.Handle, opts Options, sink pipeline.Sink) (Stats, error) {
	var stats Stats
	assembler := udpcube.NewAssembler()
	source := gopacket.NewPacketSource(handle, handle.LinkType())
	prefix := topicPrefix(opts.TopicPrefix)

	packets := source.Packets()
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case packet, ok := <-packets:
			if !ok || packet == nil {
				return stats, nil
			}
			stats.PacketsRead++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			cube, cerr := assembler.Feed(udp.Payload)
			astats := assembler.Stats()
			stats.PacketsSkipped = astats.PacketsSkipped
			if cerr != nil || cube == nil {
				continue
			}

			if opts.CenterDoppler {
				udpcube.CenterDoppler(cube)
			}

			stamp := timeToStamp(packet.Metadata().Timestamp)
			payload := ros2.EncodeCube(*cube, opts.FrameID, stamp)
			if err := sink.Publish(prefix+"/cube", payload, pipeline.SchemaRadarCube); err != nil {
				rlog.Logf("pcapreplay: publish cube failed: %v", err)
			}
			stats.CubesEmitted++
		}
	}
}

// decodeSocketCANFrame parses a raw Linux struct can_frame: a 4-byte
// CAN ID (extended/RTR/error flag bits in the high byte, 29-bit ID in
// the low bits), a 1-byte data length, 3 bytes of padding, and up to 8
// data bytes. Captures from candump -L or tcpdump on a can0-style
// interface use this layout as their per-packet payload verbatim.
func decodeSocketCANFrame(data []byte) (can.RawFrame, bool) {
	const headerLen = 8
	if len(data) < headerLen {
		return can.RawFrame{}, false
	}

	rawID := binary.LittleEndian.Uint32(data[0:4])
	dlc := int(data[4])
	if dlc > 8 || len(data) < headerLen+dlc {
		return can.RawFrame{}, false
	}

	const canErrFlag = 0x20000000
	if rawID&canErrFlag != 0 {
		return can.RawFrame{}, false
	}

	id := rawID & 0x1FFFFFFF
	payload := make([]byte, dlc)
	copy(payload, data[headerLen:headerLen+dlc])
	return can.RawFrame{ID: id, Data: payload}, true
}

func timeToStamp(t time.Time) ros2.Time {
	return ros2.Time{Sec: int32(t.Unix()), NanoSec: uint32(t.Nanosecond())}
}

func topicPrefix(prefix string) string {
	if prefix == "" {
		return "/rt/radar"
	}
	return prefix
}
