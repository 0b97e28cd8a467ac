// Command radarnode-replay drives the node's CAN framer or UDP cube
// assembler from a pcap/pcapng capture instead of a live transport,
// publishing the decoded frames to a UDP sink exactly as the live node
// would. It exists for integration testing and field-issue reproduction
// against a recorded sensor session and is not part of the running
// node.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/pcapreplay"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/pipeline"
)

func main() {
	pcapPath := flag.String("pcap", "", "path to a pcap/pcapng capture to replay")
	sinkAddr := flag.String("sink", "127.0.0.1:9478", "UDP address to publish decoded frames to")
	udpPort := flag.Int("udp-port", 52998, "UDP port to filter for cube traffic when the capture is not CAN")
	topicPrefix := flag.String("topic-prefix", "/rt/radar", "topic prefix for published messages")
	frameID := flag.String("frame-id", "radar_link", "frame_id stamped on published messages")
	mirror := flag.Bool("mirror", false, "mirror the lateral axis, matching the sensor's mounting orientation")
	centerDoppler := flag.Bool("center-doppler", false, "fftshift cube doppler bins to zero-centered order before publishing")
	flag.Parse()

	if *pcapPath == "" {
		log.Fatal("-pcap is required")
	}

	sink, err := pipeline.NewUDPSink(*sinkAddr)
	if err != nil {
		log.Fatalf("failed to open sink: %v", err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pcapreplay.Options{
		Path:          *pcapPath,
		UDPPort:       *udpPort,
		TopicPrefix:   *topicPrefix,
		FrameID:       *frameID,
		Mirror:        *mirror,
		CenterDoppler: *centerDoppler,
	}

	stats, err := pcapreplay.Replay(ctx, opts, sink)
	if err != nil && err != context.Canceled {
		log.Fatalf("replay failed: %v", err)
	}
	log.Printf("replay complete: %d packets read, %d target lists, %d cubes published",
		stats.PacketsRead, stats.TargetsEmitted, stats.CubesEmitted)
}
