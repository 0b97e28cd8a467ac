package pipeline

import (
	"time"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/cluster"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/track"
)

// Config gathers everything the orchestrator needs to wire the framer,
// the assembler, the optional clustering/tracking stage, and the sink
// together. It is the runtime shape of the loaded node configuration.
type Config struct {
	// FrameID is stamped into every outbound message's header.
	FrameID string

	// TopicPrefix is prepended to every published topic name.
	TopicPrefix string

	// Mirror is passed through to Target.Cartesian for upside-down or
	// mirrored sensor mounts.
	Mirror bool

	// CenterDoppler re-centers each cube's doppler axis around zero
	// velocity before it is published, rather than leaving it in the
	// sensor's raw FFT bin order.
	CenterDoppler bool

	// ClusteringEnabled turns on the DBSCAN + tracking stage (C+D).
	// When false, A's target lists go straight to the targets topic
	// and no clusters topic is published.
	ClusteringEnabled bool
	Cluster           cluster.Params
	Tracker           track.Config

	// BridgeCapacity bounds the queue between the CAN ingest path and
	// the clustering+tracking thread. The producer blocks rather than
	// drops once it fills, because dropping would reorder frames.
	BridgeCapacity int

	// StopDeadline bounds how long Stop waits for outstanding threads
	// before abandoning them.
	StopDeadline time.Duration

	// InfoInterval and TFInterval pace the two heartbeat topics,
	// independent of sensor rate.
	InfoInterval time.Duration
	TFInterval   time.Duration

	RadarInfo RadarInfoConfig
	StaticTF  StaticTFConfig
}

// RadarInfoConfig is the static sensor description republished on the
// info heartbeat.
type RadarInfoConfig struct {
	FrequencyGHz     float32
	MaxRangeM        float32
	RangeResolutionM float32
}

// StaticTFConfig is the fixed sensor-to-vehicle mounting transform
// republished on the tf_static heartbeat.
type StaticTFConfig struct {
	ChildFrameID string
	TX, TY, TZ   float64
	QX, QY, QZ   float64
	QW           float64
}

// DefaultConfig returns a Config with the same defaults the tracker and
// clustering packages use on their own, plus the concurrency constants
// mandated for the bridge queue and shutdown deadline.
func DefaultConfig() Config {
	return Config{
		FrameID:           "radar_link",
		TopicPrefix:       "/rt/radar",
		ClusteringEnabled: true,
		Cluster: cluster.Params{
			Epsilon:   1.0,
			MinPoints: 3,
			Scale:     cluster.Scale{X: 1, Y: 1, Z: 1, Doppler: 1},
		},
		Tracker:        track.DefaultConfig(),
		BridgeCapacity: 16,
		StopDeadline:   2 * time.Second,
		InfoInterval:   1 * time.Second,
		TFInterval:     10 * time.Second,
	}
}
