// Package model holds the data types shared across the radar ingestion
// node's components: the CAN framer (A), the UDP cube assembler (B), the
// DBSCAN clusterer (C), the tracker (D), and the pipeline orchestrator (E).
// Types here are value objects; none alias mutable state owned elsewhere.
package model

import (
	"math"

	"github.com/google/uuid"
)

// Target is one radar detection as reported by the CAN target burst.
type Target struct {
	Range     float32 // meters, >= 0
	Azimuth   float32 // radians, -pi..pi
	Elevation float32 // radians, -pi/2..pi/2
	Doppler   float32 // meters/second, signed
	RCS       float32 // dBsm
	Power     float32 // dB
}

// Cartesian returns the detection's position in the sensor's right-handed
// frame: x forward, y left, z up. If mirror is true, y is negated to
// account for an upside-down or mirrored sensor mount.
func (t Target) Cartesian(mirror bool) (x, y, z float32) {
	cosEl := float32(math.Cos(float64(t.Elevation)))
	x = t.Range * cosEl * float32(math.Cos(float64(t.Azimuth)))
	y = t.Range * cosEl * float32(math.Sin(float64(t.Azimuth)))
	z = t.Range * float32(math.Sin(float64(t.Elevation)))
	if mirror {
		y = -y
	}
	return x, y, z
}

// TargetList is one radar frame's worth of detections, in on-wire order.
type TargetList struct {
	FrameCounter uint32
	Timestamp    uint64 // microseconds since an arbitrary epoch chosen at startup
	Targets      []Target
}

// BinProperties describes the physical meaning of a radar cube's axes.
// Per the scales-vs-dimensions rule, these must describe the dimensions of
// the emitted cube, not the sensor's raw nominal scales.
type BinProperties struct {
	SpeedPerBin float32
	RangePerBin float32
	BinPerSpeed float32
}

// CubeShape is the four dimensions of a radar cube, in the vendor's own
// axis order: chirp types, range gates, rx channels, doppler bins.
type CubeShape [4]int

// Elements returns the product of the shape's dimensions.
func (s CubeShape) Elements() int {
	return s[0] * s[1] * s[2] * s[3]
}

// RadarCube is one frame of raw 4-D tensor data, possibly partial.
type RadarCube struct {
	FrameCounter    uint32
	Timestamp       uint64
	Shape           CubeShape
	Samples         []int16 // row-major, 2 per complex sample (real, imag interleaved)
	BinProperties   BinProperties
	PacketsCaptured uint16
	PacketsSkipped  uint16
	MissingBytes    uint64
}

// ClusterLabel identifies a DBSCAN cluster; 0 means noise.
type ClusterLabel int

// ClusteredTargetList pairs a TargetList with per-target cluster labels
// produced by the DBSCAN clusterer (component C). len(Labels) ==
// len(List.Targets).
type ClusteredTargetList struct {
	List   TargetList
	Labels []ClusterLabel
}

// TrackState is a track's position in the ByteTrack-style lifecycle.
type TrackState int

const (
	TrackNew TrackState = iota
	TrackTracked
	TrackLost
	TrackRemoved
)

func (s TrackState) String() string {
	switch s {
	case TrackNew:
		return "New"
	case TrackTracked:
		return "Tracked"
	case TrackLost:
		return "Lost"
	case TrackRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// TrackID is an opaque identifier stable across frames for the lifetime of
// a track. It is assigned once at creation and never reused.
type TrackID = uuid.UUID

// TrackSnapshot is a read-only view of a track's state at one frame,
// returned to pipeline consumers. It never aliases the tracker's internal
// mutable state.
type TrackSnapshot struct {
	ID              TrackID
	State           TrackState
	CX, CY          float32 // centroid position, sensor XY plane
	A               float32 // aspect scalar derived from cluster extent ratio
	H               float32 // height/elevation proxy
	VX, VY          float32 // centroid velocity
	VA, VH          float32
	Hits            int
	Age             int
	TimeSinceUpdate int
}
