package ros2

import (
	"bytes"
	"testing"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
)

func TestPointCloud2RoundTrip(t *testing.T) {
	list := model.TargetList{
		FrameCounter: 7,
		Targets: []model.Target{
			{Range: 5, Azimuth: 0.5235988, Elevation: 0, Doppler: -1, RCS: 16, Power: 72},
			{Range: 2.5, Azimuth: -0.1, Elevation: 0.05, Doppler: 3.2, RCS: -4, Power: 10},
		},
	}
	encoded := EncodeTargets(list, false, "radar_link", Time{Sec: 100, NanoSec: 250})

	decoded, err := DecodePointCloud2(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reencoded := decoded.Encode()
	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("round-trip mismatch: encode(decode(x)) != x")
	}
	if decoded.Width != 2 || decoded.Height != 1 {
		t.Errorf("width/height = %d/%d, want 2/1", decoded.Width, decoded.Height)
	}
	if decoded.PointStep != 24 || len(decoded.Data) != 48 {
		t.Errorf("point_step=%d len(data)=%d, want 24/48", decoded.PointStep, len(decoded.Data))
	}
	if decoded.IsBigEndian || !decoded.IsDense {
		t.Errorf("is_bigendian=%v is_dense=%v, want false/true", decoded.IsBigEndian, decoded.IsDense)
	}
}

func TestPointCloud2EmptyList(t *testing.T) {
	encoded := EncodeTargets(model.TargetList{}, false, "radar_link", Time{})
	decoded, err := DecodePointCloud2(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Width != 0 || len(decoded.Data) != 0 {
		t.Errorf("expected empty cloud, got width=%d len(data)=%d", decoded.Width, len(decoded.Data))
	}
}

func TestClusteredPointCloud2RoundTrip(t *testing.T) {
	clustered := model.ClusteredTargetList{
		List: model.TargetList{
			Targets: []model.Target{
				{Range: 1, Azimuth: 0, Elevation: 0},
				{Range: 2, Azimuth: 0, Elevation: 0},
			},
		},
		Labels: []model.ClusterLabel{1, 0},
	}
	encoded := EncodeClusters(clustered, true, "radar_link", Time{Sec: 5})
	decoded, err := DecodePointCloud2(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PointStep != 28 {
		t.Errorf("point_step = %d, want 28", decoded.PointStep)
	}
	if len(decoded.Fields) != 7 || decoded.Fields[6].Name != "cluster_id" {
		t.Fatalf("expected a trailing cluster_id field, got %+v", decoded.Fields)
	}
	if !bytes.Equal(encoded, decoded.Encode()) {
		t.Errorf("round-trip mismatch")
	}
}

func TestRadarCubeRoundTrip(t *testing.T) {
	cube := model.RadarCube{
		FrameCounter:    3,
		Shape:           model.CubeShape{2, 4, 2, 2},
		Samples:         []int16{1, -2, 3, -4, 5, -6, 7, -8},
		BinProperties:   model.BinProperties{SpeedPerBin: 0.1, RangePerBin: 0.05, BinPerSpeed: 10},
		PacketsCaptured: 2,
		PacketsSkipped:  0,
		MissingBytes:    64,
	}
	encoded := EncodeCube(cube, "radar_link", Time{Sec: 9, NanoSec: 500})
	decoded, err := DecodeRadarCubeMsg(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(encoded, decoded.Encode()) {
		t.Errorf("round-trip mismatch")
	}
	if decoded.MissingBytes != 64 || decoded.PacketsCaptured != 2 {
		t.Errorf("missing_bytes=%d packets_captured=%d, want 64/2", decoded.MissingBytes, decoded.PacketsCaptured)
	}
	if len(decoded.Samples) != 8 {
		t.Fatalf("len(samples) = %d, want 8", len(decoded.Samples))
	}
	for i, v := range cube.Samples {
		if decoded.Samples[i] != v {
			t.Errorf("samples[%d] = %d, want %d", i, decoded.Samples[i], v)
		}
	}
}

func TestTransformStampedRoundTrip(t *testing.T) {
	msg := TransformStamped{
		Header:       Header{Stamp: Time{Sec: 1}, FrameID: "radar_link"},
		ChildFrameID: "base_link",
		Transform: Transform{
			Translation: Vector3{X: 1.5, Y: -0.2, Z: 0.3},
			Rotation:    Quaternion{X: 0, Y: 0, Z: 0, W: 1},
		},
	}
	encoded := msg.Encode()
	decoded, err := DecodeTransformStamped(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(encoded, decoded.Encode()) {
		t.Errorf("round-trip mismatch")
	}
	if decoded.Transform.Rotation.W != 1 {
		t.Errorf("rotation.w = %v, want 1", decoded.Transform.Rotation.W)
	}
}

func TestRadarInfoRoundTrip(t *testing.T) {
	msg := RadarInfo{FrequencyGHz: 77, MaxRangeM: 120, RangeResolutionM: 0.1}
	encoded := msg.Encode()
	decoded, err := DecodeRadarInfo(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != msg {
		t.Errorf("got %+v, want %+v", *decoded, msg)
	}
}
