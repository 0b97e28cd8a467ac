package ros2

import "github.com/EdgeFirstAI/radarpub/internal/radarnode/model"

// Time mirrors builtin_interfaces/Time.
type Time struct {
	Sec     int32
	NanoSec uint32
}

// Header mirrors std_msgs/Header.
type Header struct {
	Stamp   Time
	FrameID string
}

func (h Header) encode(w *Writer) {
	w.I32(h.Stamp.Sec)
	w.U32(h.Stamp.NanoSec)
	w.String(h.FrameID)
}

func decodeHeader(r *Reader) (Header, error) {
	var h Header
	var err error
	if h.Stamp.Sec, err = r.I32(); err != nil {
		return h, err
	}
	if h.Stamp.NanoSec, err = r.U32(); err != nil {
		return h, err
	}
	if h.FrameID, err = r.String(); err != nil {
		return h, err
	}
	return h, nil
}

// PointField datatype codes, per sensor_msgs/PointField.
const (
	PointFieldFloat32 uint8 = 7
	PointFieldInt32   uint8 = 5
)

// PointField mirrors sensor_msgs/PointField.
type PointField struct {
	Name     string
	Offset   uint32
	DataType uint8
	Count    uint32
}

func (f PointField) encode(w *Writer) {
	w.String(f.Name)
	w.U32(f.Offset)
	w.U8(f.DataType)
	w.U32(f.Count)
}

func decodePointField(r *Reader) (PointField, error) {
	var f PointField
	var err error
	if f.Name, err = r.String(); err != nil {
		return f, err
	}
	if f.Offset, err = r.U32(); err != nil {
		return f, err
	}
	if f.DataType, err = r.U8(); err != nil {
		return f, err
	}
	if f.Count, err = r.U32(); err != nil {
		return f, err
	}
	return f, nil
}

// PointCloud2 mirrors sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header
	Height      uint32
	Width       uint32
	Fields      []PointField
	IsBigEndian bool
	PointStep   uint32
	RowStep     uint32
	Data        []byte
	IsDense     bool
}

// Encode serializes the message as little-endian CDR.
func (m PointCloud2) Encode() []byte {
	w := NewWriter()
	m.Header.encode(w)
	w.U32(m.Height)
	w.U32(m.Width)
	w.U32(uint32(len(m.Fields)))
	for _, f := range m.Fields {
		f.encode(w)
	}
	w.Bool(m.IsBigEndian)
	w.U32(m.PointStep)
	w.U32(m.RowStep)
	w.RawBytes(m.Data)
	w.Bool(m.IsDense)
	return w.Bytes()
}

// DecodePointCloud2 parses a PointCloud2 encoded by Encode.
func DecodePointCloud2(buf []byte) (*PointCloud2, error) {
	r := NewReader(buf)
	m := &PointCloud2{}
	var err error
	if m.Header, err = decodeHeader(r); err != nil {
		return nil, err
	}
	if m.Height, err = r.U32(); err != nil {
		return nil, err
	}
	if m.Width, err = r.U32(); err != nil {
		return nil, err
	}
	nFields, err := r.U32()
	if err != nil {
		return nil, err
	}
	m.Fields = make([]PointField, nFields)
	for i := range m.Fields {
		if m.Fields[i], err = decodePointField(r); err != nil {
			return nil, err
		}
	}
	if m.IsBigEndian, err = r.Bool(); err != nil {
		return nil, err
	}
	if m.PointStep, err = r.U32(); err != nil {
		return nil, err
	}
	if m.RowStep, err = r.U32(); err != nil {
		return nil, err
	}
	if m.Data, err = r.RawBytes(); err != nil {
		return nil, err
	}
	if m.IsDense, err = r.Bool(); err != nil {
		return nil, err
	}
	return m, nil
}

// BinPropertiesMsg mirrors the cube message's nested bin_properties.
type BinPropertiesMsg struct {
	SpeedPerBin float32
	RangePerBin float32
	BinPerSpeed float32
}

// RadarCubeMsg is the node's custom radar cube message, per the
// node's external interface.
type RadarCubeMsg struct {
	Header          Header
	FrameCounter    uint32
	PacketsCaptured uint16
	PacketsSkipped  uint16
	MissingBytes    uint64
	Shape           [4]uint32
	BinProperties   BinPropertiesMsg
	Samples         []int16
}

// Encode serializes the message as little-endian CDR.
func (m RadarCubeMsg) Encode() []byte {
	w := NewWriter()
	m.Header.encode(w)
	w.U32(m.FrameCounter)
	w.U16(uint16(m.PacketsCaptured))
	w.U16(uint16(m.PacketsSkipped))
	w.U64(m.MissingBytes)
	for _, s := range m.Shape {
		w.U32(s)
	}
	w.F32(m.BinProperties.SpeedPerBin)
	w.F32(m.BinProperties.RangePerBin)
	w.F32(m.BinProperties.BinPerSpeed)
	w.I16Seq(m.Samples)
	return w.Bytes()
}

// DecodeRadarCubeMsg parses a RadarCubeMsg encoded by Encode.
func DecodeRadarCubeMsg(buf []byte) (*RadarCubeMsg, error) {
	r := NewReader(buf)
	m := &RadarCubeMsg{}
	var err error
	if m.Header, err = decodeHeader(r); err != nil {
		return nil, err
	}
	if m.FrameCounter, err = r.U32(); err != nil {
		return nil, err
	}
	pc, err := r.U16()
	if err != nil {
		return nil, err
	}
	m.PacketsCaptured = pc
	ps, err := r.U16()
	if err != nil {
		return nil, err
	}
	m.PacketsSkipped = ps
	if m.MissingBytes, err = r.U64(); err != nil {
		return nil, err
	}
	for i := range m.Shape {
		if m.Shape[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	if m.BinProperties.SpeedPerBin, err = r.F32(); err != nil {
		return nil, err
	}
	if m.BinProperties.RangePerBin, err = r.F32(); err != nil {
		return nil, err
	}
	if m.BinProperties.BinPerSpeed, err = r.F32(); err != nil {
		return nil, err
	}
	if m.Samples, err = r.I16Seq(); err != nil {
		return nil, err
	}
	return m, nil
}

// Vector3 mirrors geometry_msgs/Vector3.
type Vector3 struct{ X, Y, Z float64 }

// Quaternion mirrors geometry_msgs/Quaternion.
type Quaternion struct{ X, Y, Z, W float64 }

// Transform mirrors geometry_msgs/Transform.
type Transform struct {
	Translation Vector3
	Rotation    Quaternion
}

// TransformStamped mirrors geometry_msgs/TransformStamped.
type TransformStamped struct {
	Header       Header
	ChildFrameID string
	Transform    Transform
}

// Encode serializes the message as little-endian CDR.
func (m TransformStamped) Encode() []byte {
	w := NewWriter()
	m.Header.encode(w)
	w.String(m.ChildFrameID)
	w.U64(math64bits(m.Transform.Translation.X))
	w.U64(math64bits(m.Transform.Translation.Y))
	w.U64(math64bits(m.Transform.Translation.Z))
	w.U64(math64bits(m.Transform.Rotation.X))
	w.U64(math64bits(m.Transform.Rotation.Y))
	w.U64(math64bits(m.Transform.Rotation.Z))
	w.U64(math64bits(m.Transform.Rotation.W))
	return w.Bytes()
}

// DecodeTransformStamped parses a TransformStamped encoded by Encode.
func DecodeTransformStamped(buf []byte) (*TransformStamped, error) {
	r := NewReader(buf)
	m := &TransformStamped{}
	var err error
	if m.Header, err = decodeHeader(r); err != nil {
		return nil, err
	}
	if m.ChildFrameID, err = r.String(); err != nil {
		return nil, err
	}
	vals := make([]float64, 7)
	for i := range vals {
		bits, err := r.U64()
		if err != nil {
			return nil, err
		}
		vals[i] = math64frombits(bits)
	}
	m.Transform.Translation = Vector3{vals[0], vals[1], vals[2]}
	m.Transform.Rotation = Quaternion{vals[3], vals[4], vals[5], vals[6]}
	return m, nil
}

// RadarInfo is the node's custom sensor-capability message, per the
// node's external interface.
type RadarInfo struct {
	FrequencyGHz     float32
	MaxRangeM        float32
	RangeResolutionM float32
}

// Encode serializes the message as little-endian CDR.
func (m RadarInfo) Encode() []byte {
	w := NewWriter()
	w.F32(m.FrequencyGHz)
	w.F32(m.MaxRangeM)
	w.F32(m.RangeResolutionM)
	return w.Bytes()
}

// DecodeRadarInfo parses a RadarInfo encoded by Encode.
func DecodeRadarInfo(buf []byte) (*RadarInfo, error) {
	r := NewReader(buf)
	m := &RadarInfo{}
	var err error
	if m.FrequencyGHz, err = r.F32(); err != nil {
		return nil, err
	}
	if m.MaxRangeM, err = r.F32(); err != nil {
		return nil, err
	}
	if m.RangeResolutionM, err = r.F32(); err != nil {
		return nil, err
	}
	return m, nil
}

// targetPointStep and clusterPointStep are the point_step values
// mandated by the node's external interface.
const (
	targetPointStep  = 24
	clusterPointStep = 28
)

func targetFields() []PointField {
	return []PointField{
		{Name: "x", Offset: 0, DataType: PointFieldFloat32, Count: 1},
		{Name: "y", Offset: 4, DataType: PointFieldFloat32, Count: 1},
		{Name: "z", Offset: 8, DataType: PointFieldFloat32, Count: 1},
		{Name: "speed", Offset: 12, DataType: PointFieldFloat32, Count: 1},
		{Name: "power", Offset: 16, DataType: PointFieldFloat32, Count: 1},
		{Name: "rcs", Offset: 20, DataType: PointFieldFloat32, Count: 1},
	}
}

func clusterFields() []PointField {
	return append(targetFields(), PointField{Name: "cluster_id", Offset: 24, DataType: PointFieldInt32, Count: 1})
}

// EncodeTargets builds and serializes the `targets` PointCloud2
// stream: one point per detection, mirrored per the sensor's mount
// orientation.
func EncodeTargets(list model.TargetList, mirror bool, frameID string, stamp Time) []byte {
	data := make([]byte, len(list.Targets)*targetPointStep)
	for i, t := range list.Targets {
		x, y, z := t.Cartesian(mirror)
		off := i * targetPointStep
		putF32(data[off:], x)
		putF32(data[off+4:], y)
		putF32(data[off+8:], z)
		putF32(data[off+12:], t.Doppler)
		putF32(data[off+16:], t.Power)
		putF32(data[off+20:], t.RCS)
	}
	msg := PointCloud2{
		Header:      Header{Stamp: stamp, FrameID: frameID},
		Height:      1,
		Width:       uint32(len(list.Targets)),
		Fields:      targetFields(),
		IsBigEndian: false,
		PointStep:   targetPointStep,
		RowStep:     uint32(len(data)),
		Data:        data,
		IsDense:     true,
	}
	return msg.Encode()
}

// EncodeClusters builds and serializes the `clusters` PointCloud2
// stream: one point per detection plus its DBSCAN label.
func EncodeClusters(list model.ClusteredTargetList, mirror bool, frameID string, stamp Time) []byte {
	data := make([]byte, len(list.List.Targets)*clusterPointStep)
	for i, t := range list.List.Targets {
		x, y, z := t.Cartesian(mirror)
		off := i * clusterPointStep
		putF32(data[off:], x)
		putF32(data[off+4:], y)
		putF32(data[off+8:], z)
		putF32(data[off+12:], t.Doppler)
		putF32(data[off+16:], t.Power)
		putF32(data[off+20:], t.RCS)
		label := int32(0)
		if i < len(list.Labels) {
			label = int32(list.Labels[i])
		}
		putI32(data[off+24:], label)
	}
	msg := PointCloud2{
		Header:      Header{Stamp: stamp, FrameID: frameID},
		Height:      1,
		Width:       uint32(len(list.List.Targets)),
		Fields:      clusterFields(),
		IsBigEndian: false,
		PointStep:   clusterPointStep,
		RowStep:     uint32(len(data)),
		Data:        data,
		IsDense:     true,
	}
	return msg.Encode()
}

// EncodeCube builds and serializes the custom radar cube message.
func EncodeCube(cube model.RadarCube, frameID string, stamp Time) []byte {
	msg := RadarCubeMsg{
		Header:          Header{Stamp: stamp, FrameID: frameID},
		FrameCounter:    cube.FrameCounter,
		PacketsCaptured: cube.PacketsCaptured,
		PacketsSkipped:  cube.PacketsSkipped,
		MissingBytes:    cube.MissingBytes,
		Shape:           [4]uint32{uint32(cube.Shape[0]), uint32(cube.Shape[1]), uint32(cube.Shape[2]), uint32(cube.Shape[3])},
		BinProperties: BinPropertiesMsg{
			SpeedPerBin: cube.BinProperties.SpeedPerBin,
			RangePerBin: cube.BinProperties.RangePerBin,
			BinPerSpeed: cube.BinProperties.BinPerSpeed,
		},
		Samples: cube.Samples,
	}
	return msg.Encode()
}

func putF32(b []byte, v float32) {
	u := float32bits(v)
	b[0], b[1], b[2], b[3] = byte(u), byte(u>>8), byte(u>>16), byte(u>>24)
}

func putI32(b []byte, v int32) {
	u := uint32(v)
	b[0], b[1], b[2], b[3] = byte(u), byte(u>>8), byte(u>>16), byte(u>>24)
}
