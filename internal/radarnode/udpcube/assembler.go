package udpcube

import (
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/errs"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
)

type assemblerState int

const (
	stateIdle assemblerState = iota
	stateCollecting
)

// AssemblerStats accumulates per-cube bookkeeping, exposed for logging and
// the introspection surface.
type AssemblerStats struct {
	CubesEmitted    uint64
	PacketsCaptured uint64
	PacketsSkipped  uint64
}

// Assembler reassembles the SMS cube packet stream into model.RadarCube
// values, keyed by the debug header's frame_counter. It tolerates lost
// UDP datagrams: any gap between a packet's declared Index and the
// cube's filled extent is recorded in MissingBytes rather than treated
// as an error.
type Assembler struct {
	state assemblerState
	stats AssemblerStats

	frameCounter uint32
	timestamp    uint64
	shape        model.CubeShape
	elementSize  int
	binProps     model.BinProperties

	buf             []byte
	filled          []bool // per-payload-chunk presence, indexed by Index
	chunkLen        int
	packetsCaptured uint16
	packetsSkipped  uint16
	missingBytes    uint64
}

// NewAssembler creates an Assembler ready to receive datagrams starting
// in Idle.
func NewAssembler() *Assembler {
	return &Assembler{state: stateIdle}
}

// Stats returns a snapshot of the assembler's running counters.
func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}

// Feed processes one raw UDP datagram. It returns a non-nil RadarCube
// when the END_OF_DATA packet for a frame has been processed.
func (a *Assembler) Feed(datagram []byte) (*model.RadarCube, error) {
	transport, off, err := parseTransportHeader(datagram)
	if err != nil {
		return nil, errs.Framing("HeaderInvalid", err)
	}
	_ = transport

	debug, err := parseDebugHeader(datagram[off:])
	if err != nil {
		return nil, errs.Framing("HeaderInvalid", err)
	}
	off += debugHeaderLen

	port, err := parsePortHeader(datagram[off:])
	if err != nil {
		return nil, errs.Framing("HeaderInvalid", err)
	}
	off += portHeaderLen

	switch {
	case debug.Flags&FlagStartOfFrame != 0:
		return a.startOfFrame(debug, port, datagram[off:])
	case debug.Flags&FlagEndOfData != 0:
		return a.endOfData(debug, port, datagram[off:])
	case debug.Flags&(FlagFrameData|FlagFrameFooter) != 0:
		return a.frameData(debug, port, datagram[off:])
	default:
		return nil, errs.Protocol("ProtocolViolation", nil)
	}
}

func (a *Assembler) startOfFrame(debug DebugHeader, port PortHeader, rest []byte) (*model.RadarCube, error) {
	var stale *model.RadarCube
	if a.state == stateCollecting {
		// A new frame started before this one saw its END_OF_DATA: emit
		// what was collected, marking the unreceived portion missing,
		// rather than dropping it.
		rlog.Debugf("udpcube: emitting incomplete cube fc=%d, new frame started", a.frameCounter)
		stale = a.buildCube()
	}

	cube, err := parseCubeHeader(rest)
	if err != nil {
		return nil, errs.Framing("HeaderInvalid", err)
	}
	binOff := cubeHeaderLen
	props, err := parseBinProps(rest[binOff:])
	if err != nil {
		return nil, errs.Framing("HeaderInvalid", err)
	}
	payload := rest[binOff+binPropsLen:]

	shape := model.CubeShape{
		int(cube.ChirpTypes),
		int(cube.RangeGates),
		int(cube.RxChannels),
		int(cube.DopplerBins),
	}
	// elementSize is bytes per complex sample: two interleaved int16s
	// (real, imag), per the row-major sample layout.
	elementSize := int(cube.ElementSize)
	if elementSize == 0 {
		elementSize = 4
	}

	a.state = stateCollecting
	a.frameCounter = debug.FrameCounter
	a.timestamp = port.Timestamp
	a.shape = shape
	a.elementSize = elementSize
	a.binProps = model.BinProperties{
		SpeedPerBin: props.SpeedPerBin,
		RangePerBin: props.RangePerBin,
		BinPerSpeed: props.BinPerSpeed,
	}
	a.chunkLen = len(payload)
	totalBytes := shape.Elements() * elementSize
	a.buf = make([]byte, totalBytes)
	numChunks := (totalBytes + a.chunkLen - 1) / a.chunkLen
	if numChunks < 1 {
		numChunks = 1
	}
	a.filled = make([]bool, numChunks)
	a.packetsCaptured = 0
	a.packetsSkipped = 0
	a.missingBytes = 0

	a.placeChunk(port.Index, payload)
	return stale, nil
}

func (a *Assembler) frameData(debug DebugHeader, port PortHeader, payload []byte) (*model.RadarCube, error) {
	if a.state != stateCollecting || debug.FrameCounter != a.frameCounter {
		a.stats.PacketsSkipped++
		return nil, nil
	}
	a.placeChunk(port.Index, payload)
	return nil, nil
}

func (a *Assembler) endOfData(debug DebugHeader, port PortHeader, payload []byte) (*model.RadarCube, error) {
	if a.state != stateCollecting || debug.FrameCounter != a.frameCounter {
		a.stats.PacketsSkipped++
		return nil, nil
	}
	// END_OF_DATA is a control marker, not a data-bearing chunk: it closes
	// the cube without itself counting toward packets_captured.
	return a.buildCube(), nil
}

// buildCube finalizes the cube currently being collected: it accounts
// for any unfilled chunks as missing_bytes, decodes the sample buffer,
// updates running stats, and returns the assembler to Idle.
func (a *Assembler) buildCube() *model.RadarCube {
	for _, present := range a.filled {
		if !present {
			a.missingBytes += uint64(a.chunkLen)
		}
	}

	samples := make([]int16, 2*a.shape.Elements())
	for i := range samples {
		lo := i * 2
		if lo+1 < len(a.buf) {
			samples[i] = int16(a.buf[lo]) | int16(a.buf[lo+1])<<8
		}
	}

	cube := &model.RadarCube{
		FrameCounter:    a.frameCounter,
		Timestamp:       a.timestamp,
		Shape:           a.shape,
		Samples:         samples,
		BinProperties:   a.binProps,
		PacketsCaptured: a.packetsCaptured,
		PacketsSkipped:  a.packetsSkipped,
		MissingBytes:    a.missingBytes,
	}
	a.stats.CubesEmitted++
	a.stats.PacketsCaptured += uint64(a.packetsCaptured)
	a.stats.PacketsSkipped += uint64(a.packetsSkipped)
	a.state = stateIdle
	return cube
}

// EmptyCube builds the all-zero, fully-missing cube a watchdog should
// publish when no datagrams at all arrive for an expected frame
// interval (total packet loss): samples are all zero and missing_bytes
// covers the entire expected payload.
func EmptyCube(frameCounter uint32, shape model.CubeShape, binProps model.BinProperties) *model.RadarCube {
	return &model.RadarCube{
		FrameCounter:  frameCounter,
		Shape:         shape,
		Samples:       make([]int16, 2*shape.Elements()),
		BinProperties: binProps,
		MissingBytes:  uint64(2 * shape.Elements() * 2),
	}
}

// placeChunk copies one payload chunk into the cube buffer at the byte
// offset implied by index*chunkLen, marking it present.
func (a *Assembler) placeChunk(index uint16, payload []byte) {
	if int(index) >= len(a.filled) {
		a.packetsSkipped++
		return
	}
	start := int(index) * a.chunkLen
	end := start + len(payload)
	if end > len(a.buf) {
		end = len(a.buf)
	}
	if start < end {
		copy(a.buf[start:end], payload[:end-start])
	}
	if !a.filled[index] {
		a.filled[index] = true
		a.packetsCaptured++
	}
}
