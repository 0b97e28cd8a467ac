// Package can implements the DRVEGRD-UATv4 CAN framer (component A): it
// reassembles a sensor-assigned header message and its following target
// bursts into one model.TargetList per radar frame, CRC-validating the
// header and resyncing on any out-of-order identifier.
package can

import (
	"encoding/binary"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/errs"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
)

// Identifiers within the sensor-assigned CAN ID range. The header always
// arrives on HeaderID; target i's two-frame burst always arrives on
// TargetBaseID+i.
const (
	HeaderID     uint32 = 0x400
	TargetBaseID uint32 = 0x401
	MaxTargets          = 256
)

type framerState int

const (
	stateWaitHeader framerState = iota
	stateCollectTargets
)

// Stats accumulates framer-level counters, exposed for the metrics/log
// stream described in the error handling design.
type Stats struct {
	FramesReceived  uint64
	CrcFailures     uint64
	FrameUnderruns  uint64
	FrameOverruns   uint64
	ProtocolErrors  uint64
	Resyncs         uint64
}

// Framer assembles raw CAN frames into TargetLists. It is restartable: a
// fresh Framer always starts in WaitHeader, and Resync returns to
// WaitHeader without requiring the caller to reconnect the CAN socket.
type Framer struct {
	state framerState
	stats Stats

	// Header-in-progress.
	headerFrames int    // frames received for the current header (0..3)
	hdrBuf       [6]byte // frame_counter(2) num_targets(1) timestamp(2) status(1)
	hdrCRC       uint16

	frameCounter uint32
	numTargets   int
	timestampLo  uint16
	prevTsLo     uint16
	tsHigh       uint32 // accumulated wraparound in ms (a multiple of 2^16)
	statusFlags  byte

	// Target-in-progress.
	targetIndex   int
	targetFrames  int // frames received for the current target (0..2)
	targetBuf     [8]byte
	collected     []model.Target
}

// NewFramer creates a Framer ready to receive frames starting in
// WaitHeader.
func NewFramer() *Framer {
	return &Framer{state: stateWaitHeader}
}

// Stats returns a snapshot of the framer's running counters.
func (f *Framer) Stats() Stats {
	return f.stats
}

// Feed processes one raw CAN frame. It returns a non-nil TargetList when a
// complete, CRC-valid frame has been assembled; otherwise it returns
// (nil, nil) for frames that were consumed without completing anything,
// or (nil, err) for a recoverable framing/protocol error (already counted
// and logged; the caller does not need to do anything further).
func (f *Framer) Feed(raw RawFrame) (*model.TargetList, error) {
	f.stats.FramesReceived++

	switch {
	case raw.ID == HeaderID:
		return f.feedHeader(raw)
	case raw.ID >= TargetBaseID && raw.ID < TargetBaseID+MaxTargets:
		return f.feedTarget(raw)
	default:
		// Unknown ID: not part of the DRVEGRD protocol range handled here.
		return nil, nil
	}
}

func (f *Framer) feedHeader(raw RawFrame) (*model.TargetList, error) {
	if f.headerFrames == 0 && f.state == stateCollectTargets {
		// A new header burst started mid-assembly: abort the current frame.
		f.stats.FrameUnderruns++
		rlog.Debugf("can: frame underrun, header arrived with %d/%d targets collected",
			f.targetIndex, f.numTargets)
		f.state = stateWaitHeader
	}

	switch f.headerFrames {
	case 0:
		if len(raw.Data) < 3 {
			return nil, f.resync(errs.Framing("FrameUnderrun", nil))
		}
		copy(f.hdrBuf[0:3], raw.Data[0:3])
		f.headerFrames = 1
		return nil, nil
	case 1:
		if len(raw.Data) < 2 {
			return nil, f.resync(errs.Framing("FrameUnderrun", nil))
		}
		copy(f.hdrBuf[3:5], raw.Data[0:2])
		f.headerFrames = 2
		return nil, nil
	default: // 2
		if len(raw.Data) < 3 {
			return nil, f.resync(errs.Framing("FrameUnderrun", nil))
		}
		f.hdrCRC = binary.LittleEndian.Uint16(raw.Data[0:2])
		f.hdrBuf[5] = raw.Data[2]
		f.headerFrames = 0
		return f.completeHeader()
	}
}

func (f *Framer) completeHeader() (*model.TargetList, error) {
	computed := crc16CCITT(f.hdrBuf[:])
	if computed != f.hdrCRC {
		f.stats.CrcFailures++
		rlog.Debugf("can: CRC mismatch: got 0x%04x want 0x%04x", f.hdrCRC, computed)
		return nil, f.resync(errs.Framing("CrcMismatch", nil))
	}

	f.frameCounter = uint32(binary.LittleEndian.Uint16(f.hdrBuf[0:2]))
	f.numTargets = int(f.hdrBuf[2])
	f.timestampLo = binary.LittleEndian.Uint16(f.hdrBuf[3:5])
	f.statusFlags = f.hdrBuf[5]

	if f.timestampLo < f.prevTsLo {
		f.tsHigh += 1 << 16
	}
	f.prevTsLo = f.timestampLo

	f.targetIndex = 0
	f.targetFrames = 0
	f.collected = f.collected[:0]

	if f.numTargets == 0 {
		f.state = stateWaitHeader
		return f.emit(), nil
	}
	f.state = stateCollectTargets
	return nil, nil
}

func (f *Framer) feedTarget(raw RawFrame) (*model.TargetList, error) {
	if f.state != stateCollectTargets {
		// A target frame arrived with no header in progress: ignore.
		return nil, nil
	}

	wantID := TargetBaseID + uint32(f.targetIndex)
	if raw.ID != wantID {
		f.stats.ProtocolErrors++
		rlog.Debugf("can: out-of-order target id 0x%x, expected 0x%x", raw.ID, wantID)
		return nil, f.resync(errs.Protocol("ProtocolViolation", nil))
	}

	switch f.targetFrames {
	case 0:
		if len(raw.Data) < 4 {
			return nil, f.resync(errs.Framing("FrameUnderrun", nil))
		}
		copy(f.targetBuf[0:4], raw.Data[0:4])
		f.targetFrames = 1
		return nil, nil
	case 1:
		if len(raw.Data) < 4 {
			return nil, f.resync(errs.Framing("FrameUnderrun", nil))
		}
		copy(f.targetBuf[4:8], raw.Data[0:4])
		f.targetFrames = 0
		return f.completeTarget()
	default:
		return nil, nil
	}
}

// elevationOffset is the raw count that decodes to 0 rad of elevation.
// Unlike azimuth, which is stored as a direct two's-complement signed
// count centered at zero, the elevation byte is stored with a fixed
// positive offset (the sensor's mechanical tilt reference is not zero).
const elevationOffset = 120

func (f *Framer) completeTarget() (*model.TargetList, error) {
	rangeMM := binary.LittleEndian.Uint16(f.targetBuf[0:2])
	azCount := int8(f.targetBuf[2])
	elCount := int(f.targetBuf[3]) - elevationOffset
	dopplerRaw := int16(binary.LittleEndian.Uint16(f.targetBuf[4:6]))
	rcsRaw := f.targetBuf[6]
	powerRaw := f.targetBuf[7]

	const degPerCount = 0.5 * 3.14159265358979323846 / 180.0
	t := model.Target{
		Range:     float32(rangeMM) / 1000.0,
		Azimuth:   float32(azCount) * float32(degPerCount),
		Elevation: float32(elCount) * float32(degPerCount),
		Doppler:   float32(dopplerRaw) / 256.0,
		RCS:       float32(int(rcsRaw) - 64),
		Power:     float32(int(powerRaw) - 128),
	}
	f.collected = append(f.collected, t)
	f.targetIndex++

	if f.targetIndex >= f.numTargets {
		f.state = stateWaitHeader
		return f.emit(), nil
	}
	return nil, nil
}

func (f *Framer) emit() *model.TargetList {
	targets := make([]model.Target, len(f.collected))
	copy(targets, f.collected)
	return &model.TargetList{
		FrameCounter: f.frameCounter,
		Timestamp:    (uint64(f.tsHigh) + uint64(f.timestampLo)) * 1000, // ms on the wire, µs in TargetList
		Targets:      targets,
	}
}

// resync discards any in-progress assembly and returns to WaitHeader. It
// always returns the given error so callers can propagate it for logging
// while continuing to feed frames.
func (f *Framer) resync(err error) error {
	f.stats.Resyncs++
	f.state = stateWaitHeader
	f.headerFrames = 0
	f.targetFrames = 0
	f.targetIndex = 0
	f.collected = f.collected[:0]
	return err
}
