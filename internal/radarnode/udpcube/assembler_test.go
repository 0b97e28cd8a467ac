package udpcube

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
)

// buildPacket assembles one SMS datagram with a minimal transport header
// (no optional fields), the given debug flags/frame counter, a port
// header carrying index, and the caller-supplied rest (cube header +
// bin properties + payload, or just payload for non-start packets).
func buildPacket(flags byte, frameCounter uint32, index uint16, rest []byte) []byte {
	var buf []byte

	// Transport header: start byte, version, header_length, payload_length,
	// app_protocol, flags(=0, no optional fields), crc.
	th := make([]byte, transportFixedLen+transportCRCLen)
	th[0] = transportStartByte
	th[1] = 1
	th[2] = byte(len(th))
	binary.LittleEndian.PutUint16(th[3:5], uint16(len(rest)))
	th[5] = 0
	th[6] = 0
	// th[7:9] CRC left zero; not validated by this implementation.
	buf = append(buf, th...)

	dbg := make([]byte, debugHeaderLen)
	binary.LittleEndian.PutUint32(dbg[0:4], frameCounter)
	dbg[4] = flags
	buf = append(buf, dbg...)

	port := make([]byte, portHeaderLen)
	binary.LittleEndian.PutUint16(port[20:22], index)
	buf = append(buf, port...)

	buf = append(buf, rest...)
	return buf
}

func cubeHeaderBytes(chirpTypes, rangeGates, rxChannels, dopplerBins byte) []byte {
	b := make([]byte, cubeHeaderLen)
	b[24] = rangeGates
	b[28] = dopplerBins
	b[30] = rxChannels
	b[31] = chirpTypes
	b[32] = 4 // element size: complex sample = 2 int16
	return b
}

func binPropsBytes(speedPerBin, rangePerBin, binPerSpeed float32) []byte {
	b := make([]byte, binPropsLen)
	putF32(b[0:4], speedPerBin)
	putF32(b[4:8], rangePerBin)
	putF32(b[8:12], binPerSpeed)
	return b
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func TestCubeLossScenario(t *testing.T) {
	a := NewAssembler()

	shape := cubeHeaderBytes(2, 4, 2, 2) // shape [2,4,2,2] -> 32 complex samples, 128 bytes
	props := binPropsBytes(1.0, 2.0, 0.5)
	startPayload := make([]byte, 32)
	for i := range startPayload {
		startPayload[i] = 0xAB
	}
	startRest := append(append(append([]byte{}, shape...), props...), startPayload...)

	startPkt := buildPacket(FlagStartOfFrame, 7, 0, startRest)
	cube, err := a.Feed(startPkt)
	if err != nil {
		t.Fatalf("start packet: %v", err)
	}
	if cube != nil {
		t.Fatalf("expected no cube from start packet alone")
	}

	dataPayload := make([]byte, 32)
	dataPkt := buildPacket(FlagFrameData, 7, 1, dataPayload)
	cube, err = a.Feed(dataPkt)
	if err != nil {
		t.Fatalf("data packet: %v", err)
	}
	if cube != nil {
		t.Fatalf("expected no cube from data packet")
	}

	endPkt := buildPacket(FlagEndOfData, 7, 0, nil)
	cube, err = a.Feed(endPkt)
	if err != nil {
		t.Fatalf("end packet: %v", err)
	}
	if cube == nil {
		t.Fatalf("expected a cube on END_OF_DATA")
	}
	if cube.MissingBytes != 64 {
		t.Errorf("missing_bytes = %d, want 64", cube.MissingBytes)
	}
	if cube.PacketsCaptured != 2 {
		t.Errorf("packets_captured = %d, want 2", cube.PacketsCaptured)
	}
	if cube.PacketsSkipped != 0 {
		t.Errorf("packets_skipped = %d, want 0", cube.PacketsSkipped)
	}
	wantShape := model.CubeShape{2, 4, 2, 2}
	if cube.Shape != wantShape {
		t.Errorf("shape = %v, want %v", cube.Shape, wantShape)
	}
}

func TestEmptyCubeFullLoss(t *testing.T) {
	shape := model.CubeShape{2, 4, 2, 2}
	cube := EmptyCube(9, shape, model.BinProperties{})
	if cube.MissingBytes != uint64(2*shape.Elements()*2) {
		t.Errorf("missing_bytes = %d, want %d", cube.MissingBytes, 2*shape.Elements()*2)
	}
	for _, s := range cube.Samples {
		if s != 0 {
			t.Fatalf("expected all-zero samples, got %d", s)
		}
	}
}

func TestStaleFrameEmittedOnNewStart(t *testing.T) {
	a := NewAssembler()

	shape := cubeHeaderBytes(1, 1, 1, 1)
	props := binPropsBytes(0, 0, 0)
	payload := make([]byte, 4)
	rest := append(append(append([]byte{}, shape...), props...), payload...)

	first := buildPacket(FlagStartOfFrame, 1, 0, rest)
	if _, err := a.Feed(first); err != nil {
		t.Fatalf("first start: %v", err)
	}

	second := buildPacket(FlagStartOfFrame, 2, 0, rest)
	cube, err := a.Feed(second)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if cube == nil {
		t.Fatalf("expected the stale frame-1 cube to be emitted")
	}
	if cube.FrameCounter != 1 {
		t.Errorf("frame_counter = %d, want 1 (the stale frame)", cube.FrameCounter)
	}
}
