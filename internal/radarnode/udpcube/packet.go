// Package udpcube implements the UDP/SMS cube assembler (component B): it
// parses Smart Micro SMS transport/debug/port/cube headers out of fixed
// 1458-byte datagrams and accumulates their payloads into a 4-D radar
// cube, tolerating packet loss.
package udpcube

import (
	"encoding/binary"
	"math"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/errs"
)

// PacketSize is the fixed size of every SMS UDP datagram.
const PacketSize = 1458

// Debug header flag bits. They are OR-able; Assembler.Feed tests
// FlagStartOfFrame first, then FlagEndOfData, then FlagFrameData or
// FlagFrameFooter, so a packet carrying several is handled by the first.
const (
	FlagStartOfFrame byte = 1
	FlagFrameData    byte = 2
	FlagFrameFooter  byte = 4
	FlagEndOfData    byte = 8
)

// Transport header optional-field presence bits.
const (
	transportFlagMessageCounter = 0x01
	transportFlagClientID       = 0x08
	transportFlagDataID         = 0x20
	transportFlagSegmentation   = 0x40
)

const transportStartByte = 0x7E
const transportFixedLen = 7 // start, version, header_length, payload_length(2), app_protocol, flags
const transportCRCLen = 2

// TransportHeader is the outer envelope of every SMS datagram. Optional
// fields are present only when their corresponding flag bit is set;
// HeaderLength gives the total length actually used, CRC included.
type TransportHeader struct {
	ProtocolVersion     byte
	HeaderLength        byte
	PayloadLength       uint16
	ApplicationProtocol byte
	Flags               byte
	MessageCounter      uint16
	HasMessageCounter   bool
	ClientID            uint32
	HasClientID         bool
	DataID              uint16
	HasDataID           bool
	Segmentation        uint16
	HasSegmentation     bool
	CRC                 uint16
}

// parseTransportHeader reads the fixed prefix and any optional fields
// gated by Flags, returning the byte offset where the debug header begins.
func parseTransportHeader(data []byte) (TransportHeader, int, error) {
	var h TransportHeader
	if len(data) < transportFixedLen+transportCRCLen {
		return h, 0, errs.Framing("HeaderInvalid", nil)
	}
	if data[0] != transportStartByte {
		return h, 0, errs.Framing("HeaderInvalid", nil)
	}

	h.ProtocolVersion = data[1]
	h.HeaderLength = data[2]
	h.PayloadLength = binary.LittleEndian.Uint16(data[3:5])
	h.ApplicationProtocol = data[5]
	h.Flags = data[6]

	off := transportFixedLen
	if h.Flags&transportFlagMessageCounter != 0 {
		if len(data) < off+2 {
			return h, 0, errs.Framing("HeaderInvalid", nil)
		}
		h.MessageCounter = binary.LittleEndian.Uint16(data[off : off+2])
		h.HasMessageCounter = true
		off += 2
	}
	if h.Flags&transportFlagClientID != 0 {
		if len(data) < off+4 {
			return h, 0, errs.Framing("HeaderInvalid", nil)
		}
		h.ClientID = binary.LittleEndian.Uint32(data[off : off+4])
		h.HasClientID = true
		off += 4
	}
	if h.Flags&transportFlagDataID != 0 {
		if len(data) < off+2 {
			return h, 0, errs.Framing("HeaderInvalid", nil)
		}
		h.DataID = binary.LittleEndian.Uint16(data[off : off+2])
		h.HasDataID = true
		off += 2
	}
	if h.Flags&transportFlagSegmentation != 0 {
		if len(data) < off+2 {
			return h, 0, errs.Framing("HeaderInvalid", nil)
		}
		h.Segmentation = binary.LittleEndian.Uint16(data[off : off+2])
		h.HasSegmentation = true
		off += 2
	}
	if len(data) < off+transportCRCLen {
		return h, 0, errs.Framing("HeaderInvalid", nil)
	}
	h.CRC = binary.LittleEndian.Uint16(data[off : off+transportCRCLen])
	off += transportCRCLen

	return h, off, nil
}

// DebugHeader carries the frame-level sequencing information that keys
// the assembler's state machine.
type DebugHeader struct {
	FrameCounter uint32
	Flags        byte
	FrameDelay   uint32 // 3-byte field in the wire format, widened for convenience
}

const debugHeaderLen = 8

func parseDebugHeader(data []byte) (DebugHeader, error) {
	if len(data) < debugHeaderLen {
		return DebugHeader{}, errs.Framing("HeaderInvalid", nil)
	}
	var d DebugHeader
	d.FrameCounter = binary.LittleEndian.Uint32(data[0:4])
	d.Flags = data[4]
	d.FrameDelay = uint32(data[5]) | uint32(data[6])<<8 | uint32(data[7])<<16
	return d, nil
}

// PortHeader carries the logical offset (Index) of this packet's payload
// within the cube being assembled.
type PortHeader struct {
	PortID                uint32
	InterfaceVersionMajor byte
	InterfaceVersionMinor byte
	Timestamp             uint64 // microseconds
	Size                  uint16
	Endianness            byte
	Index                 uint16
	HeaderVersion         uint16
}

const portHeaderLen = 24

func parsePortHeader(data []byte) (PortHeader, error) {
	if len(data) < portHeaderLen {
		return PortHeader{}, errs.Framing("HeaderInvalid", nil)
	}
	var p PortHeader
	p.PortID = binary.LittleEndian.Uint32(data[0:4])
	p.InterfaceVersionMajor = data[4]
	p.InterfaceVersionMinor = data[5]
	p.Timestamp = binary.LittleEndian.Uint64(data[8:16])
	p.Size = binary.LittleEndian.Uint16(data[16:18])
	p.Endianness = data[18]
	p.Index = binary.LittleEndian.Uint16(data[20:22])
	p.HeaderVersion = binary.LittleEndian.Uint16(data[22:24])
	return p, nil
}

// CubeHeader describes the shape and memory layout of the cube being
// started. It is present only on the packet carrying FlagStartOfFrame.
type CubeHeader struct {
	ImagOffset       uint32
	RealOffset       uint32
	RangeGateOffset  uint32
	DopplerBinOffset uint32
	RxChannelOffset  uint32
	ChirpTypeOffset  uint32

	RangeGates     uint16
	FirstRangeGate uint16
	DopplerBins    uint16
	RxChannels     byte
	ChirpTypes     byte

	ElementSize byte
	ElementType byte
}

const cubeHeaderLen = 40

func parseCubeHeader(data []byte) (CubeHeader, error) {
	if len(data) < cubeHeaderLen {
		return CubeHeader{}, errs.Framing("HeaderInvalid", nil)
	}
	var c CubeHeader
	c.ImagOffset = binary.LittleEndian.Uint32(data[0:4])
	c.RealOffset = binary.LittleEndian.Uint32(data[4:8])
	c.RangeGateOffset = binary.LittleEndian.Uint32(data[8:12])
	c.DopplerBinOffset = binary.LittleEndian.Uint32(data[12:16])
	c.RxChannelOffset = binary.LittleEndian.Uint32(data[16:20])
	c.ChirpTypeOffset = binary.LittleEndian.Uint32(data[20:24])
	c.RangeGates = binary.LittleEndian.Uint16(data[24:26])
	c.FirstRangeGate = binary.LittleEndian.Uint16(data[26:28])
	c.DopplerBins = binary.LittleEndian.Uint16(data[28:30])
	c.RxChannels = data[30]
	c.ChirpTypes = data[31]
	c.ElementSize = data[32]
	c.ElementType = data[33]
	// data[34:40] reserved padding.
	return c, nil
}

// BinProps is the emitted bin-properties triple described in §4.B and
// §4.B's scales-vs-dimensions rule.
type BinProps struct {
	SpeedPerBin float32
	RangePerBin float32
	BinPerSpeed float32
}

const binPropsLen = 12

func parseBinProps(data []byte) (BinProps, error) {
	if len(data) < binPropsLen {
		return BinProps{}, errs.Framing("HeaderInvalid", nil)
	}
	return BinProps{
		SpeedPerBin: float32FromLE(data[0:4]),
		RangePerBin: float32FromLE(data[4:8]),
		BinPerSpeed: float32FromLE(data[8:12]),
	}, nil
}

func float32FromLE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
