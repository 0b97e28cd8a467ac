package pcapreplay

import (
	"encoding/binary"
	"testing"
)

func rawCANFrame(id uint32, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = byte(len(data))
	copy(buf[8:], data)
	return buf
}

func TestDecodeSocketCANFrameExtractsIDAndData(t *testing.T) {
	data := rawCANFrame(0x400, []byte{0x01, 0x02, 0x03})
	frame, ok := decodeSocketCANFrame(data)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if frame.ID != 0x400 {
		t.Fatalf("ID = %#x, want 0x400", frame.ID)
	}
	if string(frame.Data) != "\x01\x02\x03" {
		t.Fatalf("Data = %v", frame.Data)
	}
}

func TestDecodeSocketCANFrameMasksExtendedIDFlag(t *testing.T) {
	const extendedFlag = 0x80000000
	data := rawCANFrame(extendedFlag|0x401, []byte{0xAA})
	frame, ok := decodeSocketCANFrame(data)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if frame.ID != 0x401 {
		t.Fatalf("ID = %#x, want 0x401", frame.ID)
	}
}

func TestDecodeSocketCANFrameRejectsErrorFrames(t *testing.T) {
	const errFlag = 0x20000000
	data := rawCANFrame(errFlag|0x400, []byte{0x00})
	if _, ok := decodeSocketCANFrame(data); ok {
		t.Fatal("expected ok=false for an error frame")
	}
}

func TestDecodeSocketCANFrameRejectsShortPacket(t *testing.T) {
	if _, ok := decodeSocketCANFrame([]byte{0x01, 0x02}); ok {
		t.Fatal("expected ok=false for a truncated packet")
	}
}

func TestDecodeSocketCANFrameRejectsOversizedDLC(t *testing.T) {
	data := rawCANFrame(0x400, []byte{})
	data[4] = 9 // DLC must be <= 8
	if _, ok := decodeSocketCANFrame(data); ok {
		t.Fatal("expected ok=false for dlc > 8")
	}
}

func TestTopicPrefixDefaultsWhenEmpty(t *testing.T) {
	if got := topicPrefix(""); got != "/rt/radar" {
		t.Fatalf("topicPrefix(\"\") = %q", got)
	}
	if got := topicPrefix("/custom"); got != "/custom" {
		t.Fatalf("topicPrefix(custom) = %q", got)
	}
}
