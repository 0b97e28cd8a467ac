//go:build linux

package can

import (
	"fmt"

	brutella "github.com/brutella/can"
)

// SocketCANSource adapts a real SocketCAN interface to the Source
// contract: ReadFrame blocks until brutella/can's subscriber callback
// delivers the next frame, then hands it back as a RawFrame.
type SocketCANSource struct {
	bus    *brutella.Bus
	frames chan RawFrame
	errs   chan error
	done   chan struct{}
}

// OpenSocketCAN binds to the named SocketCAN interface (e.g. "can0")
// and starts receiving frames in the background.
func OpenSocketCAN(iface string) (*SocketCANSource, error) {
	bus, err := brutella.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("can: open %s: %w", iface, err)
	}

	s := &SocketCANSource{
		bus:    bus,
		frames: make(chan RawFrame, 256),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	bus.SubscribeFunc(func(frm brutella.Frame) {
		data := make([]byte, frm.Length)
		copy(data, frm.Data[:frm.Length])
		select {
		case s.frames <- RawFrame{ID: frm.ID, Data: data}:
		case <-s.done:
		}
	})

	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			select {
			case s.errs <- err:
			default:
			}
		}
	}()

	return s, nil
}

// ReadFrame blocks until a frame arrives, the bus reports an error, or
// Close unblocks it.
func (s *SocketCANSource) ReadFrame() (RawFrame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return RawFrame{}, fmt.Errorf("can: bus error: %w", err)
	case <-s.done:
		return RawFrame{}, fmt.Errorf("can: source closed")
	}
}

// Close disconnects the bus and stops delivering frames.
func (s *SocketCANSource) Close() error {
	close(s.done)
	return s.bus.Disconnect()
}
