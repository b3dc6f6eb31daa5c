// Package gkbus holds the hardware contract shared by every bus adapter,
// transport and protocol engine of the stack.
//
// Adapters live under adapter/, register themselves with RegisterHardware
// from an init function and are created by name with NewHardware.
package gkbus

import "time"

// Port is the lifecycle every piece of bus hardware implements.
type Port interface {
	Open() error
	Close() error
	IsOpen() bool
	SetTimeout(time.Duration) error
	Timeout() time.Duration
}

// StreamPort is a byte oriented port such as a K-Line serial cable.
type StreamPort interface {
	Port
	// Read blocks until exactly length bytes have arrived. If the port
	// timeout elapses first a *TimeoutError is returned.
	Read(length int) ([]byte, error)
	// ReadAvailable reads up to max bytes, returning whatever arrived
	// before the timeout without failing on a short read.
	ReadAvailable(max int) ([]byte, error)
	Write(data []byte) (int, error)
}

// FramePort is a message oriented port such as a CAN interface.
type FramePort interface {
	Port
	ReadFrame() (RawFrame, error)
	WriteFrame(RawFrame) (int, error)
	SetFilters([]CANFilter) error
	Filters() []CANFilter
}

// CANFilter accepts a frame when id&Mask == ID&Mask.
type CANFilter struct {
	ID   uint32
	Mask uint32
}

// NewCANFilter returns a filter matching a single standard identifier.
func NewCANFilter(id uint32) CANFilter {
	return CANFilter{ID: id, Mask: 0x7FF}
}

func (f CANFilter) Match(id uint32) bool {
	return id&f.Mask == f.ID&f.Mask
}

// PortInfo describes a port found by enumeration.
type PortInfo struct {
	Port         string
	Name         string
	Description  string
	SerialNumber string
}

const (
	DefaultKLineBaudrate = 10400
	DefaultTimeout       = 2 * time.Second
)
