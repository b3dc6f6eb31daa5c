// Package transport moves protocol PDUs between an engine and bus
// hardware, capturing every packet into a per transport buffer.
package transport

import (
	"context"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/capture"
	"github.com/roffe/gkbus/pkg/fastinit"
)

type Transport interface {
	Open() error
	Close() error
	IsOpen() bool
	Send(pdu []byte) (int, error)
	Receive() ([]byte, error)
	SendAndReceive(pdu []byte) ([]byte, error)
	SetTimeout(time.Duration) error
	Timeout() time.Duration
	Buffer() *capture.Buffer
}

// BusInitializable is implemented by transports whose bus must be woken
// with a fast init before the first request.
type BusInitializable interface {
	FastInit(ctx context.Context, s fastinit.Strategy, pdu []byte) (fastinit.Result, error)
	FastInitStrategies() []fastinit.Strategy
}

type options struct {
	bufferSize     int
	strategies     []fastinit.Strategy
	timingOffset   time.Duration
	verifyChecksum bool
	isotp          isotpOptions
	onMessage      func(string)
}

type isotpOptions struct {
	padding   bool
	padByte   byte
	blockSize byte
	stmin     byte
}

type Option func(*options)

func defaultOptions() options {
	return options{
		bufferSize: capture.DefaultCapacity,
		strategies: fastinit.DefaultStrategies(),
		onMessage:  func(string) {},
	}
}

// WithBufferSize sets the capture capacity, see capture.Unbounded and
// capture.Disabled.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

func WithFastInitStrategies(s ...fastinit.Strategy) Option {
	return func(o *options) {
		o.strategies = s
	}
}

// WithTimingOffset shortens both fast init windows by d.
func WithTimingOffset(d time.Duration) Option {
	return func(o *options) {
		o.timingOffset = d
	}
}

func WithChecksumVerification() Option {
	return func(o *options) {
		o.verifyChecksum = true
	}
}

// WithPadding pads every ISO-TP frame to 8 bytes.
func WithPadding(b byte) Option {
	return func(o *options) {
		o.isotp.padding = true
		o.isotp.padByte = b
	}
}

// WithFlowControl sets the block size and separation time advertised to
// the ECU when receiving segmented responses.
func WithFlowControl(blockSize, stmin byte) Option {
	return func(o *options) {
		o.isotp.blockSize = blockSize
		o.isotp.stmin = stmin
	}
}

func WithOnMessage(fn func(string)) Option {
	return func(o *options) {
		if fn != nil {
			o.onMessage = fn
		}
	}
}

func openPort(p gkbus.Port) error {
	if p == nil {
		return gkbus.ErrNilHardware
	}
	if p.IsOpen() {
		return nil
	}
	return p.Open()
}

func filterFor(id uint32) gkbus.CANFilter {
	if id > 0x7FF {
		return gkbus.CANFilter{ID: id, Mask: 0x1FFFFFFF}
	}
	return gkbus.NewCANFilter(id)
}

// capturing is embedded by every transport.
type capturing struct {
	buf *capture.Buffer
}

func (c *capturing) Buffer() *capture.Buffer {
	return c.buf
}

// Dump returns and clears the captured packets.
func (c *capturing) Dump() []capture.RawPacket {
	return c.buf.Dump()
}

func (c *capturing) outgoing(data []byte) {
	c.buf.Push(capture.NewPacket(capture.Outgoing, data))
}

func (c *capturing) incoming(data []byte) {
	c.buf.Push(capture.NewPacket(capture.Incoming, data))
}

var (
	_ Transport        = (*KLine)(nil)
	_ BusInitializable = (*KLine)(nil)
	_ Transport        = (*KWPOverCAN)(nil)
	_ Transport        = (*CCPOverCAN)(nil)
)
