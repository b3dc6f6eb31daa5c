// Package virtual provides scripted in-memory ports used for testing the
// transports and protocol engines without hardware.
package virtual

import (
	"sync"
	"time"

	"github.com/roffe/gkbus"
)

type base struct {
	mu      sync.Mutex
	open    bool
	timeout time.Duration
	OpenErr error
	opened  int
	closed  int
}

func (b *base) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return &gkbus.OpeningPortError{Port: "virtual", Err: b.OpenErr}
	}
	b.open = true
	b.opened++
	return nil
}

func (b *base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.closed++
	return nil
}

func (b *base) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *base) SetTimeout(d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeout = d
	return nil
}

func (b *base) Timeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeout
}

// Opened returns how many times Open succeeded.
func (b *base) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

func (b *base) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// KLine is a StreamPort that answers writes through Responder.
type KLine struct {
	base
	// Responder returns the bytes the simulated ECU sends back after
	// data has been written.
	Responder func(data []byte) []byte
	// NoBreak makes SetBreak fail, simulating hardware without break
	// support.
	NoBreak bool

	rx       []byte
	writes   [][]byte
	raw      [][]byte
	breaks   []bool
	baudrate int
	bauds    []int
	reads    int
}

func NewKLine() *KLine {
	return &KLine{
		base:     base{timeout: gkbus.DefaultTimeout},
		baudrate: gkbus.DefaultKLineBaudrate,
	}
}

// Feed queues bytes as if the ECU had sent them.
func (k *KLine) Feed(data ...byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rx = append(k.rx, data...)
}

func (k *KLine) Read(length int) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.open {
		return nil, gkbus.ErrPortClosed
	}
	k.reads++
	if len(k.rx) < length {
		got := len(k.rx)
		k.rx = nil
		return nil, &gkbus.TimeoutError{Op: "virtual read", Timeout: k.timeout, Want: length, Got: got}
	}
	out := make([]byte, length)
	copy(out, k.rx)
	k.rx = k.rx[length:]
	return out, nil
}

func (k *KLine) ReadAvailable(max int) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.open {
		return nil, gkbus.ErrPortClosed
	}
	n := min(max, len(k.rx))
	out := make([]byte, n)
	copy(out, k.rx)
	k.rx = k.rx[n:]
	return out, nil
}

func (k *KLine) Write(data []byte) (int, error) {
	return k.write(data, false)
}

func (k *KLine) WriteRaw(data []byte) (int, error) {
	return k.write(data, true)
}

func (k *KLine) write(data []byte, raw bool) (int, error) {
	k.mu.Lock()
	if !k.open {
		k.mu.Unlock()
		return 0, gkbus.ErrPortClosed
	}
	d := make([]byte, len(data))
	copy(d, data)
	if raw {
		k.raw = append(k.raw, d)
	} else {
		k.writes = append(k.writes, d)
	}
	responder := k.Responder
	k.mu.Unlock()
	if responder != nil {
		if resp := responder(d); len(resp) > 0 {
			k.Feed(resp...)
		}
	}
	return len(data), nil
}

func (k *KLine) SetBreak(on bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.NoBreak {
		return gkbus.NewArgumentError("break", "not supported by virtual line")
	}
	k.breaks = append(k.breaks, on)
	return nil
}

func (k *KLine) Baudrate() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.baudrate
}

func (k *KLine) SetBaudrate(baudrate int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.baudrate = baudrate
	k.bauds = append(k.bauds, baudrate)
	return nil
}

func (k *KLine) Drain() error { return nil }

// Writes returns every frame passed to Write.
func (k *KLine) Writes() [][]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([][]byte(nil), k.writes...)
}

// RawWrites returns every frame passed to WriteRaw.
func (k *KLine) RawWrites() [][]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([][]byte(nil), k.raw...)
}

func (k *KLine) Breaks() []bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]bool(nil), k.breaks...)
}

// Baudrates returns the history of SetBaudrate calls.
func (k *KLine) Baudrates() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]int(nil), k.bauds...)
}

// Reads returns how many Read calls were made.
func (k *KLine) Reads() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.reads
}

// CAN is a FramePort that answers writes through Responder and honours
// the configured filters on read.
type CAN struct {
	base
	Responder func(f gkbus.RawFrame) []gkbus.RawFrame

	filters []gkbus.CANFilter
	rx      []gkbus.RawFrame
	writes  []gkbus.RawFrame
}

func NewCAN() *CAN {
	return &CAN{base: base{timeout: time.Second}}
}

func (c *CAN) Feed(frames ...gkbus.RawFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = append(c.rx, frames...)
}

func (c *CAN) ReadFrame() (gkbus.RawFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return gkbus.RawFrame{}, gkbus.ErrPortClosed
	}
	for len(c.rx) > 0 {
		f := c.rx[0]
		c.rx = c.rx[1:]
		if c.accept(f.ID) {
			return f, nil
		}
	}
	return gkbus.RawFrame{}, &gkbus.TimeoutError{Op: "virtual read frame", Timeout: c.timeout}
}

func (c *CAN) accept(id uint32) bool {
	if len(c.filters) == 0 {
		return true
	}
	for _, f := range c.filters {
		if f.Match(id) {
			return true
		}
	}
	return false
}

func (c *CAN) WriteFrame(f gkbus.RawFrame) (int, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return 0, gkbus.ErrPortClosed
	}
	f = gkbus.NewFrame(f.ID, f.Data)
	c.writes = append(c.writes, f)
	responder := c.Responder
	c.mu.Unlock()
	if responder != nil {
		c.Feed(responder(f)...)
	}
	return len(f.Data), nil
}

func (c *CAN) SetFilters(filters []gkbus.CANFilter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append([]gkbus.CANFilter(nil), filters...)
	return nil
}

func (c *CAN) Filters() []gkbus.CANFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gkbus.CANFilter(nil), c.filters...)
}

func (c *CAN) Writes() []gkbus.RawFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gkbus.RawFrame(nil), c.writes...)
}
