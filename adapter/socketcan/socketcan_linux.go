package socketcan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/roffe/gkbus"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/candevice"
	"go.einride.tech/can/pkg/socketcan"
)

const (
	frameSize = 16
	effFlag   = 0x80000000
	rtrFlag   = 0x40000000
	errFlag   = 0x20000000
	effMask   = 0x1FFFFFFF
)

type SocketCAN struct {
	cfg *gkbus.Config

	mu      sync.Mutex
	dev     *candevice.Device
	conn    net.Conn
	tx      *socketcan.Transmitter
	filters []gkbus.CANFilter
	timeout time.Duration
}

var _ gkbus.FramePort = (*SocketCAN)(nil)

func newPort(cfg *gkbus.Config) (gkbus.Port, error) {
	return New(cfg), nil
}

func New(cfg *gkbus.Config) *SocketCAN {
	cfg.Defaults()
	return &SocketCAN{
		cfg:     cfg,
		timeout: cfg.Timeout,
		filters: append([]gkbus.CANFilter(nil), cfg.CANFilter...),
	}
}

func (a *SocketCAN) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}
	if a.cfg.CANRate > 0 {
		d, err := candevice.New(a.cfg.Port)
		if err != nil {
			return &gkbus.OpeningPortError{Port: a.cfg.Port, Err: err}
		}
		if err := d.SetBitrate(uint32(a.cfg.CANRate * 1000)); err != nil {
			return &gkbus.OpeningPortError{Port: a.cfg.Port, Err: err}
		}
		if err := d.SetUp(); err != nil {
			return &gkbus.OpeningPortError{Port: a.cfg.Port, Err: err}
		}
		a.dev = d
	}
	conn, err := socketcan.DialContext(context.Background(), "can", a.cfg.Port)
	if err != nil {
		a.setDown()
		return &gkbus.OpeningPortError{Port: a.cfg.Port, Err: err}
	}
	a.conn = conn
	a.tx = socketcan.NewTransmitter(conn)
	return nil
}

func (a *SocketCAN) setDown() {
	if a.dev == nil {
		return
	}
	if err := a.dev.SetDown(); err != nil {
		a.cfg.OnError(fmt.Errorf("%s down: %w", a.cfg.Port, err))
	}
	a.dev = nil
}

func (a *SocketCAN) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	a.tx = nil
	a.setDown()
	return err
}

func (a *SocketCAN) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

func (a *SocketCAN) SetTimeout(d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timeout = d
	return nil
}

func (a *SocketCAN) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeout
}

// SetFilters is applied in software to every received frame.
func (a *SocketCAN) SetFilters(filters []gkbus.CANFilter) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters = append([]gkbus.CANFilter(nil), filters...)
	return nil
}

func (a *SocketCAN) Filters() []gkbus.CANFilter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]gkbus.CANFilter(nil), a.filters...)
}

func (a *SocketCAN) accept(id uint32) bool {
	if len(a.filters) == 0 {
		return true
	}
	for _, f := range a.filters {
		if f.Match(id) {
			return true
		}
	}
	return false
}

func (a *SocketCAN) WriteFrame(f gkbus.RawFrame) (int, error) {
	a.mu.Lock()
	tx, timeout := a.tx, a.timeout
	a.mu.Unlock()
	if tx == nil {
		return 0, gkbus.ErrPortClosed
	}
	frame := can.Frame{ID: f.ID, Length: uint8(len(f.Data)), IsExtended: f.Extended}
	copy(frame.Data[:], f.Data)
	if err := frame.Validate(); err != nil {
		return 0, gkbus.NewArgumentError("frame", "%v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := tx.TransmitFrame(ctx, frame); err != nil {
		return 0, fmt.Errorf("socketcan transmit: %w", err)
	}
	a.cfg.Debugf("-> %s", f)
	return len(f.Data), nil
}

// ReadFrame skips error, remote and filtered frames until one matches
// or the timeout elapses.
func (a *SocketCAN) ReadFrame() (gkbus.RawFrame, error) {
	a.mu.Lock()
	conn, timeout := a.conn, a.timeout
	a.mu.Unlock()
	if conn == nil {
		return gkbus.RawFrame{}, gkbus.ErrPortClosed
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return gkbus.RawFrame{}, err
	}
	buf := make([]byte, frameSize)
	for {
		if _, err := readFull(conn, buf); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return gkbus.RawFrame{}, &gkbus.TimeoutError{Op: "socketcan read", Timeout: timeout}
			}
			return gkbus.RawFrame{}, fmt.Errorf("socketcan read: %w", err)
		}
		f, ok := decode(buf)
		if !ok {
			continue
		}
		a.mu.Lock()
		ok = a.accept(f.ID)
		a.mu.Unlock()
		if ok {
			a.cfg.Debugf("<- %s", f)
			return f, nil
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// decode parses a struct can_frame, reporting false for error and
// remote frames.
func decode(b []byte) (gkbus.RawFrame, bool) {
	id := binary.NativeEndian.Uint32(b[0:4])
	if id&(errFlag|rtrFlag) != 0 {
		return gkbus.RawFrame{}, false
	}
	length := b[4]
	if length > 8 {
		length = 8
	}
	f := gkbus.NewFrame(id&effMask, b[8:8+length])
	f.Extended = id&effFlag != 0
	return f, true
}
