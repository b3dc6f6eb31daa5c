// Package fastinit performs the ISO 14230 fast initialization wake-up
// pattern on a K-Line.
package fastinit

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"time"
)

const (
	// Window is the nominal length of both the low and the high phase.
	Window = 25 * time.Millisecond
	// MaxResponse is how much of the StartCommunication reply is drained.
	MaxResponse = 40
	// BitBangBaudrate clocks a 0x00 character with start bit and eight
	// data bits spanning one Window.
	BitBangBaudrate = 360
)

var ErrUnsupported = errors.New("line does not support this fast init strategy")

// Line is the hardware a fast init runs on. WriteRaw must put bytes on
// the wire without inter request delays or echo handling.
type Line interface {
	WriteRaw(data []byte) (int, error)
	ReadAvailable(max int) ([]byte, error)
}

// Breaker drives the line low by holding the UART break condition.
type Breaker interface {
	SetBreak(on bool) error
}

// BaudSwitcher changes the UART speed on the fly.
type BaudSwitcher interface {
	Baudrate() int
	SetBaudrate(baudrate int) error
	Drain() error
}

type Timing struct {
	Low  time.Duration
	High time.Duration
}

// DefaultTiming returns the nominal windows shortened by offset, which
// compensates for adapters that lag behind the requested edge.
func DefaultTiming(offset time.Duration) Timing {
	return Timing{Low: Window - offset, High: Window - offset}
}

// Strategy produces the low/high wake-up pattern on a line.
type Strategy interface {
	Name() string
	WakeUp(line Line, t Timing) (low, high time.Duration, err error)
}

type Result struct {
	Strategy string
	Payload  []byte
	// Response holds whatever followed the payload, unvalidated. It
	// commonly contains echo and noise from the break.
	Response []byte
	Low      time.Duration
	High     time.Duration
}

// Answered reports whether Response holds anything beyond break noise
// and the echo of Payload.
func (r Result) Answered() bool {
	resp := bytes.TrimLeft(r.Response, "\x00")
	resp = bytes.TrimPrefix(resp, r.Payload)
	return len(resp) > 0
}

func (r Result) String() string {
	return fmt.Sprintf("%s fast init low %dms high %dms, % X", r.Strategy, r.Low.Milliseconds(), r.High.Milliseconds(), r.Response)
}

// Run wakes the bus with s, writes payload and drains up to MaxResponse
// bytes of reply.
func Run(line Line, s Strategy, payload []byte, t Timing) (Result, error) {
	res := Result{Strategy: s.Name(), Payload: payload}
	runtime.LockOSThread()
	low, high, err := s.WakeUp(line, t)
	runtime.UnlockOSThread()
	res.Low, res.High = low, high
	if err != nil {
		return res, fmt.Errorf("%s wake up: %w", s.Name(), err)
	}
	if _, err := line.WriteRaw(payload); err != nil {
		return res, fmt.Errorf("write start communication: %w", err)
	}
	resp, err := line.ReadAvailable(MaxResponse)
	if err != nil {
		return res, fmt.Errorf("read start communication: %w", err)
	}
	res.Response = resp
	return res, nil
}

// hold spins until d has passed since start. Sleeping would overshoot
// the window on most schedulers.
func hold(start time.Time, d time.Duration) time.Duration {
	for time.Since(start) < d {
	}
	return time.Since(start)
}

// Break holds the break condition for the low window.
type Break struct{}

func (Break) Name() string { return "break" }

func (Break) WakeUp(line Line, t Timing) (time.Duration, time.Duration, error) {
	b, ok := line.(Breaker)
	if !ok {
		return 0, 0, ErrUnsupported
	}
	if err := b.SetBreak(true); err != nil {
		return 0, 0, err
	}
	low := hold(time.Now(), t.Low)
	if err := b.SetBreak(false); err != nil {
		return low, 0, err
	}
	return low, hold(time.Now(), t.High), nil
}

// BitBang transmits a single zero character at a baud rate where start
// and data bits last one low window, then idles high.
type BitBang struct {
	// Baudrate overrides BitBangBaudrate.
	Baudrate int
}

func (BitBang) Name() string { return "bitbang" }

func (s BitBang) WakeUp(line Line, t Timing) (time.Duration, time.Duration, error) {
	bs, ok := line.(BaudSwitcher)
	if !ok {
		return 0, 0, ErrUnsupported
	}
	rate := s.Baudrate
	if rate == 0 {
		rate = BitBangBaudrate
	}
	prev := bs.Baudrate()
	if err := bs.SetBaudrate(rate); err != nil {
		return 0, 0, err
	}
	start := time.Now()
	if _, err := line.WriteRaw([]byte{0x00}); err != nil {
		bs.SetBaudrate(prev)
		return 0, 0, err
	}
	if err := bs.Drain(); err != nil {
		bs.SetBaudrate(prev)
		return 0, 0, err
	}
	low := hold(start, t.Low)
	if err := bs.SetBaudrate(prev); err != nil {
		return low, 0, err
	}
	// the stop bit returns the line high at the end of the low window
	highStart := start.Add(low)
	return low, hold(highStart, t.High), nil
}

// DefaultStrategies is the order strategies are tried in.
func DefaultStrategies() []Strategy {
	return []Strategy{Break{}, BitBang{}}
}
