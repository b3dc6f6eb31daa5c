// Package kkl drives a K-Line through a serial "KKL" cable. Importing it
// registers the "KKL" hardware.
package kkl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/fastinit"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const Name = "KKL"

// DefaultWriteDelay is waited before every request when Config.WriteDelay
// is zero, some ECUs miss requests sent right after a reply.
const DefaultWriteDelay = 100 * time.Millisecond

func init() {
	if err := gkbus.RegisterHardware(&gkbus.HardwareInfo{
		Name:        Name,
		Description: "Serial K-Line (KKL) cable",
		Kind:        gkbus.KindStream,
		New: func(cfg *gkbus.Config) (gkbus.Port, error) {
			return New(cfg), nil
		},
		Enumerate: Enumerate,
	}); err != nil {
		panic(err)
	}
}

type KKL struct {
	cfg *gkbus.Config

	mu       sync.Mutex
	port     serial.Port
	brk      *breakControl
	baudrate int
	timeout  time.Duration
}

var (
	_ gkbus.StreamPort      = (*KKL)(nil)
	_ fastinit.Line         = (*KKL)(nil)
	_ fastinit.Breaker      = (*KKL)(nil)
	_ fastinit.BaudSwitcher = (*KKL)(nil)
)

func New(cfg *gkbus.Config) *KKL {
	cfg.Defaults()
	if cfg.WriteDelay == 0 {
		cfg.WriteDelay = DefaultWriteDelay
	}
	return &KKL{
		cfg:      cfg,
		baudrate: cfg.PortBaudrate,
		timeout:  cfg.Timeout,
	}
}

func (k *KKL) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: k.baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
}

func (k *KKL) Open() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.port != nil {
		return nil
	}
	// the break control handle must exist before the port is opened
	// exclusively
	brk, err := openBreakControl(k.cfg.Port)
	if err != nil {
		k.cfg.Debugf("no break control on %s: %v", k.cfg.Port, err)
	}
	p, err := serial.Open(k.cfg.Port, k.mode())
	if err != nil {
		brk.Close()
		return &gkbus.OpeningPortError{Port: k.cfg.Port, Err: err}
	}
	k.port = p
	k.brk = brk
	if err := k.resetAdapter(); err != nil {
		k.closeLocked()
		return &gkbus.OpeningPortError{Port: k.cfg.Port, Err: err}
	}
	return nil
}

// resetAdapter pulses DTR, then drops DTR and RTS to select K-Line mode.
// Several clone cables refuse to fast init otherwise.
func (k *KKL) resetAdapter() error {
	if err := k.port.SetDTR(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := k.port.SetDTR(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := k.port.SetRTS(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := k.port.ResetInputBuffer(); err != nil {
		return err
	}
	return k.port.ResetOutputBuffer()
}

func (k *KKL) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closeLocked()
}

func (k *KKL) closeLocked() error {
	if k.port == nil {
		return nil
	}
	if k.brk != nil {
		k.brk.Set(false)
		k.brk.Close()
		k.brk = nil
	}
	k.port.ResetInputBuffer()
	k.port.ResetOutputBuffer()
	err := k.port.Close()
	k.port = nil
	return err
}

func (k *KKL) IsOpen() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.port != nil
}

func (k *KKL) SetTimeout(d time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.timeout = d
	return nil
}

func (k *KKL) Timeout() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.timeout
}

func (k *KKL) open() (serial.Port, time.Duration, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.port == nil {
		return nil, 0, gkbus.ErrPortClosed
	}
	return k.port, k.timeout, nil
}

// read fills up to max bytes until the timeout elapses.
func read(p serial.Port, max int, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, max)
	buf := make([]byte, max)
	deadline := time.Now().Add(timeout)
	for len(out) < max {
		left := time.Until(deadline)
		if left <= 0 {
			break
		}
		if err := p.SetReadTimeout(left); err != nil {
			return out, err
		}
		n, err := p.Read(buf[:max-len(out)])
		if err != nil {
			return out, fmt.Errorf("serial read: %w", err)
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

func (k *KKL) Read(length int) ([]byte, error) {
	p, timeout, err := k.open()
	if err != nil {
		return nil, err
	}
	data, err := read(p, length, timeout)
	if err != nil {
		return data, err
	}
	if len(data) < length {
		return data, &gkbus.TimeoutError{Op: "kkl read", Timeout: timeout, Want: length, Got: len(data)}
	}
	return data, nil
}

func (k *KKL) ReadAvailable(max int) ([]byte, error) {
	p, timeout, err := k.open()
	if err != nil {
		return nil, err
	}
	return read(p, max, timeout)
}

// Write sends a request after the configured write delay and consumes
// the echo the single wire bus loops back.
func (k *KKL) Write(data []byte) (int, error) {
	p, timeout, err := k.open()
	if err != nil {
		return 0, err
	}
	if k.cfg.WriteDelay > 0 {
		time.Sleep(k.cfg.WriteDelay)
	}
	n, err := p.Write(data)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	if err := p.Drain(); err != nil {
		return n, fmt.Errorf("serial drain: %w", err)
	}
	if k.cfg.NoEcho {
		return n, nil
	}
	echo, err := read(p, n, timeout)
	if err != nil {
		return n, err
	}
	if !bytes.Equal(echo, data[:n]) {
		k.cfg.OnError(fmt.Errorf("k-line echo differs from request\nsent: % X\necho: % X", data[:n], echo))
	}
	return n, nil
}

// WriteRaw writes data immediately, leaving any echo in the input buffer.
func (k *KKL) WriteRaw(data []byte) (int, error) {
	p, _, err := k.open()
	if err != nil {
		return 0, err
	}
	n, err := p.Write(data)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	return n, nil
}

func (k *KKL) SetBreak(on bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.port == nil {
		return gkbus.ErrPortClosed
	}
	if k.brk == nil {
		return fastinit.ErrUnsupported
	}
	return k.brk.Set(on)
}

func (k *KKL) Baudrate() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.baudrate
}

func (k *KKL) SetBaudrate(baudrate int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.baudrate = baudrate
	if k.port == nil {
		return nil
	}
	return k.port.SetMode(k.mode())
}

func (k *KKL) Drain() error {
	p, _, err := k.open()
	if err != nil {
		return err
	}
	return p.Drain()
}

// Enumerate lists the serial ports of the system, USB details included
// where the platform reports them.
func Enumerate() ([]gkbus.PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var out []gkbus.PortInfo
	for _, p := range ports {
		info := gkbus.PortInfo{Port: p.Name, Name: filepath.Base(p.Name)}
		if p.IsUSB {
			info.Description = fmt.Sprintf("%s (%s:%s)", p.Product, p.VID, p.PID)
			info.SerialNumber = p.SerialNumber
		}
		out = append(out, info)
	}
	return out, nil
}
