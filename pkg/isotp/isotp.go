// Package isotp implements blocking ISO 15765-2 segmentation on top of a
// gkbus.FramePort so payloads larger than a CAN frame can be exchanged.
package isotp

import (
	"errors"
	"fmt"
	"time"

	"github.com/roffe/gkbus"
)

const (
	pciSingle      = 0x00
	pciFirst       = 0x10
	pciConsecutive = 0x20
	pciFlowControl = 0x30

	MaxLength = 0xFFF
)

type FlowStatus byte

const (
	ContinueToSend FlowStatus = 0
	Wait           FlowStatus = 1
	Overflow       FlowStatus = 2
)

var (
	ErrOverflow = errors.New("isotp: receiver reported overflow")
	ErrSequence = errors.New("isotp: consecutive frame out of sequence")
	ErrWait     = errors.New("isotp: too many flow control wait frames")
)

// DecodeSTmin converts a separation time byte to a duration. Reserved
// values map to the 127ms maximum.
func DecodeSTmin(b byte) time.Duration {
	if b <= 0x7F {
		return time.Duration(b) * time.Millisecond
	}
	if b >= 0xF1 && b <= 0xF9 {
		return time.Duration(b-0xF0) * 100 * time.Microsecond
	}
	return 127 * time.Millisecond
}

type Config struct {
	TxID     uint32
	RxID     uint32
	Extended bool
	// BlockSize and STmin are advertised in our flow control frames.
	BlockSize byte
	STmin     byte
	// Padding fills every frame to 8 bytes with PadByte.
	Padding bool
	PadByte byte
	// MaxWait is how many WAIT flow control frames are tolerated in a row.
	MaxWait int
}

type Conn struct {
	port gkbus.FramePort
	cfg  Config
}

func New(port gkbus.FramePort, cfg Config) *Conn {
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10
	}
	return &Conn{port: port, cfg: cfg}
}

func (c *Conn) Config() Config {
	return c.cfg
}

func (c *Conn) write(data []byte) error {
	if c.cfg.Padding {
		for len(data) < 8 {
			data = append(data, c.cfg.PadByte)
		}
	}
	f := gkbus.NewFrame(c.cfg.TxID, data)
	f.Extended = c.cfg.Extended
	_, err := c.port.WriteFrame(f)
	return err
}

func (c *Conn) read() (gkbus.RawFrame, error) {
	for {
		f, err := c.port.ReadFrame()
		if err != nil {
			return f, err
		}
		if f.ID == c.cfg.RxID && len(f.Data) > 0 {
			return f, nil
		}
	}
}

// Send transmits pdu, segmenting it when it does not fit a single frame.
func (c *Conn) Send(pdu []byte) error {
	if len(pdu) == 0 || len(pdu) > MaxLength {
		return gkbus.NewArgumentError("pdu", "length %d out of range 1-%d", len(pdu), MaxLength)
	}
	if len(pdu) <= 7 {
		return c.write(append([]byte{pciSingle | byte(len(pdu))}, pdu...))
	}

	first := append([]byte{pciFirst | byte(len(pdu)>>8), byte(len(pdu))}, pdu[:6]...)
	if err := c.write(first); err != nil {
		return fmt.Errorf("first frame: %w", err)
	}
	rest := pdu[6:]
	seq := byte(1)
	for len(rest) > 0 {
		bs, stmin, err := c.awaitFlowControl()
		if err != nil {
			return err
		}
		for sent := 0; len(rest) > 0 && (bs == 0 || sent < bs); sent++ {
			if sent > 0 && stmin > 0 {
				time.Sleep(stmin)
			}
			n := min(7, len(rest))
			if err := c.write(append([]byte{pciConsecutive | seq}, rest[:n]...)); err != nil {
				return fmt.Errorf("consecutive frame %d: %w", seq, err)
			}
			rest = rest[n:]
			seq = (seq + 1) & 0x0F
		}
	}
	return nil
}

func (c *Conn) awaitFlowControl() (int, time.Duration, error) {
	waits := 0
	for {
		f, err := c.read()
		if err != nil {
			return 0, 0, fmt.Errorf("flow control: %w", err)
		}
		if f.Data[0]&0xF0 != pciFlowControl || len(f.Data) < 3 {
			continue
		}
		switch FlowStatus(f.Data[0] & 0x0F) {
		case ContinueToSend:
			return int(f.Data[1]), DecodeSTmin(f.Data[2]), nil
		case Wait:
			waits++
			if waits > c.cfg.MaxWait {
				return 0, 0, ErrWait
			}
		case Overflow:
			return 0, 0, ErrOverflow
		}
	}
}

// Receive blocks until a complete payload has been reassembled.
func (c *Conn) Receive() ([]byte, error) {
	for {
		f, err := c.read()
		if err != nil {
			return nil, err
		}
		switch f.Data[0] & 0xF0 {
		case pciSingle:
			n := int(f.Data[0] & 0x0F)
			if n == 0 || n > len(f.Data)-1 {
				return nil, fmt.Errorf("isotp: invalid single frame length %d", n)
			}
			return append([]byte(nil), f.Data[1:1+n]...), nil
		case pciFirst:
			if len(f.Data) < 2 {
				return nil, fmt.Errorf("isotp: short first frame")
			}
			size := int(f.Data[0]&0x0F)<<8 | int(f.Data[1])
			return c.receiveSegmented(size, f.Data[2:])
		}
	}
}

func (c *Conn) flowControl() error {
	return c.write([]byte{pciFlowControl | byte(ContinueToSend), c.cfg.BlockSize, c.cfg.STmin})
}

func (c *Conn) receiveSegmented(size int, head []byte) ([]byte, error) {
	buf := make([]byte, 0, size)
	buf = append(buf, head[:min(len(head), size)]...)
	if err := c.flowControl(); err != nil {
		return nil, fmt.Errorf("flow control: %w", err)
	}
	seq := byte(1)
	block := 0
	for len(buf) < size {
		f, err := c.read()
		if err != nil {
			return nil, fmt.Errorf("consecutive frame %d: %w", seq, err)
		}
		if f.Data[0]&0xF0 != pciConsecutive {
			continue
		}
		if got := f.Data[0] & 0x0F; got != seq {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrSequence, got, seq)
		}
		n := min(size-len(buf), len(f.Data)-1)
		buf = append(buf, f.Data[1:1+n]...)
		seq = (seq + 1) & 0x0F
		block++
		if c.cfg.BlockSize > 0 && block == int(c.cfg.BlockSize) && len(buf) < size {
			block = 0
			if err := c.flowControl(); err != nil {
				return nil, fmt.Errorf("flow control: %w", err)
			}
		}
	}
	return buf, nil
}
