// Package kline frames KWP2000 PDUs for the ISO 14230 K-Line.
//
// A frame on the wire is
//
//	counter | id hi | id lo | [length] | pdu ... | checksum
//
// where counter is 0x80 plus the PDU length for short PDUs and 0x80 alone
// when an explicit length byte follows the id.
package kline

import (
	"errors"
	"fmt"

	"github.com/roffe/gkbus"
)

const (
	// CounterBase is the format byte for physical addressing with
	// address information.
	CounterBase = 0x80
	// MaxShortLength is the longest PDU whose length fits in the counter.
	MaxShortLength = 126
	MaxLength      = 0xFF
)

var ErrChecksum = errors.New("k-line checksum mismatch")

// Address joins a target and source address into the 16 bit header id.
func Address(target, source byte) uint16 {
	return uint16(target)<<8 | uint16(source)
}

type Frame struct {
	Counter  byte
	ID       uint16
	Length   int
	Payload  []byte
	Checksum byte
}

// Checksum returns the 8 bit sum of data.
func Checksum(data []byte) byte {
	var cs byte
	for _, b := range data {
		cs += b
	}
	return cs
}

// Encode builds the wire frame for pdu addressed with id.
func Encode(id uint16, pdu []byte) ([]byte, error) {
	if len(pdu) > MaxLength {
		return nil, gkbus.NewArgumentError("pdu", "length %d exceeds %d bytes", len(pdu), MaxLength)
	}
	out := make([]byte, 0, len(pdu)+5)
	if len(pdu) == 0 || len(pdu) > MaxShortLength {
		out = append(out, CounterBase, byte(id>>8), byte(id), byte(len(pdu)))
	} else {
		out = append(out, CounterBase+byte(len(pdu)), byte(id>>8), byte(id))
	}
	out = append(out, pdu...)
	return append(out, Checksum(out)), nil
}

// Reader is the subset of a stream port the decoder consumes.
type Reader interface {
	Read(length int) ([]byte, error)
}

type Decoder struct {
	// RxID is the id expected in incoming frames, others are skipped.
	RxID uint16
	// VerifyChecksum rejects frames whose checksum does not match.
	VerifyChecksum bool
	// MaxSkip bounds how many foreign frames are dropped per Decode.
	MaxSkip int
	// OnSkip is called with every frame dropped because of its id.
	OnSkip func(Frame)
}

const defaultMaxSkip = 16

// Decode reads frames from r until one addressed to RxID arrives.
func (d *Decoder) Decode(r Reader) (Frame, error) {
	maxSkip := d.MaxSkip
	if maxSkip <= 0 {
		maxSkip = defaultMaxSkip
	}
	for i := 0; ; i++ {
		f, err := d.decodeOne(r)
		if err != nil {
			return f, err
		}
		if f.ID == d.RxID {
			return f, nil
		}
		if d.OnSkip != nil {
			d.OnSkip(f)
		}
		if i >= maxSkip {
			return f, fmt.Errorf("%w: id 0x%04X, want 0x%04X", gkbus.ErrUnknownFrame, f.ID, d.RxID)
		}
	}
}

func (d *Decoder) decodeOne(r Reader) (Frame, error) {
	var f Frame
	header, err := r.Read(3)
	if err != nil {
		return f, fmt.Errorf("read header: %w", err)
	}
	f.Counter = header[0]
	f.ID = uint16(header[1])<<8 | uint16(header[2])
	sum := Checksum(header)

	f.Length = int(f.Counter) - CounterBase
	if f.Counter == CounterBase {
		l, err := r.Read(1)
		if err != nil {
			return f, fmt.Errorf("read length: %w", err)
		}
		f.Length = int(l[0])
		sum += l[0]
	}
	if f.Length < 0 {
		return f, fmt.Errorf("invalid counter byte 0x%02X", f.Counter)
	}

	body, err := r.Read(f.Length + 1)
	if err != nil {
		return f, fmt.Errorf("read payload: %w", err)
	}
	f.Payload = body[:f.Length]
	f.Checksum = body[f.Length]
	sum += Checksum(f.Payload)

	if d.VerifyChecksum && sum != f.Checksum {
		return f, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, f.Checksum, sum)
	}
	return f, nil
}
