package isotp

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/adapter/virtual"
)

func newPort(t *testing.T) *virtual.CAN {
	t.Helper()
	p := virtual.NewCAN()
	if err := p.Open(); err != nil {
		t.Fatal(err)
	}
	return p
}

func payload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestDecodeSTmin(t *testing.T) {
	tests := []struct {
		in   byte
		want time.Duration
	}{
		{0x00, 0},
		{0x0A, 10 * time.Millisecond},
		{0x7F, 127 * time.Millisecond},
		{0xF1, 100 * time.Microsecond},
		{0xF9, 900 * time.Microsecond},
		{0x80, 127 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := DecodeSTmin(tt.in); got != tt.want {
			t.Errorf("DecodeSTmin(0x%02X) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSendSingleFrame(t *testing.T) {
	p := newPort(t)
	c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8, Padding: true, PadByte: 0xAA})
	if err := c.Send([]byte{0x1A, 0x90}); err != nil {
		t.Fatal(err)
	}
	w := p.Writes()
	want := []byte{0x02, 0x1A, 0x90, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	if len(w) != 1 || w[0].ID != 0x7E0 || !bytes.Equal(w[0].Data, want) {
		t.Fatalf("unexpected writes %v", w)
	}
}

func TestSendSegmented(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		blockSize byte
		frames    int
	}{
		{"no block limit", 20, 0, 3},
		{"block size 1", 20, 1, 3},
		{"long", 200, 4, 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPort(t)
			p.Responder = func(f gkbus.RawFrame) []gkbus.RawFrame {
				pci := f.Data[0] & 0xF0
				fc := gkbus.NewFrame(0x7E8, []byte{0x30, tt.blockSize, 0x00})
				if pci == pciFirst {
					return []gkbus.RawFrame{fc}
				}
				if pci == pciConsecutive && tt.blockSize > 0 && int(f.Data[0]&0x0F)%int(tt.blockSize) == 0 {
					return []gkbus.RawFrame{fc}
				}
				return nil
			}
			c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8})
			data := payload(tt.length)
			if err := c.Send(data); err != nil {
				t.Fatal(err)
			}
			w := p.Writes()
			if len(w) != tt.frames {
				t.Fatalf("wrote %d frames, want %d", len(w), tt.frames)
			}
			var got []byte
			got = append(got, w[0].Data[2:]...)
			for i, f := range w[1:] {
				if seq := f.Data[0] & 0x0F; seq != byte(i+1)&0x0F {
					t.Fatalf("frame %d sequence %d", i+1, seq)
				}
				got = append(got, f.Data[1:]...)
			}
			if !bytes.Equal(got[:tt.length], data) {
				t.Fatalf("reassembled payload mismatch")
			}
		})
	}
}

func TestSendOverflow(t *testing.T) {
	p := newPort(t)
	p.Responder = func(f gkbus.RawFrame) []gkbus.RawFrame {
		return []gkbus.RawFrame{gkbus.NewFrame(0x7E8, []byte{0x32, 0, 0})}
	}
	c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8})
	if err := c.Send(payload(30)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSendTooLong(t *testing.T) {
	c := New(newPort(t), Config{})
	var argErr *gkbus.ArgumentError
	if err := c.Send(payload(MaxLength + 1)); !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestReceiveSingle(t *testing.T) {
	p := newPort(t)
	p.Feed(
		gkbus.NewFrame(0x123, []byte{0x02, 0xFF, 0xFF}),
		gkbus.NewFrame(0x7E8, []byte{0x03, 0x5A, 0x90, 0x01, 0x00, 0x00, 0x00, 0x00}),
	)
	c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8})
	got, err := c.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x5A, 0x90, 0x01}) {
		t.Fatalf("got % X", got)
	}
}

func TestReceiveSegmented(t *testing.T) {
	data := payload(17)
	p := newPort(t)
	p.Feed(gkbus.NewFrame(0x7E8, append([]byte{0x10, 17}, data[:6]...)))
	p.Responder = func(f gkbus.RawFrame) []gkbus.RawFrame {
		if f.Data[0] != 0x30 {
			return nil
		}
		return []gkbus.RawFrame{
			gkbus.NewFrame(0x7E8, append([]byte{0x21}, data[6:13]...)),
			gkbus.NewFrame(0x7E8, append([]byte{0x22}, data[13:]...)),
		}
	}
	c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8})
	got, err := c.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got % X", got)
	}
	if w := p.Writes(); len(w) != 1 || w[0].Data[0] != 0x30 {
		t.Fatalf("expected one flow control frame, got %v", w)
	}
}

func TestReceiveSequenceError(t *testing.T) {
	data := payload(17)
	p := newPort(t)
	p.Feed(
		gkbus.NewFrame(0x7E8, append([]byte{0x10, 17}, data[:6]...)),
		gkbus.NewFrame(0x7E8, append([]byte{0x22}, data[6:13]...)),
	)
	c := New(p, Config{TxID: 0x7E0, RxID: 0x7E8})
	if _, err := c.Receive(); !errors.Is(err, ErrSequence) {
		t.Fatalf("expected ErrSequence, got %v", err)
	}
}

func TestReceiveTimeout(t *testing.T) {
	c := New(newPort(t), Config{TxID: 0x7E0, RxID: 0x7E8})
	if _, err := c.Receive(); !gkbus.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
