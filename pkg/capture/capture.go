// Package capture keeps a bounded history of the packets a transport
// moved across the bus.
package capture

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/roffe/gkbus"
)

type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

func (d Direction) String() string {
	if d == Outgoing {
		return "<o>"
	}
	return "<i>"
}

type RawPacket struct {
	Direction Direction
	Data      []byte
	Timestamp time.Time
}

// NewPacket copies data and stamps it with the current time.
func NewPacket(dir Direction, data []byte) RawPacket {
	d := make([]byte, len(data))
	copy(d, data)
	return RawPacket{Direction: dir, Data: d, Timestamp: time.Now()}
}

// TimestampMs is the capture time in milliseconds since the epoch.
func (p RawPacket) TimestampMs() int64 {
	return p.Timestamp.UnixMilli()
}

func (p RawPacket) String() string {
	return fmt.Sprintf("%s || %d || %s", p.Direction, p.TimestampMs(), gkbus.HexView(p.Data))
}

var (
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
)

func (p RawPacket) ColorString() string {
	var out strings.Builder
	if p.Direction == Outgoing {
		out.WriteString(red("%s", p.Direction))
	} else {
		out.WriteString(green("%s", p.Direction))
	}
	out.WriteString(fmt.Sprintf(" || %d || ", p.TimestampMs()))
	out.WriteString(blue("%s", gkbus.HexView(p.Data)))
	return out.String()
}

const (
	// Unbounded keeps every packet.
	Unbounded = 0
	// Disabled drops every packet.
	Disabled = -1

	DefaultCapacity = 20
)

// Buffer is a FIFO of RawPackets evicting the oldest entry once
// capacity is reached. It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	packets  []RawPacket
}

func New(capacity int) *Buffer {
	if capacity < Disabled {
		capacity = Disabled
	}
	return &Buffer{capacity: capacity}
}

func (b *Buffer) Push(p RawPacket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity == Disabled {
		return
	}
	b.packets = append(b.packets, p)
	b.trim()
}

func (b *Buffer) trim() {
	if b.capacity > 0 && len(b.packets) > b.capacity {
		n := len(b.packets) - b.capacity
		copy(b.packets, b.packets[n:])
		clear(b.packets[b.capacity:])
		b.packets = b.packets[:b.capacity]
	}
}

// Dump returns the buffered packets oldest first and empties the buffer.
func (b *Buffer) Dump() []RawPacket {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.packets
	b.packets = nil
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.packets)
}

func (b *Buffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// SetCapacity changes the bound, evicting the oldest packets if needed.
func (b *Buffer) SetCapacity(capacity int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if capacity < Disabled {
		capacity = Disabled
	}
	b.capacity = capacity
	if capacity == Disabled {
		b.packets = nil
		return
	}
	b.trim()
}
