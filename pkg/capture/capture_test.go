package capture

import (
	"strings"
	"sync"
	"testing"
)

func TestBufferBound(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []byte
	}{
		{"below capacity", 5, 3, []byte{0, 1, 2}},
		{"at capacity", 3, 3, []byte{0, 1, 2}},
		{"evicts oldest", 3, 7, []byte{4, 5, 6}},
		{"unbounded", Unbounded, 30, nil},
		{"disabled", Disabled, 4, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.capacity)
			for i := 0; i < tt.pushed; i++ {
				b.Push(NewPacket(Outgoing, []byte{byte(i)}))
			}
			got := b.Dump()
			if tt.want == nil {
				if len(got) != tt.pushed {
					t.Fatalf("got %d packets, want %d", len(got), tt.pushed)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d packets, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.Data[0] != tt.want[i] {
					t.Errorf("packet %d = %X, want %X", i, p.Data[0], tt.want[i])
				}
			}
			if b.Len() != 0 {
				t.Errorf("buffer not empty after dump: %d", b.Len())
			}
			if again := b.Dump(); len(again) != 0 {
				t.Errorf("second dump returned %d packets", len(again))
			}
		})
	}
}

func TestBufferPacketCopy(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	b := New(DefaultCapacity)
	b.Push(NewPacket(Incoming, data))
	data[0] = 0x00
	got := b.Dump()
	if got[0].Data[0] != 0xAA {
		t.Fatalf("packet shares memory with caller slice")
	}
}

func TestBufferSetCapacity(t *testing.T) {
	b := New(Unbounded)
	for i := 0; i < 10; i++ {
		b.Push(NewPacket(Incoming, []byte{byte(i)}))
	}
	b.SetCapacity(2)
	got := b.Dump()
	if len(got) != 2 || got[0].Data[0] != 8 || got[1].Data[0] != 9 {
		t.Fatalf("unexpected contents after shrink: %v", got)
	}
	b.SetCapacity(Disabled)
	b.Push(NewPacket(Incoming, []byte{1}))
	if b.Len() != 0 {
		t.Fatalf("disabled buffer captured a packet")
	}
}

func TestBufferConcurrentDump(t *testing.T) {
	b := New(Unbounded)
	var wg sync.WaitGroup
	total := 0
	var mu sync.Mutex
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				b.Push(NewPacket(Outgoing, []byte{byte(i)}))
				if i%50 == 0 {
					n := len(b.Dump())
					mu.Lock()
					total += n
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	total += len(b.Dump())
	if total != 1000 {
		t.Fatalf("lost packets, got %d want 1000", total)
	}
}

func TestPacketString(t *testing.T) {
	p := NewPacket(Outgoing, []byte{0x82, 0x11, 0xF1})
	if !strings.HasPrefix(p.String(), "<o> || ") || !strings.HasSuffix(p.String(), "82 11 F1") {
		t.Fatalf("unexpected string %q", p.String())
	}
}
