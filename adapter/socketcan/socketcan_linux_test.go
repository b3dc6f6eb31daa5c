package socketcan

import (
	"encoding/binary"
	"testing"

	"github.com/roffe/gkbus"
)

func rawFrame(id uint32, data ...byte) []byte {
	b := make([]byte, frameSize)
	binary.NativeEndian.PutUint32(b, id)
	b[4] = byte(len(data))
	copy(b[8:], data)
	return b
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		ok       bool
		id       uint32
		extended bool
		data     []byte
	}{
		{"standard", rawFrame(0x7E8, 0x02, 0x50, 0x89), true, 0x7E8, false, []byte{0x02, 0x50, 0x89}},
		{"extended", rawFrame(effFlag|0x18DAF110, 0x01), true, 0x18DAF110, true, []byte{0x01}},
		{"remote", rawFrame(rtrFlag | 0x100), false, 0, false, nil},
		{"error", rawFrame(errFlag | 0x004), false, 0, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := decode(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok %v", ok)
			}
			if !ok {
				return
			}
			if f.ID != tt.id || f.Extended != tt.extended || string(f.Data) != string(tt.data) {
				t.Errorf("got %s", f)
			}
		})
	}
}

func TestSoftwareFilter(t *testing.T) {
	a := New(&gkbus.Config{Port: "vcan0", CANFilter: []gkbus.CANFilter{gkbus.NewCANFilter(0x7E8)}})
	if !a.accept(0x7E8) || a.accept(0x7E0) {
		t.Error("configured filter not applied")
	}
	a.SetFilters(nil)
	if !a.accept(0x123) {
		t.Error("empty filter set must accept everything")
	}
	if _, err := a.ReadFrame(); err != gkbus.ErrPortClosed {
		t.Errorf("read on closed port: %v", err)
	}
}
