package gkbus

import (
	"testing"
	"time"
)

type nopPort struct {
	cfg *Config
}

func (p *nopPort) Open() error                    { return nil }
func (p *nopPort) Close() error                   { return nil }
func (p *nopPort) IsOpen() bool                   { return false }
func (p *nopPort) SetTimeout(time.Duration) error { return nil }
func (p *nopPort) Timeout() time.Duration         { return p.cfg.Timeout }

func TestRegistry(t *testing.T) {
	info := &HardwareInfo{
		Name: "test nop",
		Kind: KindStream,
		New: func(cfg *Config) (Port, error) {
			return &nopPort{cfg: cfg}, nil
		},
		Enumerate: func() ([]PortInfo, error) {
			return []PortInfo{{Port: "nop0"}}, nil
		},
	}
	if err := RegisterHardware(info); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { delete(hardwareMap, info.Name) })
	if err := RegisterHardware(info); err == nil {
		t.Error("duplicate registration accepted")
	}

	p, err := NewHardware("test nop", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Timeout() != DefaultTimeout {
		t.Errorf("defaults not applied, timeout %s", p.Timeout())
	}
	if _, err := NewHardware("missing", nil); err == nil {
		t.Error("unknown hardware accepted")
	}

	found := false
	for _, name := range ListHardwareNames() {
		found = found || name == "test nop"
	}
	if !found {
		t.Error("not listed")
	}
	ports, err := AvailablePorts("test nop")
	if err != nil || len(ports) != 1 || ports[0].Port != "nop0" {
		t.Errorf("ports %v, %v", ports, err)
	}
}

func TestCANFilter(t *testing.T) {
	tests := []struct {
		f    CANFilter
		id   uint32
		want bool
	}{
		{NewCANFilter(0x7E8), 0x7E8, true},
		{NewCANFilter(0x7E8), 0x7E0, false},
		{CANFilter{ID: 0x700, Mask: 0x700}, 0x7E8, true},
		{CANFilter{ID: 0x700, Mask: 0x700}, 0x6E8, false},
	}
	for _, tt := range tests {
		if got := tt.f.Match(tt.id); got != tt.want {
			t.Errorf("%+v.Match(0x%X) = %v", tt.f, tt.id, got)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{PortBaudrate: 9600}).Defaults()
	if cfg.PortBaudrate != 9600 || cfg.Timeout != DefaultTimeout {
		t.Errorf("got %+v", cfg)
	}
	if cfg.OnMessage == nil || cfg.OnError == nil {
		t.Error("callbacks not defaulted")
	}
}
