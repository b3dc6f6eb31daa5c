package kkl

import (
	"testing"
	"time"

	"github.com/roffe/gkbus"
)

func TestRegistered(t *testing.T) {
	found := false
	for _, h := range gkbus.ListHardware() {
		if h.Name == Name {
			found = true
			if h.Kind != gkbus.KindStream {
				t.Errorf("kind %s", h.Kind)
			}
		}
	}
	if !found {
		t.Fatalf("%s not registered", Name)
	}
}

func TestDefaults(t *testing.T) {
	k := New(&gkbus.Config{Port: "/dev/null"})
	if k.Baudrate() != gkbus.DefaultKLineBaudrate {
		t.Errorf("baudrate %d", k.Baudrate())
	}
	if k.Timeout() != gkbus.DefaultTimeout {
		t.Errorf("timeout %s", k.Timeout())
	}
	if k.cfg.WriteDelay != DefaultWriteDelay {
		t.Errorf("write delay %s", k.cfg.WriteDelay)
	}
	if err := k.SetTimeout(400 * time.Millisecond); err != nil || k.Timeout() != 400*time.Millisecond {
		t.Errorf("set timeout: %v", err)
	}
}

func TestClosedPort(t *testing.T) {
	k := New(&gkbus.Config{Port: "/dev/null"})
	if k.IsOpen() {
		t.Fatal("open before Open")
	}
	if _, err := k.Read(1); err != gkbus.ErrPortClosed {
		t.Errorf("read: %v", err)
	}
	if _, err := k.Write([]byte{0x00}); err != gkbus.ErrPortClosed {
		t.Errorf("write: %v", err)
	}
	if err := k.SetBreak(true); err != gkbus.ErrPortClosed {
		t.Errorf("break: %v", err)
	}
	// the rate is remembered for the next Open
	if err := k.SetBaudrate(360); err != nil || k.Baudrate() != 360 {
		t.Errorf("baudrate: %v", err)
	}
	if err := k.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestOpenMissingPort(t *testing.T) {
	k := New(&gkbus.Config{Port: "/dev/gkbus-does-not-exist"})
	err := k.Open()
	if _, ok := err.(*gkbus.OpeningPortError); !ok {
		t.Fatalf("got %v", err)
	}
}
