package gkbus

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"time"
)

type Config struct {
	Debug bool
	// Port is the serial device (/dev/ttyUSB0, COM3) or network interface (can0).
	Port         string
	PortBaudrate int
	Timeout      time.Duration
	// CANRate in kbit/s. Zero leaves the interface configuration untouched.
	CANRate   float64
	CANFilter []CANFilter
	// WriteDelay is slept before every K-Line write to respect the
	// inter request time of slow ECUs.
	WriteDelay time.Duration
	// NoEcho disables K-Line echo consumption for adapters that do not
	// loop transmitted bytes back.
	NoEcho    bool
	OnMessage func(string)
	OnError   func(error)
}

// Defaults fills unset fields and returns cfg for chaining.
func (cfg *Config) Defaults() *Config {
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = DefaultKLineBaudrate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = DefaultOnMessage
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			DefaultOnMessage(err.Error())
		}
	}
	return cfg
}

// Debugf forwards a formatted message to OnMessage when Debug is set.
func (cfg *Config) Debugf(format string, v ...any) {
	if cfg.Debug && cfg.OnMessage != nil {
		cfg.OnMessage(fmt.Sprintf(format, v...))
	}
}

func DefaultOnMessage(msg string) {
	_, file, no, ok := runtime.Caller(1)
	if ok {
		log.Printf("%s#%d %v", filepath.Base(file), no, msg)
	} else {
		log.Println(msg)
	}
}
