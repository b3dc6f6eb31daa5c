package gkbus

import (
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindStream Kind = iota
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "K-Line"
	case KindFrame:
		return "CAN"
	}
	return "unknown"
}

type HardwareInfo struct {
	Name        string
	Description string
	Kind        Kind
	New         func(*Config) (Port, error)
	// Enumerate lists the ports this hardware can be opened on.
	Enumerate func() ([]PortInfo, error)
}

func (h *HardwareInfo) String() string {
	return fmt.Sprintf("%s | %s, %s", h.Name, h.Description, h.Kind)
}

var hardwareMap = make(map[string]*HardwareInfo)

func RegisterHardware(info *HardwareInfo) error {
	if _, found := hardwareMap[info.Name]; found {
		return fmt.Errorf("hardware %s already registered", info.Name)
	}
	hardwareMap[info.Name] = info
	return nil
}

func NewHardware(name string, cfg *Config) (Port, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Defaults()
	if info, found := hardwareMap[name]; found {
		return info.New(cfg)
	}
	return nil, fmt.Errorf("unknown hardware %q", name)
}

func ListHardwareNames() []string {
	var out []string
	for name := range hardwareMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListHardware() []HardwareInfo {
	var out []HardwareInfo
	for _, name := range ListHardwareNames() {
		out = append(out, *hardwareMap[name])
	}
	return out
}

// AvailablePorts enumerates the ports of the named hardware.
func AvailablePorts(name string) ([]PortInfo, error) {
	info, found := hardwareMap[name]
	if !found {
		return nil, fmt.Errorf("unknown hardware %q", name)
	}
	if info.Enumerate == nil {
		return nil, nil
	}
	return info.Enumerate()
}
