// Package socketcan exposes Linux SocketCAN interfaces as frame ports.
// Importing it registers one "SocketCAN <dev>" hardware per interface.
package socketcan

import (
	"fmt"
	"net"
	"strings"

	"github.com/roffe/gkbus"
)

const Name = "SocketCAN"

func init() {
	if err := gkbus.RegisterHardware(&gkbus.HardwareInfo{
		Name:        Name,
		Description: "Linux SocketCAN interface, port is the interface name",
		Kind:        gkbus.KindFrame,
		New:         newPort,
		Enumerate:   Enumerate,
	}); err != nil {
		panic(err)
	}
	for _, dev := range FindDevices() {
		dev := dev
		if err := gkbus.RegisterHardware(&gkbus.HardwareInfo{
			Name:        Name + " " + dev,
			Description: "Linux SocketCAN " + dev,
			Kind:        gkbus.KindFrame,
			New: func(cfg *gkbus.Config) (gkbus.Port, error) {
				cfg.Port = dev
				return newPort(cfg)
			},
		}); err != nil {
			panic(err)
		}
	}
}

// FindDevices lists network interfaces that look like CAN devices.
func FindDevices() (dev []string) {
	ifaces, _ := net.Interfaces()
	for _, i := range ifaces {
		if strings.Contains(i.Name, "can") {
			dev = append(dev, i.Name)
		}
	}
	return
}

func Enumerate() ([]gkbus.PortInfo, error) {
	var out []gkbus.PortInfo
	for _, dev := range FindDevices() {
		out = append(out, gkbus.PortInfo{Port: dev, Name: dev, Description: fmt.Sprintf("%s network interface", Name)})
	}
	return out, nil
}
