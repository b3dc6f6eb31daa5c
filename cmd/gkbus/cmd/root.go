package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/transport"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "gkbus",
	Short:        "ECU diagnostics over K-Line and CAN",
	Long:         `Talk KWP2000 over a KKL cable or CAN, and CCP over CAN`,
	SilenceUsage: true,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagHardware   = "hardware"
	flagPort       = "port"
	flagBaudrate   = "baudrate"
	flagTimeout    = "timeout"
	flagBuffer     = "buffer"
	flagDebug      = "debug"
	flagCANRate    = "canrate"
	flagWriteDelay = "write-delay"
	flagNoEcho     = "no-echo"
	flagTx         = "tx"
	flagRx         = "rx"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagHardware, "H", "KKL", "hardware to use, see ports")
	pf.StringP(flagPort, "p", "*", "serial port or CAN interface, * = choose")
	pf.IntP(flagBaudrate, "b", gkbus.DefaultKLineBaudrate, "serial baudrate")
	pf.Duration(flagTimeout, gkbus.DefaultTimeout, "read timeout")
	pf.Int(flagBuffer, 20, "packets kept in the capture buffer, 0 = unbounded, -1 = off")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Float64(flagCANRate, 500, "CAN rate in kbit/s, 0 = leave interface as is")
	pf.Duration(flagWriteDelay, 100*time.Millisecond, "delay before each K-Line request")
	pf.Bool(flagNoEcho, false, "adapter does not echo K-Line writes")
	pf.Uint32(flagTx, 0, "request address (K-Line target or CAN id), 0 = protocol default")
	pf.Uint32(flagRx, 0, "response address (K-Line tester or CAN id), 0 = protocol default")
}

type addresses struct {
	tx, rx uint32
}

func hardwareInfo(name string) (gkbus.HardwareInfo, error) {
	for _, h := range gkbus.ListHardware() {
		if h.Name == name {
			return h, nil
		}
	}
	return gkbus.HardwareInfo{}, fmt.Errorf("unknown hardware %q", name)
}

// choosePort lets the user pick one of the enumerated ports.
func choosePort(hw string) (string, error) {
	ports, err := gkbus.AvailablePorts(hw)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no ports found for %s", hw)
	}
	if len(ports) == 1 {
		return ports[0].Port, nil
	}
	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = p.Port
		if p.Description != "" {
			items[i] += " " + p.Description
		}
	}
	prompt := promptui.Select{
		Label: "Port",
		Items: items,
	}
	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed %v", err)
	}
	return ports[i].Port, nil
}

func newConfig() (*gkbus.Config, string, error) {
	pf := rootCmd.PersistentFlags()
	hw, _ := pf.GetString(flagHardware)
	port, _ := pf.GetString(flagPort)
	baudrate, _ := pf.GetInt(flagBaudrate)
	timeout, _ := pf.GetDuration(flagTimeout)
	debug, _ := pf.GetBool(flagDebug)
	canrate, _ := pf.GetFloat64(flagCANRate)
	writeDelay, _ := pf.GetDuration(flagWriteDelay)
	noEcho, _ := pf.GetBool(flagNoEcho)

	if port == "*" {
		p, err := choosePort(hw)
		if err != nil {
			return nil, "", err
		}
		port = p
	}
	cfg := &gkbus.Config{
		Debug:        debug,
		Port:         port,
		PortBaudrate: baudrate,
		Timeout:      timeout,
		CANRate:      canrate,
		WriteDelay:   writeDelay,
		NoEcho:       noEcho,
		OnMessage: func(msg string) {
			log.Println(msg)
		},
		OnError: func(err error) {
			log.Println("/!\\", err)
		},
	}
	return cfg, hw, nil
}

func addressFlags(def addresses) addresses {
	pf := rootCmd.PersistentFlags()
	if tx, _ := pf.GetUint32(flagTx); tx != 0 {
		def.tx = tx
	}
	if rx, _ := pf.GetUint32(flagRx); rx != 0 {
		def.rx = rx
	}
	return def
}

func transportOptions(cfg *gkbus.Config) []transport.Option {
	size, _ := rootCmd.PersistentFlags().GetInt(flagBuffer)
	opts := []transport.Option{transport.WithBufferSize(size)}
	if cfg.Debug {
		opts = append(opts, transport.WithOnMessage(cfg.OnMessage))
	}
	return opts
}

// dumpCapture prints the capture buffer after a failed session.
func dumpCapture(tr transport.Transport, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	for _, p := range tr.Buffer().Dump() {
		log.Println(p.ColorString())
	}
}
