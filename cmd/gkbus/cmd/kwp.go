package cmd

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/kline"
	"github.com/roffe/gkbus/pkg/kwp2000"
	"github.com/roffe/gkbus/pkg/transport"
	"github.com/spf13/cobra"
)

const (
	klineECU    = 0x11
	klineTester = 0xF1
	canRequest  = 0x7E0
	canResponse = 0x7E8
	// largest ReadMemoryByAddress block that fits an unsegmented K-Line frame
	readBlock = 0xFE
)

var kwpCmd = &cobra.Command{
	Use:   "kwp",
	Short: "KWP2000 diagnostic commands",
}

func init() {
	rootCmd.AddCommand(kwpCmd)
	kwpCmd.AddCommand(kwpInfoCmd, kwpReadMemoryCmd)
}

func newKWPTransport(cfg *gkbus.Config, hw string) (transport.Transport, error) {
	info, err := hardwareInfo(hw)
	if err != nil {
		return nil, err
	}
	port, err := gkbus.NewHardware(hw, cfg)
	if err != nil {
		return nil, err
	}
	opts := transportOptions(cfg)
	switch info.Kind {
	case gkbus.KindStream:
		a := addressFlags(addresses{tx: klineECU, rx: klineTester})
		sp, ok := port.(gkbus.StreamPort)
		if !ok {
			return nil, fmt.Errorf("%s is not a stream port", hw)
		}
		return transport.NewKLine(sp, kline.Address(byte(a.tx), byte(a.rx)), kline.Address(byte(a.rx), byte(a.tx)), opts...), nil
	case gkbus.KindFrame:
		a := addressFlags(addresses{tx: canRequest, rx: canResponse})
		fp, ok := port.(gkbus.FramePort)
		if !ok {
			return nil, fmt.Errorf("%s is not a frame port", hw)
		}
		return transport.NewKWPOverCAN(fp, a.tx, a.rx, opts...), nil
	}
	return nil, fmt.Errorf("%s: unsupported hardware kind %s", hw, info.Kind)
}

// kwpSession runs fn on an initialized client in a default diagnostic
// session kept alive with TesterPresent.
func kwpSession(cmd *cobra.Command, fn func(c *kwp2000.Client) error) (err error) {
	cfg, hw, err := newConfig()
	if err != nil {
		return err
	}
	tr, err := newKWPTransport(cfg, hw)
	if err != nil {
		return err
	}
	c := kwp2000.New(tr, kwp2000.WithConfig(cfg))
	defer func() {
		dumpCapture(tr, err)
		c.Close()
	}()
	if err := c.Init(cmd.Context(), kwp2000.StartCommunication(),
		kwp2000.WithKeepAlive(kwp2000.TesterPresent(kwp2000.ResponseRequired), 0),
	); err != nil {
		return err
	}
	if _, err := c.Execute(kwp2000.StartDiagnosticSession(kwp2000.SessionDefault)); err != nil {
		return err
	}
	return fn(c)
}

var kwpInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "print ECU identification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return kwpSession(cmd, func(c *kwp2000.Client) error {
			idents := []struct {
				id   byte
				name string
			}{
				{kwp2000.IdentHardwareNumber, "Hardware number"},
				{kwp2000.IdentSoftwareNumber, "Software number"},
				{kwp2000.IdentVehicleManufacturerECU, "Manufacturer ECU"},
			}
			for _, i := range idents {
				resp, err := c.Execute(kwp2000.ReadEcuIdentification(i.id))
				if err != nil {
					log.Printf("%s: %v", i.name, err)
					continue
				}
				value := resp.Data
				if len(value) > 0 {
					value = value[1:]
				}
				log.Printf("%-18s %q", i.name, bytes.TrimRight(value, "\x00 "))
			}
			resp, err := c.Execute(kwp2000.ReadEcuIdentification(kwp2000.IdentCalibrationDate))
			if err != nil {
				log.Printf("Calibration date: %v", err)
				return nil
			}
			date, err := kwp2000.IdentDate(resp)
			if err != nil {
				log.Printf("Calibration date: %v", err)
				return nil
			}
			log.Printf("%-18s %s", "Calibration date", date.Format("2006-01-02"))
			return nil
		})
	},
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, gkbus.NewArgumentError(s, "%v", err)
	}
	return v, nil
}

var kwpReadMemoryCmd = &cobra.Command{
	Use:   "read-memory <address> <size> <file>",
	Short: "dump a memory range with ReadMemoryByAddress",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseUint(args[0], 24)
		if err != nil {
			return err
		}
		size, err := parseUint(args[1], 24)
		if err != nil {
			return err
		}
		return kwpSession(cmd, func(c *kwp2000.Client) error {
			out := make([]byte, 0, size)
			bar := newBar(int(size), "reading")
			for uint64(len(out)) < size {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				n := min(size-uint64(len(out)), readBlock)
				req, err := kwp2000.ReadMemoryByAddress(uint32(address)+uint32(len(out)), byte(n))
				if err != nil {
					return err
				}
				resp, err := c.Execute(req)
				if err != nil {
					return fmt.Errorf("read at 0x%06X: %w", address+uint64(len(out)), err)
				}
				block := resp.Data
				if uint64(len(block)) > n {
					block = block[:n]
				}
				if len(block) == 0 {
					return fmt.Errorf("read at 0x%06X: empty response", address+uint64(len(out)))
				}
				out = append(out, block...)
				bar.Add(len(block))
			}
			return os.WriteFile(args[2], out, 0644)
		})
	},
}
