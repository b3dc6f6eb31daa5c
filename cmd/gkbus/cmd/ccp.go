package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/ccp"
	"github.com/roffe/gkbus/pkg/transport"
	"github.com/spf13/cobra"
)

const (
	flagStation = "station"

	ccpCRO = 0x642
	ccpDTO = 0x643
)

var ccpCmd = &cobra.Command{
	Use:   "ccp",
	Short: "CAN Calibration Protocol commands",
}

func init() {
	rootCmd.AddCommand(ccpCmd)
	ccpCmd.PersistentFlags().Uint16(flagStation, 0x0000, "slave station address")
	ccpCmd.AddCommand(ccpInfoCmd, ccpUploadCmd)
}

// ccpSession connects to the slave, runs fn and disconnects again.
func ccpSession(cmd *cobra.Command, fn func(c *ccp.Client) error) (err error) {
	cfg, hw, err := newConfig()
	if err != nil {
		return err
	}
	station, _ := ccpCmd.PersistentFlags().GetUint16(flagStation)
	a := addressFlags(addresses{tx: ccpCRO, rx: ccpDTO})
	cfg.CANFilter = []gkbus.CANFilter{gkbus.NewCANFilter(a.rx)}
	port, err := gkbus.NewHardware(hw, cfg)
	if err != nil {
		return err
	}
	fp, ok := port.(gkbus.FramePort)
	if !ok {
		return fmt.Errorf("%s is not a CAN interface", hw)
	}
	tr := transport.NewCCPOverCAN(fp, a.tx, a.rx, transportOptions(cfg)...)
	c := ccp.New(tr, ccp.WithConfig(cfg), ccp.WithDAQHandler(func(d ccp.DTO) {
		cfg.Debugf("unsolicited %s", d)
	}))
	if err := c.Open(); err != nil {
		return err
	}
	defer func() {
		dumpCapture(tr, err)
		c.Close()
	}()
	if _, err := c.Execute(ccp.Connect(station)); err != nil {
		return err
	}
	defer func() {
		if _, derr := c.Execute(ccp.Disconnect(ccp.DisconnectEndOfSession, station)); derr != nil && err == nil {
			err = derr
		}
	}()
	return fn(c)
}

var ccpInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "print protocol version and slave identification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ccpSession(cmd, func(c *ccp.Client) error {
			resp, err := c.Execute(ccp.GetImplementedVersionOfCcp(2, 1))
			if err != nil {
				return err
			}
			log.Printf("CCP version %d.%d", resp.Data[0], resp.Data[1])

			exchange, err := ccp.ExchangeStationIdentifications()
			if err != nil {
				return err
			}
			resp, err = c.Execute(exchange)
			if err != nil {
				return err
			}
			length := int(resp.Data[0])
			avail := ccp.ResourceMask(resp.Data[2])
			protected := ccp.ResourceMask(resp.Data[3])
			log.Printf("resources CAL %v DAQ %v PGM %v, protected 0x%02X", avail.Has(ccp.ResourceCAL), avail.Has(ccp.ResourceDAQ), avail.Has(ccp.ResourcePGM), byte(protected))

			// the slave points MTA0 at its identification
			var id []byte
			for len(id) < length {
				up, err := ccp.DataUpload(byte(min(length-len(id), ccp.MaxBlock)))
				if err != nil {
					return err
				}
				resp, err := c.Execute(up)
				if err != nil {
					return err
				}
				id = append(id, resp.Data[:min(length-len(id), ccp.MaxBlock)]...)
			}
			log.Printf("station id %q", id)

			resp, err = c.Execute(ccp.GetSessionStatus())
			if err != nil {
				return err
			}
			log.Printf("session status 0x%02X", resp.Data[0])
			return nil
		})
	},
}

var ccpUploadCmd = &cobra.Command{
	Use:   "upload <address> <size> <file>",
	Short: "dump a memory range with SHORT_UP",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseUint(args[0], 32)
		if err != nil {
			return err
		}
		size, err := parseUint(args[1], 32)
		if err != nil {
			return err
		}
		return ccpSession(cmd, func(c *ccp.Client) error {
			out := make([]byte, 0, size)
			bar := newBar(int(size), "uploading")
			for uint64(len(out)) < size {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				n := byte(min(size-uint64(len(out)), ccp.MaxBlock))
				req, err := ccp.ShortUpload(n, 0, uint32(address)+uint32(len(out)))
				if err != nil {
					return err
				}
				resp, err := c.Execute(req)
				if err != nil {
					return fmt.Errorf("upload at 0x%08X: %w", address+uint64(len(out)), err)
				}
				out = append(out, resp.Data[:n]...)
				bar.Add(int(n))
			}
			return os.WriteFile(args[2], out, 0644)
		})
	},
}
