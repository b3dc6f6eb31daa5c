package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/gkbus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list hardware and the ports it can open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := color.New(color.FgGreen, color.Bold).SprintFunc()
		for _, h := range gkbus.ListHardware() {
			fmt.Printf("%s  %s, %s\n", name(h.Name), h.Description, h.Kind)
			ports, err := gkbus.AvailablePorts(h.Name)
			if err != nil {
				color.Red("  %v", err)
				continue
			}
			for _, p := range ports {
				fmt.Printf("  %-16s %s %s\n", p.Port, p.Description, p.SerialNumber)
			}
		}
		return nil
	},
}
