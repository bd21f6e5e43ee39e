package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"

	"go.tigermatt.uk/rosslar/internal/port"
)

func portsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and their descriptions",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := port.List()
			if err != nil {
				return err
			}
			printPorts(cmd.OutOrStdout(), ports)
			return nil
		},
	}
}

func printPorts(w io.Writer, ports []*enumerator.PortDetails) {
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Fprintln(w, p.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s:%s\t%s\t%s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
	}
}
