// Command rosslaremu emulates a Rosslare door controller on a serial link.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "rosslaremu",
		Short:         "Rosslare door controller emulator",
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default rosslaremu.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(serveCommand(opts))
	cmd.AddCommand(pollCommand(opts))
	cmd.AddCommand(sniffCommand(opts))
	cmd.AddCommand(portsCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "dump FILE",
		Short: "Print a session recording",
		Args:  cobra.ExactArgs(1),
		RunE:  dump,
	})
	cmd.AddCommand(replayCommand())

	if err := cmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
