package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go.tigermatt.uk/rosslar"
)

var (
	dumpAllReads    = false
	interMessageGap = 10 * time.Millisecond
)

func sniffCommand(opts *rootOptions) *cobra.Command {
	var link linkFlags
	var record string

	cmd := &cobra.Command{
		Use:   "sniff [DEVICE]",
		Short: "Print the traffic on a serial port without answering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sniff(cmd, opts, &link, record, args)
		},
	}
	link.register(cmd)
	cmd.Flags().DurationVar(&interMessageGap, "intermessage-gap", interMessageGap, "Gap between messages")
	cmd.Flags().BoolVar(&dumpAllReads, "dump-reads", dumpAllReads, "Dump all read operations")
	cmd.Flags().StringVar(&record, "record", "", "Record the traffic to FILE")

	return cmd
}

func sniff(cmd *cobra.Command, opts *rootOptions, link *linkFlags, record string, args []string) error {
	var device string
	if len(args) > 0 {
		device = args[0]
	}

	cfg, err := opts.load(cmd, link, device)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, _, err := openPort(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	var rec *rosslar.Recorder
	if record != "" {
		out, err := os.Create(record)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer out.Close()
		rec = &rosslar.Recorder{Dest: out}
	}
	session := uuid.NewString()

	ctx, stop := listenStop()
	defer stop()
	go func() {
		<-ctx.Done()
		p.Close()
	}()

	w := cmd.OutOrStdout()
	fr := framer{gap: interMessageGap}

	s := rosslar.Sniffer{
		Port: p,
		OnReceive: func(bs []byte, n int, err error) {
			now := time.Now()
			if n <= 0 || err != nil {
				defer fmt.Fprintf(w, "%s ! %s\n", now.Format(stampLayout), rosslar.ReadError(n, err))
			}
			if n <= 0 {
				return
			}

			if dumpAllReads {
				fmt.Fprintf(w, "%s %s\n", now.Format(stampLayout), rosslar.Hex(bs))
			}

			if rec != nil {
				data := append([]byte(nil), bs...)
				if err := rec.Receive(rosslar.Message{Session: session, Direction: rosslar.Inbound, Data: data, Timestamp: now}); err != nil {
					fmt.Fprintf(os.Stderr, "recording: %v\n", err)
				}
			}

			if done, ok := fr.add(rosslar.Inbound, now, bs); ok && !dumpAllReads {
				printFrame(w, done)
			}
		},
	}

	err = s.Consume(ctx)
	if done, ok := fr.flush(); ok && !dumpAllReads {
		printFrame(w, done)
	}

	return err
}
