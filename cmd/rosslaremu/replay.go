package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.tigermatt.uk/rosslar"
)

func replayCommand() *cobra.Command {
	patience := rosslar.DefaultPatience
	turnaround := rosslar.DefaultTurnaround

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a recording's host traffic through the matcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			defer f.Close()

			msgs := make(chan rosslar.Message, 100)

			var g errgroup.Group
			g.Go(func() error { return replay(cmd.OutOrStdout(), msgs, patience, turnaround) })
			g.Go(func() error { return rosslar.ReadIn(msgs, f) })

			return g.Wait()
		},
	}
	cmd.Flags().DurationVar(&patience, "patience", patience, "How long a partial frame is kept")
	cmd.Flags().DurationVar(&turnaround, "turnaround", turnaround, "Delay before a reply is released")

	return cmd
}

// replay feeds inbound messages to a fresh matcher at their recorded
// times and prints what the emulator would have done.
func replay(w io.Writer, msgs <-chan rosslar.Message, patience, turnaround time.Duration) error {
	var s rosslar.Schedule
	m := rosslar.NewMatcher(&s)
	m.Patience = patience
	m.Turnaround = turnaround

	release := func(now time.Time) {
		due := s.Pending()
		for i, frame := range s.Flush(now) {
			fmt.Fprintf(w, "%s > %s\n", due[i].Format(stampLayout), rosslar.Hex(frame))
		}
	}

	for msg := range msgs {
		if msg.Direction != rosslar.Inbound {
			continue
		}

		at := msg.Timestamp
		release(at)

		for _, b := range msg.Data {
			res := m.Feed(b, at)
			if res.Purged > 0 {
				fmt.Fprintf(w, "%s ~ Purged %d bytes.\n", at.Format(stampLayout), res.Purged)
			}
			if res.Matched != nil {
				fmt.Fprintf(w, "%s < %s\n", at.Format(stampLayout), res.Matched.Command)
			}
		}
	}

	if due := s.Pending(); len(due) > 0 {
		release(due[len(due)-1].Add(time.Millisecond))
	}

	return nil
}
