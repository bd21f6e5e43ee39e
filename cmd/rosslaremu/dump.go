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

const dumpGap = 5 * time.Millisecond

func dump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	msgs := make(chan rosslar.Message, 100)

	var g errgroup.Group
	g.Go(func() error { return processMsgs(cmd.OutOrStdout(), msgs) })
	g.Go(func() error { return rosslar.ReadIn(msgs, f) })

	return g.Wait()
}

func processMsgs(w io.Writer, msgs <-chan rosslar.Message) error {
	fr := framer{gap: dumpGap}

	for msg := range msgs {
		if done, ok := fr.add(msg.Direction, msg.Timestamp, msg.Data); ok {
			printFrame(w, done)
		}
	}

	if done, ok := fr.flush(); ok {
		printFrame(w, done)
	}

	return nil
}
