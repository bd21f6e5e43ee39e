package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"go.tigermatt.uk/rosslar"
)

type pollFlags struct {
	linkFlags
	door        int
	interval    time.Duration
	replyWindow time.Duration
	count       int
}

func pollCommand(opts *rootOptions) *cobra.Command {
	f := pollFlags{
		door:        1,
		interval:    time.Second,
		replyWindow: 800 * time.Millisecond,
	}

	cmd := &cobra.Command{
		Use:   "poll [DEVICE]",
		Short: "Act as the host: query a door and print the replies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return poll(cmd, opts, &f, args)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.door, "door", f.door, "Door to query, 1 or 2")
	cmd.Flags().DurationVar(&f.interval, "interval", f.interval, "Time between queries")
	cmd.Flags().DurationVar(&f.replyWindow, "reply-window", f.replyWindow, "How long to collect a reply")
	cmd.Flags().IntVar(&f.count, "count", 0, "Stop after this many queries (0 polls forever)")

	return cmd
}

func queryFrame(door int) ([]byte, error) {
	switch door {
	case 1:
		return rosslar.QueryDoor1Frame, nil
	case 2:
		return rosslar.QueryDoor2Frame, nil
	default:
		return nil, fmt.Errorf("no door %d", door)
	}
}

func poll(cmd *cobra.Command, opts *rootOptions, f *pollFlags, args []string) error {
	query, err := queryFrame(f.door)
	if err != nil {
		return err
	}

	var device string
	if len(args) > 0 {
		device = args[0]
	}

	cfg, err := opts.load(cmd, &f.linkFlags, device)
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

	ctx, stop := listenStop()
	defer stop()

	return poller(ctx, cmd.OutOrStdout(), p, query, f.interval, f.replyWindow, f.count)
}

func poller(ctx context.Context, w io.Writer, p io.ReadWriter, query []byte, interval, window time.Duration, count int) error {
	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}

		logOut(w, describe(query), query)
		reply, err := exchange(ctx, p, query, window)
		if err != nil {
			return err
		}

		name := describe(reply)
		if len(reply) == 0 {
			name = "NO REPLY"
		}
		logIn(w, name, reply)
	}

	return nil
}

// exchange writes query and collects whatever arrives within window.
func exchange(ctx context.Context, p io.ReadWriter, query []byte, window time.Duration) ([]byte, error) {
	if _, err := p.Write(query); err != nil {
		return nil, fmt.Errorf("writing query: %w", err)
	}

	t := time.Now().Add(window)

	reply := make([]byte, 128)
	var n int
	for n < len(reply) && time.Now().Before(t) && ctx.Err() == nil {
		got, err := p.Read(reply[n:])
		n += got
		if err != nil {
			return reply[:n], fmt.Errorf("reading reply: %w", err)
		}
	}

	return reply[:n], nil
}

func logOut(w io.Writer, name string, bs []byte) {
	fmt.Fprintf(w, "%s > %s %s\n", time.Now().Format(stampLayout), name, rosslar.Hex(bs))
}

func logIn(w io.Writer, name string, bs []byte) {
	fmt.Fprintf(w, "%s < %s %s\n", time.Now().Format(stampLayout), name, rosslar.Hex(bs))
}
