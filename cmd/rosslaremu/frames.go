package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.tigermatt.uk/rosslar"
)

const stampLayout = "15:04:05.000"

type frame struct {
	Start     time.Time
	Direction rosslar.Direction
	Data      []byte
}

// framer groups reads into frames separated by a quiet gap or a change
// of direction.
type framer struct {
	gap time.Duration

	cur  frame
	last time.Time
	open bool
}

// add appends data and returns the frame it closed, if any.
func (f *framer) add(dir rosslar.Direction, at time.Time, data []byte) (frame, bool) {
	var done frame
	var ok bool

	if f.open && (at.Sub(f.last) > f.gap || dir != f.cur.Direction) {
		done, ok = f.cur, true
		f.open = false
	}

	if !f.open {
		f.cur = frame{Start: at, Direction: dir}
		f.open = true
	}
	f.cur.Data = append(f.cur.Data, data...)
	f.last = at

	return done, ok
}

func (f *framer) flush() (frame, bool) {
	if !f.open {
		return frame{}, false
	}
	f.open = false
	return f.cur, true
}

// describe names a known frame.
func describe(bs []byte) string {
	for _, sig := range rosslar.DefaultSignatures() {
		if sig.Matches(bs) {
			return sig.Command.String()
		}
	}
	if bytes.Equal(bs, rosslar.ReplyDoor1Frame) {
		return "Reply door 1"
	}
	return ""
}

func printFrame(w io.Writer, f frame) {
	name := describe(f.Data)
	if name != "" {
		name = "  [" + name + "]"
	}
	fmt.Fprintf(w, "%s %s (%02d) %s%s\n", f.Start.Format(stampLayout), f.Direction, len(f.Data), rosslar.Hex(f.Data), name)
}
