package rosslar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Emulator answers a host's door queries on Port the way the panel does.
//
// Inbound data drives the Matcher; a ticker independently releases due
// replies from the Schedule. The zero value of every field but Port is
// usable.
type Emulator struct {
	Port io.ReadWriter

	Sink     Sink
	Recorder *Recorder
	Metrics  *Metrics
	Logger   *slog.Logger
	Session  string

	// Clock defaults to time.Now.
	Clock func() time.Time
	// Signatures defaults to DefaultSignatures when nil.
	Signatures []Signature
	// Zero or negative durations select DefaultPatience,
	// DefaultTurnaround and DefaultFlushInterval. A Matcher built
	// directly accepts a zero Turnaround.
	Patience      time.Duration
	Turnaround    time.Duration
	FlushInterval time.Duration

	once     sync.Once
	matcher  *Matcher
	schedule *Schedule
}

func (e *Emulator) init() {
	e.once.Do(func() {
		if e.Clock == nil {
			e.Clock = time.Now
		}
		if e.Logger == nil {
			e.Logger = slog.Default()
		}
		if e.FlushInterval <= 0 {
			e.FlushInterval = DefaultFlushInterval
		}

		e.schedule = &Schedule{}
		e.matcher = NewMatcher(e.schedule)
		if e.Signatures != nil {
			e.matcher.Signatures = e.Signatures
		}
		if e.Patience > 0 {
			e.matcher.Patience = e.Patience
		}
		if e.Turnaround > 0 {
			e.matcher.Turnaround = e.Turnaround
		}
	})
}

// Schedule returns the emulator's pending replies.
func (e *Emulator) Schedule() *Schedule {
	e.init()
	return e.schedule
}

// Run serves the link until ctx is done or Port reaches end of input.
// The window and schedule start empty. When Port is an io.Closer it is
// closed as the session ends so that a blocked read returns.
func (e *Emulator) Run(ctx context.Context) error {
	e.init()
	e.matcher.Reset()
	e.schedule.Reset()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := e.Logger.With("session", e.Session)
	log.Info("session started", "flush_interval", e.FlushInterval)
	defer log.Info("session ended")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		s := Sniffer{Port: e.Port, OnReceive: e.DataAvailable}
		return s.Consume(ctx)
	})

	g.Go(func() error {
		t := time.NewTicker(e.FlushInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				e.Flush(e.Clock())
			}
		}
	})

	if c, ok := e.Port.(io.Closer); ok {
		g.Go(func() error {
			<-ctx.Done()
			if err := c.Close(); err != nil {
				log.Debug("closing port", "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// DataAvailable handles one transport read that returned n and err.
// Only the first n bytes of bs are fed to the matcher. A read with
// n <= 0 or a non-nil err is reported as a read error after any bytes it
// delivered; with no bytes the window is left untouched.
func (e *Emulator) DataAvailable(bs []byte, n int, err error) {
	e.init()

	if n > 0 {
		e.received(bs[:n])
	}

	if n <= 0 || err != nil {
		e.diagnose(SourceError, ReadError(n, err))
		e.Metrics.readError()
	}
}

func (e *Emulator) received(bs []byte) {
	now := e.Clock()

	if purged := e.matcher.Expire(now); purged > 0 {
		e.purged(purged)
	}
	e.diagnose(SourceRead, Hex(bs))
	e.Metrics.read(len(bs))
	e.record(Inbound, bs, now)

	for _, b := range bs {
		res := e.matcher.Feed(b, now)
		if res.Purged > 0 {
			e.purged(res.Purged)
		}
		if res.Matched == nil {
			continue
		}

		e.diagnose(SourceRead, res.Matched.Command.String())
		e.Metrics.matched(res)
		if res.Matched.Reply != nil && !res.Scheduled {
			e.Logger.Debug("reply dropped, release time taken", "release_at", res.ReleaseAt)
		}
	}
}

func (e *Emulator) purged(n int) {
	e.diagnose(SourceTimeout, fmt.Sprintf("Purged %d bytes.", n))
	e.Metrics.purged(n)
}

// Flush writes every reply due before now to Port.
func (e *Emulator) Flush(now time.Time) {
	e.init()

	for _, frame := range e.schedule.Flush(now) {
		e.diagnose(SourceWrite, Hex(frame))
		n, err := e.Port.Write(frame)
		e.Metrics.sent(n, err)
		if err != nil {
			e.diagnose(SourceError, fmt.Sprintf("Write error: %v", err))
			continue
		}
		e.record(Outbound, frame, now)
	}
}

func (e *Emulator) diagnose(src Source, text string) {
	if e.Sink == nil {
		return
	}
	e.Sink.Diagnose(Diagnostic{Time: e.Clock(), Source: src, Text: text})
}

func (e *Emulator) record(dir Direction, bs []byte, at time.Time) {
	if e.Recorder == nil {
		return
	}

	data := make([]byte, len(bs))
	copy(data, bs)

	err := e.Recorder.Receive(Message{Session: e.Session, Direction: dir, Data: data, Timestamp: at})
	if err != nil {
		e.Logger.Warn("recording message", "err", err)
	}
}
