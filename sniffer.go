package rosslar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrPortClosed is returned by a transport whose port has been closed.
var ErrPortClosed = errors.New("port closed")

const (
	readBufferSize = 2048
	// maxReadErrors consecutive failed reads end Consume.
	maxReadErrors = 10
)

var readErrorPause = 100 * time.Millisecond

// Sniffer reads from Port until it is closed, handing every read that
// returned data or failed to OnReceive. A read of zero bytes without an
// error is a driver read timeout and is not reported.
type Sniffer struct {
	Port io.Reader
	// OnReceive gets the first n bytes read, the read's return value and
	// its error. A read can deliver bytes and fail at once; n <= 0 or a
	// non-nil err is a failed read.
	OnReceive func(bs []byte, n int, err error)
}

// Consume returns nil when ctx is done or the port reaches end of input,
// and an error once maxReadErrors reads in a row have failed.
func (s *Sniffer) Consume(ctx context.Context) error {
	bs := make([]byte, readBufferSize)
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := s.Port.Read(bs)
		data := bs[:max(n, 0)]

		switch {
		case err == nil && n == 0:
			continue
		case err == nil && n > 0:
			failures = 0
			s.OnReceive(data, n, nil)
			continue
		case err != nil && closed(err):
			if n > 0 {
				s.OnReceive(data, n, nil)
			}
			return nil
		}

		s.OnReceive(data, n, err)

		failures++
		if failures >= maxReadErrors {
			if err == nil {
				err = fmt.Errorf("return value %d", n)
			}
			return fmt.Errorf("reading from serial port: %d failed reads: %w", failures, err)
		}
		if n <= 0 && !sleep(ctx, readErrorPause) {
			return nil
		}
	}
}

func closed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, ErrPortClosed)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ReadError describes a failed transport read.
func ReadError(n int, err error) string {
	if err == nil {
		return fmt.Sprintf("Read error, return value %d", n)
	}
	return fmt.Sprintf("Read error, return value %d: %v", n, err)
}
