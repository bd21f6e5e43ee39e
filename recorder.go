package rosslar

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Direction tells which way a recorded message travelled.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return ">"
	}
	return "<"
}

type Message struct {
	Session   string
	Direction Direction
	Data      []byte
	Timestamp time.Time
}

// Recorder appends messages to Dest as a gob stream. It is safe for
// concurrent use.
type Recorder struct {
	Dest io.Writer

	mu   sync.Mutex
	enc  *gob.Encoder
	once sync.Once
}

func (r *Recorder) Receive(msg Message) error {
	r.init()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(msg)
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.enc = gob.NewEncoder(r.Dest)
	})
}

func ReadIn(out chan<- Message, r io.Reader) error {
	defer close(out)

	dec := gob.NewDecoder(r)

	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("while decoding: %w", err)
		}

		out <- msg
	}
}
