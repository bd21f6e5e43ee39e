package rosslar

import (
	"bytes"
	"time"
)

// Protocol timing of the emulated panel.
const (
	// DefaultPatience is how long a partial frame may sit in the window
	// before its bytes are purged.
	DefaultPatience = time.Second
	// DefaultTurnaround is the delay between recognizing a query and
	// releasing its reply.
	DefaultTurnaround = 500 * time.Millisecond
	// DefaultFlushInterval is how often due replies are written out.
	DefaultFlushInterval = 100 * time.Millisecond
)

// Command identifies a recognized frame.
type Command int

const (
	NoCommand Command = iota
	Terminator
	QueryDoor1
	QueryDoor2
)

func (c Command) String() string {
	switch c {
	case Terminator:
		return "CRLF"
	case QueryDoor1:
		return "Query door 1"
	case QueryDoor2:
		return "Query door 2"
	default:
		return "none"
	}
}

// Signature is a fixed frame the matcher recognizes. Reply, when not
// nil, is emitted verbatim after the turnaround delay.
type Signature struct {
	Command Command
	Frame   []byte
	Reply   []byte
}

// Matches reports whether bs is exactly the signature's frame.
func (s Signature) Matches(bs []byte) bool {
	return bytes.Equal(s.Frame, bs)
}

const (
	terminator = "\x0D\x0A"
	queryDoor1 = "\xFF\xFF\xFF\x55\x02\x01\x02\x51\x00\x01\x41\x98"
	queryDoor2 = "\xFF\xFF\xFF\x55\x02\x02\x02\x51\x00\x01\x41\x99"
	replyDoor1 = "\xFF\xFF\x55\x02\x51\x02\x01\x00\x0B\xC0\x00" +
		"\x32\x16\x0A\x0F\x08\x08\x05\x18\xE2\x91\x00"
)

// The frames as byte slices for callers. Changing them does not change
// what the emulator matches or sends.
var (
	TerminatorFrame = []byte(terminator)
	QueryDoor1Frame = []byte(queryDoor1)
	QueryDoor2Frame = []byte(queryDoor2)
	ReplyDoor1Frame = []byte(replyDoor1)
)

// DefaultSignatures returns fresh copies of the panel's signatures in
// match priority order. Door 2 is recognized but never answered.
func DefaultSignatures() []Signature {
	return []Signature{
		{Command: Terminator, Frame: []byte(terminator)},
		{Command: QueryDoor1, Frame: []byte(queryDoor1), Reply: []byte(replyDoor1)},
		{Command: QueryDoor2, Frame: []byte(queryDoor2)},
	}
}
