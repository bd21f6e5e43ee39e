package rosslar

import "time"

// Reading is one received byte and its arrival time in milliseconds.
type Reading struct {
	Byte byte
	At   int64
}

// Scheduler accepts replies for later release.
type Scheduler interface {
	Schedule(at time.Time, frame []byte) bool
}

// Result describes what one fed byte did to the window.
type Result struct {
	// Purged counts the bytes aged out of the window before the new one
	// was appended.
	Purged int
	// Matched is the signature the window equalled, if any.
	Matched *Signature
	// Scheduled is set when a reply was queued for the match.
	Scheduled bool
	// ReleaseAt is the reply's release time when Scheduled.
	ReleaseAt time.Time
}

// Matcher recognizes signatures in a byte stream fed one byte at a time.
// It is not safe for concurrent use; a session's read loop owns it.
type Matcher struct {
	Signatures []Signature
	Patience   time.Duration
	Turnaround time.Duration
	// Replies receives the reply frames of matched signatures. May be nil.
	Replies Scheduler

	window []Reading
}

// NewMatcher returns a Matcher with the panel's signatures and timing.
func NewMatcher(replies Scheduler) *Matcher {
	return &Matcher{
		Signatures: DefaultSignatures(),
		Patience:   DefaultPatience,
		Turnaround: DefaultTurnaround,
		Replies:    replies,
	}
}

// Feed appends b, received at now, to the window and checks the window
// against every signature in priority order.
func (m *Matcher) Feed(b byte, now time.Time) Result {
	var res Result
	nowMs := now.UnixMilli()

	res.Purged = m.Expire(now)
	m.window = append(m.window, Reading{Byte: b, At: nowMs})

	for i := range m.Signatures {
		sig := &m.Signatures[i]
		if !m.equals(sig.Frame) {
			continue
		}

		m.Reset()
		res.Matched = sig
		if sig.Reply != nil && m.Replies != nil {
			res.ReleaseAt = time.UnixMilli(nowMs).Add(m.Turnaround)
			res.Scheduled = m.Replies.Schedule(res.ReleaseAt, sig.Reply)
		}
		break
	}

	return res
}

// Expire drops the readings that have aged out by now and returns how
// many it dropped.
func (m *Matcher) Expire(now time.Time) int {
	return m.purge(now.UnixMilli() - m.Patience.Milliseconds())
}

// Window returns the bytes currently waiting for a match.
func (m *Matcher) Window() []byte {
	bs := make([]byte, len(m.window))
	for i, r := range m.window {
		bs[i] = r.Byte
	}
	return bs
}

// Reset empties the window.
func (m *Matcher) Reset() {
	m.window = m.window[:0]
}

// purge drops readings older than cutoff from the front of the window.
func (m *Matcher) purge(cutoff int64) int {
	n := 0
	for n < len(m.window) && m.window[n].At < cutoff {
		n++
	}
	if n > 0 {
		m.window = append(m.window[:0], m.window[n:]...)
	}
	return n
}

func (m *Matcher) equals(frame []byte) bool {
	if len(m.window) != len(frame) {
		return false
	}
	for i, r := range m.window {
		if r.Byte != frame[i] {
			return false
		}
	}
	return true
}
