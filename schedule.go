package rosslar

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	at    int64
	frame []byte
}

// Schedule holds outbound frames keyed by their release time in
// milliseconds. Keys are unique: a frame scheduled at an occupied key is
// dropped. It is safe for concurrent use.
type Schedule struct {
	mu      sync.Mutex
	entries []entry // ascending by at
}

// Schedule queues a copy of frame for release at at. It reports false,
// leaving the schedule untouched, when a frame is already queued for the
// same millisecond.
func (s *Schedule) Schedule(at time.Time, frame []byte) bool {
	key := at.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].at >= key })
	if i < len(s.entries) && s.entries[i].at == key {
		return false
	}

	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry{at: key, frame: append([]byte(nil), frame...)}
	return true
}

// Flush removes and returns, in release order, every frame due strictly
// before now.
func (s *Schedule) Flush(now time.Time) [][]byte {
	key := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].at >= key })
	if n == 0 {
		return nil
	}

	due := make([][]byte, n)
	for i := 0; i < n; i++ {
		due[i] = s.entries[i].frame
	}
	s.entries = append(s.entries[:0], s.entries[n:]...)
	return due
}

// Len returns the number of queued frames.
func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Pending returns the release times of the queued frames in order.
func (s *Schedule) Pending() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := make([]time.Time, len(s.entries))
	for i, e := range s.entries {
		ts[i] = time.UnixMilli(e.at)
	}
	return ts
}

// Reset drops every queued frame.
func (s *Schedule) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
