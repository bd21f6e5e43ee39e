package rosslar

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRead struct {
	data []byte
	err  error
}

type scriptedReader struct {
	reads []scriptedRead
}

func (r *scriptedReader) Read(bs []byte) (int, error) {
	if len(r.reads) == 0 {
		return 0, io.EOF
	}
	next := r.reads[0]
	r.reads = r.reads[1:]
	return copy(bs, next.data), next.err
}

type scriptedPort struct {
	scriptedReader
}

func (p *scriptedPort) Write(bs []byte) (int, error) { return len(bs), nil }

type received struct {
	data []byte
	n    int
	err  error
}

func TestSnifferConsume(t *testing.T) {
	boom := errors.New("boom")
	r := &scriptedReader{reads: []scriptedRead{
		{data: []byte{1, 2}},
		{},
		{err: boom},
		{data: []byte{3}, err: io.EOF},
	}}

	var got []received
	s := Sniffer{Port: r, OnReceive: func(bs []byte, n int, err error) {
		got = append(got, received{data: append([]byte(nil), bs...), n: n, err: err})
	}}

	require.NoError(t, s.Consume(context.Background()))
	require.Len(t, got, 3)
	assert.Equal(t, received{data: []byte{1, 2}, n: 2}, got[0])
	assert.Equal(t, 0, got[1].n)
	assert.ErrorIs(t, got[1].err, boom)
	assert.Equal(t, received{data: []byte{3}, n: 1}, got[2])
}

func TestSnifferStopsOnClosedPort(t *testing.T) {
	r := &scriptedReader{reads: []scriptedRead{{err: ErrPortClosed}}}
	s := Sniffer{Port: r, OnReceive: func([]byte, int, error) { t.Fatal("unexpected receive") }}

	assert.NoError(t, s.Consume(context.Background()))
}

func TestReadError(t *testing.T) {
	assert.Equal(t, "Read error, return value 0", ReadError(0, nil))
	assert.Equal(t, "Read error, return value -1: boom", ReadError(-1, errors.New("boom")))
}

func TestSnifferReportsErrorAfterData(t *testing.T) {
	parity := errors.New("parity")
	r := &scriptedReader{reads: []scriptedRead{{data: []byte{7, 8}, err: parity}}}

	var got []received
	s := Sniffer{Port: r, OnReceive: func(bs []byte, n int, err error) {
		got = append(got, received{data: append([]byte(nil), bs...), n: n, err: err})
	}}

	require.NoError(t, s.Consume(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{7, 8}, got[0].data)
	assert.Equal(t, 2, got[0].n)
	assert.ErrorIs(t, got[0].err, parity)
}

func TestSnifferGivesUpAfterRepeatedFailures(t *testing.T) {
	defer func(d time.Duration) { readErrorPause = d }(readErrorPause)
	readErrorPause = time.Millisecond

	boom := errors.New("boom")
	var reads []scriptedRead
	for i := 0; i < maxReadErrors-1; i++ {
		reads = append(reads, scriptedRead{err: boom})
	}
	// A good read in between resets the count.
	reads = append(reads, scriptedRead{data: []byte{1}})
	for i := 0; i < maxReadErrors; i++ {
		reads = append(reads, scriptedRead{err: boom})
	}
	r := &scriptedReader{reads: reads}

	failed := 0
	s := Sniffer{Port: r, OnReceive: func(_ []byte, _ int, err error) {
		if err != nil {
			failed++
		}
	}}

	err := s.Consume(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2*maxReadErrors-1, failed)
	assert.Empty(t, r.reads)
}
