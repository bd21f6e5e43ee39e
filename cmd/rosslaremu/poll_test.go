package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tigermatt.uk/rosslar"
)

// panelPort answers door 1 queries immediately and then reads empty.
type panelPort struct {
	mu      sync.Mutex
	pending []byte
	written [][]byte
	readErr error
}

func (p *panelPort) Write(bs []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, append([]byte(nil), bs...))
	if bytes.Equal(bs, rosslar.QueryDoor1Frame) {
		p.pending = append(p.pending, rosslar.ReplyDoor1Frame...)
	}
	return len(bs), nil
}

func (p *panelPort) Read(bs []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.pending) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(bs, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func TestExchange(t *testing.T) {
	p := &panelPort{}

	reply, err := exchange(context.Background(), p, rosslar.QueryDoor1Frame, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, rosslar.ReplyDoor1Frame, reply)

	reply, err = exchange(context.Background(), p, rosslar.QueryDoor2Frame, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestExchangeReadError(t *testing.T) {
	boom := errors.New("boom")
	p := &panelPort{readErr: boom}

	_, err := exchange(context.Background(), p, rosslar.QueryDoor1Frame, 20*time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestPoller(t *testing.T) {
	p := &panelPort{}
	var out bytes.Buffer

	err := poller(context.Background(), &out, p, rosslar.QueryDoor1Frame, time.Millisecond, 10*time.Millisecond, 2)
	require.NoError(t, err)

	assert.Len(t, p.written, 2)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "> Query door 1 FF FF FF 55")
	assert.Contains(t, lines[1], "< Reply door 1 FF FF 55 02 51")
}

func TestPollerNoReply(t *testing.T) {
	p := &panelPort{}
	var out bytes.Buffer

	err := poller(context.Background(), &out, p, rosslar.QueryDoor2Frame, time.Millisecond, 5*time.Millisecond, 1)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "< NO REPLY")
}

func TestQueryFrame(t *testing.T) {
	f, err := queryFrame(2)
	require.NoError(t, err)
	assert.Equal(t, rosslar.QueryDoor2Frame, f)

	_, err = queryFrame(3)
	assert.Error(t, err)
}
