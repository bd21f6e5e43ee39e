package rosslar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r := Recorder{Dest: &buf}

	require.NoError(t, r.Receive(Message{Direction: Inbound, Data: []byte{1, 2}, Timestamp: ms(10)}))
	require.NoError(t, r.Receive(Message{Direction: Outbound, Data: []byte{3}, Timestamp: ms(20)}))

	msgs := make(chan Message, 2)
	require.NoError(t, ReadIn(msgs, &buf))

	var got [][]byte
	for msg := range msgs {
		got = append(got, msg.Data)
	}
	// Each decode gets its own buffer.
	assert.Equal(t, [][]byte{{1, 2}, {3}}, got)
}

func TestReadInCorrupt(t *testing.T) {
	msgs := make(chan Message, 1)
	err := ReadIn(msgs, bytes.NewReader([]byte("garbage!")))
	assert.ErrorContains(t, err, "while decoding")

	_, open := <-msgs
	assert.False(t, open)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "<", Inbound.String())
	assert.Equal(t, ">", Outbound.String())
}
