package rpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWSConn struct {
	inbound  [][]byte
	outbound [][]byte
	readErr  error
	limit    int64
}

func (f *fakeWSConn) ReadMessage() (int, []byte, error) {
	if f.readErr != nil {
		return 0, nil, f.readErr
	}
	if len(f.inbound) == 0 {
		return 0, nil, errors.New("no more inbound frames")
	}
	next := f.inbound[0]
	f.inbound = f.inbound[1:]
	return websocket.TextMessage, next, nil
}

func (f *fakeWSConn) WriteMessage(messageType int, data []byte) error {
	f.outbound = append(f.outbound, data)
	return nil
}

func (f *fakeWSConn) SetReadLimit(limit int64) { f.limit = limit }

func TestFrameCodecWriteThenRead(t *testing.T) {
	conn := &fakeWSConn{}
	codec := NewFrameCodec(conn, 1024)

	id := NewNumberID(9)
	require.NoError(t, codec.WriteMessage(NewRequest(id, "textDocument/completion", json.RawMessage(`{}`))))
	require.Len(t, conn.outbound, 1)

	conn.inbound = append(conn.inbound, conn.outbound[0])
	env, err := codec.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "textDocument/completion", env.Method)
}

func TestFrameCodecRejectsOversizedFrame(t *testing.T) {
	conn := &fakeWSConn{}
	codec := NewFrameCodec(conn, 8)

	big := make([]byte, 64)
	for i := range big {
		big[i] = 'a'
	}
	conn.inbound = append(conn.inbound, big)

	_, err := codec.ReadMessage()
	assert.ErrorIs(t, err, ErrOversizedFrame)
}

func TestFrameCodecSetsReadLimit(t *testing.T) {
	conn := &fakeWSConn{}
	NewFrameCodec(conn, 16*1024*1024)
	assert.Equal(t, int64(16*1024*1024+1), conn.limit)
}
