package rpc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConn is the subset of *websocket.Conn used by FrameCodec, so tests can
// substitute a fake without opening a real socket.
type WSConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
}

// FrameCodec reads and writes exactly one JSON-RPC message per WebSocket
// frame (spec.md §4.1, §4.6) — no Content-Length header on this side, since
// WebSocket already delimits messages. gorilla's *websocket.Conn supports at
// most one concurrent writer, so WriteMessage serializes its callers: this
// proxy dispatches requests concurrently and pumps analyzer notifications
// out on a separate goroutine, both of which write through the same codec.
type FrameCodec struct {
	conn        WSConn
	maxFrameLen int

	writeMu sync.Mutex
}

// NewFrameCodec wraps a WebSocket connection, rejecting any frame larger
// than maxFrameLen bytes before attempting to parse it.
func NewFrameCodec(conn WSConn, maxFrameLen int) *FrameCodec {
	conn.SetReadLimit(int64(maxFrameLen) + 1)
	return &FrameCodec{conn: conn, maxFrameLen: maxFrameLen}
}

// ErrOversizedFrame is returned by ReadMessage when a frame exceeds the
// configured ceiling. The caller should reply with CodeInvalidRequest and
// keep the connection open, per spec.md §4.6.
var ErrOversizedFrame = fmt.Errorf("frame exceeds maximum size")

// ReadMessage blocks for the next WebSocket text frame and decodes it as a
// single JSON-RPC envelope.
func (c *FrameCodec) ReadMessage() (*Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading websocket frame: %w", err)
	}
	if len(data) > c.maxFrameLen {
		return nil, ErrOversizedFrame
	}
	env, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// WriteMessage encodes env as a single JSON text frame. Safe for concurrent
// use.
func (c *FrameCodec) WriteMessage(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}
