// Package rpc implements the JSON-RPC 2.0 message envelope and the two wire
// framings this proxy speaks: Content-Length framed streams (to analyzer
// subprocesses, matching the LSP base protocol) and one-message-per-frame
// WebSocket (to browser clients). See SPEC_FULL.md §5.1.
package rpc

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Error codes from the JSON-RPC 2.0 spec, as used throughout this proxy.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ID is a JSON-RPC request id: either a number or a string on the wire.
type ID struct {
	Number int64
	Name   string
	IsNumber bool
}

// NewNumberID returns an ID carrying the given integer.
func NewNumberID(n int64) ID { return ID{Number: n, IsNumber: true} }

// NewStringID returns an ID carrying the given string.
func NewStringID(s string) ID { return ID{Name: s} }

// String renders the ID for logging.
func (id ID) String() string {
	if id.IsNumber {
		return fmt.Sprintf("%d", id.Number)
	}
	return id.Name
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumber {
		return json.Marshal(id.Number)
	}
	return json.Marshal(id.Name)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID{Number: n, IsNumber: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id is neither a number nor a string: %w", err)
	}
	*id = ID{Name: s}
	return nil
}

// ErrorObject is the JSON-RPC 2.0 error envelope.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds an ErrorObject for one of the standard JSON-RPC codes.
func NewError(code int, message string) *ErrorObject {
	return &ErrorObject{Code: code, Message: message}
}

// Envelope is the wire shape of every JSON-RPC 2.0 message this proxy sends
// or receives. Exactly one of (Method set, no Result/Error) or (Method
// unset, Result or Error set) holds, per Kind.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Kind classifies a decoded Envelope per spec.md §4.1.
type Kind int

const (
	// KindInvalid marks an envelope that is none of the three valid kinds.
	KindInvalid Kind = iota
	KindRequest
	KindResponse
	KindNotification
)

// Kind classifies the envelope: a request has both ID and Method; a
// response has (Result or Error) and no Method — with ID present for an
// ordinary reply, or null per JSON-RPC 2.0 when the request that caused an
// error (a parse error, or a frame rejected before a request id could be
// read) was never successfully identified; an envelope with an ID but no
// Method, Result or Error is also classified as a response; a
// notification has Method but no ID.
func (e *Envelope) Kind() Kind {
	switch {
	case e.ID != nil && e.Method != "":
		return KindRequest
	case e.Method == "" && (e.ID != nil || e.Result != nil || e.Error != nil):
		return KindResponse
	case e.ID == nil && e.Method != "":
		return KindNotification
	default:
		return KindInvalid
	}
}

// NewRequest builds a request envelope.
func NewRequest(id ID, method string, params json.RawMessage) *Envelope {
	return &Envelope{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
}

// NewNotification builds a notification envelope.
func NewNotification(method string, params json.RawMessage) *Envelope {
	return &Envelope{JSONRPC: "2.0", Method: method, Params: params}
}

// NewResult builds a success response envelope for the given request id.
func NewResult(id ID, result json.RawMessage) *Envelope {
	return &Envelope{JSONRPC: "2.0", ID: &id, Result: result}
}

// NewErrorResponse builds an error response envelope for the given request id.
func NewErrorResponse(id ID, err *ErrorObject) *Envelope {
	return &Envelope{JSONRPC: "2.0", ID: &id, Error: err}
}

// Decode validates and classifies raw bytes as an Envelope. A decode
// failure is a ProtocolError (CodeParseError); a structurally valid object
// missing "method" on what is clearly meant to be a request/notification is
// CodeInvalidRequest.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, NewError(CodeParseError, fmt.Sprintf("parse error: %v", err))
	}
	if e.Kind() == KindInvalid {
		return nil, NewError(CodeInvalidRequest, "invalid request: missing method and id/result/error")
	}
	return &e, nil
}

// IDGenerator allocates monotonically increasing positive request ids for
// one outbound connection (one per analyzer, per spec.md §4.1). Safe for
// concurrent use.
type IDGenerator struct {
	next atomic.Int64
}

// NewIDGenerator returns a generator starting at 1.
func NewIDGenerator() *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(1)
	return g
}

// Next returns the next id and advances the counter.
func (g *IDGenerator) Next() ID {
	return NewNumberID(g.next.Add(1) - 1)
}
