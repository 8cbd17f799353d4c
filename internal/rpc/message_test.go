package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeKind(t *testing.T) {
	id := NewNumberID(1)
	tests := []struct {
		name string
		env  Envelope
		want Kind
	}{
		{"request", Envelope{ID: &id, Method: "initialize"}, KindRequest},
		{"response", Envelope{ID: &id, Result: json.RawMessage(`{}`)}, KindResponse},
		{"notification", Envelope{Method: "textDocument/didOpen"}, KindNotification},
		{"invalid", Envelope{}, KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.env.Kind())
		})
	}
}

func TestDecodeParseError(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
	errObj, ok := err.(*ErrorObject)
	require.True(t, ok)
	assert.Equal(t, CodeParseError, errObj.Code)
}

func TestDecodeInvalidRequest(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0"}`))
	require.Error(t, err)
	errObj, ok := err.(*ErrorObject)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidRequest, errObj.Code)
}

func TestDecodeRoundTripsRequest(t *testing.T) {
	id := NewNumberID(7)
	req := NewRequest(id, "textDocument/hover", json.RawMessage(`{"a":1}`))
	data, err := json.Marshal(req)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, env.Kind())
	assert.Equal(t, "textDocument/hover", env.Method)
	assert.Equal(t, id, *env.ID)
}

func TestIDUnmarshalStringAndNumber(t *testing.T) {
	var a ID
	require.NoError(t, json.Unmarshal([]byte(`42`), &a))
	assert.True(t, a.IsNumber)
	assert.Equal(t, int64(42), a.Number)

	var b ID
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &b))
	assert.False(t, b.IsNumber)
	assert.Equal(t, "abc", b.Name)
}

func TestIDGeneratorMonotonicallyIncreasing(t *testing.T) {
	g := NewIDGenerator()
	first := g.Next()
	second := g.Next()
	require.True(t, first.IsNumber)
	require.True(t, second.IsNumber)
	assert.Greater(t, second.Number, first.Number)
	assert.Greater(t, first.Number, int64(0))
}

func TestIDGeneratorConcurrentUseProducesUniqueIDs(t *testing.T) {
	g := NewIDGenerator()
	const n = 200
	results := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() { results <- g.Next().Number }()
	}
	seen := map[int64]bool{}
	for i := 0; i < n; i++ {
		id := <-results
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}
