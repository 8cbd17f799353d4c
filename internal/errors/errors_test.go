package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanvas/lsp-proxy/internal/rpc"
)

func TestToJSONRPCNil(t *testing.T) {
	assert.Nil(t, ToJSONRPC(nil))
}

func TestToJSONRPCMapsKnownKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"protocol", &ProtocolError{Reason: "bad frame"}, rpc.CodeParseError},
		{"method not found", &MethodNotFoundError{Method: "foo/bar"}, rpc.CodeMethodNotFound},
		{"document not found", &DocumentNotFoundError{URI: "file:///a.go"}, rpc.CodeInternalError},
		{"security", &SecurityError{Path: "../etc/passwd"}, rpc.CodeInternalError},
		{"analyzer unavailable", &AnalyzerUnavailableError{LanguageID: "go"}, rpc.CodeInternalError},
		{"analyzer crashed", &AnalyzerCrashedError{LanguageID: "go"}, rpc.CodeInternalError},
		{"plain error", New("boom"), rpc.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToJSONRPC(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestToJSONRPCPassesThroughErrorObject(t *testing.T) {
	orig := rpc.NewError(rpc.CodeInvalidParams, "bad params")
	got := ToJSONRPC(orig)
	assert.Same(t, orig, got)
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsSecurityError(&SecurityError{Path: "x"}))
	assert.False(t, IsSecurityError(New("other")))

	assert.True(t, IsDocumentNotFound(&DocumentNotFoundError{URI: "x"}))
	assert.False(t, IsDocumentNotFound(New("other")))

	assert.True(t, IsAnalyzerUnavailable(&AnalyzerUnavailableError{LanguageID: "go"}))
	assert.False(t, IsAnalyzerUnavailable(New("other")))
}
