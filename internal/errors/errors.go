// Package errors defines the error taxonomy of spec.md §7 and the single
// place where an internal error is translated into a JSON-RPC error
// envelope. Mirrors the teacher's internal/errors package: a flat set of
// typed error values, classifiers for the kinds callers branch on, and no wrapping hierarchy
// deeper than necessary to carry the data each kind needs.
package errors

import (
	"errors"
	"fmt"

	"github.com/opencanvas/lsp-proxy/internal/rpc"
)

// New returns an error that formats as the given text, matching the
// signature of the standard library for drop-in use across this codebase.
func New(msg string) error { return errors.New(msg) }

// Is, As and Unwrap are re-exported so call sites only need this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// ProtocolError indicates malformed JSON-RPC framing or a message missing
// "method" where one was required.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %s", e.Reason) }

// MethodNotFoundError indicates an LSP method this proxy does not route.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string { return fmt.Sprintf("method not found: %q", e.Method) }

// DocumentNotFoundError indicates an operation referenced an untracked URI.
type DocumentNotFoundError struct {
	URI string
}

func (e *DocumentNotFoundError) Error() string { return fmt.Sprintf("document not found: %q", e.URI) }

// SecurityError indicates a path argument resolved outside the workspace
// root. It is always refused before any filesystem I/O happens.
type SecurityError struct {
	Path string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path %q escapes the workspace root", e.Path)
}

// AnalyzerUnavailableError indicates a language has no configured analyzer,
// or the analyzer failed to start within its restart budget.
type AnalyzerUnavailableError struct {
	LanguageID string
	Reason     string
}

func (e *AnalyzerUnavailableError) Error() string {
	return fmt.Sprintf("analyzer for %q unavailable: %s", e.LanguageID, e.Reason)
}

// AnalyzerCrashedError is attached to every pending request an analyzer
// crash invalidates.
type AnalyzerCrashedError struct {
	LanguageID string
}

func (e *AnalyzerCrashedError) Error() string {
	return fmt.Sprintf("analyzer for %q crashed", e.LanguageID)
}

// TransportError indicates a WebSocket or analyzer-stdio stream failure.
type TransportError struct {
	Reason string
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %s", e.Reason) }

// ToJSONRPC translates any error this package or a handler produced into a
// JSON-RPC error envelope, per spec.md §7's propagation policy. Errors not
// recognized as one of the typed kinds above become CodeInternalError —
// this function is the single place an internal error is allowed to reach
// the wire, so callers must never format error.Error() into a reply by hand.
func ToJSONRPC(err error) *rpc.ErrorObject {
	if err == nil {
		return nil
	}

	var protoErr *ProtocolError
	if As(err, &protoErr) {
		return rpc.NewError(rpc.CodeParseError, protoErr.Error())
	}

	var methodErr *MethodNotFoundError
	if As(err, &methodErr) {
		return rpc.NewError(rpc.CodeMethodNotFound, methodErr.Error())
	}

	var docErr *DocumentNotFoundError
	if As(err, &docErr) {
		return rpc.NewError(rpc.CodeInternalError, docErr.Error())
	}

	var secErr *SecurityError
	if As(err, &secErr) {
		return rpc.NewError(rpc.CodeInternalError, secErr.Error())
	}

	var analyzerErr *AnalyzerUnavailableError
	if As(err, &analyzerErr) {
		return rpc.NewError(rpc.CodeInternalError, analyzerErr.Error())
	}

	var crashedErr *AnalyzerCrashedError
	if As(err, &crashedErr) {
		return rpc.NewError(rpc.CodeInternalError, crashedErr.Error())
	}

	var rpcErr *rpc.ErrorObject
	if As(err, &rpcErr) {
		return rpcErr
	}

	return rpc.NewError(rpc.CodeInternalError, err.Error())
}

// IsSecurityError reports whether err is (or wraps) a SecurityError.
func IsSecurityError(err error) bool {
	var e *SecurityError
	return As(err, &e)
}

// IsDocumentNotFound reports whether err is (or wraps) a DocumentNotFoundError.
func IsDocumentNotFound(err error) bool {
	var e *DocumentNotFoundError
	return As(err, &e)
}

// IsAnalyzerUnavailable reports whether err is (or wraps) an AnalyzerUnavailableError.
func IsAnalyzerUnavailable(err error) bool {
	var e *AnalyzerUnavailableError
	return As(err, &e)
}
