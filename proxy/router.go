package proxy

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"

	"github.com/opencanvas/lsp-proxy/internal/errors"
)

// dispatch routes one decoded method to its handler, per spec.md §4.2's
// method table, mirroring the shape of the teacher's jsonRPCRouter.HandleReq
// switch but operating on this proxy's own rpc.Envelope rather than a
// go.lsp.dev/jsonrpc2 Request, since the browser-facing wire layer is
// hand-rolled (SPEC_FULL.md §5.1).
func (s *Session) dispatch(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	switch method {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, params)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodShutdown:
		return s.handleShutdown(ctx)
	case protocol.MethodExit:
		return nil, s.handleExit(ctx)

	case protocol.MethodTextDocumentDidOpen:
		return nil, s.handleDidOpen(ctx, params)
	case protocol.MethodTextDocumentDidChange:
		return nil, s.handleDidChange(ctx, params)
	case protocol.MethodTextDocumentDidClose:
		return nil, s.handleDidClose(ctx, params)
	case protocol.MethodTextDocumentDidSave:
		return nil, s.handleDidSave(ctx, params)

	case protocol.MethodTextDocumentHover:
		return s.handleHover(ctx, params)
	case protocol.MethodTextDocumentCompletion:
		return s.handleCompletion(ctx, params)
	case protocol.MethodTextDocumentDefinition:
		return s.handleDefinition(ctx, params)
	case protocol.MethodTextDocumentReferences:
		return s.handleReferences(ctx, params)
	case protocol.MethodTextDocumentFormatting:
		return s.handleFormatting(ctx, params)

	default:
		return nil, &errors.MethodNotFoundError{Method: method}
	}
}
