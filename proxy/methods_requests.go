package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/opencanvas/lsp-proxy/internal/errors"
)

// forwardRequest resolves the document's analyzer and relays method/params,
// the shared tail end of every request handler below.
func (s *Session) forwardRequest(ctx context.Context, uri, method string, params interface{}) (json.RawMessage, error) {
	doc, ok := s.documentFor(uri)
	if !ok {
		return nil, &errors.DocumentNotFoundError{URI: uri}
	}

	lock := s.entity.LockForURI(uri)
	lock.Lock()
	defer lock.Unlock()

	proc, err := s.manager.GetOrCreate(ctx, doc.LanguageID)
	if err != nil {
		return nil, err
	}
	return proc.SendRequest(ctx, method, params)
}

func (s *Session) handleHover(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.HoverParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding hover params: %w", err)
	}
	return s.forwardRequest(ctx, string(params.TextDocument.URI), protocol.MethodTextDocumentHover, &params)
}

func (s *Session) handleCompletion(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.CompletionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding completion params: %w", err)
	}
	return s.forwardRequest(ctx, string(params.TextDocument.URI), protocol.MethodTextDocumentCompletion, &params)
}

func (s *Session) handleDefinition(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding definition params: %w", err)
	}
	return s.forwardRequest(ctx, string(params.TextDocument.URI), protocol.MethodTextDocumentDefinition, &params)
}

func (s *Session) handleReferences(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.ReferenceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding references params: %w", err)
	}
	return s.forwardRequest(ctx, string(params.TextDocument.URI), protocol.MethodTextDocumentReferences, &params)
}

func (s *Session) handleFormatting(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.DocumentFormattingParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding formatting params: %w", err)
	}
	return s.forwardRequest(ctx, string(params.TextDocument.URI), protocol.MethodTextDocumentFormatting, &params)
}
