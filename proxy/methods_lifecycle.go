package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"
)

// handleInitialize records the client's declared capabilities and answers
// with the capabilities this proxy actually backs with analyzer traffic:
// full-document sync plus hover/completion/definition/references/
// formatting, per spec.md §4.2/§4.4. The workspace root itself is fixed by
// this proxy's configuration (spec.md §6), not negotiated from
// params.RootURI/WorkspaceFolders, since one proxy instance serves exactly
// one workspace.
func (s *Session) handleInitialize(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var params protocol.InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decoding initialize params: %w", err)
	}

	if params.Capabilities.TextDocument != nil {
		s.entity.SetCapability("textDocument", true)
	}

	result := &protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{
			Name:    "opencanvas-lsp-proxy",
			Version: "0.1.0",
		},
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
			HoverProvider:              true,
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			DocumentFormattingProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", ":", "<", "\"", "/", "@"},
			},
		},
	}

	return json.Marshal(result)
}

// handleShutdown marks the session as winding down; per spec.md §4.1 it
// does not itself close the connection, it only forbids further requests
// other than exit until the transport tears down.
func (s *Session) handleShutdown(ctx context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	s.state = connClosing
	s.shutdown = true
	s.mu.Unlock()
	return nil, nil
}

// handleExit closes the connection's documents and stops the outbound
// pump, per spec.md §4.1. The transport layer observes the underlying
// connection close and finishes teardown via Close.
func (s *Session) handleExit(ctx context.Context) error {
	return s.Close(ctx)
}
