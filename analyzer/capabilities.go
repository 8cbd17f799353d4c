package analyzer

import "go.lsp.dev/protocol"

// clientCapabilities builds the capabilities this proxy, acting as the LSP
// client toward the analyzer subprocess, sends on initialize. It sends
// empty TextDocument and Workspace capability structs: no individual
// capability (hover, completion, definition, references, formatting,
// diagnostics, synchronization) is declared.
func clientCapabilities() protocol.ClientCapabilities {
	return protocol.ClientCapabilities{
		TextDocument: &protocol.TextDocumentClientCapabilities{},
		Workspace:    &protocol.WorkspaceClientCapabilities{},
	}
}
