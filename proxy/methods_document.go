package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/opencanvas/lsp-proxy/entity"
	"github.com/opencanvas/lsp-proxy/internal/errors"
)

// handleDidOpen records the document, mirrors it into the workspace store,
// and forwards it to the language's analyzer, starting that analyzer on
// first use, per spec.md §4.2/§4.4/§4.5.
func (s *Session) handleDidOpen(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("decoding didOpen params: %w", err)
	}

	uri := string(params.TextDocument.URI)
	lock := s.entity.LockForURI(uri)
	lock.Lock()
	defer lock.Unlock()

	now := s.clk.Now()
	doc := &entity.Document{
		URI:          uri,
		LanguageID:   string(params.TextDocument.LanguageID),
		Version:      params.TextDocument.Version,
		Text:         params.TextDocument.Text,
		OpenedAt:     now,
		LastActivity: now,
	}
	s.storeDocument(doc)
	s.entity.MarkOpen(uri)

	if s.store.HasFile(ctx, uri) {
		// Repeated didOpen for an already-tracked URI is idempotent on the
		// workspace store: the prior version and content stand.
		if _, err := s.store.ReadFile(ctx, uri); err != nil {
			return fmt.Errorf("reading workspace file for opened document: %w", err)
		}
	} else if err := s.store.CreateFile(ctx, uri, []byte(doc.Text), doc.LanguageID); err != nil {
		return fmt.Errorf("creating workspace file for opened document: %w", err)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.LanguageID)
	if err != nil {
		return err
	}
	proc.Rebind(s.forwardAnalyzerNotification)

	return proc.SendNotification(ctx, protocol.MethodTextDocumentDidOpen, &params)
}

// handleDidChange replaces the document's text wholesale with the text of
// the last content change and forwards it downstream as a single full-text
// change. Change ranges are ignored: an incremental delta from the browser
// client is taken as the whole document text.
func (s *Session) handleDidChange(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("decoding didChange params: %w", err)
	}

	uri := string(params.TextDocument.URI)
	lock := s.entity.LockForURI(uri)
	lock.Lock()
	defer lock.Unlock()

	doc, ok := s.documentFor(uri)
	if !ok {
		return &errors.DocumentNotFoundError{URI: uri}
	}

	text := doc.Text
	if n := len(params.ContentChanges); n > 0 {
		text = params.ContentChanges[n-1].Text
	}
	doc.ApplyFullChange(text, params.TextDocument.Version, s.clk.Now())

	if err := s.store.UpdateFile(ctx, uri, []byte(doc.Text)); err != nil {
		return fmt.Errorf("syncing changed document to workspace: %w", err)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.LanguageID)
	if err != nil {
		return err
	}

	fullChange := &protocol.DidChangeTextDocumentParams{
		TextDocument: params.TextDocument,
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: doc.Text},
		},
	}
	return proc.SendNotification(ctx, protocol.MethodTextDocumentDidChange, fullChange)
}

// handleDidClose forgets the document locally and forwards didClose, per
// spec.md §4.2.
func (s *Session) handleDidClose(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("decoding didClose params: %w", err)
	}
	return s.closeDocument(ctx, string(params.TextDocument.URI))
}

// closeDocument is the shared didClose path used by both the handler above
// and Session.Close's bulk cleanup.
func (s *Session) closeDocument(ctx context.Context, uri string) error {
	lock := s.entity.LockForURI(uri)
	lock.Lock()
	defer lock.Unlock()

	doc, ok := s.documentFor(uri)
	if !ok {
		s.entity.MarkClosed(uri)
		return nil
	}
	s.forgetDocument(uri)
	s.entity.MarkClosed(uri)
	// The workspace store's copy of the file outlives the in-memory
	// document; closing only reads it, to surface files deleted from under
	// an open editor before the analyzer is told the document is gone.
	if !s.store.HasFile(ctx, uri) {
		s.logger.Infow("closing document whose workspace file no longer exists", "uri", uri)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.LanguageID)
	if err != nil {
		return err
	}
	return proc.SendNotification(ctx, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

// handleDidSave forwards the save to the document's analyzer and persists
// the saved text to the workspace filesystem, a capability the teacher's
// IDE-attached daemon never needed (the IDE's own disk already has the
// file) but this browser-hosted editor does.
func (s *Session) handleDidSave(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("decoding didSave params: %w", err)
	}

	uri := string(params.TextDocument.URI)
	lock := s.entity.LockForURI(uri)
	lock.Lock()
	defer lock.Unlock()

	doc, ok := s.documentFor(uri)
	if !ok {
		return &errors.DocumentNotFoundError{URI: uri}
	}

	if params.Text != "" {
		doc.ApplyFullChange(params.Text, doc.Version, s.clk.Now())
	}
	if err := s.store.UpdateFile(ctx, uri, []byte(doc.Text)); err != nil {
		return fmt.Errorf("persisting saved document: %w", err)
	}

	proc, err := s.manager.GetOrCreate(ctx, doc.LanguageID)
	if err != nil {
		return err
	}
	return proc.SendNotification(ctx, protocol.MethodTextDocumentDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Text:         doc.Text,
	})
}

// forwardAnalyzerNotification is this session's analyzer.Sink: it routes a
// notification through the shared gateway.Notifier keyed by this session's
// ID rather than calling back into the session directly, so that rebinding
// an analyzer to a different session (spec.md §4.4) only ever requires
// swapping which sink is bound, never reaching back into this struct.
func (s *Session) forwardAnalyzerNotification(method string, params json.RawMessage) {
	s.notifier.Notify(context.Background(), s.entity.ID, method, params)
}

