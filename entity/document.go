// Package entity holds the plain domain structs shared across the proxy,
// workspace and analyzer packages. Grounded in the teacher's entity/model
// split (entity/ulsp_daemon.go, model/ulsp_daemon.go); this proxy collapses
// that split into one package since neither side here carries wire-format
// concerns distinct enough to warrant separating them.
package entity

import "time"

// Document is the proxy's in-memory record of one open text document, kept
// in sync with the browser client via full-content textDocument/didChange
// events (spec.md §4.4) and mirrored to whichever analyzer owns its
// language, if any.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string

	// OpenedAt and LastActivity are local bookkeeping only: neither is
	// part of the LSP wire format, and nothing else in the proxy reads them.
	OpenedAt     time.Time
	LastActivity time.Time
}

// Touch records activity on the document, advancing LastActivity to now.
func (d *Document) Touch(now time.Time) {
	d.LastActivity = now
}

// ApplyFullChange replaces the document's text wholesale and sets its
// version to version, per the full-content-sync policy of spec.md §4.4 (this proxy
// never negotiates incremental sync with the browser client).
func (d *Document) ApplyFullChange(text string, version int32, now time.Time) {
	d.Text = text
	d.Version = version
	d.Touch(now)
}
