// Package workspace implements the single-workspace file store this proxy
// exposes to browser clients over textDocument/* methods.
// Grounded in the teacher's internal/fs.UlspFS (fs-backed operations wired
// through an injectable filesystem) with the git-workspace-detection
// methods dropped, since spec.md has no notion of a version-control root —
// every path this store resolves is relative to one fixed WORKSPACE_ROOT.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/opencanvas/lsp-proxy/internal/errors"
	"github.com/opencanvas/lsp-proxy/internal/fs"
)

// Entry describes one node in a workspace directory listing.
type Entry struct {
	URI   string
	IsDir bool
}

// FileContent is what ReadFile reports about a tracked (or newly-inferred)
// document, per spec.md §4.2.
type FileContent struct {
	Text       []byte
	Version    int32
	LanguageID string
}

// fileMeta is the per-URI bookkeeping the store keeps on top of the
// filesystem itself, since fs.FS has no notion of LSP document versions or
// language IDs.
type fileMeta struct {
	version    int32
	languageID string
}

// Store is the workspace file store. All paths it hands to fs.FS are
// resolved and verified to stay within root first; nothing reaches the
// filesystem seam unchecked.
type Store struct {
	fs   fs.FS
	root string

	mu   sync.Mutex
	meta map[string]fileMeta
}

// New returns a Store rooted at root, which must be an absolute,
// filesystem-native path (not a URI).
func New(filesystem fs.FS, root string) *Store {
	return &Store{fs: filesystem, root: filepath.Clean(root), meta: make(map[string]fileMeta)}
}

// inferLanguageID derives a languageId from rawURI's extension for files the
// store never saw through CreateFile, per spec.md §4.2.
func inferLanguageID(rawURI string) string {
	switch strings.ToLower(filepath.Ext(rawURI)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	default:
		return "plaintext"
	}
}

// Root returns the workspace root this store is scoped to.
func (s *Store) Root() string { return s.root }

// URIToPath resolves a file: URI to a native path inside the workspace
// root, enforcing the security invariant of spec.md §3: the resolved path
// must be root or a descendant of root. Any other scheme, or a path that
// escapes root (via "..", a symlink-free lexical check, or an absolute
// path outside root), is rejected before the caller can use it for I/O.
func (s *Store) URIToPath(rawURI string) (string, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return "", &errors.SecurityError{Path: rawURI}
	}
	if !strings.HasPrefix(string(u), uri.FileScheme+":") {
		return "", &errors.SecurityError{Path: rawURI}
	}
	return s.resolve(u.Filename())
}

// PathToURI renders a native path within the workspace root as a file: URI.
func (s *Store) PathToURI(path string) string {
	return string(uri.File(s.absolute(path)))
}

// resolve joins path onto root (if not already absolute) and rejects any
// result that is not root itself or a lexical descendant of root.
func (s *Store) resolve(path string) (string, error) {
	abs := s.absolute(path)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", &errors.SecurityError{Path: path}
	}
	return abs, nil
}

func (s *Store) absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(s.root, path))
}

// ReadFile returns the content, tracked version, and languageId of the file
// at rawURI. If rawURI was never seen through CreateFile/UpdateFile, the
// languageId is inferred from its extension and the version reported as 1,
// per spec.md §4.2.
func (s *Store) ReadFile(ctx context.Context, rawURI string) (FileContent, error) {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return FileContent{}, err
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return FileContent{}, fmt.Errorf("reading %q: %w", rawURI, err)
	}

	s.mu.Lock()
	meta, ok := s.meta[rawURI]
	s.mu.Unlock()
	if !ok {
		meta = fileMeta{version: 1, languageID: inferLanguageID(rawURI)}
	}
	return FileContent{Text: data, Version: meta.version, LanguageID: meta.languageID}, nil
}

// CreateFile writes a new file at rawURI with the given languageId, starting
// its tracked version at 1, per spec.md §4.2. Parent directories are created
// as needed.
func (s *Store) CreateFile(ctx context.Context, rawURI string, content []byte, languageID string) error {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating parent directories for %q: %w", rawURI, err)
	}
	if err := s.fs.WriteFile(path, content); err != nil {
		return fmt.Errorf("creating %q: %w", rawURI, err)
	}

	s.mu.Lock()
	s.meta[rawURI] = fileMeta{version: 1, languageID: languageID}
	s.mu.Unlock()
	return nil
}

// UpdateFile overwrites the content of an existing file at rawURI and bumps
// its tracked version. A file not previously tracked gets its languageId
// inferred from extension before being bumped to version 2, per spec.md
// §4.2.
func (s *Store) UpdateFile(ctx context.Context, rawURI string, content []byte) error {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return err
	}
	if _, err := s.fs.Stat(path); err != nil {
		return &errors.DocumentNotFoundError{URI: rawURI}
	}
	if err := s.fs.WriteFile(path, content); err != nil {
		return fmt.Errorf("updating %q: %w", rawURI, err)
	}

	s.mu.Lock()
	meta, ok := s.meta[rawURI]
	if !ok {
		meta = fileMeta{version: 1, languageID: inferLanguageID(rawURI)}
	}
	meta.version++
	s.meta[rawURI] = meta
	s.mu.Unlock()
	return nil
}

// DeleteFile removes the file at rawURI and forgets its tracked metadata.
func (s *Store) DeleteFile(ctx context.Context, rawURI string) error {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("deleting %q: %w", rawURI, err)
	}

	s.mu.Lock()
	delete(s.meta, rawURI)
	s.mu.Unlock()
	return nil
}

// HasFile reports whether rawURI exists and is a regular file.
func (s *Store) HasFile(ctx context.Context, rawURI string) bool {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return false
	}
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDirectory creates a directory at rawURI, including any missing
// parents.
func (s *Store) CreateDirectory(ctx context.Context, rawURI string) error {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path); err != nil {
		return fmt.Errorf("creating directory %q: %w", rawURI, err)
	}
	return nil
}

// DeletePath removes a file or directory (recursively) at rawURI.
func (s *Store) DeletePath(ctx context.Context, rawURI string) error {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return err
	}
	if err := s.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("deleting %q: %w", rawURI, err)
	}
	return nil
}

// RenamePath moves the file or directory at fromURI to toURI. Both
// endpoints are independently validated against the workspace root.
func (s *Store) RenamePath(ctx context.Context, fromURI, toURI string) error {
	fromPath, err := s.URIToPath(fromURI)
	if err != nil {
		return err
	}
	toPath, err := s.URIToPath(toURI)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(toPath)); err != nil {
		return fmt.Errorf("creating parent directories for %q: %w", toURI, err)
	}
	if err := s.fs.Rename(fromPath, toPath); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", fromURI, toURI, err)
	}

	s.mu.Lock()
	if meta, ok := s.meta[fromURI]; ok {
		delete(s.meta, fromURI)
		s.meta[toURI] = meta
	}
	s.mu.Unlock()
	return nil
}

// ListTree returns every file and directory under rawURI, sorted by URI,
// for workspace/ initialization and large-scale refactors.
func (s *Store) ListTree(ctx context.Context, rawURI string) ([]Entry, error) {
	path, err := s.URIToPath(rawURI)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := s.walk(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("listing %q: %w", rawURI, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].URI < entries[j].URI })
	return entries, nil
}

func (s *Store) walk(ctx context.Context, dir string, out *[]Entry) error {
	children, err := s.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, c := range children {
		childPath := filepath.Join(dir, c.Name())
		*out = append(*out, Entry{URI: s.PathToURI(childPath), IsDir: c.IsDir()})
		if c.IsDir() {
			if err := s.walk(ctx, childPath, out); err != nil {
				return err
			}
		}
	}
	return nil
}
