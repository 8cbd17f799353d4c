package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanvas/lsp-proxy/internal/errors"
	"github.com/opencanvas/lsp-proxy/internal/fs"
)

func newTestStore() *Store {
	return New(fs.NewFake(), "/workspace")
}

func TestStoreCreateReadUpdateDeleteFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	fileURI := s.PathToURI("/workspace/a.go")

	require.NoError(t, s.CreateFile(ctx, fileURI, []byte("package a"), "go"))
	assert.True(t, s.HasFile(ctx, fileURI))

	fc, err := s.ReadFile(ctx, fileURI)
	require.NoError(t, err)
	assert.Equal(t, "package a", string(fc.Text))
	assert.Equal(t, int32(1), fc.Version)
	assert.Equal(t, "go", fc.LanguageID)

	require.NoError(t, s.UpdateFile(ctx, fileURI, []byte("package a\n\nvar X int")))
	fc, err = s.ReadFile(ctx, fileURI)
	require.NoError(t, err)
	assert.Equal(t, "package a\n\nvar X int", string(fc.Text))
	assert.Equal(t, int32(2), fc.Version)
	assert.Equal(t, "go", fc.LanguageID)

	require.NoError(t, s.DeleteFile(ctx, fileURI))
	assert.False(t, s.HasFile(ctx, fileURI))
}

func TestStoreReadFileInfersLanguageIDWhenUntracked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	fileURI := s.PathToURI("/workspace/untracked.ts")

	require.NoError(t, s.fs.WriteFile("/workspace/untracked.ts", []byte("export {}")))

	fc, err := s.ReadFile(ctx, fileURI)
	require.NoError(t, err)
	assert.Equal(t, "export {}", string(fc.Text))
	assert.Equal(t, int32(1), fc.Version)
	assert.Equal(t, "typescript", fc.LanguageID)
}

func TestStoreUpdateMissingFileFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	fileURI := s.PathToURI("/workspace/missing.go")

	err := s.UpdateFile(ctx, fileURI, []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsDocumentNotFound(err))
}

func TestStoreRejectsPathEscapingRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.ReadFile(ctx, "file:///etc/passwd")
	require.Error(t, err)
	assert.True(t, errors.IsSecurityError(err))

	_, err = s.URIToPath("file:///workspace/../etc/passwd")
	require.Error(t, err)
	assert.True(t, errors.IsSecurityError(err))
}

func TestStoreRejectsNonFileScheme(t *testing.T) {
	s := newTestStore()
	_, err := s.URIToPath("untitled:Untitled-1")
	require.Error(t, err)
	assert.True(t, errors.IsSecurityError(err))
}

func TestStoreRootItselfIsAllowed(t *testing.T) {
	s := newTestStore()
	path, err := s.URIToPath(s.PathToURI("/workspace"))
	require.NoError(t, err)
	assert.Equal(t, "/workspace", path)
}

func TestStoreCreateDirectoryAndDeletePath(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	dirURI := s.PathToURI("/workspace/pkg")

	require.NoError(t, s.CreateDirectory(ctx, dirURI))
	require.NoError(t, s.CreateFile(ctx, s.PathToURI("/workspace/pkg/a.go"), []byte("package pkg"), "go"))

	entries, err := s.ListTree(ctx, s.PathToURI("/workspace"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, s.DeletePath(ctx, dirURI))
	assert.False(t, s.HasFile(ctx, s.PathToURI("/workspace/pkg/a.go")))
}

func TestStoreRenamePath(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	fromURI := s.PathToURI("/workspace/old.go")
	toURI := s.PathToURI("/workspace/new/moved.go")

	require.NoError(t, s.CreateFile(ctx, fromURI, []byte("package old"), "go"))
	require.NoError(t, s.UpdateFile(ctx, fromURI, []byte("package old\n\nvar X int")))
	require.NoError(t, s.RenamePath(ctx, fromURI, toURI))

	assert.False(t, s.HasFile(ctx, fromURI))
	assert.True(t, s.HasFile(ctx, toURI))

	fc, err := s.ReadFile(ctx, toURI)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fc.Version, "rename must carry the tracked version to the new URI")
	assert.Equal(t, "go", fc.LanguageID)
}

func TestStoreRenameRejectsEscapingDestination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	fromURI := s.PathToURI("/workspace/old.go")
	require.NoError(t, s.CreateFile(ctx, fromURI, []byte("package old"), "go"))

	err := s.RenamePath(ctx, fromURI, "file:///etc/passwd")
	require.Error(t, err)
	assert.True(t, errors.IsSecurityError(err))
}

func TestStoreListTreeSortedAndRecursive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.CreateFile(ctx, s.PathToURI("/workspace/b.go"), []byte("b"), "go"))
	require.NoError(t, s.CreateFile(ctx, s.PathToURI("/workspace/a.go"), []byte("a"), "go"))
	require.NoError(t, s.CreateDirectory(ctx, s.PathToURI("/workspace/sub")))
	require.NoError(t, s.CreateFile(ctx, s.PathToURI("/workspace/sub/c.go"), []byte("c"), "go"))

	entries, err := s.ListTree(ctx, s.PathToURI("/workspace"))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].URI, entries[i].URI)
	}
}
