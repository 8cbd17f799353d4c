package fs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOsFSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := New()

	p := dir + "/a/b/c.txt"
	require.NoError(t, f.MkdirAll(dir+"/a/b"))
	require.NoError(t, f.WriteFile(p, []byte("hello")))

	data, err := f.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := f.Stat(p)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	entries, err := f.ReadDir(dir + "/a/b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c.txt", entries[0].Name())

	require.NoError(t, f.Rename(p, dir+"/a/d.txt"))
	_, err = f.Stat(p)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, f.Remove(dir + "/a/d.txt"))
	require.NoError(t, f.RemoveAll(dir))
}

func TestFakeFSRoundTrip(t *testing.T) {
	f := NewFake()

	require.NoError(t, f.WriteFile("ws/main.go", []byte("package main")))
	data, err := f.ReadFile("ws/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	entries, err := f.ReadDir("ws")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "main.go", entries[0].Name())

	require.NoError(t, f.Rename("ws/main.go", "ws/renamed.go"))
	_, err = f.ReadFile("ws/main.go")
	assert.Error(t, err)
	data, err = f.ReadFile("ws/renamed.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	require.NoError(t, f.Remove("ws/renamed.go"))
	_, err = f.ReadFile("ws/renamed.go")
	assert.Error(t, err)
}

func TestFakeFSDirRename(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.WriteFile("ws/pkg/a.go", []byte("a")))
	require.NoError(t, f.WriteFile("ws/pkg/b.go", []byte("b")))

	require.NoError(t, f.Rename("ws/pkg", "ws/pkg2"))

	_, err := f.ReadFile("ws/pkg/a.go")
	assert.Error(t, err)

	data, err := f.ReadFile("ws/pkg2/a.go")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}
