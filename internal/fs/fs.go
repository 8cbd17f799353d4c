// Package fs wraps the filesystem operations the workspace store needs,
// so that path-safety and tree-listing logic can be tested without
// touching a real disk.
package fs

import (
	"io/fs"
	"os"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// FS is the filesystem seam used by workspace.Store.
type FS interface {
	MkdirAll(path string) error
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldPath, newPath string) error
}

type osFS struct{}

// New creates an FS backed by the real operating system filesystem.
func New() FS {
	return osFS{}
}

func (osFS) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }

func (osFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (osFS) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (osFS) WriteFile(path string, data []byte) error { return os.WriteFile(path, data, 0o644) }

func (osFS) Remove(path string) error { return os.Remove(path) }

func (osFS) RemoveAll(path string) error { return os.RemoveAll(path) }

func (osFS) Rename(oldPath, newPath string) error { return os.Rename(oldPath, newPath) }
