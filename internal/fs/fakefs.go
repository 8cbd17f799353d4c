package fs

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// Fake is an in-memory FS for tests, keyed by slash-separated path.
type Fake struct {
	files map[string][]byte
	dirs  map[string]bool
}

// NewFake returns an empty in-memory FS.
func NewFake() *Fake {
	return &Fake{files: map[string][]byte{}, dirs: map[string]bool{"": true}}
}

func (f *Fake) MkdirAll(p string) error {
	p = path.Clean(p)
	for p != "." && p != "/" && p != "" {
		f.dirs[p] = true
		p = path.Dir(p)
	}
	return nil
}

func (f *Fake) Stat(p string) (os.FileInfo, error) {
	p = path.Clean(p)
	if data, ok := f.files[p]; ok {
		return fakeFileInfo{name: path.Base(p), size: int64(len(data))}, nil
	}
	if f.dirs[p] {
		return fakeFileInfo{name: path.Base(p), isDir: true}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
}

func (f *Fake) ReadDir(p string) ([]fs.DirEntry, error) {
	p = path.Clean(p)
	if !f.dirs[p] {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}
	seen := map[string]fs.DirEntry{}
	for name := range f.files {
		if path.Dir(name) == p {
			seen[path.Base(name)] = fakeDirEntry{name: path.Base(name)}
		}
	}
	for name := range f.dirs {
		if name != p && path.Dir(name) == p {
			seen[path.Base(name)] = fakeDirEntry{name: path.Base(name), isDir: true}
		}
	}
	entries := make([]fs.DirEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *Fake) ReadFile(p string) ([]byte, error) {
	p = path.Clean(p)
	data, ok := f.files[p]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *Fake) WriteFile(p string, data []byte) error {
	p = path.Clean(p)
	if err := f.MkdirAll(path.Dir(p)); err != nil {
		return err
	}
	out := make([]byte, len(data))
	copy(out, data)
	f.files[p] = out
	return nil
}

func (f *Fake) Remove(p string) error {
	p = path.Clean(p)
	if _, ok := f.files[p]; ok {
		delete(f.files, p)
		return nil
	}
	if f.dirs[p] {
		delete(f.dirs, p)
		return nil
	}
	return &os.PathError{Op: "remove", Path: p, Err: os.ErrNotExist}
}

func (f *Fake) RemoveAll(p string) error {
	p = path.Clean(p)
	prefix := p + "/"
	for name := range f.files {
		if name == p || strings.HasPrefix(name, prefix) {
			delete(f.files, name)
		}
	}
	for name := range f.dirs {
		if name == p || strings.HasPrefix(name, prefix) {
			delete(f.dirs, name)
		}
	}
	return nil
}

func (f *Fake) Rename(oldPath, newPath string) error {
	oldPath, newPath = path.Clean(oldPath), path.Clean(newPath)
	if data, ok := f.files[oldPath]; ok {
		delete(f.files, oldPath)
		return f.WriteFile(newPath, data)
	}
	if f.dirs[oldPath] {
		prefix := oldPath + "/"
		for name, data := range f.files {
			if strings.HasPrefix(name, prefix) {
				delete(f.files, name)
				f.files[newPath+"/"+strings.TrimPrefix(name, prefix)] = data
			}
		}
		delete(f.dirs, oldPath)
		return f.MkdirAll(newPath)
	}
	return &os.PathError{Op: "rename", Path: oldPath, Err: os.ErrNotExist}
}

type fakeFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return i.size }
func (i fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return i.isDir }
func (i fakeFileInfo) Sys() interface{}   { return nil }

type fakeDirEntry struct {
	name  string
	isDir bool
}

func (e fakeDirEntry) Name() string { return e.name }
func (e fakeDirEntry) IsDir() bool  { return e.isDir }
func (e fakeDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}
func (e fakeDirEntry) Info() (fs.FileInfo, error) {
	return fakeFileInfo{name: e.name, isDir: e.isDir}, nil
}
