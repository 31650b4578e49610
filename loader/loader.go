// Package loader provides the byte sources asset files are read from.
//
// Both sources wrap go-billy filesystems. LocalFS reads the host filesystem;
// relative paths resolve against the working directory. MemoryFS keeps files
// in memory, for tests and for assets embedded at build time:
//
//	src := loader.NewMemory()
//	src.WriteFile("ui/button.png", pngBytes)
//
//	eng := cache.New(cache.WithSource(src))
//
// Errors are returned unchanged from go-billy, so errors.Is(err, fs.ErrNotExist)
// works on them.
package loader

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// LocalFS reads files from the host filesystem.
type LocalFS struct {
	bfs billy.Filesystem
}

// MemoryFS reads files from an in-memory filesystem.
type MemoryFS struct {
	bfs billy.Filesystem
}

// NewLocal creates a source rooted at the filesystem root ("/").
func NewLocal() *LocalFS {
	return &LocalFS{bfs: osfs.New("/")}
}

// NewMemory creates an empty in-memory source.
func NewMemory() *MemoryFS {
	return &MemoryFS{bfs: memfs.New()}
}

// Unwrap returns the underlying billy.Filesystem.
func (l *LocalFS) Unwrap() billy.Filesystem { return l.bfs }

// Unwrap returns the underlying billy.Filesystem.
func (m *MemoryFS) Unwrap() billy.Filesystem { return m.bfs }

// ReadFile reads the named file.
func (l *LocalFS) ReadFile(name string) ([]byte, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	return util.ReadFile(l.bfs, normalize(abs))
}

// Exists reports whether the named file exists.
func (l *LocalFS) Exists(name string) (bool, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false, err
	}
	return exists(l.bfs, normalize(abs))
}

// ReadFile reads the named file.
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(m.bfs, normalize(name))
}

// WriteFile stores data under name, creating parent directories.
func (m *MemoryFS) WriteFile(name string, data []byte) error {
	name = normalize(name)
	if dir := filepath.Dir(name); dir != "." && dir != "/" {
		if err := m.bfs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return util.WriteFile(m.bfs, name, data, 0o644)
}

// Exists reports whether the named file exists.
func (m *MemoryFS) Exists(name string) (bool, error) {
	return exists(m.bfs, normalize(name))
}

func exists(bfs billy.Filesystem, name string) (bool, error) {
	_, err := bfs.Stat(name)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// normalize converts paths to use forward slashes consistently.
func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
