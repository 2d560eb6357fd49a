package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FS reads resources from a directory on the local file system.
type FS struct {
	root string // absolute path to the resource directory
}

// NewFS creates a new FS rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute directory the FS is rooted at.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of a file under the root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Resource returns a Provider serving the named file under the root.
func (f *FS) Resource(name string) *FileResource {
	return &FileResource{fs: f, name: name}
}

// FileResource is a Provider backed by a single file of an FS.
type FileResource struct {
	fs   *FS
	name string
}

// Fetch reads the file. The context is only checked before the read.
func (r *FileResource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.fs.Read(r.name)
}

// Path returns the absolute path of the file.
func (r *FileResource) Path() string {
	return filepath.Join(r.fs.root, filepath.Clean(r.name))
}

// Describe implements Provider.
func (r *FileResource) Describe() string {
	return "file://" + r.Path()
}
