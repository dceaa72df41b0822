package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Handle is a local, private copy of fetched content. It reads from a temp file
// inside its own directory; Close removes both.
type Handle struct {
	file *os.File
	dir  string
	name string
	size int64

	closeOnce sync.Once
	closeErr  error
}

// Spool copies r into a new private directory under tempDir and returns a handle
// positioned at the start of the content.
func Spool(tempDir, name string, r io.Reader) (*Handle, error) {
	dir, err := os.MkdirTemp(tempDir, "docvault-")
	if err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, safeName(name)))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("spool content: %w", err)
	}

	return &Handle{file: f, dir: dir, name: name, size: n}, nil
}

func (h *Handle) Read(p []byte) (int, error) {
	return h.file.Read(p)
}

func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	return h.file.Seek(offset, whence)
}

// Rewind positions the handle back at the first byte.
func (h *Handle) Rewind() error {
	_, err := h.file.Seek(0, io.SeekStart)
	return err
}

// Name is the display name the content was fetched under.
func (h *Handle) Name() string { return h.name }

// Size is the number of bytes spooled.
func (h *Handle) Size() int64 { return h.size }

// Path is the location of the local copy. It is only valid until Close.
func (h *Handle) Path() string { return h.file.Name() }

// Close releases the file and deletes the local copy. It is safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = errors.Join(h.file.Close(), os.RemoveAll(h.dir))
	})
	return h.closeErr
}

func safeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "content"
	}
	return base
}
