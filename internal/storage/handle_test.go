package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSpool(t *testing.T) {
	dir := t.TempDir()
	h, err := Spool(dir, "report.pdf", strings.NewReader("hello world"))
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", h.Name())
	assert.Equal(t, int64(11), h.Size())
	assert.Equal(t, "report.pdf", filepath.Base(h.Path()))
	assert.True(t, strings.HasPrefix(h.Path(), dir))

	got, err := io.ReadAll(h)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	require.NoError(t, h.Rewind())
	again, err := io.ReadAll(h)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	spoolDir := filepath.Dir(h.Path())
	require.NoError(t, h.Close())
	assert.NoError(t, h.Close())

	_, err = os.Stat(spoolDir)
	assert.True(t, os.IsNotExist(err))
}

func TestSpool_ReaderErrorCleansUp(t *testing.T) {
	dir := t.TempDir()
	_, err := Spool(dir, "x.txt", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpool_HandlesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	a, err := Spool(dir, "same.txt", strings.NewReader("a"))
	require.NoError(t, err)
	defer a.Close()
	b, err := Spool(dir, "same.txt", strings.NewReader("b"))
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Path(), b.Path())
	require.NoError(t, a.Close())

	got, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`..\..\win.ini`, "win.ini"},
		{"", "content"},
		{"..", "content"},
		{"/", "content"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, safeName(tt.in))
		})
	}
}
