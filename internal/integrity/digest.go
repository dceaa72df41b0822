// Package integrity computes and checks SHA-256 digests of document content.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"strings"
)

// BlockSize is the read size used when streaming content through the hash.
const BlockSize = 4096

var ErrReaderNil = errors.New("reader is nil")

// Digest streams r in BlockSize chunks and returns the lowercase hex SHA-256.
func Digest(r io.Reader) (string, error) {
	if r == nil {
		return "", ErrReaderNil
	}
	h := sha256.New()
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the digest of r and compares it with expected.
// A read failure is returned as an error, not as a mismatch.
func Verify(expected string, r io.Reader) (bool, error) {
	actual, err := Digest(r)
	if err != nil {
		return false, err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	return subtle.ConstantTimeCompare([]byte(want), []byte(actual)) == 1, nil
}

// Writer hashes everything written to it, so a digest can be taken while the
// same bytes are copied elsewhere through an io.TeeReader.
type Writer struct {
	h hash.Hash
	n int64
}

// NewWriter returns an empty digest writer.
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.h.Write(p)
	w.n += int64(n)
	return n, err
}

// Sum returns the lowercase hex digest of the bytes written so far.
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.n
}

// onlyReader hides WriterTo so CopyBuffer honours the block size.
type onlyReader struct {
	io.Reader
}
