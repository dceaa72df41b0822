package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiletype(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "pdf"},
		{"Photo.JPEG", "jpeg"},
		{"archive.tar.gz", "gz"},
		{"Makefile", UnknownFiletype},
		{".env", UnknownFiletype},
		{".config.yaml", "yaml"},
		{"trailing.", UnknownFiletype},
		{"dir/notes.MD", "md"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Filetype(tt.filename))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("pdf"))
	assert.Equal(t, "image/png", ContentType("png"))
	assert.Equal(t, "application/octet-stream", ContentType(UnknownFiletype))
	assert.Equal(t, "application/octet-stream", ContentType("no-such-ext"))
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: " report.pdf ", want: "report.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\cv.docx`, want: "cv.docx"},
		{in: "", wantErr: ErrFilenameRequired},
		{in: "..", wantErr: ErrFilenameRequired},
		{in: "/", wantErr: ErrFilenameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeFilename(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRecord(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("WIB", 7*3600))
	doc := BuildRecord("alice", "Q1.XLSX", StoredContent{Address: "bafk", Digest: "abc", Size: 42}, at)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "alice", doc.OwnerID)
	assert.Equal(t, "xlsx", doc.Filetype)
	assert.Equal(t, int64(42), doc.Size)
	assert.Equal(t, "bafk", doc.ContentAddress)
	assert.Equal(t, "abc", doc.Digest)
	assert.Equal(t, time.UTC, doc.UploadedAt.Location())
	assert.True(t, doc.UploadedAt.Equal(at))
	assert.Zero(t, doc.Version)
	assert.False(t, doc.Deleted)
}
