package services_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/chunkup/models"
	"github.com/cppla/chunkup/services"
)

func newTestValidator() *services.Validator {
	return services.NewValidator(
		[]string{"image/jpeg", "image/png", "image/gif", "image/webp", "video/mp4", "video/quicktime", "video/webm"},
		100*1048576,
	)
}

func TestValidateMetadataReportsAllFailuresTogether(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateMetadata(models.UploadMetadata{
		Filename:    "",
		FileSize:    -5,
		MimeType:    "application/pdf",
		TotalChunks: 0,
	})

	assert.Len(t, errs, 4)
	assert.Contains(t, errs, "filename is required")
	assert.Contains(t, errs, "invalid file size")
	assert.Contains(t, errs, "file type not allowed")
	assert.Contains(t, errs, "invalid chunk count")
}

func TestValidateMetadataSizeLimitStatesTheLimit(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateMetadata(models.UploadMetadata{
		Filename:    "big.mp4",
		FileSize:    101 * 1048576,
		MimeType:    "video/mp4",
		TotalChunks: 10,
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "file size exceeds maximum allowed (100 MB)", errs[0])
}

func TestValidateMetadataAccepted(t *testing.T) {
	v := newTestValidator()

	errs := v.ValidateMetadata(models.UploadMetadata{
		Filename:    "clip.webm",
		FileSize:    1024,
		MimeType:    "video/webm",
		TotalChunks: 2,
	})
	assert.Empty(t, errs)
}

func TestSniffKnownMagicNumbers(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		mime   string
		header []byte
	}{
		{"image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}},
		{"image/png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
		{"image/gif", []byte("GIF87a")},
		{"image/gif", []byte("GIF89a")},
		{"image/webp", []byte("RIFF....WEBP")},
		{"video/mp4", []byte("ftypisom")},
		{"video/quicktime", []byte("moov")},
		{"video/webm", []byte{0x1A, 0x45, 0xDF, 0xA3}},
	}
	for _, tc := range cases {
		payload := append(append([]byte{}, tc.header...), bytes.Repeat([]byte{0x42}, 16)...)
		assert.True(t, v.Sniff(bytes.NewReader(payload), tc.mime), "expected %s to match", tc.mime)
	}
}

func TestSniffRejectsMismatchedPrefix(t *testing.T) {
	v := newTestValidator()
	assert.False(t, v.Sniff(bytes.NewReader([]byte("GIF89a......")), "image/png"))
}

func TestSniffUnknownMimeType(t *testing.T) {
	v := newTestValidator()
	assert.False(t, v.Sniff(bytes.NewReader([]byte{0x89, 0x50, 0x4E, 0x47}), "application/pdf"))
}

func TestSniffShortStream(t *testing.T) {
	v := newTestValidator()
	// Fewer than 12 bytes still matches when the prefix is present
	assert.True(t, v.Sniff(bytes.NewReader([]byte{0x89, 0x50, 0x4E, 0x47}), "image/png"))
	assert.False(t, v.Sniff(bytes.NewReader(nil), "image/png"))
}

func TestSniffFileMissingPath(t *testing.T) {
	v := newTestValidator()
	assert.False(t, v.SniffFile(filepath.Join(t.TempDir(), "absent"), "image/png"))
}

func TestHashFile(t *testing.T) {
	v := newTestValidator()
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	hash, err := v.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", hash)

	again, err := v.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}
