package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cppla/chunkup/models"
)

// magicNumbers maps a MIME type to the hex-encoded prefixes its files may
// start with. Matching is a prefix comparison on the first 12 bytes, not an
// exact-length one; several candidates per type are allowed.
var magicNumbers = map[string][]string{
	"image/jpeg":      {"FFD8FF"},
	"image/png":       {"89504E47"},
	"image/gif":       {"474946383761", "474946383961"},
	"image/webp":      {"52494646"},
	"video/mp4":       {"66747970"},
	"video/quicktime": {"6D6F6F76"},
	"video/webm":      {"1A45DFA3"},
}

// Validator checks declared upload metadata against the configured limits
// and sniffs assembled files against the magic-number table.
type Validator struct {
	allowedTypes map[string]bool
	maxFileSize  int64
}

// NewValidator builds a validator from the MIME allow-list and the size
// ceiling in bytes.
func NewValidator(allowedTypes []string, maxFileSize int64) *Validator {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}
	return &Validator{allowedTypes: allowed, maxFileSize: maxFileSize}
}

// ValidateMetadata evaluates every rule and returns all failures together,
// so a client can fix its request in one round trip. Empty means valid.
func (v *Validator) ValidateMetadata(meta models.UploadMetadata) []string {
	var errs []string

	if meta.Filename == "" {
		errs = append(errs, "filename is required")
	}

	if meta.FileSize <= 0 {
		errs = append(errs, "invalid file size")
	} else if meta.FileSize > v.maxFileSize {
		errs = append(errs, fmt.Sprintf("file size exceeds maximum allowed (%d MB)", v.maxFileSize/1048576))
	}

	if meta.MimeType == "" {
		errs = append(errs, "mime type is required")
	} else if !v.allowedTypes[meta.MimeType] {
		errs = append(errs, "file type not allowed")
	}

	if meta.TotalChunks <= 0 {
		errs = append(errs, "invalid chunk count")
	}

	return errs
}

// SniffFile reads the file's leading bytes and reports whether they match a
// known magic number for the expected MIME type. Unknown types and read
// failures report false rather than an error.
func (v *Validator) SniffFile(path, expectedMimeType string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return v.Sniff(f, expectedMimeType)
}

// Sniff is SniffFile over an already-open byte stream.
func (v *Validator) Sniff(r io.Reader, expectedMimeType string) bool {
	candidates, ok := magicNumbers[expectedMimeType]
	if !ok {
		return false
	}

	header := make([]byte, 12)
	n, _ := io.ReadFull(r, header)
	headerHex := strings.ToUpper(hex.EncodeToString(header[:n]))

	for _, magic := range candidates {
		if strings.HasPrefix(headerHex, magic) {
			return true
		}
	}
	return false
}

// HashFile computes the file's content hash as lowercase hex.
// MD5 keeps dedup compatible with trees hashed by earlier deployments;
// swapping the digest means rehashing everything already committed.
func (v *Validator) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
