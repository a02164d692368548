package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned when no session record exists for an
	// upload id. Expired sessions are indistinguishable from never-created
	// ones because expiry is silent deletion.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrInvalidChunkIndex is returned for a negative chunk index.
	ErrInvalidChunkIndex = errors.New("chunk index must not be negative")

	// ErrValidationFailed is returned when the assembled file's magic number
	// does not match the declared MIME type. The session and its chunks are
	// destroyed; the caller must re-initiate.
	ErrValidationFailed = errors.New("file type validation failed (magic number mismatch)")
)

// ValidationError reports the itemized metadata validation failures of an
// initiate request.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// UploadIncompleteError is returned by finalize when chunks are still
// missing. It carries the counts so the caller can decide to resume.
type UploadIncompleteError struct {
	Uploaded int
	Total    int
}

func (e *UploadIncompleteError) Error() string {
	return fmt.Sprintf("upload incomplete: %d/%d chunks uploaded", e.Uploaded, e.Total)
}

// MissingChunkError indicates a structural inconsistency: the completeness
// check passed but a chunk's bytes are absent. Assembly aborts immediately
// rather than produce a truncated file.
type MissingChunkError struct {
	Index int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("chunk %d is missing", e.Index)
}
