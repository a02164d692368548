package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cppla/chunkup/models"
	"github.com/cppla/chunkup/utils"
)

// ChunkResult reports the outcome of a chunk submission.
type ChunkResult int

const (
	// ChunkAccepted means the chunk's bytes were persisted and recorded.
	ChunkAccepted ChunkResult = iota
	// ChunkDuplicate means the index was already recorded; nothing was rewritten.
	ChunkDuplicate
)

// SessionEngine owns the upload lifecycle: initiate, record chunks, report
// status, assemble, finalize, cancel, and expire abandoned sessions.
//
// Session records live in the SessionStore keyed by upload id; chunk bytes
// live under chunkDir/<uploadID>/chunk_<index>. Within one session all
// mutating operations are serialized through a per-upload lock; sessions are
// isolated from each other by key only.
type SessionEngine struct {
	store      SessionStore
	validator  *Validator
	dedup      DuplicateFinder
	storage    *Storage
	metrics    *UploadMetrics
	chunkDir   string
	sessionTTL time.Duration
	locks      *sessionLocks
}

// NewSessionEngine wires the engine's collaborators. sessionTTL is both the
// store record TTL and the age threshold of the expiry sweep.
func NewSessionEngine(store SessionStore, validator *Validator, dedup DuplicateFinder, storage *Storage, metrics *UploadMetrics, chunkDir string, sessionTTL time.Duration) *SessionEngine {
	return &SessionEngine{
		store:      store,
		validator:  validator,
		dedup:      dedup,
		storage:    storage,
		metrics:    metrics,
		chunkDir:   chunkDir,
		sessionTTL: sessionTTL,
		locks:      newSessionLocks(),
	}
}

// Initiate validates the declared metadata and creates a new session record.
// On invalid metadata it returns *models.ValidationError with every failed
// rule itemized.
func (e *SessionEngine) Initiate(ctx context.Context, meta models.UploadMetadata) (string, error) {
	if errs := e.validator.ValidateMetadata(meta); len(errs) > 0 {
		utils.Sugar.Warnw("upload metadata rejected", "filename", meta.Filename, "errors", errs)
		return "", &models.ValidationError{Reasons: errs}
	}

	id := newUploadID()
	now := time.Now().Unix()
	session := &models.UploadSession{
		ID:             id,
		Filename:       meta.Filename,
		TotalChunks:    meta.TotalChunks,
		FileSize:       meta.FileSize,
		MimeType:       meta.MimeType,
		UploadedChunks: []int{},
		CreatedAt:      now,
		LastUpdated:    now,
		Status:         models.StatusInitiated,
	}
	if err := e.store.Put(ctx, session, e.sessionTTL); err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}

	if _, err := e.metrics.IncrTotal(ctx); err != nil {
		utils.Sugar.Warnw("failed to increment total uploads counter", "error", err)
	}

	utils.Sugar.Infow("upload initiated",
		"upload_id", id,
		"filename", meta.Filename,
		"total_chunks", meta.TotalChunks,
	)
	return id, nil
}

// RecordChunk persists the chunk's bytes and then records the index in the
// session's chunk set. Bytes are written to a temp file and renamed into
// place before the metadata update, so a crash mid-write never marks a chunk
// present without its bytes. Re-submitting a recorded index is a no-op
// reported as ChunkDuplicate, including under concurrent retransmission.
func (e *SessionEngine) RecordChunk(ctx context.Context, id string, index int, chunk io.Reader) (ChunkResult, error) {
	if index < 0 {
		return 0, models.ErrInvalidChunkIndex
	}

	session, err := e.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, models.ErrSessionNotFound
	}
	if session.HasChunk(index) {
		utils.Sugar.Infow("duplicate chunk detected", "upload_id", id, "chunk_index", index)
		return ChunkDuplicate, nil
	}

	// Long byte write happens outside the session lock. Concurrent writers
	// of the same index rename identical content to the same final name.
	if err := e.writeChunk(id, index, chunk); err != nil {
		return 0, fmt.Errorf("save chunk: %w", err)
	}

	release := e.locks.acquire(id)
	defer release()

	session, err = e.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if session == nil {
		// Session destroyed while the bytes were being written; do not
		// leave orphaned chunk data behind.
		_ = os.RemoveAll(e.uploadDir(id))
		return 0, models.ErrSessionNotFound
	}
	if !session.AddChunk(index) {
		return ChunkDuplicate, nil
	}
	session.LastUpdated = time.Now().Unix()
	if session.IsComplete() {
		session.Status = models.StatusComplete
	}
	if err := e.store.Put(ctx, session, e.sessionTTL); err != nil {
		return 0, err
	}

	utils.Sugar.Debugw("chunk saved",
		"upload_id", id,
		"chunk_index", index,
		"progress", fmt.Sprintf("%d/%d", len(session.UploadedChunks), session.TotalChunks),
	)
	return ChunkAccepted, nil
}

// Status returns the current session snapshot.
func (e *SessionEngine) Status(ctx context.Context, id string) (*models.UploadSession, error) {
	session, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// IsComplete reports whether every declared chunk has been recorded.
// A missing session reports false.
func (e *SessionEngine) IsComplete(ctx context.Context, id string) (bool, error) {
	session, err := e.store.Get(ctx, id)
	if err != nil || session == nil {
		return false, err
	}
	return session.IsComplete(), nil
}

// Assemble concatenates all chunks strictly by ascending index into a single
// temporary file and returns its path. The upload protocol does not order
// chunk arrival, so arrival order is irrelevant here.
func (e *SessionEngine) Assemble(ctx context.Context, id string) (string, error) {
	session, err := e.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", models.ErrSessionNotFound
	}
	return e.assembleSession(session)
}

func (e *SessionEngine) assembleSession(session *models.UploadSession) (string, error) {
	if !session.IsComplete() {
		return "", &models.UploadIncompleteError{Uploaded: len(session.UploadedChunks), Total: session.TotalChunks}
	}

	out, err := os.CreateTemp(e.chunkDir, "assembled_"+session.ID+"-*")
	if err != nil {
		return "", fmt.Errorf("create assembly output: %w", err)
	}
	tempPath := out.Name()

	for i := 0; i < session.TotalChunks; i++ {
		chunk, err := os.Open(e.chunkPath(session.ID, i))
		if err != nil {
			out.Close()
			_ = os.Remove(tempPath)
			if os.IsNotExist(err) {
				// Completeness passed but the bytes are gone: structural
				// bug, never emit a truncated file.
				return "", &models.MissingChunkError{Index: i}
			}
			return "", err
		}
		_, err = io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			out.Close()
			_ = os.Remove(tempPath)
			return "", err
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}

	utils.Sugar.Infow("chunks assembled", "upload_id", session.ID, "filename", session.Filename)
	return tempPath, nil
}

// Finalize checks completeness, assembles, validates the magic number,
// deduplicates, and commits. Success destroys the session and its chunks;
// so does a magic-number mismatch (the client must re-initiate). Incomplete
// uploads and I/O failures leave the session intact for retry.
//
// The session lock is held only for the completeness snapshot and again for
// the commit-and-destroy step, never across the assemble, hash, and
// duplicate-scan phase: a complete session can only receive duplicate chunk
// submissions, and those mutate nothing. If a cancel or expiry destroys the
// session during that phase, the commit step detects the loss under the lock
// and reports ErrSessionNotFound instead of storing the file twice.
func (e *SessionEngine) Finalize(ctx context.Context, id, ownerID string) (*models.StoredFile, error) {
	release := e.locks.acquire(id)
	session, err := e.store.Get(ctx, id)
	if err != nil {
		release()
		return nil, err
	}
	if session == nil {
		release()
		return nil, models.ErrSessionNotFound
	}
	if !session.IsComplete() {
		release()
		return nil, &models.UploadIncompleteError{Uploaded: len(session.UploadedChunks), Total: session.TotalChunks}
	}
	release()

	tempPath, err := e.assembleSession(session)
	if err != nil {
		return nil, err
	}

	if !e.validator.SniffFile(tempPath, session.MimeType) {
		_ = os.Remove(tempPath)
		e.destroyWithLock(ctx, id)
		utils.Sugar.Warnw("magic number validation failed",
			"upload_id", id,
			"expected_mime", session.MimeType,
		)
		return nil, models.ErrValidationFailed
	}

	hash, err := e.validator.HashFile(tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, err
	}

	existing, err := e.dedup.FindDuplicate(hash, e.storage.Root())
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, err
	}
	if existing != "" {
		_ = os.Remove(tempPath)
		e.destroyWithLock(ctx, id)
		e.countSuccess(ctx)
		utils.Sugar.Infow("duplicate file detected", "upload_id", id, "md5", hash, "existing_file", existing)
		return &models.StoredFile{
			Path:             existing,
			ContentHash:      hash,
			OriginalFilename: session.Filename,
			Size:             session.FileSize,
			IsDuplicate:      true,
		}, nil
	}

	release = e.locks.acquire(id)
	current, err := e.store.Get(ctx, id)
	if err != nil {
		release()
		_ = os.Remove(tempPath)
		return nil, err
	}
	if current == nil {
		// Cancelled, expired, or finalized by somebody else after the
		// snapshot. The winner owns the committed file.
		release()
		_ = os.Remove(tempPath)
		return nil, models.ErrSessionNotFound
	}

	storedPath, err := e.storage.Commit(tempPath, session.Filename, ownerID)
	if err != nil {
		release()
		_ = os.Remove(tempPath)
		return nil, err
	}

	e.destroy(ctx, id)
	release()
	e.countSuccess(ctx)
	utils.Sugar.Infow("upload finalized",
		"upload_id", id,
		"filename", session.Filename,
		"stored_path", storedPath,
		"md5", hash,
	)
	return &models.StoredFile{
		Path:             storedPath,
		ContentHash:      hash,
		OriginalFilename: session.Filename,
		Size:             session.FileSize,
		IsDuplicate:      false,
	}, nil
}

// Cancel destroys the session record and every chunk belonging to it.
// Canceling an absent session still reports ErrSessionNotFound, but the net
// effect is identical either way.
func (e *SessionEngine) Cancel(ctx context.Context, id string) error {
	release := e.locks.acquire(id)
	defer release()

	session, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	e.destroy(ctx, id)
	if session == nil {
		return models.ErrSessionNotFound
	}
	utils.Sugar.Infow("upload cancelled", "upload_id", id, "filename", session.Filename)
	return nil
}

// ExpireSweep destroys every session whose absolute age exceeds the session
// TTL and returns the count. Age is the sole criterion: a long transfer past
// the timeout is destroyed even mid-upload. Safe to run concurrently with
// itself and with chunk writes; each candidate is re-checked under its lock.
func (e *SessionEngine) ExpireSweep(ctx context.Context) (int, error) {
	ids, err := e.store.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	destroyed := 0
	now := time.Now().Unix()
	maxAge := int64(e.sessionTTL / time.Second)

	for _, id := range ids {
		release := e.locks.acquire(id)
		session, err := e.store.Get(ctx, id)
		if err != nil {
			release()
			return destroyed, err
		}
		if session != nil && now-session.CreatedAt > maxAge {
			e.destroy(ctx, id)
			destroyed++
		}
		release()
	}

	if destroyed > 0 {
		utils.Sugar.Infow("expired uploads cleaned", "count", destroyed)
	}
	return destroyed, nil
}

// destroy removes the session record, its chunk directory, and any stray
// assembled artifact. Callers hold the session lock.
func (e *SessionEngine) destroy(ctx context.Context, id string) {
	_ = os.RemoveAll(e.uploadDir(id))
	if strays, err := filepath.Glob(filepath.Join(e.chunkDir, "assembled_"+id+"-*")); err == nil {
		for _, stray := range strays {
			_ = os.Remove(stray)
		}
	}
	if err := e.store.Delete(ctx, id); err != nil {
		utils.Sugar.Warnw("failed to delete session record", "upload_id", id, "error", err)
	}
}

// destroyWithLock is destroy for callers that do not already hold the
// session lock.
func (e *SessionEngine) destroyWithLock(ctx context.Context, id string) {
	release := e.locks.acquire(id)
	e.destroy(ctx, id)
	release()
}

func (e *SessionEngine) countSuccess(ctx context.Context) {
	if _, err := e.metrics.IncrSuccessful(ctx); err != nil {
		utils.Sugar.Warnw("failed to increment successful uploads counter", "error", err)
	}
}

// writeChunk streams bytes to a temp file in the upload's directory and
// renames it onto the final chunk name once fully synced.
func (e *SessionEngine) writeChunk(id string, index int, chunk io.Reader) error {
	dir := e.uploadDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf("chunk_%d.partial-*", index))
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, chunk); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), e.chunkPath(id, index)); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (e *SessionEngine) uploadDir(id string) string {
	return filepath.Join(e.chunkDir, id)
}

func (e *SessionEngine) chunkPath(id string, index int) string {
	return filepath.Join(e.chunkDir, id, fmt.Sprintf("chunk_%d", index))
}

// newUploadID produces a transport-safe upload token: a time component plus
// 64 random bits, no dots or path separators.
func newUploadID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return fmt.Sprintf("upload_%d_%s", time.Now().Unix(), hex.EncodeToString(buf))
}
