package services

import "context"

const (
	totalUploadsKey      = "metrics:total_uploads"
	successfulUploadsKey = "metrics:successful_uploads"
)

// UploadMetrics exposes the process-wide upload counters through the session
// store's atomic increment, so concurrent instances share one consistent view.
type UploadMetrics struct {
	store SessionStore
}

// NewUploadMetrics creates a counter set backed by the given store.
func NewUploadMetrics(store SessionStore) *UploadMetrics {
	return &UploadMetrics{store: store}
}

// IncrTotal bumps the initiated-uploads counter. Errors are returned so the
// caller can log them; the upload itself never fails on a counter error.
func (m *UploadMetrics) IncrTotal(ctx context.Context) (int64, error) {
	return m.store.Incr(ctx, totalUploadsKey)
}

// IncrSuccessful bumps the completed-uploads counter. A dedup hit counts as
// a successful completion.
func (m *UploadMetrics) IncrSuccessful(ctx context.Context) (int64, error) {
	return m.store.Incr(ctx, successfulUploadsKey)
}

// Snapshot reads both counters.
func (m *UploadMetrics) Snapshot(ctx context.Context) (total, successful int64, err error) {
	if total, err = m.store.GetCounter(ctx, totalUploadsKey); err != nil {
		return 0, 0, err
	}
	if successful, err = m.store.GetCounter(ctx, successfulUploadsKey); err != nil {
		return 0, 0, err
	}
	return total, successful, nil
}
