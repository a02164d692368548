package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/chunkup/models"
	"github.com/cppla/chunkup/services"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := services.NewMemorySessionStore()
	ctx := context.Background()

	session := &models.UploadSession{
		ID:             "upload_1_abc",
		Filename:       "a.png",
		TotalChunks:    2,
		FileSize:       100,
		MimeType:       "image/png",
		UploadedChunks: []int{0},
		Status:         models.StatusInitiated,
	}
	require.NoError(t, store.Put(ctx, session, time.Hour))

	got, err := store.Get(ctx, "upload_1_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Filename, got.Filename)
	assert.Equal(t, []int{0}, got.UploadedChunks)

	// Mutating the returned copy does not leak back into the store
	got.UploadedChunks = append(got.UploadedChunks, 1)
	again, err := store.Get(ctx, "upload_1_abc")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, again.UploadedChunks)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	store := services.NewMemorySessionStore()

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := services.NewMemorySessionStore()
	ctx := context.Background()

	session := &models.UploadSession{ID: "upload_1_abc", Status: models.StatusInitiated}
	require.NoError(t, store.Put(ctx, session, 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	got, err := store.Get(ctx, "upload_1_abc")
	require.NoError(t, err)
	assert.Nil(t, got)

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	store := services.NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.UploadSession{ID: "a"}, time.Hour))
	require.NoError(t, store.Put(ctx, &models.UploadSession{ID: "b"}, time.Hour))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	ids, err = store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestMemoryStoreCounters(t *testing.T) {
	store := services.NewMemorySessionStore()
	ctx := context.Background()

	v, err := store.Incr(ctx, "metrics:total_uploads")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = store.Incr(ctx, "metrics:total_uploads")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	got, err := store.GetCounter(ctx, "metrics:total_uploads")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	missing, err := store.GetCounter(ctx, "metrics:successful_uploads")
	require.NoError(t, err)
	assert.Zero(t, missing)
}
