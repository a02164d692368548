package services_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/chunkup/services"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assembled_test")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommitPartitionsByDateAndOwner(t *testing.T) {
	root := t.TempDir()
	s := services.NewStorage(root)

	stored, err := s.Commit(writeTemp(t, "data"), "vacation.png", "user7")
	require.NoError(t, err)

	now := time.Now()
	wantPrefix := filepath.Join(root, now.Format("2006"), now.Format("01"), now.Format("02"), "user7")
	assert.True(t, strings.HasPrefix(stored, wantPrefix), "stored path %s not under %s", stored, wantPrefix)
	assert.True(t, strings.HasPrefix(filepath.Base(stored), "vacation_"))
	assert.True(t, strings.HasSuffix(stored, ".png"))

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCommitAnonymousOwner(t *testing.T) {
	s := services.NewStorage(t.TempDir())

	stored, err := s.Commit(writeTemp(t, "data"), "clip.mp4", "")
	require.NoError(t, err)
	assert.Contains(t, stored, string(filepath.Separator)+"anonymous"+string(filepath.Separator))
}

func TestCommitSameBasenameSameDayDistinctPaths(t *testing.T) {
	s := services.NewStorage(t.TempDir())

	first, err := s.Commit(writeTemp(t, "one"), "photo.png", "user7")
	require.NoError(t, err)
	second, err := s.Commit(writeTemp(t, "two"), "photo.png", "user7")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	one, _ := os.ReadFile(first)
	two, _ := os.ReadFile(second)
	assert.Equal(t, "one", string(one))
	assert.Equal(t, "two", string(two))
}

func TestCommitMovesTempFile(t *testing.T) {
	s := services.NewStorage(t.TempDir())
	temp := writeTemp(t, "data")

	_, err := s.Commit(temp, "photo.png", "")
	require.NoError(t, err)
	_, err = os.Stat(temp)
	assert.True(t, os.IsNotExist(err))
}

func TestRetentionSweepDeletesOnlyAgedFiles(t *testing.T) {
	root := t.TempDir()
	s := services.NewStorage(root)

	oldPath := filepath.Join(root, "old.png")
	freshPath := filepath.Join(root, "fresh.png")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(freshPath, []byte("fresh"), 0o644))

	stale := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	deleted, err := s.RetentionSweep(30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)

	deleted, err = s.RetentionSweep(30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestStatsWalksTree(t *testing.T) {
	root := t.TempDir()
	s := services.NewStorage(root)

	nested := filepath.Join(root, "2026", "08", "30", "anonymous")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.png"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.png"), make([]byte, 50), 0o644))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(150), stats.TotalBytes)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, root, stats.StoragePath)
}

func TestStatsMissingRoot(t *testing.T) {
	s := services.NewStorage(filepath.Join(t.TempDir(), "absent"))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBytes)
	assert.Zero(t, stats.FileCount)
}
