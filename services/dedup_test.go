package services_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/chunkup/services"
)

func TestFindDuplicateMatchesExactHash(t *testing.T) {
	v := newTestValidator()
	d := services.NewDeduper(v)
	root := t.TempDir()

	nested := filepath.Join(root, "2026", "08", "30", "anonymous")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.png"), []byte("content-a"), 0o644))
	target := filepath.Join(nested, "b.png")
	require.NoError(t, os.WriteFile(target, []byte("content-b"), 0o644))

	hash, err := v.HashFile(target)
	require.NoError(t, err)

	found, err := d.FindDuplicate(hash, root)
	require.NoError(t, err)
	assert.Equal(t, target, found)

	// Returned path really does carry the candidate hash
	foundHash, err := v.HashFile(found)
	require.NoError(t, err)
	assert.Equal(t, hash, foundHash)
}

func TestFindDuplicateNoMatch(t *testing.T) {
	v := newTestValidator()
	d := services.NewDeduper(v)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("content-a"), 0o644))

	found, err := d.FindDuplicate("d41d8cd98f00b204e9800998ecf8427e", root)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindDuplicateMissingRoot(t *testing.T) {
	v := newTestValidator()
	d := services.NewDeduper(v)

	found, err := d.FindDuplicate("d41d8cd98f00b204e9800998ecf8427e", filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, found)
}
