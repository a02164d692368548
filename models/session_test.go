package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/chunkup/models"
)

func TestAddChunkKeepsSortedUniqueOrder(t *testing.T) {
	s := &models.UploadSession{TotalChunks: 5}

	assert.True(t, s.AddChunk(3))
	assert.True(t, s.AddChunk(0))
	assert.True(t, s.AddChunk(4))
	assert.False(t, s.AddChunk(3))

	assert.Equal(t, []int{0, 3, 4}, s.UploadedChunks)
	assert.True(t, s.HasChunk(4))
	assert.False(t, s.HasChunk(1))
}

func TestMissingChunksAndProgress(t *testing.T) {
	s := &models.UploadSession{TotalChunks: 4, UploadedChunks: []int{0, 2}}

	assert.Equal(t, []int{1, 3}, s.MissingChunks())
	assert.Equal(t, 50.0, s.Progress())
	assert.False(t, s.IsComplete())

	s.AddChunk(1)
	s.AddChunk(3)
	assert.True(t, s.IsComplete())
	assert.Empty(t, s.MissingChunks())
	assert.Equal(t, 100.0, s.Progress())
}
