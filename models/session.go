package models

import "sort"

// Upload session status values. A session is initiated on creation and
// flips to complete when its last chunk is recorded. There is no persisted
// failed state: failures are reported synchronously and the session stays
// in its current status for retry.
const (
	StatusInitiated = "initiated"
	StatusComplete  = "complete"
)

// UploadSession is the per-upload metadata record kept in the session store.
// UploadedChunks holds the recorded chunk indices, always sorted ascending
// with no duplicates.
type UploadSession struct {
	ID             string `json:"upload_id"`
	Filename       string `json:"filename"`
	TotalChunks    int    `json:"total_chunks"`
	FileSize       int64  `json:"file_size"`
	MimeType       string `json:"mime_type"`
	UploadedChunks []int  `json:"uploaded_chunks"`
	CreatedAt      int64  `json:"created_at"`
	LastUpdated    int64  `json:"last_updated"`
	Status         string `json:"status"`
}

// HasChunk reports whether the given chunk index has already been recorded.
func (s *UploadSession) HasChunk(index int) bool {
	i := sort.SearchInts(s.UploadedChunks, index)
	return i < len(s.UploadedChunks) && s.UploadedChunks[i] == index
}

// AddChunk inserts an index keeping the slice sorted and duplicate-free.
// It reports whether the index was newly added.
func (s *UploadSession) AddChunk(index int) bool {
	i := sort.SearchInts(s.UploadedChunks, index)
	if i < len(s.UploadedChunks) && s.UploadedChunks[i] == index {
		return false
	}
	s.UploadedChunks = append(s.UploadedChunks, 0)
	copy(s.UploadedChunks[i+1:], s.UploadedChunks[i:])
	s.UploadedChunks[i] = index
	return true
}

// IsComplete reports whether every declared chunk has been recorded.
func (s *UploadSession) IsComplete() bool {
	return len(s.UploadedChunks) == s.TotalChunks
}

// MissingChunks returns the declared indices not yet recorded, ascending.
func (s *UploadSession) MissingChunks() []int {
	missing := make([]int, 0, s.TotalChunks-len(s.UploadedChunks))
	for i := 0; i < s.TotalChunks; i++ {
		if !s.HasChunk(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Progress returns the upload completion percentage.
func (s *UploadSession) Progress() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(len(s.UploadedChunks)) / float64(s.TotalChunks) * 100
}

// UploadMetadata carries the declared fields of an initiate request.
type UploadMetadata struct {
	Filename    string `json:"filename"`
	TotalChunks int    `json:"total_chunks"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
}

// StoredFile describes a committed artifact.
type StoredFile struct {
	Path             string `json:"file_path"`
	ContentHash      string `json:"md5"`
	OriginalFilename string `json:"filename"`
	Size             int64  `json:"file_size"`
	IsDuplicate      bool   `json:"is_duplicate"`
}
