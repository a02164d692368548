package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DuplicateFinder looks up an already-committed file whose content hash
// equals the candidate. Implemented by Deduper.
type DuplicateFinder interface {
	FindDuplicate(hash, storageRoot string) (string, error)
}

// Deduper locates already-committed files with identical content.
type Deduper struct {
	validator *Validator
}

// NewDeduper creates a dedup index over the durable storage tree.
func NewDeduper(validator *Validator) *Deduper {
	return &Deduper{validator: validator}
}

// errFoundDuplicate stops the walk early once a match is found.
var errFoundDuplicate = errors.New("duplicate found")

// FindDuplicate walks the storage tree, rehashing every regular file, and
// returns the first path whose content hash equals the candidate, or "".
// This is a deliberate linear scan; cost grows with the stored file count.
func (d *Deduper) FindDuplicate(hash, storageRoot string) (string, error) {
	if _, err := os.Stat(storageRoot); os.IsNotExist(err) {
		// Nothing committed yet
		return "", nil
	}

	var match string
	err := filepath.WalkDir(storageRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		fileHash, err := d.validator.HashFile(path)
		if err != nil {
			return err
		}
		if fileHash == hash {
			match = path
			return errFoundDuplicate
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFoundDuplicate) {
		return "", err
	}
	return match, nil
}
