package services

import (
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/chunkup/utils"
)

// Storage commits assembled files into the date/owner partitioned durable
// tree and sweeps it by age.
type Storage struct {
	root string
}

// StorageStats aggregates the durable tree by full walk.
type StorageStats struct {
	TotalBytes  int64   `json:"total_size"`
	TotalSizeMB float64 `json:"total_size_mb"`
	FileCount   int     `json:"file_count"`
	StoragePath string  `json:"storage_path"`
}

// NewStorage creates a commit/retention service rooted at the given path.
func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// Root returns the durable storage root path.
func (s *Storage) Root() string {
	return s.root
}

// Commit moves a validated temporary file into
// root/YYYY/MM/DD/<owner or anonymous>/ under a collision-free name and
// returns the final path. An existing path is never overwritten.
func (s *Storage) Commit(tempPath, originalFilename, ownerID string) (string, error) {
	now := time.Now()
	owner := ownerID
	if owner == "" {
		owner = "anonymous"
	}
	targetDir := filepath.Join(s.root, now.Format("2006"), now.Format("01"), now.Format("02"), owner)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory: %w", err)
	}

	base := filepath.Base(originalFilename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	uniqueName := fmt.Sprintf("%s_%s%s", name, uuid.NewString(), ext)

	targetPath := filepath.Join(targetDir, uniqueName)
	if _, err := os.Stat(targetPath); err == nil {
		return "", fmt.Errorf("target path already exists: %s", targetPath)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		// Rename fails across filesystems; fall back to copy+remove.
		if err := copyFile(tempPath, targetPath); err != nil {
			return "", fmt.Errorf("store file: %w", err)
		}
		_ = os.Remove(tempPath)
	}

	utils.Sugar.Infow("file stored",
		"original_filename", originalFilename,
		"stored_path", targetPath,
		"owner_id", ownerID,
	)
	return targetPath, nil
}

// RetentionSweep deletes files whose modification time is older than
// maxAgeDays and returns the count removed. Purely age based; it knows
// nothing about upload sessions.
func (s *Storage) RetentionSweep(maxAgeDays int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	cleaned := 0

	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return 0, nil
	}

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			cleaned++
			utils.Sugar.Debugw("old file removed", "path", path)
		}
		return nil
	})
	if err != nil {
		return cleaned, err
	}

	utils.Sugar.Infow("old files cleaned up", "count", cleaned)
	return cleaned, nil
}

// Stats walks the durable tree and aggregates size and file count.
func (s *Storage) Stats() (StorageStats, error) {
	stats := StorageStats{StoragePath: s.root}

	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return stats, nil
	}

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		stats.TotalBytes += info.Size()
		stats.FileCount++
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.TotalSizeMB = math.Round(float64(stats.TotalBytes)/1048576*100) / 100
	return stats, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
