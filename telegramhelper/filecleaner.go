package telegramhelper

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// FileCleaner prunes the TDLib files directory. TDLib keeps a copy of every uploaded photo
// and downloaded thumbnail there, so a job that runs every few minutes fills it over time.
type FileCleaner struct {
	dir              string
	fileAgeThreshold time.Duration
	now              func() time.Time
}

// NewFileCleaner returns a cleaner for dir that removes files older than maxAge.
func NewFileCleaner(dir string, maxAge time.Duration) *FileCleaner {
	return &FileCleaner{
		dir:              dir,
		fileAgeThreshold: maxAge,
		now:              time.Now,
	}
}

// Clean removes old regular files once and reports how many were deleted. A missing directory
// or a non-positive age disables cleaning.
func (fc *FileCleaner) Clean() int {
	if fc.fileAgeThreshold <= 0 {
		return 0
	}
	if _, err := os.Stat(fc.dir); os.IsNotExist(err) {
		log.Debug().Str("dir", fc.dir).Msg("TDLib files directory does not exist yet, skipping cleanup")
		return 0
	}

	cutoffTime := fc.now().Add(-fc.fileAgeThreshold)
	fileCount := fc.cleanFilesInDir(fc.dir, cutoffTime)

	if fileCount > 0 {
		log.Info().
			Int("files_cleaned", fileCount).
			Float64("age_threshold_hours", fc.fileAgeThreshold.Hours()).
			Msg("Completed file cleanup")
	} else {
		log.Debug().Msg("No files needed cleaning")
	}
	return fileCount
}

// cleanFilesInDir removes files modified before cutoffTime anywhere below dirPath.
func (fc *FileCleaner) cleanFilesInDir(dirPath string, cutoffTime time.Time) int {
	var fileCount int

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Error accessing path")
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Error getting file info")
			return nil
		}

		if info.ModTime().Before(cutoffTime) {
			if err := os.Remove(path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to remove file")
			} else {
				log.Debug().Str("path", path).Msg("Removed old file")
				fileCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("path", dirPath).Msg("Error walking directory")
	}

	return fileCount
}
