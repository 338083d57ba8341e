// Package source discovers and describes the document files fed into a run.
package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// bytesPerMB converts byte counts to megabytes for reporting.
const bytesPerMB = 1024 * 1024

// File describes a single input document.
type File struct {
	// Path is the absolute or run-relative path used as the file identity.
	Path string

	// Name is the base name including extension.
	Name string

	// SizeBytes is the on-disk size at discovery time.
	SizeBytes int64

	// ModTime is the file's modification time at discovery time.
	ModTime time.Time
}

// SizeMB returns the file size in megabytes rounded to two decimals.
func (f File) SizeMB() float64 {
	mb := float64(f.SizeBytes) / bytesPerMB

	return float64(int(mb*100+0.5)) / 100
}

// Stem returns the base name without its extension.
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Discover walks root and returns files whose extension matches one of the
// given patterns (e.g. ".pdf", ".png"). An empty pattern list accepts every
// regular file. Results are sorted by path so group partitioning is stable.
func Discover(root string, extensions []string, logger *slog.Logger) ([]File, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accepted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		accepted[strings.ToLower(ext)] = true
	}

	var files []File

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// An error on the root itself means there is nothing to walk.
			if path == root {
				return err
			}

			logger.Warn("skipping unreadable entry", "path", path, "error", err)

			return nil
		}

		if entry.IsDir() {
			return nil
		}

		if len(accepted) > 0 && !accepted[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, statErr := entry.Info()
		if statErr != nil {
			logger.Warn("skipping file without stat info", "path", path, "error", statErr)

			return nil
		}

		files = append(files, File{
			Path:      path,
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("discover input files: %w", walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return files, nil
}

// FromPaths builds File values for explicit paths, statting each one.
// Missing files are included with a zero size so downstream accounting
// still sees every requested path.
func FromPaths(paths []string) []File {
	files := make([]File, 0, len(paths))

	for _, path := range paths {
		file := File{Path: path, Name: filepath.Base(path)}

		info, err := os.Stat(path)
		if err == nil {
			file.SizeBytes = info.Size()
			file.ModTime = info.ModTime()
		}

		files = append(files, file)
	}

	return files
}
