// Package checkpoint persists the set of processed document paths so an
// interrupted run can resume without resending finished files.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pierrec/lz4/v4"
)

// fileMode is the permission set for checkpoint files.
const fileMode = 0o600

// state is the on-disk shape: an lz4-framed gob of sorted paths.
type state struct {
	Version int
	Paths   []string
}

// currentVersion guards against decoding checkpoints from a different layout.
const currentVersion = 1

// ErrVersionMismatch indicates a checkpoint written by an incompatible layout.
var ErrVersionMismatch = errors.New("checkpoint version mismatch")

// Set tracks which document paths have reached a terminal state.
type Set struct {
	paths map[string]bool
}

// NewSet creates an empty processed set.
func NewSet() *Set {
	return &Set{paths: make(map[string]bool)}
}

// Add marks a path as processed.
func (s *Set) Add(path string) {
	s.paths[path] = true
}

// Has reports whether a path was already processed.
func (s *Set) Has(path string) bool {
	return s.paths[path]
}

// Len returns the number of processed paths.
func (s *Set) Len() int {
	return len(s.paths)
}

// Paths returns the processed paths in sorted order.
func (s *Set) Paths() []string {
	paths := make([]string, 0, len(s.paths))
	for path := range s.paths {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}

// Save writes the set to path atomically: the state is written to a
// temporary file in the same directory and renamed into place.
func (s *Set) Save(path string) error {
	dir := filepath.Dir(path)

	mkdirErr := os.MkdirAll(dir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create checkpoint dir: %w", mkdirErr)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := lz4.NewWriter(tmp)

	encodeErr := gob.NewEncoder(writer).Encode(state{Version: currentVersion, Paths: s.Paths()})
	if encodeErr != nil {
		tmp.Close()

		return fmt.Errorf("encode checkpoint: %w", encodeErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		tmp.Close()

		return fmt.Errorf("flush checkpoint: %w", closeErr)
	}

	fileErr := tmp.Close()
	if fileErr != nil {
		return fmt.Errorf("close checkpoint temp file: %w", fileErr)
	}

	chmodErr := os.Chmod(tmpName, fileMode)
	if chmodErr != nil {
		return fmt.Errorf("chmod checkpoint: %w", chmodErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		return fmt.Errorf("publish checkpoint: %w", renameErr)
	}

	return nil
}

// Load reads a checkpoint from path. A missing file yields an empty set.
func Load(path string) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSet(), nil
		}

		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer file.Close()

	var decoded state

	decodeErr := gob.NewDecoder(lz4.NewReader(file)).Decode(&decoded)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", decodeErr)
	}

	if decoded.Version != currentVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, decoded.Version, currentVersion)
	}

	set := NewSet()
	for _, p := range decoded.Paths {
		set.Add(p)
	}

	return set, nil
}
