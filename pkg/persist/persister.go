package persist

import "path/filepath"

// Persister handles I/O for a specific state type using a Codec.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister creates a persister with the given basename and codec.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{
		basename: basename,
		codec:    codec,
	}
}

// Path returns the file path the persister uses under dir.
func (p *Persister[T]) Path(dir string) string {
	return filepath.Join(dir, p.basename+p.codec.Extension())
}

// Save writes state into dir atomically.
func (p *Persister[T]) Save(dir string, state *T) error {
	return WriteAtomic(p.Path(dir), p.codec, state)
}

// Load restores state from dir.
func (p *Persister[T]) Load(dir string) (*T, error) {
	var state T

	err := ReadState(p.Path(dir), p.codec, &state)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
