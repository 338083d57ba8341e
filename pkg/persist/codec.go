// Package persist provides codec-based file persistence for run artifacts.
// Writes are atomic: state lands in a temp file and is renamed into place,
// so a killed run never leaves a half-written artifact behind.
package persist

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json", ".gob").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	decoder := json.NewDecoder(r)

	err := decoder.Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	encoder := gob.NewEncoder(w)

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	decoder := gob.NewDecoder(r)

	err := decoder.Decode(state)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}

// WriteAtomic encodes state into path via a temp file in the same directory
// followed by a rename.
func WriteAtomic(path string, codec Codec, state any) error {
	dir := filepath.Dir(path)

	mkdirErr := os.MkdirAll(dir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create state dir: %w", mkdirErr)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	encodeErr := codec.Encode(tmp, state)
	if encodeErr != nil {
		tmp.Close()

		return fmt.Errorf("encode state: %w", encodeErr)
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		return fmt.Errorf("close state temp file: %w", closeErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		return fmt.Errorf("publish state file: %w", renameErr)
	}

	return nil
}

// ReadState decodes state from path.
func ReadState(path string, codec Codec, state any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	decodeErr := codec.Decode(file, state)
	if decodeErr != nil {
		return fmt.Errorf("decode state: %w", decodeErr)
	}

	return nil
}

// WriteCSVAtomic writes rows (header included) to path with the same
// temp-and-rename discipline as WriteAtomic.
func WriteCSVAtomic(path string, rows [][]string) error {
	dir := filepath.Dir(path)

	mkdirErr := os.MkdirAll(dir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create state dir: %w", mkdirErr)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)

	writeErr := writer.WriteAll(rows)
	if writeErr != nil {
		tmp.Close()

		return fmt.Errorf("write csv rows: %w", writeErr)
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		return fmt.Errorf("close state temp file: %w", closeErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		return fmt.Errorf("publish state file: %w", renameErr)
	}

	return nil
}
