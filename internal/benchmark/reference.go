// Package benchmark compares run outputs against a reference dataset.
package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultKeyColumn names the reference column holding the document filename.
const DefaultKeyColumn = "file_name"

// fuzzyThreshold is the minimum similarity for the fuzzy lookup tier.
const fuzzyThreshold = 0.85

// ErrNoKeyColumn indicates the reference CSV lacks the key column.
var ErrNoKeyColumn = errors.New("reference dataset has no key column")

// Reference is the expected-values dataset, keyed by document filename.
type Reference struct {
	// Fields are the value columns, in CSV order, key column excluded.
	Fields []string

	rows    map[string]map[string]string
	byStem  map[string]string
	keyList []string
}

// LoadReference reads a CSV reference dataset. The keyColumn (default
// "file_name") identifies each row's document.
func LoadReference(path, keyColumn string) (*Reference, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference dataset: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse reference dataset: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoKeyColumn, path)
	}

	header := rows[0]

	keyIndex := -1
	for i, column := range header {
		if column == keyColumn {
			keyIndex = i

			break
		}
	}

	if keyIndex < 0 {
		return nil, fmt.Errorf("%w: want %q, have %v", ErrNoKeyColumn, keyColumn, header)
	}

	ref := &Reference{
		rows:   make(map[string]map[string]string, len(rows)-1),
		byStem: make(map[string]string, len(rows)-1),
	}

	for i, column := range header {
		if i != keyIndex {
			ref.Fields = append(ref.Fields, column)
		}
	}

	for _, row := range rows[1:] {
		if keyIndex >= len(row) {
			continue
		}

		key := row[keyIndex]
		values := make(map[string]string, len(ref.Fields))

		for i, column := range header {
			if i == keyIndex || i >= len(row) {
				continue
			}

			values[column] = row[i]
		}

		ref.rows[key] = values
		ref.byStem[stemOf(key)] = key
		ref.keyList = append(ref.keyList, key)
	}

	return ref, nil
}

// Lookup finds the reference row for a document name. Tiers: exact filename,
// stem equality, then fuzzy similarity against every key.
func (r *Reference) Lookup(name string) (map[string]string, bool) {
	base := filepath.Base(name)

	if row, ok := r.rows[base]; ok {
		return row, true
	}

	if key, ok := r.byStem[stemOf(base)]; ok {
		return r.rows[key], true
	}

	bestScore := 0.0
	bestKey := ""

	for _, key := range r.keyList {
		score := similarity(base, key)
		if score > bestScore {
			bestScore = score
			bestKey = key
		}
	}

	if bestScore >= fuzzyThreshold {
		return r.rows[bestKey], true
	}

	return nil, false
}

// Agrees reports whether the extracted fields match the reference row for
// the document. Documents without a reference row agree trivially. Values
// are null-normalized before comparison.
func (r *Reference) Agrees(name string, fields map[string]any) bool {
	expected, found := r.Lookup(name)
	if !found {
		return true
	}

	for _, field := range r.Fields {
		if Normalize(expected[field]) != Normalize(fields[field]) {
			return false
		}
	}

	return true
}

// Len returns the number of reference rows.
func (r *Reference) Len() int {
	return len(r.rows)
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func similarity(left, right string) float64 {
	if left == right {
		return 1
	}

	longest := max(len(left), len(right))
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(left, right))/float64(longest)
}
