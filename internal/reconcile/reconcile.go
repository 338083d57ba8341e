// Package reconcile maps provider records back to the dispatched file set.
//
// Providers are not trusted to echo identifiers verbatim: some return full
// paths, some base names, some a cleaned-up stem. Matching runs through
// ordered tiers from strict to permissive, and every dispatched file ends up
// with exactly one record even when the provider answered for fewer files.
package reconcile

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/source"
)

// fuzzyThreshold is the minimum similarity ratio for a fuzzy tier match.
const fuzzyThreshold = 0.85

// Matcher decides whether a provider identifier names the given file.
type Matcher interface {
	// Match reports whether identifier refers to file.
	Match(identifier string, file source.File) bool

	// Name identifies the tier for logging.
	Name() string
}

// exactMatcher accepts only a verbatim path match.
type exactMatcher struct{}

func (exactMatcher) Match(identifier string, file source.File) bool {
	return identifier == file.Path
}

func (exactMatcher) Name() string { return "exact" }

// fuzzyMatcher accepts identifiers whose similarity to the path or base name
// reaches the fuzzy threshold.
type fuzzyMatcher struct{}

func (fuzzyMatcher) Match(identifier string, file source.File) bool {
	return similarity(identifier, file.Path) >= fuzzyThreshold ||
		similarity(identifier, file.Name) >= fuzzyThreshold
}

func (fuzzyMatcher) Name() string { return "fuzzy" }

// stemMatcher accepts identifiers that contain the file stem or are contained
// by it.
type stemMatcher struct{}

func (stemMatcher) Match(identifier string, file source.File) bool {
	stem := file.Stem()
	if stem == "" || identifier == "" {
		return false
	}

	stem = strings.ToLower(stem)
	idStem := strings.ToLower(strings.TrimSuffix(filepath.Base(identifier), filepath.Ext(identifier)))

	return strings.Contains(idStem, stem) || strings.Contains(stem, idStem)
}

func (stemMatcher) Name() string { return "stem" }

// basenameMatcher accepts identifiers whose base name equals the file's.
type basenameMatcher struct{}

func (basenameMatcher) Match(identifier string, file source.File) bool {
	return filepath.Base(identifier) == file.Name
}

func (basenameMatcher) Name() string { return "basename" }

// similarity returns a 0..1 ratio derived from the Levenshtein distance.
// Comparison is case-insensitive.
func similarity(left, right string) float64 {
	left = strings.ToLower(left)
	right = strings.ToLower(right)

	if left == right {
		return 1
	}

	longest := max(len(left), len(right))
	if longest == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(left, right)

	return 1 - float64(distance)/float64(longest)
}

// Reconciler assigns provider records to dispatched files.
type Reconciler struct {
	tiers  []Matcher
	mapper PathMapper
	logger *slog.Logger
}

// New creates a reconciler with the default tier order and the given path
// mapper. A nil mapper behaves as passthrough.
func New(mapper PathMapper, logger *slog.Logger) *Reconciler {
	if mapper == nil {
		mapper = PassthroughMapper{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		tiers:  []Matcher{exactMatcher{}, fuzzyMatcher{}, stemMatcher{}, basenameMatcher{}},
		mapper: mapper,
		logger: logger,
	}
}

// Assign maps records onto files. Every input file appears exactly once in
// the result, keyed by its original path. Files no record matched receive an
// error record. Records that matched nothing are dropped after logging.
func (r *Reconciler) Assign(files []source.File, records []extract.Record) map[string]extract.Record {
	assigned := make(map[string]extract.Record, len(files))
	claimed := make([]bool, len(records))

	for _, tier := range r.tiers {
		for _, file := range files {
			original := r.mapper.Original(file.Path)
			if _, done := assigned[original]; done {
				continue
			}

			for i, record := range records {
				if claimed[i] {
					continue
				}

				if tier.Match(r.mapper.Original(record.Identifier), source.File{
					Path: original,
					Name: filepath.Base(original),
				}) || tier.Match(record.Identifier, file) {
					record.Identifier = original
					assigned[original] = record
					claimed[i] = true

					if tier.Name() != "exact" {
						r.logger.Debug("matched record via fallback tier",
							"tier", tier.Name(), "file", original)
					}

					break
				}
			}
		}
	}

	for _, file := range files {
		original := r.mapper.Original(file.Path)
		if _, done := assigned[original]; !done {
			r.logger.Warn("no provider record for file", "file", original)

			assigned[original] = extract.ErrorRecord(original, extract.ErrNoResult)
		}
	}

	for i, record := range records {
		if !claimed[i] {
			r.logger.Warn("dropping unmatched provider record", "identifier", record.Identifier)
		}
	}

	return assigned
}
