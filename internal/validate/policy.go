// Package validate classifies extraction records against the mandatory
// field policy.
package validate

import (
	"fmt"
	"strings"
)

// Default policy values.
const (
	// DefaultDocTypeKey is the field naming the document class.
	DefaultDocTypeKey = "DOC_TYPE"

	// DefaultExemptDocType marks documents outside the extraction scope.
	// Their records need no mandatory fields.
	DefaultExemptDocType = "Outros"

	// notFoundValue is the provider convention for an unextractable field.
	notFoundValue = "Not found"
)

// Outcome is the validation result for one record.
type Outcome int

// Validation outcomes.
const (
	// Success means every mandatory field is present.
	Success Outcome = iota

	// NeedsRetry means fields are missing and retry rounds remain.
	NeedsRetry

	// ExhaustedFailure means fields are missing and no rounds remain.
	ExhaustedFailure
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NeedsRetry:
		return "needs-retry"
	case ExhaustedFailure:
		return "exhausted-failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Policy defines which extracted fields a record must carry.
type Policy struct {
	// MandatoryKeys are the field names each in-scope record must fill.
	MandatoryKeys []string

	// DocTypeKey names the field holding the document class.
	DocTypeKey string

	// ExemptDocType is the document class exempt from mandatory keys.
	ExemptDocType string
}

// NewPolicy creates a policy with default doc-type handling.
func NewPolicy(mandatoryKeys []string) Policy {
	return Policy{
		MandatoryKeys: mandatoryKeys,
		DocTypeKey:    DefaultDocTypeKey,
		ExemptDocType: DefaultExemptDocType,
	}
}

// Missing returns the mandatory keys absent from fields. A key counts as
// missing when it is not present, nil, empty, or the "Not found" marker.
// Records whose document class is exempt have no missing keys.
func (p Policy) Missing(fields map[string]any) []string {
	if p.Exempt(fields) {
		return nil
	}

	var missing []string

	for _, key := range p.MandatoryKeys {
		value, ok := fields[key]
		if !ok || Absent(value) {
			missing = append(missing, key)
		}
	}

	return missing
}

// Exempt reports whether the record's document class is out of scope.
func (p Policy) Exempt(fields map[string]any) bool {
	if p.ExemptDocType == "" || p.DocTypeKey == "" {
		return false
	}

	value, ok := fields[p.DocTypeKey].(string)

	return ok && value == p.ExemptDocType
}

// Classify turns a missing-key list into an outcome given the remaining
// retry rounds.
func Classify(missing []string, roundsLeft int) Outcome {
	if len(missing) == 0 {
		return Success
	}

	if roundsLeft > 0 {
		return NeedsRetry
	}

	return ExhaustedFailure
}

// Absent reports whether a field value counts as unfilled.
func Absent(value any) bool {
	if value == nil {
		return true
	}

	text, ok := value.(string)
	if !ok {
		return false
	}

	trimmed := strings.TrimSpace(text)

	return trimmed == "" || trimmed == notFoundValue
}
