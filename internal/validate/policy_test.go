package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docarena/docarena/internal/validate"
)

func TestMissingDetectsAbsentValues(t *testing.T) {
	t.Parallel()

	policy := validate.NewPolicy([]string{"DOC_TYPE", "TOTAL", "ISSUER", "DATE"})

	fields := map[string]any{
		"DOC_TYPE": "NFe",
		"TOTAL":    "",
		"ISSUER":   "Not found",
		"DATE":     nil,
	}

	missing := policy.Missing(fields)
	assert.Equal(t, []string{"TOTAL", "ISSUER", "DATE"}, missing)
}

func TestMissingAllPresent(t *testing.T) {
	t.Parallel()

	policy := validate.NewPolicy([]string{"DOC_TYPE", "TOTAL"})

	fields := map[string]any{"DOC_TYPE": "NFe", "TOTAL": "199.90"}
	assert.Empty(t, policy.Missing(fields))
}

func TestMissingExemptDocType(t *testing.T) {
	t.Parallel()

	policy := validate.NewPolicy([]string{"DOC_TYPE", "TOTAL", "ISSUER"})

	fields := map[string]any{"DOC_TYPE": "Outros"}
	assert.Empty(t, policy.Missing(fields))
	assert.True(t, policy.Exempt(fields))
}

func TestMissingNonStringValuesCount(t *testing.T) {
	t.Parallel()

	policy := validate.NewPolicy([]string{"TOTAL"})

	fields := map[string]any{"TOTAL": 42.5}
	assert.Empty(t, policy.Missing(fields))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, validate.Success, validate.Classify(nil, 0))
	assert.Equal(t, validate.NeedsRetry, validate.Classify([]string{"TOTAL"}, 2))
	assert.Equal(t, validate.ExhaustedFailure, validate.Classify([]string{"TOTAL"}, 0))
}

func TestAbsent(t *testing.T) {
	t.Parallel()

	assert.True(t, validate.Absent(nil))
	assert.True(t, validate.Absent(""))
	assert.True(t, validate.Absent("  "))
	assert.True(t, validate.Absent("Not found"))
	assert.False(t, validate.Absent("value"))
	assert.False(t, validate.Absent(0))
}
