package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed combo-plan.schema.json
var planSchema []byte

// ErrPlanInvalid indicates a combo plan that failed schema validation.
var ErrPlanInvalid = errors.New("combo plan failed validation")

// Plan is a combo run definition: many strategies over one input set.
type Plan struct {
	// MaxConcurrent bounds concurrent strategies within a provider group.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// Strategies are the configurations to execute.
	Strategies []StrategyConfig `yaml:"strategies" json:"strategies"`
}

// LoadPlan reads a YAML combo plan, validates it against the embedded
// schema, and applies strategy defaults.
func LoadPlan(path string) (*Plan, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read combo plan: %w", readErr)
	}

	// The schema engine works on generic JSON values, so the YAML is
	// decoded twice: once generically for validation, once into the plan.
	var generic map[string]any

	genericErr := yaml.Unmarshal(data, &generic)
	if genericErr != nil {
		return nil, fmt.Errorf("parse combo plan: %w", genericErr)
	}

	validateErr := validatePlan(generic)
	if validateErr != nil {
		return nil, validateErr
	}

	var plan Plan

	unmarshalErr := yaml.Unmarshal(data, &plan)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("decode combo plan: %w", unmarshalErr)
	}

	for i := range plan.Strategies {
		plan.Strategies[i].ApplyDefaults()

		strategyErr := plan.Strategies[i].Validate()
		if strategyErr != nil {
			return nil, fmt.Errorf("combo plan strategy %d: %w", i, strategyErr)
		}
	}

	if plan.MaxConcurrent <= 0 {
		plan.MaxConcurrent = 1
	}

	return &plan, nil
}

func validatePlan(generic map[string]any) error {
	schemaLoader := gojsonschema.NewBytesLoader(planSchema)
	planLoader := gojsonschema.NewGoLoader(generic)

	result, err := gojsonschema.Validate(schemaLoader, planLoader)
	if err != nil {
		return fmt.Errorf("validate combo plan: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrPlanInvalid, strings.Join(messages, "; "))
	}

	return nil
}
