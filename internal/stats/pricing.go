package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tokensPerPriceUnit is the token count the per-1M prices refer to.
const tokensPerPriceUnit = 1_000_000

// ModelPrice is the per-million token pricing for one model.
type ModelPrice struct {
	PromptPricePer1M    float64 `yaml:"prompt_price_per_1m"`
	CandidatePricePer1M float64 `yaml:"candidate_price_per_1m"`
	OtherPricePer1M     float64 `yaml:"other_price_per_1m"`
}

// Cost prices the given token totals.
func (p ModelPrice) Cost(promptTokens, candidateTokens, otherTokens int) CostBlock {
	promptCost := float64(promptTokens) * p.PromptPricePer1M / tokensPerPriceUnit
	candidateCost := float64(candidateTokens) * p.CandidatePricePer1M / tokensPerPriceUnit
	otherCost := float64(otherTokens) * p.OtherPricePer1M / tokensPerPriceUnit

	return CostBlock{
		PromptPricePer1M:        p.PromptPricePer1M,
		CandidatePricePer1M:     p.CandidatePricePer1M,
		OtherPricePer1M:         p.OtherPricePer1M,
		TotalPromptTokenCost:    promptCost,
		TotalCandidateTokenCost: candidateCost,
		TotalOtherTokenCost:     otherCost,
		TotalTokenCost:          promptCost + candidateCost + otherCost,
	}
}

// PriceTable holds pricing for every known provider and model.
type PriceTable struct {
	// PriceObtainedDate records when the prices were last checked.
	PriceObtainedDate string `yaml:"price_obtained_date"`

	// Providers maps provider name to model name to price.
	Providers map[string]map[string]ModelPrice `yaml:"providers"`
}

// Lookup returns the price for a provider/model pair.
func (t *PriceTable) Lookup(provider, model string) (ModelPrice, bool) {
	models, ok := t.Providers[provider]
	if !ok {
		return ModelPrice{}, false
	}

	price, ok := models[model]

	return price, ok
}

// LoadPriceTable reads a YAML price file.
func LoadPriceTable(path string) (*PriceTable, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read price file: %w", readErr)
	}

	var table PriceTable

	unmarshalErr := yaml.Unmarshal(data, &table)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("parse price file: %w", unmarshalErr)
	}

	return &table, nil
}
