package pricing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelPrice holds per-1K token rates for one model.
type ModelPrice struct {
	InputPer1K    float64 `yaml:"input_per_1k"`
	OutputPer1K   float64 `yaml:"output_per_1k"`
	CombinedPer1K float64 `yaml:"combined_per_1k"`
}

// Table is the pricing configuration used for cost outputs.
type Table struct {
	Serp struct {
		RequestUSD float64 `yaml:"request_usd"`
	} `yaml:"serp"`
	Defaults struct {
		CombinedPer1K float64 `yaml:"combined_per_1k"`
	} `yaml:"defaults"`
	Models map[string]ModelPrice `yaml:"models"`
}

// DefaultSerpRequestUSD is the per-request SERP proxy price used when no
// table overrides it.
const DefaultSerpRequestUSD = 0.0015

// Default returns the built-in table.
func Default() Table {
	var t Table
	t.Serp.RequestUSD = DefaultSerpRequestUSD
	t.Defaults.CombinedPer1K = 0.002
	t.Models = map[string]ModelPrice{
		"gpt-4o-mini":  {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"gpt-4o":       {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-4.1-mini": {InputPer1K: 0.0004, OutputPer1K: 0.0016},
	}
	return t
}

// Load reads a YAML pricing file. Fields missing from the file keep the
// built-in defaults; model entries are merged over the built-in ones.
func Load(path string) (Table, error) {
	t := Default()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read pricing file: %w", err)
	}
	var file Table
	if err := yaml.Unmarshal(data, &file); err != nil {
		return t, fmt.Errorf("parse pricing file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return t, err
	}
	if file.Serp.RequestUSD > 0 {
		t.Serp.RequestUSD = file.Serp.RequestUSD
	}
	if file.Defaults.CombinedPer1K > 0 {
		t.Defaults.CombinedPer1K = file.Defaults.CombinedPer1K
	}
	for name, p := range file.Models {
		t.Models[strings.ToLower(name)] = p
	}
	return t, nil
}

// Validate rejects negative prices.
func (t Table) Validate() error {
	if t.Serp.RequestUSD < 0 {
		return errors.New("pricing.serp.request_usd must be >= 0")
	}
	if t.Defaults.CombinedPer1K < 0 {
		return errors.New("pricing.defaults.combined_per_1k must be >= 0")
	}
	for name, p := range t.Models {
		if p.InputPer1K < 0 || p.OutputPer1K < 0 || p.CombinedPer1K < 0 {
			return fmt.Errorf("negative price for model %s", name)
		}
	}
	return nil
}

// CostUSD estimates the price of a model call from its token split. Unknown
// models use the default combined rate.
func (t Table) CostUSD(model string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	if p, ok := t.Models[strings.ToLower(strings.TrimSpace(model))]; ok {
		if p.InputPer1K > 0 || p.OutputPer1K > 0 {
			return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
		}
		if p.CombinedPer1K > 0 {
			return float64(inputTokens+outputTokens) / 1000 * p.CombinedPer1K
		}
	}
	return float64(inputTokens+outputTokens) / 1000 * t.Defaults.CombinedPer1K
}

// SerpCostUSD returns the estimated price of n SERP proxy requests.
func (t Table) SerpCostUSD(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) * t.Serp.RequestUSD
}
