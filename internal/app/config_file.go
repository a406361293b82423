package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/webevidence/internal/evidence"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`
	Metrics   string `yaml:"metrics" json:"metrics"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	BrightData struct {
		Key      string  `yaml:"key" json:"key"`
		Zone     string  `yaml:"zone" json:"zone"`
		Endpoint string  `yaml:"endpoint" json:"endpoint"`
		Rate     float64 `yaml:"rate" json:"rate"`
		LogRaw   bool    `yaml:"logRaw" json:"logRaw"`
	} `yaml:"brightdata" json:"brightdata"`

	Search struct {
		File     string `yaml:"file" json:"file"`
		GL       string `yaml:"gl" json:"gl"`
		HL       string `yaml:"hl" json:"hl"`
		Location string `yaml:"location" json:"location"`
	} `yaml:"search" json:"search"`

	Plan struct {
		Queries         int  `yaml:"queries" json:"queries"`
		ResultsPerQuery int  `yaml:"resultsPerQuery" json:"resultsPerQuery"`
		AllowSkip       bool `yaml:"allowSkip" json:"allowSkip"`
	} `yaml:"plan" json:"plan"`

	Fetch struct {
		Workers     int           `yaml:"workers" json:"workers"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		StopAfterOK int           `yaml:"stopAfterOK" json:"stopAfterOK"`
		Isolation   string        `yaml:"isolation" json:"isolation"`
		Converter   string        `yaml:"converter" json:"converter"`
		MaxChars    int           `yaml:"maxChars" json:"maxChars"`
		UserAgent   string        `yaml:"ua" json:"ua"`
	} `yaml:"fetch" json:"fetch"`

	Evidence struct {
		Policy      string `yaml:"policy" json:"policy"`
		Target      int    `yaml:"target" json:"target"`
		FetchTarget int    `yaml:"fetchTarget" json:"fetchTarget"`
		PerDomain   int    `yaml:"perDomain" json:"perDomain"`
		MinSnippet  int    `yaml:"minSnippet" json:"minSnippet"`
		Gate        string `yaml:"gate" json:"gate"`
	} `yaml:"evidence" json:"evidence"`

	Chunk struct {
		Mode     string `yaml:"mode" json:"mode"`
		Strategy string `yaml:"strategy" json:"strategy"`
		Words    int    `yaml:"words" json:"words"`
	} `yaml:"chunk" json:"chunk"`

	Pricing       string        `yaml:"pricing" json:"pricing"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	StripTracking bool          `yaml:"stripTracking" json:"stripTracking"`
	DryRun        bool          `yaml:"dryRun" json:"dryRun"`
	Verbose       bool          `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for fields that are still
// unset or at their flag default. Flags should already have been parsed.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v, def string) {
		if (*dst == "" || *dst == def) && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v, def int) {
		if (*dst == 0 || *dst == def) && v > 0 {
			*dst = v
		}
	}
	flag := func(dst *bool, v bool) {
		if !*dst && v {
			*dst = true
		}
	}

	str(&cfg.OutputPath, fc.Output, "-")
	str(&cfg.OutputPDFPath, fc.OutputPDF, "")
	str(&cfg.MetricsPath, fc.Metrics, "")

	str(&cfg.LLMBaseURL, fc.LLM.BaseURL, "")
	str(&cfg.LLMModel, fc.LLM.Model, "")
	str(&cfg.LLMAPIKey, fc.LLM.APIKey, "")

	str(&cfg.BrightDataKey, fc.BrightData.Key, "")
	str(&cfg.BrightDataZone, fc.BrightData.Zone, "")
	str(&cfg.BrightDataEndpoint, fc.BrightData.Endpoint, "")
	if cfg.SerpRatePerSec == 0 && fc.BrightData.Rate > 0 {
		cfg.SerpRatePerSec = fc.BrightData.Rate
	}
	flag(&cfg.SerpLogRaw, fc.BrightData.LogRaw)

	str(&cfg.FileSearchPath, fc.Search.File, "")
	str(&cfg.GL, fc.Search.GL, "")
	str(&cfg.HL, fc.Search.HL, "")
	str(&cfg.Location, fc.Search.Location, "")

	num(&cfg.QueryCount, fc.Plan.Queries, DefaultQueryCount)
	num(&cfg.ResultsPerQuery, fc.Plan.ResultsPerQuery, 0)
	flag(&cfg.AllowSkip, fc.Plan.AllowSkip)

	num(&cfg.FetchWorkers, fc.Fetch.Workers, 0)
	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	num(&cfg.StopAfterOK, fc.Fetch.StopAfterOK, 0)
	str(&cfg.Isolation, fc.Fetch.Isolation, DefaultIsolation)
	str(&cfg.Converter, fc.Fetch.Converter, "")
	num(&cfg.MaxChars, fc.Fetch.MaxChars, 0)
	str(&cfg.UserAgent, fc.Fetch.UserAgent, DefaultUserAgent)

	str(&cfg.EvidencePolicy, fc.Evidence.Policy, "")
	num(&cfg.EvidenceTarget, fc.Evidence.Target, 0)
	num(&cfg.FetchTarget, fc.Evidence.FetchTarget, 0)
	num(&cfg.PerDomainCap, fc.Evidence.PerDomain, 0)
	num(&cfg.MinSnippetChars, fc.Evidence.MinSnippet, 0)
	str(&cfg.EvidenceGate, fc.Evidence.Gate, "")

	str(&cfg.ExcerptMode, fc.Chunk.Mode, DefaultExcerptMode)
	str(&cfg.ChunkStrategy, fc.Chunk.Strategy, "")
	num(&cfg.ChunkWords, fc.Chunk.Words, 0)

	str(&cfg.PricingPath, fc.Pricing, "")
	if cfg.RunTimeout == 0 && fc.Timeout > 0 {
		cfg.RunTimeout = fc.Timeout
	}
	flag(&cfg.StripTracking, fc.StripTracking)
	flag(&cfg.DryRun, fc.DryRun)
	flag(&cfg.Verbose, fc.Verbose)
}

// ValidateConfig performs minimal validation for required settings.
// For dry-run, LLM settings may be omitted.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Prompt) == "" {
		return errors.New("config: prompt is required")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("config: output path is required (use - for stdout)")
	}
	if cfg.QueryCount < 1 {
		return errors.New("config: query count must be >= 1")
	}
	if cfg.FetchWorkers < 0 || cfg.PerDomainCap < 0 || cfg.MinSnippetChars < 0 || cfg.MaxChars < 0 || cfg.EvidenceTarget < 0 || cfg.ChunkWords < 0 || cfg.StopAfterOK < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.SerpRatePerSec < 0 {
		return errors.New("config: serp rate must not be negative")
	}
	switch cfg.Isolation {
	case "", "regex", "dom", "none":
	default:
		return fmt.Errorf("config: unknown isolation %q", cfg.Isolation)
	}
	switch cfg.EvidencePolicy {
	case "", string(evidence.PolicyBaseline), string(evidence.PolicyDomainCapped), string(evidence.PolicyTarget):
	default:
		return fmt.Errorf("config: unknown evidence policy %q", cfg.EvidencePolicy)
	}
	switch cfg.EvidenceGate {
	case "", "nonempty", "llm":
	default:
		return fmt.Errorf("config: unknown evidence gate %q", cfg.EvidenceGate)
	}
	if cfg.EvidenceGate == "llm" && !cfg.DryRun && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required for the llm evidence gate (or set LLM_MODEL)")
	}
	switch cfg.ExcerptMode {
	case "", "snippets", "balanced", "rich":
	default:
		return fmt.Errorf("config: unknown excerpt mode %q", cfg.ExcerptMode)
	}
	return nil
}
