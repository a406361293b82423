package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	y := filepath.Join(dir, "webevidence.yaml")
	content := `
llm:
  model: gpt-4o-mini
brightdata:
  zone: serp_api1
  rate: 2
plan:
  queries: 3
  allowSkip: true
fetch:
  timeout: 4s
  isolation: dom
evidence:
  policy: domain_capped
chunk:
  mode: rich
`
	if err := os.WriteFile(y, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	fc, err := LoadConfigFile(y)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if fc.LLM.Model != "gpt-4o-mini" || fc.BrightData.Zone != "serp_api1" || fc.Plan.Queries != 3 {
		t.Fatalf("unexpected file config %+v", fc)
	}

	j := filepath.Join(dir, "webevidence.json")
	if err := os.WriteFile(j, []byte(`{"llm":{"model":"m"},"chunk":{"strategy":"dual"}}`), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	fc2, err := LoadConfigFile(j)
	if err != nil || fc2.LLM.Model != "m" || fc2.Chunk.Strategy != "dual" {
		t.Fatalf("load json: %+v %v", fc2, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("llm: [unclosed"), 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	var fc FileConfig
	fc.LLM.Model = "file-model"
	fc.Plan.Queries = 4
	fc.Fetch.Timeout = 5 * time.Second
	fc.Fetch.Isolation = "dom"
	fc.Evidence.Policy = "target"
	fc.Chunk.Mode = "rich"

	cfg := Config{LLMModel: "flag-model", QueryCount: DefaultQueryCount, FetchTimeout: DefaultFetchTimeout, Isolation: DefaultIsolation, ExcerptMode: DefaultExcerptMode}
	ApplyFileConfig(&cfg, fc)
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("explicit flag overwritten: %q", cfg.LLMModel)
	}
	if cfg.QueryCount != 4 || cfg.FetchTimeout != 5*time.Second || cfg.Isolation != "dom" || cfg.EvidencePolicy != "target" || cfg.ExcerptMode != "rich" {
		t.Fatalf("file values not applied over defaults: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := Config{Prompt: "p", OutputPath: "-", QueryCount: 2}
	if err := ValidateConfig(ok); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]Config{
		"prompt":    {OutputPath: "-", QueryCount: 2},
		"output":    {Prompt: "p", QueryCount: 2},
		"query":     {Prompt: "p", OutputPath: "-"},
		"negative":  {Prompt: "p", OutputPath: "-", QueryCount: 2, PerDomainCap: -1},
		"isolation": {Prompt: "p", OutputPath: "-", QueryCount: 2, Isolation: "readability"},
		"policy":    {Prompt: "p", OutputPath: "-", QueryCount: 2, EvidencePolicy: "best"},
		"gate":      {Prompt: "p", OutputPath: "-", QueryCount: 2, EvidenceGate: "llm"},
		"mode":      {Prompt: "p", OutputPath: "-", QueryCount: 2, ExcerptMode: "huge"},
	}
	for name, cfg := range cases {
		if err := ValidateConfig(cfg); err == nil || !strings.HasPrefix(err.Error(), "config:") {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}
