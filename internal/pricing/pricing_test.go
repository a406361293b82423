package pricing

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestDefault_CostUSD(t *testing.T) {
	tbl := Default()
	got := tbl.CostUSD("GPT-4o-mini", 1000, 1000)
	if !almost(got, 0.00075) {
		t.Fatalf("CostUSD = %v, want 0.00075", got)
	}
	if got := tbl.CostUSD("unknown", 500, 500); !almost(got, 0.002) {
		t.Fatalf("unknown model should use default rate, got %v", got)
	}
	if got := tbl.CostUSD("gpt-4o", -5, -5); got != 0 {
		t.Fatalf("negative tokens should cost 0, got %v", got)
	}
}

func TestSerpCostUSD(t *testing.T) {
	tbl := Default()
	if got := tbl.SerpCostUSD(4); !almost(got, 4*DefaultSerpRequestUSD) {
		t.Fatalf("SerpCostUSD(4) = %v", got)
	}
	if tbl.SerpCostUSD(0) != 0 {
		t.Fatal("zero requests should cost 0")
	}
}

func TestLoad_MergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	data := "serp:\n  request_usd: 0.003\nmodels:\n  local-model:\n    combined_per_1k: 0.01\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !almost(tbl.Serp.RequestUSD, 0.003) {
		t.Fatalf("serp price not overridden: %v", tbl.Serp.RequestUSD)
	}
	if !almost(tbl.CostUSD("local-model", 500, 500), 0.01) {
		t.Fatalf("file model not merged")
	}
	if _, ok := tbl.Models["gpt-4o-mini"]; !ok {
		t.Fatalf("built-in models should be kept")
	}
}

func TestLoad_RejectsNegative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	if err := os.WriteFile(path, []byte("serp:\n  request_usd: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	tbl, err := Load("")
	if err != nil || !almost(tbl.Serp.RequestUSD, DefaultSerpRequestUSD) {
		t.Fatalf("expected default table, got %v %v", tbl.Serp.RequestUSD, err)
	}
}
