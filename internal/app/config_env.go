package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	// Flag defaults count as unset.
	setString := func(dst *string, key, def string) {
		if *dst != "" && *dst != def {
			return
		}
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL", "")
	setString(&cfg.LLMModel, "LLM_MODEL", "")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY", "")
	setString(&cfg.BrightDataKey, "BRIGHTDATA_API_KEY", "")
	setString(&cfg.BrightDataZone, "BRIGHTDATA_SERP_ZONE", "")
	setString(&cfg.BrightDataEndpoint, "BRIGHTDATA_ENDPOINT", "")
	setString(&cfg.FileSearchPath, "SEARCH_FILE", "")
	setString(&cfg.GL, "SERP_GL", "")
	setString(&cfg.HL, "SERP_HL", "")
	setString(&cfg.Location, "USER_LOCATION", "")
	setString(&cfg.ExcerptMode, "EXCERPT_MODE", DefaultExcerptMode)
	setString(&cfg.EvidencePolicy, "EVIDENCE_POLICY", "")
	setString(&cfg.EvidenceGate, "EVIDENCE_GATE", "")
	setString(&cfg.Isolation, "ISOLATION", DefaultIsolation)
	setString(&cfg.PricingPath, "PRICING_FILE", "")
	setString(&cfg.MetricsPath, "METRICS_FILE", "")

	setInt := func(dst *int, key string, def int) {
		if *dst != 0 && *dst != def {
			return
		}
		if n, ok := envInt(key); ok {
			*dst = n
		}
	}
	setInt(&cfg.QueryCount, "QUERY_COUNT", DefaultQueryCount)
	setInt(&cfg.FetchWorkers, "FETCH_WORKERS", 0)
	setInt(&cfg.PerDomainCap, "PER_DOMAIN_CAP", 0)
	setInt(&cfg.MinSnippetChars, "MIN_SNIPPET_CHARS", 0)
	setInt(&cfg.EvidenceTarget, "EVIDENCE_TARGET", 0)
	setInt(&cfg.ChunkWords, "CHUNK_WORDS", 0)

	if cfg.SerpRatePerSec == 0 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("SERP_RATE")), 64); err == nil && f > 0 {
			cfg.SerpRatePerSec = f
		}
	}
	if cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout {
		if d, ok := envDuration("FETCH_TIMEOUT"); ok {
			cfg.FetchTimeout = d
		}
	}

	// Booleans
	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if v, ok := envBool(envKey); ok && v {
			*dst = true
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.SerpLogRaw, "SERP_LOG_RAW")
	setBool(&cfg.AllowSkip, "ALLOW_SKIP")
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
