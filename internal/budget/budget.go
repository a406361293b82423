package budget

import (
	"math"
	"strings"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using ~4 chars per token, rounded up. The result is at least 1 when
// chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// EstimateMessagesTokens estimates the prompt size of a list of message
// bodies, e.g. the planner system prompt, recent turns and the user prompt.
func EstimateMessagesTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += EstimateTokens(p)
	}
	return total
}

// ModelContextTokens returns an estimated maximum context window for a model.
// Unknown models fall back to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(name, "1m"):
		return 1_000_000
	case strings.HasSuffix(name, "200k"):
		return 200_000
	case strings.HasSuffix(name, "128k"), strings.Contains(name, "-mini"):
		return 128_000
	}
	return 8192
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContext computes the input budget left after reserving output
// tokens and headroom for the given prompt size. Never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TrimToTokens cuts s so that its estimate fits within maxTokens, preferring
// to break at whitespace.
func TrimToTokens(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexAny(cut, " \n\t"); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4.1":       1_000_000,
	"gpt-4.1-mini":  1_000_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,
	"llama-3":       8_192,
	"llama-3.1":     128_000,
	"gpt-oss-20b":   4_096,
}
