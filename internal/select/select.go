package selecter

import (
	"strings"

	"github.com/hyperifyio/webevidence/internal/search"
)

// MaxSerpResults caps the working set handed to the fetcher.
const MaxSerpResults = 30

// Options configures selection constraints.
type Options struct {
	// MaxTotal caps the output. Zero or anything above MaxSerpResults means
	// MaxSerpResults.
	MaxTotal int
	// PerDomain caps results per domain. Zero disables the cap.
	PerDomain int
	// MinSnippetChars drops results whose description has fewer than this
	// many characters. Zero disables low-signal filtering.
	MinSnippetChars int
}

// WorkingSetCap is min(MaxSerpResults, perQuery*queryCount), at least 1.
func WorkingSetCap(perQuery, queryCount int) int {
	if perQuery < 1 {
		perQuery = 1
	}
	if queryCount < 1 {
		queryCount = 1
	}
	n := perQuery * queryCount
	if n > MaxSerpResults {
		return MaxSerpResults
	}
	return n
}

// Select deduplicates results by trimmed URL, drops results without a
// resolvable domain, applies the optional per-domain cap and truncates to
// MaxTotal. It keeps input order and does not modify its input, so applying
// it twice gives the same output.
func Select(results []search.Result, opt Options) []search.Result {
	max := opt.MaxTotal
	if max <= 0 || max > MaxSerpResults {
		max = MaxSerpResults
	}
	seenURL := map[string]struct{}{}
	domainCounts := map[string]int{}
	out := make([]search.Result, 0, max)
	for _, r := range results {
		if opt.MinSnippetChars > 0 && len(strings.TrimSpace(r.Description)) < opt.MinSnippetChars {
			continue
		}
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		r = search.WithDomain(r)
		if r.Domain == "" {
			continue
		}
		if _, ok := seenURL[r.URL]; ok {
			continue
		}
		if opt.PerDomain > 0 && domainCounts[r.Domain] >= opt.PerDomain {
			continue
		}
		seenURL[r.URL] = struct{}{}
		domainCounts[r.Domain]++
		out = append(out, r)
		if len(out) >= max {
			break
		}
	}
	return out
}
