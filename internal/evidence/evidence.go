package evidence

import (
	"sort"

	"github.com/hyperifyio/webevidence/internal/source"
)

// Policy names an evidence selection strategy.
type Policy string

const (
	// PolicyBaseline keeps the top max(1, serpCount/2) cards by relevance.
	PolicyBaseline Policy = "baseline"
	// PolicyDomainCapped limits each domain to a quota for source diversity.
	PolicyDomainCapped Policy = "domain_capped"
	// PolicyTarget keeps a caller chosen count ranked by relevance plus
	// scaled content score.
	PolicyTarget Policy = "target"
)

// Defaults for the domain capped policy and the target sort key.
const (
	DefaultDomainQuota  = 2
	DefaultMaxEvidence  = 5
	DefaultMinEvidence  = 3
	DefaultContentScale = 10.0
)

// Options configures Select. Zero values take the defaults above.
type Options struct {
	Policy Policy
	// SerpCount is the working set size; the baseline count derives from it.
	SerpCount int

	DomainQuota int
	MaxEvidence int
	MinEvidence int

	// Target is an explicit evidence count; FetchTarget is used when it is 0.
	Target       int
	FetchTarget  int
	ContentScale float64
}

// ParsePolicy maps a config string to a Policy, defaulting to baseline.
func ParsePolicy(s string) Policy {
	switch Policy(s) {
	case PolicyDomainCapped, PolicyTarget:
		return Policy(s)
	}
	return PolicyBaseline
}

// Select picks the evidence subset from cards. Only ok cards are eligible and
// the result never exceeds what is available. Ties keep input order.
func Select(cards []source.Card, opt Options) []source.Card {
	ok := source.OKCards(cards)
	if len(ok) == 0 {
		return nil
	}
	switch opt.Policy {
	case PolicyDomainCapped:
		return domainCapped(byRelevance(ok), opt)
	case PolicyTarget:
		return targeted(ok, opt)
	default:
		return take(byRelevance(ok), baselineCount(opt.SerpCount))
	}
}

func baselineCount(serpCount int) int {
	n := serpCount / 2
	if n < 1 {
		return 1
	}
	return n
}

func byRelevance(cards []source.Card) []source.Card {
	sorted := append([]source.Card(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	return sorted
}

func domainCapped(sorted []source.Card, opt Options) []source.Card {
	quota := orDefault(opt.DomainQuota, DefaultDomainQuota)
	max := orDefault(opt.MaxEvidence, DefaultMaxEvidence)
	min := orDefault(opt.MinEvidence, DefaultMinEvidence)

	perDomain := map[string]int{}
	picked := make([]bool, len(sorted))
	var out []source.Card
	for i, c := range sorted {
		if len(out) >= max {
			break
		}
		if perDomain[c.Domain] >= quota {
			continue
		}
		perDomain[c.Domain]++
		picked[i] = true
		out = append(out, c)
	}
	// Floor: top up with skipped cards when the quota starved the result.
	for i, c := range sorted {
		if len(out) >= min || len(out) >= max {
			break
		}
		if !picked[i] {
			picked[i] = true
			out = append(out, c)
		}
	}
	return out
}

func targeted(cards []source.Card, opt Options) []source.Card {
	scale := opt.ContentScale
	if scale <= 0 {
		scale = DefaultContentScale
	}
	key := func(c source.Card) float64 { return float64(c.RelevanceScore) + scale*c.ContentScore }
	sorted := append([]source.Card(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })

	n := opt.Target
	if n <= 0 {
		n = opt.FetchTarget
	}
	if n <= 0 {
		n = baselineCount(opt.SerpCount)
	}
	return take(sorted, n)
}

func take(cards []source.Card, n int) []source.Card {
	if n > len(cards) {
		n = len(cards)
	}
	return cards[:n]
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
