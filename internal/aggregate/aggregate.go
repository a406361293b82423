package aggregate

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/webevidence/internal/search"
)

// Merge flattens per-query result groups in query order, trims URLs and fills
// missing domains. Duplicates are kept; the selector removes them.
func Merge(groups [][]search.Result) []search.Result {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]search.Result, 0, n)
	for _, g := range groups {
		for _, r := range g {
			r.URL = strings.TrimSpace(r.URL)
			if r.URL == "" {
				continue
			}
			out = append(out, search.WithDomain(r))
		}
	}
	return out
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// StripTracking drops fragments and common tracking parameters and lower-cases
// hosts so that near-identical URLs collapse under exact-match dedupe. URLs
// that do not parse are left untouched.
func StripTracking(results []search.Result) []search.Result {
	out := make([]search.Result, len(results))
	for i, r := range results {
		if u, err := url.Parse(r.URL); err == nil && u.Host != "" {
			normalizeURL(u)
			r.URL = u.String()
		}
		out[i] = r
	}
	return out
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
