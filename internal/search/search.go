package search

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// Result is one organic search hit. URL is its identity.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Position    int    `json:"position,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Source      string `json:"source,omitempty"` // provider name for observability
}

// Request describes one organic results lookup.
type Request struct {
	Query string
	// Depth is the number of results wanted; providers clamp it.
	Depth int
	// GL and HL are Google country and interface language hints.
	GL string
	HL string
}

// Page is what a provider returns for one query: normalized results, the raw
// upstream payloads and the number of billable requests issued.
type Page struct {
	Results      []Result          `json:"results"`
	Raw          []json.RawMessage `json:"raw"`
	RequestCount int               `json:"request_count"`
}

// Provider is the interface the pipeline uses to look up results.
type Provider interface {
	Search(ctx context.Context, req Request) (Page, error)
	Name() string
}

// DomainOf returns the lower-cased host of rawURL without a leading "www.".
// It returns "" when the URL has no host.
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// WithDomain fills r.Domain from the URL when it is missing.
func WithDomain(r Result) Result {
	if strings.TrimSpace(r.Domain) == "" {
		r.Domain = DomainOf(r.URL)
	}
	return r
}
