package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/webevidence/internal/telemetry"
)

const (
	// DefaultEndpoint is the Bright Data request API.
	DefaultEndpoint = "https://api.brightdata.com/request"
	// MaxDepth caps the number of organic results requested per query.
	MaxDepth = 30
	// pageSize is the number of organic results Google returns per page.
	pageSize = 10

	maxResponseBytes = 8 << 20
	errorExcerptLen  = 512
)

// BrightData fetches Google organic results through the Bright Data
// unlocking proxy.
type BrightData struct {
	APIKey     string
	Zone       string
	Endpoint   string
	HTTPClient *http.Client
	// Limiter, when set, paces proxy requests.
	Limiter *rate.Limiter
	// LogRaw emits every raw proxy response as a debug event.
	LogRaw  bool
	Emitter telemetry.Emitter
}

// NewBrightDataFromEnv reads BRIGHTDATA_API_KEY and BRIGHTDATA_SERP_ZONE.
// Missing values leave the client disabled rather than failing.
func NewBrightDataFromEnv() *BrightData {
	return &BrightData{
		APIKey:   strings.TrimSpace(os.Getenv("BRIGHTDATA_API_KEY")),
		Zone:     strings.TrimSpace(os.Getenv("BRIGHTDATA_SERP_ZONE")),
		Endpoint: DefaultEndpoint,
	}
}

func (b *BrightData) Name() string { return "brightdata" }

// Enabled reports whether both credentials are present.
func (b *BrightData) Enabled() bool {
	return b != nil && b.APIKey != "" && b.Zone != ""
}

// Search implements Provider.
func (b *BrightData) Search(ctx context.Context, req Request) (Page, error) {
	return b.FetchGoogleOrganic(ctx, req)
}

// ClampDepth bounds a requested depth to [1, MaxDepth].
func ClampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// GoogleSearchURL builds the search engine URL the proxy is asked to fetch.
func GoogleSearchURL(query string, start int, gl, hl string) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("num", strconv.Itoa(pageSize))
	if start > 0 {
		q.Set("start", strconv.Itoa(start))
	}
	if gl != "" {
		q.Set("gl", gl)
	}
	if hl != "" {
		q.Set("hl", hl)
	}
	return "https://www.google.com/search?" + q.Encode()
}

// FetchGoogleOrganic pages through Google results for req.Query until the
// clamped depth is reached, a page yields nothing new, or the page budget is
// spent. Proxy failures stop pagination and return what was collected with a
// nil error. The only error returned is the context's.
func (b *BrightData) FetchGoogleOrganic(ctx context.Context, req Request) (Page, error) {
	em := telemetry.OrNop(b.emitter())
	page := Page{Results: []Result{}}
	if !b.Enabled() {
		em.Emit(telemetry.Debug(telemetry.EventSerpDisabled, telemetry.Fields{"query": req.Query}))
		return page, nil
	}
	depth := ClampDepth(req.Depth)
	pages := (depth + pageSize - 1) / pageSize
	seen := map[string]struct{}{}

	for i := 0; i < pages && len(page.Results) < depth; i++ {
		if b.Limiter != nil {
			if err := b.Limiter.Wait(ctx); err != nil {
				return page, ctx.Err()
			}
		}
		start := i * pageSize
		body, status, err := b.do(ctx, GoogleSearchURL(req.Query, start, req.GL, req.HL))
		page.RequestCount++
		if err != nil {
			if ctx.Err() != nil {
				return page, ctx.Err()
			}
			b.requestFailed(em, req.Query, start, status, err, body)
			break
		}
		if !gjson.ValidBytes(body) {
			b.requestFailed(em, req.Query, start, status, fmt.Errorf("decode proxy response: invalid json"), body)
			break
		}
		page.Raw = append(page.Raw, json.RawMessage(body))
		if b.LogRaw {
			em.Emit(telemetry.Debug(telemetry.EventSerpRaw, telemetry.Fields{
				"query": req.Query, "start": start, "body": string(body),
			}))
		}
		added := 0
		for _, r := range ParseResults(body) {
			if _, ok := seen[r.URL]; ok {
				continue
			}
			seen[r.URL] = struct{}{}
			r.Source = b.Name()
			page.Results = append(page.Results, r)
			added++
		}
		em.Emit(telemetry.Info(telemetry.EventSerpRequest, telemetry.Fields{
			"query": req.Query, "start": start, "status": "ok", "results": added,
		}))
		if added == 0 {
			break
		}
	}
	if len(page.Results) > depth {
		page.Results = page.Results[:depth]
	}
	return page, nil
}

func (b *BrightData) requestFailed(em telemetry.Emitter, query string, start, status int, err error, body []byte) {
	em.Emit(telemetry.Info(telemetry.EventSerpRequest, telemetry.Fields{
		"query": query, "start": start, "status": "error",
	}))
	em.Emit(telemetry.Warn(telemetry.EventSerpHTTPError, err, telemetry.Fields{
		"query":       query,
		"start":       start,
		"http_status": status,
		"body":        excerpt(body, errorExcerptLen),
	}))
}

type proxyRequest struct {
	Zone   string `json:"zone"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

// do posts one proxy request. A non-2xx status is returned as an error along
// with the body so callers can log it.
func (b *BrightData) do(ctx context.Context, target string) ([]byte, int, error) {
	payload, err := json.Marshal(proxyRequest{Zone: b.Zone, URL: target, Format: "json"})
	if err != nil {
		return nil, 0, fmt.Errorf("encode proxy request: %w", err)
	}
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
	req.Header.Set("Content-Type", "application/json")

	hc := b.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, resp.StatusCode, fmt.Errorf("proxy status: %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func (b *BrightData) emitter() telemetry.Emitter {
	if b == nil {
		return nil
	}
	return b.Emitter
}

func excerpt(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
