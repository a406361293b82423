package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/hyperifyio/webevidence/internal/telemetry"
)

// proxyServer answers like the request API, wrapping a page of organic
// results in a JSON string body. pageFn returns the items for a start offset.
func proxyServer(t *testing.T, pageFn func(start int) []map[string]any) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer auth")
		}
		var body proxyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Zone != "zone" || body.Format != "json" {
			t.Errorf("unexpected proxy body %+v", body)
		}
		u, _ := url.Parse(body.URL)
		start, _ := strconv.Atoi(u.Query().Get("start"))
		inner, _ := json.Marshal(map[string]any{"organic": pageFn(start)})
		_ = json.NewEncoder(w).Encode(map[string]any{"status_code": 200, "body": string(inner)})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func items(start, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"link":  fmt.Sprintf("https://site%d.example/p", start+i),
			"title": fmt.Sprintf("Result %d", start+i),
		})
	}
	return out
}

func TestFetchGoogleOrganic_Paginates(t *testing.T) {
	srv, calls := proxyServer(t, func(start int) []map[string]any { return items(start, 10) })
	rec := &telemetry.Recorder{}
	b := &BrightData{APIKey: "key", Zone: "zone", Endpoint: srv.URL, HTTPClient: srv.Client(), LogRaw: true, Emitter: rec}
	page, err := b.FetchGoogleOrganic(context.Background(), Request{Query: "paris weather", Depth: 25})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.RequestCount != 3 || atomic.LoadInt32(calls) != 3 {
		t.Fatalf("expected 3 requests, got %d (server %d)", page.RequestCount, *calls)
	}
	if len(page.Results) != 25 {
		t.Fatalf("expected results truncated to depth 25, got %d", len(page.Results))
	}
	if len(page.Raw) != 3 {
		t.Fatalf("expected 3 raw payloads, got %d", len(page.Raw))
	}
	if n := len(rec.Named(telemetry.EventSerpRaw)); n != 3 {
		t.Fatalf("expected 3 raw events, got %d", n)
	}
}

func TestFetchGoogleOrganic_DepthClamped(t *testing.T) {
	srv, calls := proxyServer(t, func(start int) []map[string]any { return items(start, 10) })
	b := &BrightData{APIKey: "key", Zone: "zone", Endpoint: srv.URL, HTTPClient: srv.Client()}
	page, _ := b.FetchGoogleOrganic(context.Background(), Request{Query: "q", Depth: 500})
	if page.RequestCount != 3 || len(page.Results) != MaxDepth {
		t.Fatalf("expected clamp to %d results over 3 requests, got %d over %d", MaxDepth, len(page.Results), page.RequestCount)
	}
	page, _ = b.FetchGoogleOrganic(context.Background(), Request{Query: "q", Depth: -4})
	if page.RequestCount != 1 || len(page.Results) != 1 {
		t.Fatalf("expected clamp to 1 result, got %d over %d", len(page.Results), page.RequestCount)
	}
	if got := atomic.LoadInt32(calls); got != 4 {
		t.Fatalf("expected 4 proxy calls in total, got %d", got)
	}
}

func TestFetchGoogleOrganic_StopsOnEmptyPage(t *testing.T) {
	srv, _ := proxyServer(t, func(start int) []map[string]any {
		if start == 0 {
			return items(0, 10)
		}
		return nil
	})
	b := &BrightData{APIKey: "key", Zone: "zone", Endpoint: srv.URL, HTTPClient: srv.Client()}
	page, err := b.FetchGoogleOrganic(context.Background(), Request{Query: "q", Depth: 30})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.RequestCount != 2 || len(page.Results) != 10 {
		t.Fatalf("expected stop after empty second page, got %d results over %d requests", len(page.Results), page.RequestCount)
	}
}

func TestFetchGoogleOrganic_PartialOnHTTPError(t *testing.T) {
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) > 1 {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": items(0, 10)})
	}))
	defer srv.Close()
	rec := &telemetry.Recorder{}
	b := &BrightData{APIKey: "key", Zone: "zone", Endpoint: srv.URL, HTTPClient: srv.Client(), Emitter: rec}
	page, err := b.FetchGoogleOrganic(context.Background(), Request{Query: "q", Depth: 30})
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(page.Results) != 10 || page.RequestCount != 2 {
		t.Fatalf("expected 10 results over 2 requests, got %d over %d", len(page.Results), page.RequestCount)
	}
	evs := rec.Named(telemetry.EventSerpHTTPError)
	if len(evs) != 1 {
		t.Fatalf("expected one http error event, got %d", len(evs))
	}
	if evs[0].Fields["http_status"] != http.StatusTooManyRequests {
		t.Fatalf("expected status in event, got %v", evs[0].Fields["http_status"])
	}
}

func TestFetchGoogleOrganic_MissingCredentials(t *testing.T) {
	t.Setenv("BRIGHTDATA_API_KEY", "")
	t.Setenv("BRIGHTDATA_SERP_ZONE", "")
	b := NewBrightDataFromEnv()
	page, err := b.FetchGoogleOrganic(context.Background(), Request{Query: "q", Depth: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if page.Results == nil || len(page.Results) != 0 || page.Raw != nil || page.RequestCount != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestGoogleSearchURL(t *testing.T) {
	u, err := url.Parse(GoogleSearchURL("a b", 20, "fr", "fr"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("q") != "a b" || q.Get("start") != "20" || q.Get("gl") != "fr" || q.Get("hl") != "fr" {
		t.Fatalf("unexpected query %v", q)
	}
	first, _ := url.Parse(GoogleSearchURL("x", 0, "", ""))
	if _, ok := first.Query()["start"]; ok {
		t.Fatal("first page should not carry a start offset")
	}
}
