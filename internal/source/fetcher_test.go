package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/webevidence/internal/extract"
	"github.com/hyperifyio/webevidence/internal/fetch"
	"github.com/hyperifyio/webevidence/internal/search"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/ok"):
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><main><p>Paris weather today is 21 degrees and sunny.</p></main></body></html>`)
		case r.URL.Path == "/js":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>Please enable JavaScript to view this site</p></body></html>`)
		case r.URL.Path == "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		case r.URL.Path == "/empty":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><script>x()</script></body></html>`)
		case r.URL.Path == "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF")
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(emitter telemetry.Emitter) *Fetcher {
	return &Fetcher{
		Client:    &fetch.Client{PerRequestTimeout: 200 * time.Millisecond, MaxAttempts: 1},
		Extractor: extract.New("regex", "heuristic"),
		Emitter:   emitter,
	}
}

func TestFetch_StatusInvariants(t *testing.T) {
	srv := pageServer(t)
	f := newFetcher(nil)
	cases := map[string]Status{
		"/ok":    StatusOK,
		"/js":    StatusBlocked,
		"/slow":  StatusTimeout,
		"/empty": StatusError,
		"/pdf":   StatusError,
		"/500":   StatusError,
	}
	for path, want := range cases {
		card := f.Fetch(context.Background(), search.Result{URL: srv.URL + path, Title: path})
		if card.Status != want {
			t.Fatalf("%s: status %q, want %q (err %s)", path, card.Status, want, card.Error)
		}
		if card.OK() != (card.Text != "") {
			t.Fatalf("%s: ok/text invariant broken: status=%s text=%q", path, card.Status, card.Text)
		}
		if !card.OK() && (card.RelevanceScore != 0 || card.ContentScore != 0) {
			t.Fatalf("%s: non-ok card carries a score", path)
		}
		if card.Domain == "" {
			t.Fatalf("%s: expected domain to be filled", path)
		}
	}
}

func TestFetch_BlockedJavaScriptPage(t *testing.T) {
	srv := pageServer(t)
	card := newFetcher(nil).Fetch(context.Background(), search.Result{URL: srv.URL + "/js"})
	if card.Status != StatusBlocked || card.BlockedReason != extract.BlockJSRequired || card.Text != "" {
		t.Fatalf("unexpected card %+v", card)
	}
}

func TestFetch_MaxChars(t *testing.T) {
	srv := pageServer(t)
	f := newFetcher(nil)
	f.MaxChars = 10
	card := f.Fetch(context.Background(), search.Result{URL: srv.URL + "/ok"})
	if card.Status != StatusOK || len([]rune(card.Text)) > 10 {
		t.Fatalf("expected truncated ok card, got %+v", card)
	}
}

func TestFetchAll_OrderAndProgress(t *testing.T) {
	srv := pageServer(t)
	rec := &telemetry.Recorder{}
	f := newFetcher(rec)
	var in []search.Result
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/ok/%d", i)
		if i%5 == 0 {
			path = "/500"
		}
		in = append(in, search.Result{URL: srv.URL + path + fmt.Sprintf("?i=%d", i)})
	}
	var calls int32
	lastDone := 0
	cards := f.FetchAll(context.Background(), in, PoolOptions{}, func(p Progress) {
		atomic.AddInt32(&calls, 1)
		if p.Done != lastDone+1 || p.Total != len(in) {
			t.Errorf("unexpected progress %+v after %d", p, lastDone)
		}
		lastDone = p.Done
	})
	if len(cards) != len(in) {
		t.Fatalf("expected %d cards, got %d", len(in), len(cards))
	}
	for i, c := range cards {
		if c.URL != in[i].URL {
			t.Fatalf("card %d out of order: %s", i, c.URL)
		}
	}
	if calls != int32(len(in)) {
		t.Fatalf("expected %d progress calls, got %d", len(in), calls)
	}
	if n := len(rec.Named(telemetry.EventPageFetched)); n != len(in) {
		t.Fatalf("expected %d page events, got %d", len(in), n)
	}
	counts := CountByStatus(cards)
	if counts[StatusOK] != 16 || counts[StatusError] != 4 {
		t.Fatalf("unexpected status counts %v", counts)
	}
}

func TestFetchAll_RespectsWorkerLimit(t *testing.T) {
	var inFlight, maxSeen int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<p>text</p>")
	}))
	defer srv.Close()

	f := &Fetcher{Client: &fetch.Client{PerRequestTimeout: time.Second}}
	var in []search.Result
	for i := 0; i < 40; i++ {
		in = append(in, search.Result{URL: fmt.Sprintf("%s/%d", srv.URL, i)})
	}
	cards := f.FetchAll(context.Background(), in, PoolOptions{Workers: 12}, nil)
	if len(cards) != 40 {
		t.Fatalf("expected 40 cards, got %d", len(cards))
	}
	if got := atomic.LoadInt32(&maxSeen); got > 12 {
		t.Fatalf("expected at most 12 concurrent fetches, saw %d", got)
	}
}

func TestFetchAll_StopAfterOK(t *testing.T) {
	srv := pageServer(t)
	f := newFetcher(nil)
	var in []search.Result
	for i := 0; i < 30; i++ {
		in = append(in, search.Result{URL: fmt.Sprintf("%s/ok/%d", srv.URL, i)})
	}
	cards := f.FetchAll(context.Background(), in, PoolOptions{Workers: 1, StopAfterOK: 3}, nil)
	if len(cards) != 3 {
		t.Fatalf("expected early stop after 3 ok cards with one worker, got %d", len(cards))
	}
}

func TestFetchAll_CancelledContext(t *testing.T) {
	srv := pageServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cards := newFetcher(nil).FetchAll(ctx, []search.Result{{URL: srv.URL + "/ok"}}, PoolOptions{}, nil)
	if len(cards) != 0 {
		t.Fatalf("expected no cards after cancellation, got %d", len(cards))
	}
}

func TestFetchAll_Empty(t *testing.T) {
	if cards := newFetcher(nil).FetchAll(context.Background(), nil, PoolOptions{}, nil); len(cards) != 0 {
		t.Fatalf("expected no cards")
	}
}
