package source

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/webevidence/internal/extract"
	"github.com/hyperifyio/webevidence/internal/fetch"
	"github.com/hyperifyio/webevidence/internal/search"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

// DefaultWorkers is the fetch pool width.
const DefaultWorkers = 12

// FixedMaxChars is the text budget used in fixed-character excerpt mode.
const FixedMaxChars = 4000

// Getter is the page retrieval surface of fetch.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Fetcher turns search results into cards.
type Fetcher struct {
	Client    Getter
	Extractor extract.Extractor
	// MaxChars truncates extracted text. Zero means unlimited.
	MaxChars int
	Emitter  telemetry.Emitter
}

// PoolOptions controls FetchAll.
type PoolOptions struct {
	// Workers is the number of concurrent fetches. Zero means DefaultWorkers.
	Workers int
	// StopAfterOK stops handing out candidates once this many ok cards
	// exist. Zero fetches every candidate.
	StopAfterOK int
}

// Progress is reported after every completed fetch.
type Progress struct {
	Done  int
	Total int
	OK    int
	Card  Card
}

var errEmptyText = errors.New("no readable text")

// Fetch retrieves and extracts one page. It never fails: problems are
// recorded on the returned card.
func (f *Fetcher) Fetch(ctx context.Context, r search.Result) Card {
	start := time.Now()
	card := f.fetch(ctx, r)
	telemetry.OrNop(f.Emitter).Emit(telemetry.Debug(telemetry.EventPageFetched, telemetry.Fields{
		"url":         card.URL,
		"status":      string(card.Status),
		"reason":      card.BlockedReason,
		"chars":       len(card.Text),
		"duration_ms": time.Since(start).Milliseconds(),
	}))
	return card
}

func (f *Fetcher) fetch(ctx context.Context, r search.Result) Card {
	card := Card{Result: search.WithDomain(r)}
	client := f.Client
	if client == nil {
		client = &fetch.Client{PerRequestTimeout: fetch.DefaultTimeout}
	}
	body, _, err := client.Get(ctx, r.URL)
	if err != nil {
		return failed(card, err)
	}
	ex := f.Extractor
	if ex == nil {
		ex = extract.New("regex", "heuristic")
	}
	text := truncateRunes(ex.Extract(body).Text, f.MaxChars)
	if reason := extract.DetectBlock(text); reason != "" {
		card.Status = StatusBlocked
		card.BlockedReason = reason
		return card
	}
	if strings.TrimSpace(text) == "" {
		return failed(card, errEmptyText)
	}
	card.Status = StatusOK
	card.Text = text
	return card
}

func failed(card Card, err error) Card {
	card.Status = StatusError
	if fetch.IsTimeout(err) {
		card.Status = StatusTimeout
	}
	card.Error = err.Error()
	card.Text = ""
	return card
}

// FetchAll fetches candidates with a fixed pool of workers pulling from a
// shared cursor. Returned cards keep candidate order; candidates never handed
// out (early stop or cancellation) are omitted. onDone, if set, is called
// after every fetch while the pool's lock is held, so calls never overlap.
func (f *Fetcher) FetchAll(ctx context.Context, candidates []search.Result, opt PoolOptions, onDone func(Progress)) []Card {
	workers := opt.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}
	var (
		mu     sync.Mutex
		cursor int
		done   int
		okN    int
		slots  = make([]*Card, len(candidates))
	)
	next := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(candidates) || ctx.Err() != nil {
			return 0, false
		}
		if opt.StopAfterOK > 0 && okN >= opt.StopAfterOK {
			return 0, false
		}
		i := cursor
		cursor++
		return i, true
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i, ok := next()
				if !ok {
					return nil
				}
				card := f.Fetch(ctx, candidates[i])
				mu.Lock()
				slots[i] = &card
				done++
				if card.OK() {
					okN++
				}
				if onDone != nil {
					onDone(Progress{Done: done, Total: len(candidates), OK: okN, Card: card})
				}
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()

	out := make([]Card, 0, len(candidates))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
