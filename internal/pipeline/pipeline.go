package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/webevidence/internal/aggregate"
	"github.com/hyperifyio/webevidence/internal/chunk"
	"github.com/hyperifyio/webevidence/internal/evidence"
	"github.com/hyperifyio/webevidence/internal/llm"
	"github.com/hyperifyio/webevidence/internal/planner"
	"github.com/hyperifyio/webevidence/internal/pricing"
	"github.com/hyperifyio/webevidence/internal/score"
	"github.com/hyperifyio/webevidence/internal/search"
	selecter "github.com/hyperifyio/webevidence/internal/select"
	"github.com/hyperifyio/webevidence/internal/source"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

// ErrEmptyPrompt is returned by Run when the prompt is blank.
var ErrEmptyPrompt = errors.New("pipeline: empty prompt")

// DefaultQueryCount is used when Options.QueryCount is not set.
const DefaultQueryCount = 2

// State names reported through pipeline.state events.
const (
	StateStart     = "start"
	StatePlanning  = "planning"
	StateSkip      = "skip"
	StateSearching = "searching"
	StateFetching  = "fetching"
	StateScoring   = "scoring"
	StateSelecting = "selecting"
	StateChunking  = "chunking"
	StateDone      = "done"
)

// Skip reasons.
const (
	SkipPlanner   = "planner"
	SkipNoResults = "no_results"
)

// Pipeline wires the stages together. Planner and Search are required;
// the rest fall back to defaults.
type Pipeline struct {
	Planner planner.Planner
	Search  search.Provider
	Fetcher *source.Fetcher
	// Gate decides EnoughEvidence. Nil means evidence.NonEmptyGate.
	Gate evidence.Gate
	// Pricing prices SERP requests. Nil means pricing.Default().
	Pricing *pricing.Table
	Emitter telemetry.Emitter
}

// Options are the per-run knobs.
type Options struct {
	CurrentDate string
	Location    string
	GL          string
	HL          string
	Recent      []llm.Message
	// QueryCount is the number of planned queries. Zero means DefaultQueryCount.
	QueryCount int
	// ResultsPerQuery overrides the planner's target depth when positive.
	ResultsPerQuery int

	// ExcerptMode is snippets, balanced or rich.
	ExcerptMode   string
	ChunkWords    int
	ChunkStrategy string
	// MaxChars truncates page text before scoring. Zero keeps full text.
	MaxChars int

	EvidencePolicy evidence.Policy
	EvidenceTarget int
	FetchTarget    int
	PerDomain      int
	StripTracking  bool
	// MinSnippetChars drops results with shorter descriptions before fetching.
	MinSnippetChars int

	// StopAfterOK stops fetching once this many ok pages exist.
	StopAfterOK int
	Workers     int

	AllowSkip bool
	// Timeout bounds the whole run when positive.
	Timeout time.Duration

	OnSearchStart func(label string)
	OnProgress    func(source.Progress)
}

// SourceRef is a citation entry.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// GateResult is the evidence sufficiency outcome.
type GateResult struct {
	EnoughEvidence bool   `json:"enough_evidence"`
	Reason         string `json:"reason,omitempty"`
}

// Cost reports billable work. Unlocker fields and CacheHits are reserved and
// always zero.
type Cost struct {
	SerpRequests         int     `json:"serp_requests"`
	SerpEstimatedUSD     float64 `json:"serp_estimated_usd"`
	UnlockerRequests     int     `json:"unlocker_requests"`
	UnlockerEstimatedUSD float64 `json:"unlocker_estimated_usd"`
	CacheHits            int     `json:"cache_hits"`
}

// Stats counts fetch outcomes.
type Stats struct {
	Candidates int `json:"candidates"`
	Fetched    int `json:"fetched"`
	OK         int `json:"ok"`
	Blocked    int `json:"blocked"`
	Timeout    int `json:"timeout"`
	Error      int `json:"error"`
}

// Result is what a run returns.
type Result struct {
	RunID         string          `json:"run_id"`
	Queries       []string        `json:"queries"`
	Results       []search.Result `json:"results"`
	Chunks        []chunk.Chunk   `json:"chunks"`
	Sources       []SourceRef     `json:"sources"`
	Gate          GateResult      `json:"gate"`
	Skipped       bool            `json:"skipped"`
	SkipReason    string          `json:"skip_reason,omitempty"`
	TimeSensitive bool            `json:"time_sensitive,omitempty"`
	Cost          Cost            `json:"cost"`
	PlannerCost   planner.Usage   `json:"planner_cost"`
	Stats         Stats           `json:"stats"`
	// Evidence holds the selected cards; it is not part of the wire result.
	Evidence []source.Card `json:"-"`
}

type run struct {
	id    string
	em    telemetry.Emitter
	start time.Time
}

func (r *run) state(name string, fields telemetry.Fields) {
	if fields == nil {
		fields = telemetry.Fields{}
	}
	fields["run_id"] = r.id
	fields["state"] = name
	r.em.Emit(telemetry.Info(telemetry.EventPipelineState, fields))
}

func (r *run) finish(res *Result, outcome string) {
	r.state(StateDone, telemetry.Fields{"outcome": outcome})
	r.em.Emit(telemetry.Info(telemetry.EventPipelineDone, telemetry.Fields{
		"run_id":           r.id,
		"outcome":          outcome,
		"duration_seconds": time.Since(r.start).Seconds(),
		"serp_requests":    res.Cost.SerpRequests,
		"serp_cost_usd":    res.Cost.SerpEstimatedUSD,
		"chunks":           len(res.Chunks),
	}))
}

// Run executes one retrieval. It returns an error only for a blank prompt or
// when ctx ends; in the latter case the partial result is returned as well.
func (p *Pipeline) Run(ctx context.Context, prompt string, opt Options) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}
	if p.Planner == nil || p.Search == nil {
		return Result{}, errors.New("pipeline not configured")
	}
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
	}
	queryCount := opt.QueryCount
	if queryCount <= 0 {
		queryCount = DefaultQueryCount
	}

	r := &run{id: uuid.NewString(), em: telemetry.OrNop(p.Emitter), start: time.Now()}
	res := Result{RunID: r.id, Results: []search.Result{}, Chunks: []chunk.Chunk{}, Sources: []SourceRef{}}
	r.state(StateStart, telemetry.Fields{"query_count": queryCount})

	r.state(StatePlanning, nil)
	plan, err := p.Planner.Plan(ctx, planner.Input{
		Prompt:      prompt,
		Recent:      opt.Recent,
		Location:    opt.Location,
		CurrentDate: opt.CurrentDate,
		QueryCount:  queryCount,
	})
	if err != nil {
		// Planners wrapped in WithFallback only fail on bad input; anything
		// else still searches with the prompt.
		r.em.Emit(telemetry.Warn(telemetry.EventPlannerFallback, err, telemetry.Fields{"run_id": r.id}))
		plan, _ = planner.FallbackPlanner{}.Plan(ctx, planner.Input{Prompt: prompt, QueryCount: queryCount})
	}
	res.Queries = planner.NormalizeQueries(plan.Queries, prompt, queryCount)
	res.TimeSensitive = plan.TimeSensitive
	res.PlannerCost = plan.Usage

	if !plan.UseWebSearch && opt.AllowSkip {
		res.Skipped = true
		res.SkipReason = SkipPlanner
		if plan.Reason != "" {
			res.SkipReason = SkipPlanner + ": " + plan.Reason
		}
		r.state(StateSkip, telemetry.Fields{"reason": res.SkipReason})
		r.finish(&res, "skipped")
		return res, nil
	}

	if opt.OnSearchStart != nil {
		opt.OnSearchStart(strings.Join(res.Queries, " | "))
	}
	r.state(StateSearching, telemetry.Fields{"queries": len(res.Queries), "provider": p.Search.Name()})
	perQuery := opt.ResultsPerQuery
	if perQuery <= 0 {
		perQuery = plan.TargetDepth
	}
	perQuery = search.ClampDepth(perQuery)
	groups := make([][]search.Result, 0, len(res.Queries))
	for _, q := range res.Queries {
		if ctx.Err() != nil {
			break
		}
		page, serr := p.Search.Search(ctx, search.Request{Query: q, Depth: perQuery, GL: opt.GL, HL: opt.HL})
		res.Cost.SerpRequests += page.RequestCount
		if serr != nil {
			r.em.Emit(telemetry.Warn(telemetry.EventSerpHTTPError, serr, telemetry.Fields{"run_id": r.id, "query": q}))
		}
		groups = append(groups, page.Results)
	}
	res.Cost.SerpEstimatedUSD = p.pricing().SerpCostUSD(res.Cost.SerpRequests)
	if err := ctx.Err(); err != nil {
		r.finish(&res, "cancelled")
		return res, err
	}

	merged := aggregate.Merge(groups)
	if opt.StripTracking {
		merged = aggregate.StripTracking(merged)
	}
	working := selecter.Select(merged, selecter.Options{
		MaxTotal:        selecter.WorkingSetCap(perQuery, len(res.Queries)),
		PerDomain:       opt.PerDomain,
		MinSnippetChars: opt.MinSnippetChars,
	})
	res.Results = working
	if len(working) == 0 {
		if opt.AllowSkip {
			res.Skipped = true
			res.SkipReason = SkipNoResults
			r.state(StateSkip, telemetry.Fields{"reason": SkipNoResults})
		}
		res.Gate = GateResult{EnoughEvidence: false, Reason: "no results"}
		r.finish(&res, "empty")
		return res, nil
	}

	r.state(StateFetching, telemetry.Fields{"candidates": len(working)})
	fetcher := p.fetcher(opt)
	cards := fetcher.FetchAll(ctx, working, source.PoolOptions{Workers: opt.Workers, StopAfterOK: opt.StopAfterOK}, opt.OnProgress)
	res.Stats = statsOf(len(working), cards)
	if err := ctx.Err(); err != nil {
		r.finish(&res, "cancelled")
		return res, err
	}

	r.state(StateScoring, telemetry.Fields{"ok": res.Stats.OK})
	keywords := score.Keywords(strings.Join(res.Queries, " "), score.MaxKeywords)
	score.ScoreCards(cards, keywords)

	r.state(StateSelecting, telemetry.Fields{"policy": string(opt.EvidencePolicy)})
	picked := evidence.Select(cards, evidence.Options{
		Policy:      opt.EvidencePolicy,
		SerpCount:   len(working),
		Target:      opt.EvidenceTarget,
		FetchTarget: opt.FetchTarget,
	})
	res.Evidence = picked
	for _, c := range picked {
		res.Sources = append(res.Sources, SourceRef{Title: c.Title, URL: c.URL})
	}
	d := p.gate().Evaluate(ctx, prompt, picked)
	res.Gate = GateResult{EnoughEvidence: d.EnoughEvidence, Reason: d.Reason}

	r.state(StateChunking, telemetry.Fields{"evidence": len(picked)})
	strategy := chunk.New(opt.ChunkStrategy, opt.ExcerptMode, opt.ChunkWords)
	if chunks := chunk.FromCards(picked, keywords, strategy); len(chunks) > 0 {
		res.Chunks = chunks
	}

	outcome := "ok"
	if !res.Gate.EnoughEvidence {
		outcome = "insufficient"
	}
	r.finish(&res, outcome)
	return res, nil
}

func (p *Pipeline) pricing() pricing.Table {
	if p.Pricing != nil {
		return *p.Pricing
	}
	return pricing.Default()
}

func (p *Pipeline) gate() evidence.Gate {
	if p.Gate != nil {
		return p.Gate
	}
	return evidence.NonEmptyGate{}
}

// fetcher returns a per-run copy so option overrides never touch the shared
// Fetcher.
func (p *Pipeline) fetcher(opt Options) *source.Fetcher {
	var f source.Fetcher
	if p.Fetcher != nil {
		f = *p.Fetcher
	}
	if opt.MaxChars > 0 {
		f.MaxChars = opt.MaxChars
	}
	if f.Emitter == nil {
		f.Emitter = p.Emitter
	}
	return &f
}

func statsOf(candidates int, cards []source.Card) Stats {
	by := source.CountByStatus(cards)
	return Stats{
		Candidates: candidates,
		Fetched:    len(cards),
		OK:         by[source.StatusOK],
		Blocked:    by[source.StatusBlocked],
		Timeout:    by[source.StatusTimeout],
		Error:      by[source.StatusError],
	}
}

// Label formats a result for one-line summaries.
func (r Result) Label() string {
	if r.Skipped {
		return fmt.Sprintf("skipped (%s)", r.SkipReason)
	}
	return fmt.Sprintf("%d results, %d ok, %d chunks, enough=%t", len(r.Results), r.Stats.OK, len(r.Chunks), r.Gate.EnoughEvidence)
}
