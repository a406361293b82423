package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/webevidence/internal/evidence"
	"github.com/hyperifyio/webevidence/internal/extract"
	"github.com/hyperifyio/webevidence/internal/fetch"
	"github.com/hyperifyio/webevidence/internal/llm"
	"github.com/hyperifyio/webevidence/internal/pipeline"
	"github.com/hyperifyio/webevidence/internal/planner"
	"github.com/hyperifyio/webevidence/internal/pricing"
	"github.com/hyperifyio/webevidence/internal/search"
	"github.com/hyperifyio/webevidence/internal/source"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

type App struct {
	cfg      Config
	ai       *llm.OpenAIProvider
	planner  planner.Planner
	pipeline *pipeline.Pipeline
	stdout   io.Writer
}

// ErrNoUsableSources is returned when a run that searched ends up with zero
// evidence cards. The CLI maps it to a non-zero exit code.
var ErrNoUsableSources = errors.New("no usable sources")

func New(ctx context.Context, cfg Config) (*App, error) {
	table, err := pricing.Load(cfg.PricingPath)
	if err != nil {
		return nil, fmt.Errorf("load pricing: %w", err)
	}
	em := telemetry.Multi(telemetry.LogEmitter{}, telemetry.MetricsEmitter{})
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	httpClient := newFetchHTTPClient(cfg.FetchWorkers, timeout)

	a := &App{cfg: cfg, stdout: os.Stdout}

	var gen llm.Generator
	if strings.TrimSpace(cfg.LLMModel) != "" {
		a.ai = llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey)
		gen = &llm.ChatGenerator{Client: a.ai, Model: cfg.LLMModel}
		a.planner = planner.WithFallback{
			Primary: &planner.LLMPlanner{Generator: gen, Model: cfg.LLMModel, Pricing: table, Emitter: em},
			Emitter: em,
		}
		a.preflight(ctx)
	} else {
		log.Warn().Msg("no LLM model configured; planning with the raw prompt")
		a.planner = planner.FallbackPlanner{}
	}

	var gate evidence.Gate
	if cfg.EvidenceGate == "llm" && gen != nil {
		gate = &evidence.LLMGate{Generator: gen, Model: cfg.LLMModel, Emitter: em}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	fetcher := &source.Fetcher{
		Client: &fetch.Client{
			HTTPClient:        httpClient,
			UserAgent:         ua,
			MaxAttempts:       2,
			PerRequestTimeout: timeout,
			RedirectMaxHops:   5,
		},
		Extractor: extract.New(cfg.Isolation, cfg.Converter),
		MaxChars:  cfg.MaxChars,
		Emitter:   em,
	}

	a.pipeline = &pipeline.Pipeline{
		Planner: a.planner,
		Search:  newSearchProvider(cfg, httpClient, em),
		Fetcher: fetcher,
		Gate:    gate,
		Pricing: &table,
		Emitter: em,
	}
	return a, nil
}

func newSearchProvider(cfg Config, httpClient *http.Client, em telemetry.Emitter) search.Provider {
	if strings.TrimSpace(cfg.FileSearchPath) != "" {
		return &search.FileProvider{Path: cfg.FileSearchPath}
	}
	bd := &search.BrightData{
		APIKey:     cfg.BrightDataKey,
		Zone:       cfg.BrightDataZone,
		Endpoint:   cfg.BrightDataEndpoint,
		HTTPClient: httpClient,
		LogRaw:     cfg.SerpLogRaw,
		Emitter:    em,
	}
	if cfg.SerpRatePerSec > 0 {
		bd.Limiter = rate.NewLimiter(rate.Limit(cfg.SerpRatePerSec), 1)
	}
	if !bd.Enabled() {
		log.Warn().Msg("Bright Data credentials missing; search returns no results")
	}
	return bd
}

// preflight lists models as a best-effort connectivity check.
func (a *App) preflight(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.ai.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
}

func (a *App) Close() {
	// nothing yet
}

func (a *App) options() pipeline.Options {
	return pipeline.Options{
		CurrentDate:     a.cfg.CurrentDate,
		Location:        a.cfg.Location,
		GL:              a.cfg.GL,
		HL:              a.cfg.HL,
		QueryCount:      a.cfg.QueryCount,
		ResultsPerQuery: a.cfg.ResultsPerQuery,
		ExcerptMode:     a.cfg.ExcerptMode,
		ChunkWords:      a.cfg.ChunkWords,
		ChunkStrategy:   a.cfg.ChunkStrategy,
		EvidencePolicy:  evidence.ParsePolicy(a.cfg.EvidencePolicy),
		EvidenceTarget:  a.cfg.EvidenceTarget,
		FetchTarget:     a.cfg.FetchTarget,
		PerDomain:       a.cfg.PerDomainCap,
		MinSnippetChars: a.cfg.MinSnippetChars,
		StripTracking:   a.cfg.StripTracking,
		StopAfterOK:     a.cfg.StopAfterOK,
		Workers:         a.cfg.FetchWorkers,
		AllowSkip:       a.cfg.AllowSkip,
		Timeout:         a.cfg.RunTimeout,
		OnSearchStart: func(label string) {
			log.Info().Str("queries", label).Msg("searching the web")
		},
		OnProgress: func(p source.Progress) {
			log.Debug().Int("done", p.Done).Int("total", p.Total).Int("ok", p.OK).Str("url", p.Card.URL).Msg("fetched")
		},
	}
}

// Run executes one retrieval and writes the JSON result to the configured
// output. In dry-run mode only the query plan is written. Metrics are dumped
// afterwards when MetricsPath is set, whatever the outcome.
func (a *App) Run(ctx context.Context) error {
	err := a.run(ctx)
	if a.cfg.MetricsPath != "" {
		if merr := telemetry.WriteTextfile(a.cfg.MetricsPath, nil); merr != nil {
			log.Warn().Err(merr).Str("out", a.cfg.MetricsPath).Msg("write metrics failed")
			if err == nil {
				err = fmt.Errorf("write metrics: %w", merr)
			}
		}
	}
	return err
}

func (a *App) run(ctx context.Context) error {
	if a.cfg.DryRun {
		plan, err := a.planner.Plan(ctx, planner.Input{
			Prompt:      a.cfg.Prompt,
			Location:    a.cfg.Location,
			CurrentDate: a.cfg.CurrentDate,
			QueryCount:  a.cfg.QueryCount,
		})
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		if err := a.writeJSON(plan); err != nil {
			return err
		}
		log.Info().Int("queries", len(plan.Queries)).Msg("wrote dry-run plan")
		return nil
	}

	res, runErr := a.pipeline.Run(ctx, a.cfg.Prompt, a.options())
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("pipeline: %w", runErr)
	}
	if err := a.writeJSON(res); err != nil {
		return err
	}
	if a.cfg.OutputPDFPath != "" {
		if err := writeSimplePDF(renderDigest(a.cfg.Prompt, res), a.cfg.OutputPDFPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote evidence digest")
	}
	log.Info().Str("run", res.RunID).Msg(res.Label())
	if runErr != nil {
		return runErr
	}
	if !res.Skipped && len(res.Evidence) == 0 {
		return ErrNoUsableSources
	}
	return nil
}

func (a *App) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	if a.cfg.OutputPath == "" || a.cfg.OutputPath == "-" {
		_, err = a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(a.cfg.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", a.cfg.OutputPath).Msg("wrote output")
	return nil
}
