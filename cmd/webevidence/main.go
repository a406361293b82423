package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webevidence/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath      string
		envFiles        string
		prompt          string
		outputPath      string
		outputPDF       string
		metricsOut      string
		llmBaseURL      string
		llmModel        string
		llmKey          string
		bdKey           string
		bdZone          string
		bdEndpoint      string
		serpRate        float64
		serpLogRaw      bool
		fileSearchPath  string
		gl              string
		hl              string
		location        string
		currentDate     string
		queryCount      int
		resultsPerQuery int
		allowSkip       bool
		workers         int
		fetchTimeout    time.Duration
		stopAfterOK     int
		isolation       string
		converter       string
		maxChars        int
		perDomain       int
		minSnippet      int
		evidencePolicy  string
		evidenceTarget  int
		fetchTarget     int
		evidenceGate    string
		excerptMode     string
		chunkStrategy   string
		chunkWords      int
		stripTracking   bool
		pricingPath     string
		runTimeout      time.Duration
		dryRun          bool
		verbose         bool
		showVersion     bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("WEBEVIDENCE_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	flag.StringVar(&prompt, "prompt", "", "User prompt (defaults to the remaining arguments)")
	flag.StringVar(&outputPath, "output", "-", "Path to write the JSON result, - for stdout")
	flag.StringVar(&outputPDF, "output.pdf", "", "Optional path to write an evidence digest PDF")
	flag.StringVar(&metricsOut, "metrics.out", "", "Optional path to write Prometheus metrics in text format after the run")
	flag.StringVar(&llmBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", "", "Model name for planning and the llm evidence gate")
	flag.StringVar(&llmKey, "llm.key", "", "API key for the OpenAI-compatible server")
	flag.StringVar(&bdKey, "brightdata.key", "", "Bright Data API key (or BRIGHTDATA_API_KEY)")
	flag.StringVar(&bdZone, "brightdata.zone", "", "Bright Data SERP zone (or BRIGHTDATA_SERP_ZONE)")
	flag.StringVar(&bdEndpoint, "brightdata.endpoint", "", "Bright Data request API endpoint override")
	flag.Float64Var(&serpRate, "serp.rate", 0, "Maximum SERP proxy requests per second (0 disables pacing)")
	flag.BoolVar(&serpLogRaw, "serp.logRaw", false, "Log every raw SERP proxy response at debug level")
	flag.StringVar(&fileSearchPath, "search.file", "", "Serve search results from a local JSON file instead of Bright Data")
	flag.StringVar(&gl, "gl", "", "Google country hint, e.g. us or fi")
	flag.StringVar(&hl, "hl", "", "Google interface language hint, e.g. en or fi")
	flag.StringVar(&location, "location", "", "User location hint for the planner")
	flag.StringVar(&currentDate, "date", "", "Current date for the planner (default today)")
	flag.IntVar(&queryCount, "queries", app.DefaultQueryCount, "Number of search queries to plan")
	flag.IntVar(&resultsPerQuery, "results", 0, "Results per query (0 uses the planner's depth)")
	flag.BoolVar(&allowSkip, "allow-skip", false, "Skip searching when the planner says search does not help")
	flag.IntVar(&workers, "fetch.workers", 0, "Concurrent page fetches (0 uses 12)")
	flag.DurationVar(&fetchTimeout, "fetch.timeout", app.DefaultFetchTimeout, "Per-page fetch timeout")
	flag.IntVar(&stopAfterOK, "fetch.stopAfterOK", 0, "Stop fetching after this many usable pages (0 fetches all)")
	flag.StringVar(&isolation, "fetch.isolation", app.DefaultIsolation, "Main content isolation: regex, dom or none")
	flag.StringVar(&converter, "fetch.converter", "", "HTML to text converter: heuristic or plain")
	flag.IntVar(&maxChars, "fetch.maxChars", 0, "Truncate page text to this many characters (0 keeps all)")
	flag.IntVar(&perDomain, "select.perDomain", 0, "Maximum results per domain (0 is unlimited)")
	flag.IntVar(&minSnippet, "select.minSnippet", 0, "Drop results whose snippet is shorter than this many characters")
	flag.StringVar(&evidencePolicy, "evidence.policy", "", "Evidence policy: baseline, domain_capped or target")
	flag.IntVar(&evidenceTarget, "evidence.target", 0, "Evidence count for the target policy")
	flag.IntVar(&fetchTarget, "evidence.fetchTarget", 0, "Fallback evidence count for the target policy")
	flag.StringVar(&evidenceGate, "evidence.gate", "", "Evidence gate: nonempty or llm")
	flag.StringVar(&excerptMode, "chunk.mode", app.DefaultExcerptMode, "Excerpt mode: snippets, balanced or rich")
	flag.StringVar(&chunkStrategy, "chunk.strategy", "", "Chunk strategy: sequential, start, keyword or dual")
	flag.IntVar(&chunkWords, "chunk.words", 0, "Words per sequential chunk (0 uses 1000)")
	flag.BoolVar(&stripTracking, "strip-tracking", false, "Remove utm and click id parameters from result URLs")
	flag.StringVar(&pricingPath, "pricing", "", "YAML pricing table overriding built-in prices")
	flag.DurationVar(&runTimeout, "timeout", 0, "Overall pipeline deadline (0 disables)")
	flag.BoolVar(&dryRun, "dry-run", false, "Plan queries only, without searching")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString())
		return
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = strings.Join(flag.Args(), " ")
	}

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		log.Warn().Err(err).Msg("load env files")
	}

	cfg := app.Config{
		Prompt:             prompt,
		OutputPath:         outputPath,
		OutputPDFPath:      outputPDF,
		MetricsPath:        metricsOut,
		LLMBaseURL:         llmBaseURL,
		LLMModel:           llmModel,
		LLMAPIKey:          llmKey,
		BrightDataKey:      bdKey,
		BrightDataZone:     bdZone,
		BrightDataEndpoint: bdEndpoint,
		SerpRatePerSec:     serpRate,
		SerpLogRaw:         serpLogRaw,
		FileSearchPath:     fileSearchPath,
		GL:                 gl,
		HL:                 hl,
		Location:           location,
		CurrentDate:        currentDate,
		QueryCount:         queryCount,
		ResultsPerQuery:    resultsPerQuery,
		AllowSkip:          allowSkip,
		FetchWorkers:       workers,
		FetchTimeout:       fetchTimeout,
		StopAfterOK:        stopAfterOK,
		Isolation:          isolation,
		Converter:          converter,
		MaxChars:           maxChars,
		UserAgent:          app.DefaultUserAgent,
		PerDomainCap:       perDomain,
		MinSnippetChars:    minSnippet,
		EvidencePolicy:     evidencePolicy,
		EvidenceTarget:     evidenceTarget,
		FetchTarget:        fetchTarget,
		EvidenceGate:       evidenceGate,
		ExcerptMode:        excerptMode,
		ChunkStrategy:      chunkStrategy,
		ChunkWords:         chunkWords,
		StripTracking:      stripTracking,
		PricingPath:        pricingPath,
		RunTimeout:         runTimeout,
		DryRun:             dryRun,
		Verbose:            verbose,
	}

	// Precedence: flags, then env, then config file.
	app.ApplyEnvToConfig(&cfg)
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// No usable evidence exits 3 so wrappers can tell it from hard failures.
		if errors.Is(err, app.ErrNoUsableSources) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
