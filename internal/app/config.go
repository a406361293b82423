package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	Prompt     string
	OutputPath string
	// OutputPDFPath, when set, also renders an evidence digest PDF.
	OutputPDFPath string
	// MetricsPath, when set, receives a Prometheus text dump after each run.
	MetricsPath string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Search
	BrightDataKey      string
	BrightDataZone     string
	BrightDataEndpoint string
	// SerpRatePerSec paces proxy requests. Zero disables pacing.
	SerpRatePerSec float64
	SerpLogRaw     bool
	FileSearchPath string
	GL             string
	HL             string
	Location       string
	CurrentDate    string

	// Planning
	QueryCount      int
	ResultsPerQuery int
	AllowSkip       bool

	// Fetching
	FetchWorkers int
	FetchTimeout time.Duration
	StopAfterOK  int
	Isolation    string
	Converter    string
	MaxChars     int
	UserAgent    string

	// Selection / chunking
	PerDomainCap   int
	EvidencePolicy string
	EvidenceTarget int
	FetchTarget    int
	EvidenceGate   string
	ExcerptMode    string
	ChunkStrategy  string
	ChunkWords     int
	StripTracking  bool
	// MinSnippetChars drops SERP results with shorter descriptions.
	MinSnippetChars int

	PricingPath string
	RunTimeout  time.Duration

	// Behavior
	DryRun  bool
	Verbose bool
}

// Defaults applied by flags when nothing else is set.
const (
	DefaultQueryCount   = 2
	DefaultExcerptMode  = "balanced"
	DefaultIsolation    = "regex"
	DefaultUserAgent    = "webevidence/1.0 (+https://github.com/hyperifyio/webevidence)"
	DefaultFetchTimeout = 3 * time.Second
)
