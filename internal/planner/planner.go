package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/webevidence/internal/budget"
	"github.com/hyperifyio/webevidence/internal/llm"
	"github.com/hyperifyio/webevidence/internal/pricing"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

var (
	ErrEmptyPrompt       = errors.New("planner: empty prompt")
	ErrInvalidQueryCount = errors.New("planner: query count must be >= 1")
)

// DepthChoices are the result depths a plan may ask for.
var DepthChoices = []int{15, 30, 50, 100}

// DefaultDepth is used when a plan does not name a depth.
const DefaultDepth = 15

// Input is what the planner decides on.
type Input struct {
	Prompt string
	// Recent carries prior conversation turns for disambiguation.
	Recent      []llm.Message
	Location    string
	CurrentDate string
	QueryCount  int
}

// Validate checks the prompt and query count.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if in.QueryCount < 1 {
		return ErrInvalidQueryCount
	}
	return nil
}

// Usage is the planner call's token use and estimated price.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	EstimatedUSD float64 `json:"estimated_usd"`
}

// Plan represents the structured result from the planner step.
type Plan struct {
	UseWebSearch  bool     `json:"use_web_search"`
	Queries       []string `json:"queries"`
	Reason        string   `json:"reason,omitempty"`
	TargetDepth   int      `json:"target_depth,omitempty"`
	TimeSensitive bool     `json:"time_sensitive,omitempty"`
	Usage         Usage    `json:"-"`
}

// Planner decides whether to search and which queries to run.
type Planner interface {
	Plan(ctx context.Context, in Input) (Plan, error)
}

// Schema constrains the model's reply. target_depth is snapped afterwards,
// so any positive integer validates.
var Schema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["use_web_search", "queries", "reason", "target_depth", "time_sensitive"],
  "properties": {
    "use_web_search": {"type": "boolean"},
    "queries": {"type": "array", "items": {"type": "string"}, "maxItems": 10},
    "reason": {"type": "string"},
    "target_depth": {"type": "integer", "minimum": 1, "description": "one of 15, 30, 50, 100"},
    "time_sensitive": {"type": "boolean"}
  }
}`)

const systemTemplate = `You decide whether a web search would help answer the user's latest message and, if so, write search queries.
Respond with strict JSON only, no narration, matching {"use_web_search": boolean, "queries": string[], "reason": string, "target_depth": 15|30|50|100, "time_sensitive": boolean}.
Write exactly %d diverse, concise queries that a search engine would answer well. Prefer specific entities, dates and places over generic phrasing.
Set use_web_search to false for creative writing, coding help, or anything answerable without fresh facts.
Set time_sensitive to true when the answer depends on current events, prices, weather or schedules.
Today's date is %s.`

// LLMPlanner asks a model for a plan through a structured generation call.
type LLMPlanner struct {
	Generator llm.Generator
	Model     string
	Pricing   pricing.Table
	Emitter   telemetry.Emitter
	// MaxRecent bounds how many prior turns are sent. Zero means 6.
	MaxRecent int
}

// Plan returns an error on call failure or on output that does not match the
// schema, so callers can fall back. A schema failure still reports Usage.
func (p *LLMPlanner) Plan(ctx context.Context, in Input) (Plan, error) {
	if err := in.Validate(); err != nil {
		return Plan{}, err
	}
	if p.Generator == nil {
		return Plan{}, errors.New("planner not configured")
	}
	msgs := p.messages(in)
	resp, err := p.Generator.Generate(ctx, llm.Request{
		Messages:    msgs,
		SchemaName:  "query_plan",
		Schema:      Schema,
		Temperature: 0.1,
		Model:       p.Model,
		EnforceJSON: true,
		MaxTokens:   400,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("planner call: %w", err)
	}
	usage := p.usage(msgs, resp)
	telemetry.OrNop(p.Emitter).Emit(telemetry.Info(telemetry.EventPlannerUsage, telemetry.Fields{
		"model":         p.Model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"cost_usd":      usage.EstimatedUSD,
	}))

	var plan Plan
	if err := llm.ValidateJSON(Schema, resp.Text, &plan); err != nil {
		return Plan{Usage: usage}, fmt.Errorf("parse planner json: %w", err)
	}
	plan.Queries = NormalizeQueries(plan.Queries, in.Prompt, in.QueryCount)
	plan.TargetDepth = SnapDepth(plan.TargetDepth)
	plan.Reason = strings.TrimSpace(plan.Reason)
	plan.Usage = usage
	return plan, nil
}

func (p *LLMPlanner) messages(in Input) []llm.Message {
	date := strings.TrimSpace(in.CurrentDate)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	system := fmt.Sprintf(systemTemplate, in.QueryCount, date)
	if loc := strings.TrimSpace(in.Location); loc != "" {
		system += "\nThe user is located in " + loc + "; localize queries when location matters."
	}
	msgs := []llm.Message{{Role: "system", Content: system}}

	recent := in.Recent
	max := p.MaxRecent
	if max <= 0 {
		max = 6
	}
	if len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	for _, m := range recent {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: budget.TrimToTokens(content, 250)})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: strings.TrimSpace(in.Prompt)})
	return msgs
}

// usage prefers backend reported tokens and estimates from characters when
// the backend reports none.
func (p *LLMPlanner) usage(msgs []llm.Message, resp llm.Response) Usage {
	u := Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		parts := make([]string, 0, len(msgs))
		for _, m := range msgs {
			parts = append(parts, m.Content)
		}
		u.InputTokens = budget.EstimateMessagesTokens(parts...)
		u.OutputTokens = budget.EstimateTokens(resp.Text)
	}
	u.EstimatedUSD = p.Pricing.CostUSD(p.Model, u.InputTokens, u.OutputTokens)
	return u
}

// FallbackPlanner always searches, using the raw prompt as every query.
type FallbackPlanner struct{}

func (FallbackPlanner) Plan(_ context.Context, in Input) (Plan, error) {
	if err := in.Validate(); err != nil {
		return Plan{}, err
	}
	return Plan{
		UseWebSearch: true,
		Queries:      NormalizeQueries(nil, in.Prompt, in.QueryCount),
		Reason:       "fallback",
		TargetDepth:  DefaultDepth,
	}, nil
}

// WithFallback runs Primary and answers with Fallback when it fails. Input
// validation errors are returned as is.
type WithFallback struct {
	Primary  Planner
	Fallback Planner
	Emitter  telemetry.Emitter
}

func (w WithFallback) Plan(ctx context.Context, in Input) (Plan, error) {
	if err := in.Validate(); err != nil {
		return Plan{}, err
	}
	fallback := w.Fallback
	if fallback == nil {
		fallback = FallbackPlanner{}
	}
	if w.Primary == nil {
		return fallback.Plan(ctx, in)
	}
	plan, err := w.Primary.Plan(ctx, in)
	if err == nil {
		return plan, nil
	}
	telemetry.OrNop(w.Emitter).Emit(telemetry.Warn(telemetry.EventPlannerFallback, err, nil))
	fb, ferr := fallback.Plan(ctx, in)
	if ferr != nil {
		return Plan{}, ferr
	}
	fb.Usage = plan.Usage
	return fb, nil
}

// NormalizeQueries trims queries, strips trailing '.' and '?', removes
// case-insensitive duplicates, pads with the prompt up to n and truncates to n.
// Padding may repeat the prompt.
func NormalizeQueries(in []string, prompt string, n int) []string {
	out := sanitizeQueries(in)
	if n < 1 {
		n = 1
	}
	if len(out) > n {
		out = out[:n]
	}
	prompt = strings.TrimSpace(prompt)
	for len(out) < n {
		out = append(out, prompt)
	}
	return out
}

func sanitizeQueries(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, q := range in {
		s := strings.TrimSpace(q)
		s = strings.TrimSuffix(s, ".")
		s = strings.TrimSuffix(s, "?")
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SnapDepth maps d to the nearest of DepthChoices, preferring the smaller on
// ties. Non-positive values become DefaultDepth.
func SnapDepth(d int) int {
	if d <= 0 {
		return DefaultDepth
	}
	best := DepthChoices[0]
	for _, c := range DepthChoices[1:] {
		if abs(c-d) < abs(best-d) {
			best = c
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
