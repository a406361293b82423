package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperifyio/webevidence/internal/budget"
	"github.com/hyperifyio/webevidence/internal/llm"
	"github.com/hyperifyio/webevidence/internal/source"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

// Decision is a gate verdict.
type Decision struct {
	EnoughEvidence bool   `json:"enough_evidence"`
	Reason         string `json:"reason,omitempty"`
}

// Gate judges whether the selected evidence is usable for answering prompt.
// Gates never fail; they degrade to the non-empty check.
type Gate interface {
	Evaluate(ctx context.Context, prompt string, evidence []source.Card) Decision
}

// NonEmptyGate passes whenever there is at least one evidence card.
type NonEmptyGate struct{}

func (NonEmptyGate) Evaluate(_ context.Context, _ string, evidence []source.Card) Decision {
	return Decision{EnoughEvidence: len(evidence) > 0}
}

// GateSchema constrains the LLM gate reply.
var GateSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["enough_evidence", "reason"],
  "properties": {
    "enough_evidence": {"type": "boolean"},
    "reason": {"type": "string"}
  }
}`)

const gateSystem = "You judge whether web excerpts contain enough evidence to answer the user's question. Respond with JSON only: {\"enough_evidence\": boolean, \"reason\": string}."

// LLMGate asks a model for a sufficiency judgment over the evidence excerpts.
type LLMGate struct {
	Generator llm.Generator
	Model     string
	// ExcerptChars bounds each card's excerpt. Zero means 1200.
	ExcerptChars int
	Emitter      telemetry.Emitter
}

func (g *LLMGate) Evaluate(ctx context.Context, prompt string, evidence []source.Card) Decision {
	if len(evidence) == 0 {
		return Decision{EnoughEvidence: false, Reason: "no evidence"}
	}
	if g.Generator == nil {
		return NonEmptyGate{}.Evaluate(ctx, prompt, evidence)
	}
	user := g.userMessage(prompt, evidence)
	resp, err := g.Generator.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: gateSystem},
			{Role: "user", Content: user},
		},
		SchemaName:  "evidence_gate",
		Schema:      GateSchema,
		Temperature: 0,
		Model:       g.Model,
		EnforceJSON: true,
		MaxTokens:   200,
	})
	var d Decision
	if err == nil {
		err = llm.ValidateJSON(GateSchema, resp.Text, &d)
	}
	if err != nil {
		telemetry.OrNop(g.Emitter).Emit(telemetry.Warn(telemetry.EventGateFallback, err, telemetry.Fields{"evidence": len(evidence)}))
		return NonEmptyGate{}.Evaluate(ctx, prompt, evidence)
	}
	return d
}

func (g *LLMGate) userMessage(prompt string, evidence []source.Card) string {
	per := g.ExcerptChars
	if per <= 0 {
		per = 1200
	}
	// Keep the whole message inside the model window.
	avail := budget.RemainingContext(g.Model, 200, budget.EstimateMessagesTokens(gateSystem, prompt))
	perTokens := budget.EstimateTokensFromChars(per)
	if share := avail / len(evidence); share < perTokens {
		perTokens = share
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nExcerpts:\n", strings.TrimSpace(prompt))
	for i, c := range evidence {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, c.Title, c.URL, budget.TrimToTokens(c.Text, perTokens))
	}
	return b.String()
}
