package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one turn of conversation context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single structured generation call.
type Request struct {
	Messages    []Message
	SchemaName  string
	Schema      json.RawMessage
	Temperature float32
	Model       string
	EnforceJSON bool
	MaxTokens   int
	// ExtraParams carries backend specific knobs. Recognized keys are
	// "top_p" (float) and "seed" (int); others are ignored.
	ExtraParams map[string]any
}

// Usage reports token consumption. Zero values mean the backend did not say.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the text produced by the model and its usage.
type Response struct {
	Text  string
	Usage Usage
}

// Generator is the classify-and-generate capability consumed by the planner
// and the evidence gate.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// ErrNoChoices is returned when the backend answers without any choice.
var ErrNoChoices = errors.New("no choices")

// ChatGenerator implements Generator on top of a chat completions Client.
type ChatGenerator struct {
	Client Client
	// Model is used when the request does not name one.
	Model string
}

func (g *ChatGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	if g == nil || g.Client == nil {
		return Response{}, errors.New("generator not configured")
	}
	model := req.Model
	if model == "" {
		model = g.Model
	}
	if model == "" {
		return Response{}, errors.New("generator: model not set")
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	creq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	}
	switch {
	case len(req.Schema) > 0:
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: req.Schema,
				Strict: req.EnforceJSON,
			},
		}
	case req.EnforceJSON:
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	applyExtraParams(&creq, req.ExtraParams)

	resp, err := g.Client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrNoChoices
	}
	return Response{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func applyExtraParams(r *openai.ChatCompletionRequest, params map[string]any) {
	if v, ok := params["top_p"]; ok {
		switch f := v.(type) {
		case float64:
			r.TopP = float32(f)
		case float32:
			r.TopP = f
		}
	}
	if v, ok := params["seed"]; ok {
		if n, ok := v.(int); ok {
			seed := n
			r.Seed = &seed
		}
	}
}
