package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// openai-stub is a minimal OpenAI-compatible server answering the planner and
// the evidence gate deterministically, for local runs without a model.
func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys, user := "", ""
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				if sys == "" {
					sys = m.Content
				}
			case "user":
				user = strings.TrimSpace(m.Content)
			}
		}
		var reply any
		switch {
		case strings.Contains(sys, "write search queries"):
			reply = map[string]any{
				"use_web_search": true,
				"queries":        []string{user, user + " latest", user + " explained"},
				"reason":         "stub planner",
				"target_depth":   15,
				"time_sensitive": false,
			}
		case strings.Contains(sys, "enough evidence"):
			reply = map[string]any{"enough_evidence": strings.Contains(user, "Excerpts:"), "reason": "stub gate"}
		default:
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}
		content, _ := json.Marshal(reply)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": string(content)}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
