package source

import (
	"github.com/hyperifyio/webevidence/internal/search"
)

// Status is the outcome of one page fetch attempt.
type Status string

const (
	StatusOK      Status = "ok"
	StatusBlocked Status = "blocked"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Card is a search result enriched with its fetched text and scores. Text is
// non-empty exactly when Status is ok; scores stay zero otherwise.
type Card struct {
	search.Result
	Status         Status  `json:"status"`
	BlockedReason  string  `json:"blocked_reason,omitempty"`
	Text           string  `json:"text"`
	RelevanceScore int     `json:"relevance_score"`
	ContentScore   float64 `json:"content_score"`
	// Error holds a short diagnostic for error and timeout cards.
	Error string `json:"error,omitempty"`
}

// OK reports whether the card carries usable text.
func (c Card) OK() bool { return c.Status == StatusOK }

// CountByStatus tallies cards per status.
func CountByStatus(cards []Card) map[Status]int {
	out := map[Status]int{}
	for _, c := range cards {
		out[c.Status]++
	}
	return out
}

// OKCards returns the cards with status ok, in order.
func OKCards(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.OK() {
			out = append(out, c)
		}
	}
	return out
}
