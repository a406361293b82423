package score

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/hyperifyio/webevidence/internal/source"
)

// MaxKeywords bounds the keyword list derived per run.
const MaxKeywords = 20

// Content score weights: keyword density contributes up to KeywordCap and
// numeric token density up to NumericCap, each after scaling.
const (
	KeywordDensityScale = 10.0
	NumericDensityScale = 4.0
	KeywordCap          = 0.6
	NumericCap          = 0.4
)

// fold case-folds s. Casers hold state, so each call gets its own.
func fold(s string) string { return cases.Fold().String(s) }

// Keywords extracts up to max distinct, case-folded, stopword-filtered tokens
// of at least three characters in order of first appearance. max <= 0 means
// MaxKeywords.
func Keywords(text string, max int) []string {
	if max <= 0 {
		max = MaxKeywords
	}
	seen := map[string]struct{}{}
	var out []string
	for _, tok := range tokens(text) {
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) >= max {
			break
		}
	}
	return out
}

// KeywordScore sums substring occurrence counts of every keyword in the
// lower-cased title and body.
func KeywordScore(title, body string, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	hay := fold(title + " " + body)
	total := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		total += strings.Count(hay, kw)
	}
	return total
}

// ContentScore blends keyword density with numeric token density into [0,1].
// Pages with prices or statistics score above prose of equal relevance.
func ContentScore(text string, keywords []string) float64 {
	toks := tokens(text)
	if len(toks) == 0 {
		return 0
	}
	kw := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		kw[k] = struct{}{}
	}
	var kwHits, numeric int
	for _, t := range toks {
		if _, ok := kw[t]; ok {
			kwHits++
		}
		if hasDigit(t) {
			numeric++
		}
	}
	n := float64(len(toks))
	kd := math.Min(float64(kwHits)/n*KeywordDensityScale, KeywordCap)
	nd := math.Min(float64(numeric)/n*NumericDensityScale, NumericCap)
	return kd + nd
}

// ScoreCards sets both scores on ok cards in place and zeroes the rest.
func ScoreCards(cards []source.Card, keywords []string) {
	for i := range cards {
		c := &cards[i]
		if !c.OK() {
			c.RelevanceScore = 0
			c.ContentScore = 0
			continue
		}
		c.RelevanceScore = KeywordScore(c.Title, c.Text, keywords)
		c.ContentScore = ContentScore(c.Text, keywords)
	}
}

func tokens(text string) []string {
	return strings.FieldsFunc(fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from
further had has have having he her here hers herself him himself his how i if in into is it its itself
just me more most my myself no nor not now of off on once only or other our ours ourselves out over own
right same she should so some such than that the their theirs them themselves then there these they
this those through to too under until up very was we were what whats when where which while who whom
why will with would you your yours yourself yourselves also get got like make many much new one two
please tell show give find best latest current today`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
