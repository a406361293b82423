package extract

import (
	"regexp"

	"github.com/k3a/html2text"
)

// Extractor defines a minimal interface for content extraction strategies.
type Extractor interface {
	// Extract converts raw HTML bytes into a simplified Document.
	Extract(input []byte) Document
}

// HeuristicExtractor walks the DOM with FromHTML.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(input []byte) Document {
	return FromHTML(input)
}

var nonContentRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)>`)

// PlainExtractor converts the whole document with html2text after removing
// script, style and noscript blocks.
type PlainExtractor struct{}

func (PlainExtractor) Extract(input []byte) Document {
	cleaned := nonContentRe.ReplaceAll(input, nil)
	return Document{
		Title: rawTitle(input),
		Text:  normalizeWhitespace(html2text.HTML2Text(string(cleaned))),
	}
}

// Isolated runs Isolator before Extractor. The page title is taken from the
// full document since isolation usually drops <head>.
type Isolated struct {
	Isolator  Isolator
	Extractor Extractor
}

func (i Isolated) Extract(input []byte) Document {
	inner := i.Extractor
	if inner == nil {
		inner = HeuristicExtractor{}
	}
	if i.Isolator == nil {
		return inner.Extract(input)
	}
	doc := inner.Extract(i.Isolator.Isolate(input))
	if doc.Title == "" {
		doc.Title = rawTitle(input)
	}
	return doc
}

// New returns the extractor for a named isolation mode: "regex" (default),
// "dom" or "none", and a converter: "heuristic" (default) or "plain".
func New(isolation, converter string) Extractor {
	var conv Extractor = HeuristicExtractor{}
	if converter == "plain" {
		conv = PlainExtractor{}
	}
	switch isolation {
	case "none":
		return conv
	case "dom":
		return Isolated{Isolator: DOMIsolator{}, Extractor: conv}
	default:
		return Isolated{Isolator: RegexIsolator{}, Extractor: conv}
	}
}
