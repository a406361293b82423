package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Isolator narrows a page to its main content region before text conversion.
// Implementations return the input unchanged when nothing matches.
type Isolator interface {
	Isolate(input []byte) []byte
}

// RegexIsolator picks the first <main>, <article>, <section> or content-like
// <div> by pattern matching on raw HTML. It is a best-effort heuristic: nested
// elements of the same tag end the match early.
type RegexIsolator struct{}

var isolatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<main\b[^>]*>.*?</main>`),
	regexp.MustCompile(`(?is)<article\b[^>]*>.*?</article>`),
	regexp.MustCompile(`(?is)<section\b[^>]*>.*?</section>`),
	regexp.MustCompile(`(?is)<div\b[^>]*(?:id|class)\s*=\s*["'][^"']*\b(?:content|main|article|post|entry)\b[^"']*["'][^>]*>.*?</div>`),
}

func (RegexIsolator) Isolate(input []byte) []byte {
	for _, re := range isolatePatterns {
		if loc := re.FindIndex(input); loc != nil {
			return input[loc[0]:loc[1]]
		}
	}
	return input
}

// DOMIsolator parses the page with goquery and returns the outer HTML of the
// first selector whose text reaches MinChars.
type DOMIsolator struct {
	Selectors []string
	MinChars  int
}

// DefaultSelectors is the order DOMIsolator tries without configuration.
var DefaultSelectors = []string{"main", "article", "[role=main]", "#content", ".content", "#main", ".main", ".post", ".entry", "section"}

func (d DOMIsolator) Isolate(input []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return input
	}
	doc.Find("script, style, noscript, iframe").Remove()
	selectors := d.Selectors
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}
	min := d.MinChars
	if min <= 0 {
		min = 200
	}
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 || len(strings.TrimSpace(s.Text())) < min {
			continue
		}
		out, err := goquery.OuterHtml(s)
		if err != nil {
			continue
		}
		return []byte(out)
	}
	return input
}

var titleRe = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)

func rawTitle(input []byte) string {
	m := titleRe.FindSubmatch(input)
	if m == nil {
		return ""
	}
	return normalizeWhitespace(string(m[1]))
}
