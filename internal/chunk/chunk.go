package chunk

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/hyperifyio/webevidence/internal/source"
)

// Window sizes in words.
const (
	ExcerptWords       = 400
	KeywordWindowWords = 120
	DefaultChunkWords  = 1000
)

// Chunk is a bounded excerpt tied to the page it came from.
type Chunk struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Domain string `json:"domain"`
	Score  int    `json:"score"`
}

// Strategy cuts a page's text into excerpts.
type Strategy interface {
	Excerpts(text string, keywords []string) []string
	// MaxPerSource bounds len(Excerpts(...)) for any input.
	MaxPerSource() int
}

// StartWindow takes the first Words words verbatim.
type StartWindow struct {
	Words int
}

func (s StartWindow) MaxPerSource() int { return 1 }

func (s StartWindow) Excerpts(text string, _ []string) []string {
	spans := wordSpans(text)
	if len(spans) == 0 {
		return nil
	}
	return []string{slice(text, spans, 0, orDefault(s.Words, ExcerptWords))}
}

// KeywordWindow finds the WindowWords-word window with the most keyword hits
// and widens it symmetrically to Words words. Without any hit it behaves like
// StartWindow.
type KeywordWindow struct {
	WindowWords int
	Words       int
}

func (k KeywordWindow) MaxPerSource() int { return 1 }

func (k KeywordWindow) Excerpts(text string, keywords []string) []string {
	spans := wordSpans(text)
	if len(spans) == 0 {
		return nil
	}
	start, end := k.window(text, spans, keywords)
	return []string{slice(text, spans, start, end-start)}
}

func (k KeywordWindow) window(text string, spans [][2]int, keywords []string) (int, int) {
	n := len(spans)
	total := orDefault(k.Words, ExcerptWords)
	win := orDefault(k.WindowWords, KeywordWindowWords)
	if win > n {
		win = n
	}
	// Keywords arrive case-folded, so words are folded the same way.
	folder := cases.Fold()
	hits := make([]int, n+1)
	for i, sp := range spans {
		hits[i+1] = hits[i]
		if matchesAny(folder.String(text[sp[0]:sp[1]]), keywords) {
			hits[i+1]++
		}
	}
	best, bestAt := 0, 0
	for i := 0; i+win <= n; i++ {
		if h := hits[i+win] - hits[i]; h > best {
			best, bestAt = h, i
		}
	}
	if total >= n {
		return 0, n
	}
	start := bestAt + win/2 - total/2
	if start < 0 {
		start = 0
	}
	if start+total > n {
		start = n - total
	}
	return start, start + total
}

// Dual returns the start window and the keyword window, or just one when
// both cover the same words.
type Dual struct {
	Start   StartWindow
	Keyword KeywordWindow
}

func (d Dual) MaxPerSource() int { return 2 }

func (d Dual) Excerpts(text string, keywords []string) []string {
	spans := wordSpans(text)
	if len(spans) == 0 {
		return nil
	}
	startWords := orDefault(d.Start.Words, ExcerptWords)
	if startWords > len(spans) {
		startWords = len(spans)
	}
	ks, ke := d.Keyword.window(text, spans, keywords)
	out := []string{slice(text, spans, 0, startWords)}
	if ks != 0 || ke != startWords {
		out = append(out, slice(text, spans, ks, ke-ks))
	}
	return out
}

// Sequential splits text into up to ChunkCount consecutive slices of
// ChunkWords words from the start, stopping when the text runs out.
type Sequential struct {
	ChunkWords int
	ChunkCount int
}

func (s Sequential) MaxPerSource() int { return orDefault(s.ChunkCount, 1) }

func (s Sequential) Excerpts(text string, _ []string) []string {
	spans := wordSpans(text)
	size := orDefault(s.ChunkWords, DefaultChunkWords)
	count := orDefault(s.ChunkCount, 1)
	var out []string
	for i := 0; i < count && i*size < len(spans); i++ {
		out = append(out, slice(text, spans, i*size, size))
	}
	return out
}

// ModeChunkCount maps an excerpt mode to a chunk count: snippets 1,
// balanced 2, rich 4. Unknown modes count as balanced.
func ModeChunkCount(mode string) int {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "snippets":
		return 1
	case "rich":
		return 4
	default:
		return 2
	}
}

// New builds a strategy by name: "start", "keyword", "dual" or "sequential"
// (default). chunkWords overrides the sequential slice size when positive.
func New(name, mode string, chunkWords int) Strategy {
	switch name {
	case "start":
		return StartWindow{Words: ExcerptWords}
	case "keyword":
		return KeywordWindow{WindowWords: KeywordWindowWords, Words: ExcerptWords}
	case "dual":
		return Dual{Start: StartWindow{Words: ExcerptWords}, Keyword: KeywordWindow{WindowWords: KeywordWindowWords, Words: ExcerptWords}}
	default:
		return Sequential{ChunkWords: orDefault(chunkWords, DefaultChunkWords), ChunkCount: ModeChunkCount(mode)}
	}
}

// FromCards excerpts every card and copies its citation fields onto each
// chunk. Cards without text produce nothing.
func FromCards(cards []source.Card, keywords []string, s Strategy) []Chunk {
	var out []Chunk
	for _, c := range cards {
		if !c.OK() {
			continue
		}
		for _, ex := range s.Excerpts(c.Text, keywords) {
			if strings.TrimSpace(ex) == "" {
				continue
			}
			out = append(out, Chunk{
				Text:   ex,
				URL:    c.URL,
				Title:  c.Title,
				Domain: c.Domain,
				Score:  c.RelevanceScore,
			})
		}
	}
	return out
}

// wordSpans returns byte offsets of whitespace separated words.
func wordSpans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

// slice returns the text covering count words starting at word from,
// preserving the original spacing.
func slice(text string, spans [][2]int, from, count int) string {
	if from >= len(spans) || count <= 0 {
		return ""
	}
	to := from + count
	if to > len(spans) {
		to = len(spans)
	}
	return text[spans[from][0]:spans[to-1][1]]
}

func matchesAny(word string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(word, k) {
			return true
		}
	}
	return false
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
