package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hyperifyio/webevidence/internal/search"
	"github.com/hyperifyio/webevidence/internal/source"
)

func words(n int, prefix string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ")
}

func TestStartWindow(t *testing.T) {
	text := words(500, "w")
	out := StartWindow{Words: 400}.Excerpts(text, nil)
	if len(out) != 1 || len(strings.Fields(out[0])) != 400 {
		t.Fatalf("expected one 400-word excerpt")
	}
	if !strings.HasPrefix(out[0], "w0 w1") {
		t.Fatalf("expected excerpt from the start, got %q", out[0][:10])
	}
	verbatim := "alpha  beta\ngamma"
	if got := (StartWindow{Words: 3}).Excerpts(verbatim, nil); got[0] != verbatim {
		t.Fatalf("expected verbatim text, got %q", got[0])
	}
	if (StartWindow{}).Excerpts("   ", nil) != nil {
		t.Fatal("blank text should produce nothing")
	}
}

func TestKeywordWindow_CentersOnHits(t *testing.T) {
	text := words(300, "f") + " paris weather paris " + words(700, "g")
	out := KeywordWindow{WindowWords: 120, Words: 400}.Excerpts(text, []string{"paris", "weather"})
	if len(out) != 1 {
		t.Fatalf("expected one excerpt")
	}
	if n := len(strings.Fields(out[0])); n != 400 {
		t.Fatalf("expected 400 words, got %d", n)
	}
	if !strings.Contains(out[0], "paris weather paris") {
		t.Fatalf("expected keyword region inside excerpt")
	}
	if strings.HasPrefix(out[0], "f0 ") {
		t.Fatalf("expected excerpt not to start at the document start")
	}
}

func TestKeywordWindow_NoHitsFallsBackToStart(t *testing.T) {
	text := words(1000, "w")
	out := KeywordWindow{}.Excerpts(text, []string{"absent"})
	if !strings.HasPrefix(out[0], "w0 ") {
		t.Fatalf("expected start excerpt without hits")
	}
}

func TestKeywordWindow_ClampsAtEnd(t *testing.T) {
	text := words(600, "w") + " paris"
	out := KeywordWindow{WindowWords: 120, Words: 400}.Excerpts(text, []string{"paris"})
	if !strings.HasSuffix(out[0], "paris") || len(strings.Fields(out[0])) != 400 {
		t.Fatalf("expected excerpt clamped to the end of the text")
	}
}

func TestKeywordWindow_FoldsLikeTheScorer(t *testing.T) {
	text := words(300, "f") + " Hauptstraße STRASSE " + words(700, "g")
	out := KeywordWindow{WindowWords: 120, Words: 400}.Excerpts(text, []string{"strasse"})
	if !strings.Contains(out[0], "Hauptstraße") {
		t.Fatalf("expected folded keyword match inside the excerpt")
	}
	if strings.HasPrefix(out[0], "f0 ") {
		t.Fatalf("expected the window to move off the document start")
	}
}

func TestDual(t *testing.T) {
	text := words(300, "f") + " paris " + words(700, "g")
	d := Dual{Start: StartWindow{Words: 400}, Keyword: KeywordWindow{WindowWords: 120, Words: 400}}
	if out := d.Excerpts(text, []string{"paris"}); len(out) != 2 {
		t.Fatalf("expected two excerpts, got %d", len(out))
	}
	short := words(50, "w") + " paris"
	if out := d.Excerpts(short, []string{"paris"}); len(out) != 1 {
		t.Fatalf("expected one excerpt when windows coincide, got %d", len(out))
	}
}

func TestSequential(t *testing.T) {
	text := words(2500, "w")
	out := Sequential{ChunkWords: 1000, ChunkCount: 4}.Excerpts(text, nil)
	if len(out) != 3 {
		t.Fatalf("expected early stop after 3 chunks, got %d", len(out))
	}
	if len(strings.Fields(out[2])) != 500 {
		t.Fatalf("expected short last chunk")
	}
	if !strings.HasPrefix(out[1], "w1000 ") {
		t.Fatalf("expected document order")
	}
	if out := (Sequential{ChunkWords: 1000, ChunkCount: 1}).Excerpts(text, nil); len(out) != 1 {
		t.Fatalf("expected one chunk")
	}
}

func TestModeChunkCount(t *testing.T) {
	cases := map[string]int{"snippets": 1, "balanced": 2, "rich": 4, "": 2, "RICH": 4}
	for in, want := range cases {
		if got := ModeChunkCount(in); got != want {
			t.Fatalf("ModeChunkCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFromCards_BoundAndCitations(t *testing.T) {
	cards := []source.Card{
		{Result: search.Result{URL: "https://a.com/1", Title: "A", Domain: "a.com"}, Status: source.StatusOK, Text: words(5000, "a"), RelevanceScore: 7},
		{Result: search.Result{URL: "https://b.com/1", Title: "B", Domain: "b.com"}, Status: source.StatusOK, Text: words(10, "b"), RelevanceScore: 2},
		{Result: search.Result{URL: "https://c.com/1"}, Status: source.StatusBlocked},
	}
	for _, name := range []string{"start", "keyword", "dual", "sequential"} {
		s := New(name, "rich", 0)
		chunks := FromCards(cards, []string{"a10"}, s)
		if len(chunks) > 3*s.MaxPerSource() {
			t.Fatalf("%s: %d chunks exceed bound", name, len(chunks))
		}
		byURL := map[string]source.Card{}
		for _, c := range cards {
			byURL[c.URL] = c
		}
		for _, ch := range chunks {
			src, ok := byURL[ch.URL]
			if !ok || !src.OK() {
				t.Fatalf("%s: chunk from unknown or non-ok source %s", name, ch.URL)
			}
			if ch.Title != src.Title || ch.Domain != src.Domain || ch.Score != src.RelevanceScore {
				t.Fatalf("%s: citation mismatch %+v", name, ch)
			}
		}
	}
	if got := FromCards(cards, nil, New("sequential", "rich", 0)); len(got) != 4+1 {
		t.Fatalf("expected 4 chunks for a and 1 for b, got %d", len(got))
	}
}
