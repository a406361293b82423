package search

import (
	"context"
	"errors"
	"os"
	"strings"
)

// FileProvider serves results from a local JSON file for offline runs. The
// file may use any shape ParseResults understands, including a plain array of
// {"url","title","description"} objects.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

// Search returns the results whose title or description mention any query
// term longer than two characters, up to the clamped depth. An empty query
// matches everything. No billable requests are counted.
func (f *FileProvider) Search(_ context.Context, req Request) (Page, error) {
	if strings.TrimSpace(f.Path) == "" {
		return Page{}, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Page{}, err
	}
	terms := queryTerms(req.Query)
	depth := ClampDepth(req.Depth)
	var out []Result
	for _, r := range ParseResults(b) {
		if len(terms) > 0 && !mentionsAny(r, terms) {
			continue
		}
		r.Source = f.Name()
		out = append(out, r)
		if len(out) >= depth {
			break
		}
	}
	return Page{Results: out}, nil
}

func queryTerms(q string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(q)) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

func mentionsAny(r Result, terms []string) bool {
	hay := strings.ToLower(r.Title + " " + r.Description)
	for _, t := range terms {
		if strings.Contains(hay, t) {
			return true
		}
	}
	return false
}
