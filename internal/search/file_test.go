package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileProvider_FiltersByQueryTerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	data := `[{"url":"https://a.example/","title":"Paris weather today","description":"forecast"},
{"url":"https://b.example/","title":"Lyon food","description":"restaurants"},
{"title":"no url"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := &FileProvider{Path: path}
	page, err := f.Search(context.Background(), Request{Query: "paris forecast", Depth: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Source != "file" {
		t.Fatalf("unexpected results %+v", page.Results)
	}
	page, _ = f.Search(context.Background(), Request{Depth: 10})
	if len(page.Results) != 2 {
		t.Fatalf("empty query should return all usable results, got %d", len(page.Results))
	}
	if page.RequestCount != 0 {
		t.Fatalf("file provider must not count requests")
	}
}

func TestFileProvider_EmptyPath(t *testing.T) {
	if _, err := (&FileProvider{}).Search(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
