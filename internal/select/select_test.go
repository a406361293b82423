package selecter

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/hyperifyio/webevidence/internal/search"
)

func TestSelect_PerDomainCap(t *testing.T) {
	// 25 results spread across two domains.
	var in []search.Result
	for i := 0; i < 25; i++ {
		host := "a.com"
		if i%2 == 1 {
			host = "b.com"
		}
		in = append(in, search.Result{URL: fmt.Sprintf("https://%s/%d", host, i), Title: fmt.Sprint(i)})
	}
	out := Select(in, Options{MaxTotal: MaxSerpResults, PerDomain: 2})
	counts := map[string]int{}
	for _, r := range out {
		counts[r.Domain]++
	}
	if counts["a.com"] > 2 || counts["b.com"] > 2 {
		t.Fatalf("per-domain cap exceeded: %v", counts)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 results, got %d", len(out))
	}
}

func TestSelect_DedupesByTrimmedURL(t *testing.T) {
	in := []search.Result{
		{URL: "https://a.com/1", Title: "first"},
		{URL: " https://a.com/1 ", Title: "dup"},
		{URL: "https://a.com/1?x=1", Title: "distinct"},
	}
	out := Select(in, Options{})
	if len(out) != 2 || out[0].Title != "first" || out[1].Title != "distinct" {
		t.Fatalf("unexpected selection %+v", out)
	}
}

func TestSelect_DropsItemsWithoutDomain(t *testing.T) {
	in := []search.Result{{URL: "/relative"}, {URL: "mailto:x@y.z"}, {URL: "https://ok.com/"}}
	out := Select(in, Options{})
	if len(out) != 1 || out[0].URL != "https://ok.com/" {
		t.Fatalf("unexpected selection %+v", out)
	}
}

func TestSelect_CapsAtMaxSerpResults(t *testing.T) {
	var in []search.Result
	for i := 0; i < 50; i++ {
		in = append(in, search.Result{URL: fmt.Sprintf("https://site%d.com/", i)})
	}
	if out := Select(in, Options{MaxTotal: 100}); len(out) != MaxSerpResults {
		t.Fatalf("expected %d, got %d", MaxSerpResults, len(out))
	}
	if out := Select(in, Options{MaxTotal: 7}); len(out) != 7 {
		t.Fatalf("expected 7, got %d", len(out))
	}
}

func TestSelect_Idempotent(t *testing.T) {
	in := []search.Result{
		{URL: "https://a.com/1"}, {URL: "https://a.com/2"}, {URL: "https://b.com/1"},
		{URL: "https://a.com/1"}, {URL: "https://a.com/3"}, {URL: "https://c.com/1"},
	}
	opt := Options{MaxTotal: 4, PerDomain: 2}
	once := Select(in, opt)
	again := Select(in, opt)
	if !reflect.DeepEqual(once, again) {
		t.Fatalf("selection is not deterministic:\n%v\n%v", once, again)
	}
	if twice := Select(once, opt); !reflect.DeepEqual(once, twice) {
		t.Fatalf("selection is not idempotent:\n%v\n%v", once, twice)
	}
}

func TestSelect_LowSignalFiltering(t *testing.T) {
	in := []search.Result{
		{Title: "weak", URL: "https://a.com/1", Description: "ok"},
		{Title: "strong", URL: "https://a.com/2", Description: "this is a longer snippet with substance"},
	}
	out := Select(in, Options{MinSnippetChars: 5})
	if len(out) != 1 || out[0].Title != "strong" {
		t.Fatalf("expected only the strong result, got %v", out)
	}
}

func TestWorkingSetCap(t *testing.T) {
	cases := []struct{ per, n, want int }{
		{10, 2, 20},
		{15, 3, 30},
		{0, 0, 1},
		{20, 5, 30},
	}
	for _, c := range cases {
		if got := WorkingSetCap(c.per, c.n); got != c.want {
			t.Fatalf("WorkingSetCap(%d,%d) = %d, want %d", c.per, c.n, got, c.want)
		}
	}
}
