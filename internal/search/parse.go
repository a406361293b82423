package search

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// maxBodyNesting bounds how deep "body" wrappers are followed.
const maxBodyNesting = 4

type shape struct {
	name    string
	extract func(v gjson.Result, nesting int) []Result
}

// shapes are tried in order; the first one producing results wins. Filled in
// init because the body shapes recurse into parseValue.
var shapes []shape

func init() {
	shapes = []shape{
		{"organic", func(v gjson.Result, _ int) []Result { return itemsOf(v.Get("organic")) }},
		{"organic.results", func(v gjson.Result, _ int) []Result {
			o := v.Get("organic")
			if !o.IsObject() {
				return nil
			}
			return itemsOf(o.Get("results"))
		}},
		{"organic_results", func(v gjson.Result, _ int) []Result { return itemsOf(v.Get("organic_results")) }},
		{"results", func(v gjson.Result, _ int) []Result { return itemsOf(v.Get("results")) }},
		{"body_string", func(v gjson.Result, nesting int) []Result {
			b := v.Get("body")
			if b.Type != gjson.String || !gjson.Valid(b.Str) {
				return nil
			}
			return parseValue(gjson.Parse(b.Str), nesting+1)
		}},
		{"body_object", func(v gjson.Result, nesting int) []Result {
			b := v.Get("body")
			if !b.IsObject() {
				return nil
			}
			return parseValue(b, nesting+1)
		}},
		{"array", func(v gjson.Result, _ int) []Result { return itemsOf(v) }},
	}
}

// ParseResults extracts organic results from a proxy or search engine JSON
// payload of any supported shape. Items without a usable URL are dropped and
// duplicate URLs keep their first occurrence. Invalid JSON yields nil.
func ParseResults(data []byte) []Result {
	if !gjson.ValidBytes(data) {
		return nil
	}
	return parseValue(gjson.ParseBytes(data), 0)
}

func parseValue(v gjson.Result, nesting int) []Result {
	if nesting > maxBodyNesting {
		return nil
	}
	for _, s := range shapes {
		if out := s.extract(v, nesting); len(out) > 0 {
			return out
		}
	}
	return nil
}

func itemsOf(arr gjson.Result) []Result {
	if !arr.IsArray() {
		return nil
	}
	var out []Result
	seen := map[string]struct{}{}
	for i, item := range arr.Array() {
		if !item.IsObject() {
			continue
		}
		link := strings.TrimSpace(firstString(item, "url", "link", "href"))
		if !usableURL(link) {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		pos := int(firstNumber(item, "position", "rank", "index"))
		if pos <= 0 {
			pos = i + 1
		}
		out = append(out, Result{
			URL:         link,
			Title:       strings.TrimSpace(firstString(item, "title", "name")),
			Description: strings.TrimSpace(firstString(item, "description", "snippet", "subtitle")),
			Position:    pos,
			Domain:      DomainOf(link),
		})
	}
	return out
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return ""
}

func firstNumber(item gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		v := item.Get(k)
		if v.Exists() && (v.Type == gjson.Number || v.Type == gjson.String) {
			if n := v.Int(); n > 0 {
				return n
			}
		}
	}
	return 0
}

func usableURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
