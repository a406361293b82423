package extract

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// FromHTML extracts readable text from HTML, preferring <main> or <article>,
// falling back to <body>. It keeps block separation for headings, paragraphs,
// list items and pre/code blocks, and skips script, style, noscript and
// obvious boilerplate such as <nav> and <footer>.
func FromHTML(input []byte) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}

	title := normalizeWhitespace(findTitle(node))
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}
	var b strings.Builder
	if content != nil {
		collectText(&b, content, false)
	}
	return Document{Title: title, Text: normalizeWhitespace(b.String())}
}

func findTitle(n *html.Node) string {
	t := findFirst(n, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "template", "svg":
			return
		case "pre", "code":
			inPre = true
		case "br", "hr", "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "tr", "div", "section":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString(" ")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ").Replace(data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li", "tr", "pre":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer returns true if the element looks like a cookie or
// consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && key != "aria-label" && key != "role" && !strings.HasPrefix(key, "data-") {
			continue
		}
		if containsAny(strings.ToLower(attr.Val), []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// normalizeWhitespace applies NFKC, collapses runs of spaces within lines and
// keeps at most one consecutive blank line.
func normalizeWhitespace(s string) string {
	s = norm.NFKC.String(s)
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
