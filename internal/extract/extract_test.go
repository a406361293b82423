package extract

import (
	"strings"
	"testing"
)

func TestFromHTML_PrefersMainOverBody(t *testing.T) {
	html := `<!doctype html>
	<html>
	  <head><title>Test Page</title></head>
	  <body>
	    <nav>Nav should be ignored</nav>
	    <main>
	      <h1>Main Heading</h1>
	      <p>This is the main content paragraph.</p>
	      <script>var tracking = 1;</script>
	      <style>.x{color:red}</style>
	      <noscript>noscript fallback</noscript>
	    </main>
	    <footer>Footer text</footer>
	  </body>
	</html>`

	doc := FromHTML([]byte(html))
	if doc.Title != "Test Page" {
		t.Fatalf("expected title 'Test Page', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Main Heading") || !strings.Contains(doc.Text, "This is the main content paragraph.") {
		t.Fatalf("expected main content, got %q", doc.Text)
	}
	for _, unwanted := range []string{"Nav should be ignored", "Footer text", "tracking", "color:red", "noscript fallback"} {
		if strings.Contains(doc.Text, unwanted) {
			t.Fatalf("did not expect %q in %q", unwanted, doc.Text)
		}
	}
}

func TestFromHTML_FallbackToBody(t *testing.T) {
	html := `<html><head><title>No Main</title></head>
	<body><h2>Body Heading</h2><p>Body paragraph</p></body></html>`

	doc := FromHTML([]byte(html))
	if doc.Title != "No Main" {
		t.Fatalf("expected title 'No Main', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Body Heading") || !strings.Contains(doc.Text, "Body paragraph") {
		t.Fatalf("expected body content, got %q", doc.Text)
	}
}

func TestFromHTML_PreservesCodeAndListItems(t *testing.T) {
	html := `<html><head><title>Code and List</title></head><body>
	<article>
	  <h3>Examples</h3>
	  <ul><li>First item</li><li>Second item</li></ul>
	  <pre><code>print("hello")</code></pre>
	</article></body></html>`

	doc := FromHTML([]byte(html))
	if !strings.Contains(doc.Text, "First item") || !strings.Contains(doc.Text, "Second item") {
		t.Fatalf("expected list items; got: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, `print("hello")`) {
		t.Fatalf("expected code block content; got: %q", doc.Text)
	}
}

func TestFromHTML_SkipsConsentBanner(t *testing.T) {
	html := `<html><body><div class="cookie-banner">We use cookies</div><p>Real text</p></body></html>`
	doc := FromHTML([]byte(html))
	if strings.Contains(doc.Text, "cookies") || !strings.Contains(doc.Text, "Real text") {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestNormalizeWhitespace_NFKC(t *testing.T) {
	in := "  ﬁne  print  \n\n\n\n second   line "
	got := normalizeWhitespace(in)
	if got != "fine print\n\nsecond line" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestRegexIsolator(t *testing.T) {
	page := []byte(`<html><body><div>menu</div><article><p>story</p></article><section>other</section></body></html>`)
	out := string(RegexIsolator{}.Isolate(page))
	if out != "<article><p>story</p></article>" {
		t.Fatalf("expected article region, got %q", out)
	}
	none := []byte(`<html><body><p>plain</p></body></html>`)
	if string(RegexIsolator{}.Isolate(none)) != string(none) {
		t.Fatalf("no match should return the full document")
	}
	div := []byte(`<body><div class="site-nav">nav</div><div id="main-content">body text</div></body>`)
	if got := string(RegexIsolator{}.Isolate(div)); got != `<div id="main-content">body text</div>` {
		t.Fatalf("expected content div, got %q", got)
	}
}

func TestDOMIsolator(t *testing.T) {
	long := strings.Repeat("evidence ", 40)
	page := []byte(`<html><body><main>short</main><div class="content"><p>` + long + `</p></div></body></html>`)
	out := string(DOMIsolator{}.Isolate(page))
	if !strings.Contains(out, "evidence") || strings.Contains(out, "short") {
		t.Fatalf("expected content div to win over a short main, got %q", out)
	}
	tiny := []byte(`<html><body><p>tiny</p></body></html>`)
	if string(DOMIsolator{}.Isolate(tiny)) != string(tiny) {
		t.Fatalf("no qualifying region should return the input")
	}
}

func TestIsolated_KeepsTitle(t *testing.T) {
	page := []byte(`<html><head><title>Full Title</title></head><body><nav>x</nav><main><p>Body</p></main></body></html>`)
	doc := New("regex", "heuristic").Extract(page)
	if doc.Title != "Full Title" || doc.Text != "Body" {
		t.Fatalf("unexpected doc %+v", doc)
	}
}

func TestPlainExtractor(t *testing.T) {
	page := []byte(`<html><head><title>T</title><style>p{}</style></head><body><p>Hello <b>world</b></p><script>alert(1)</script></body></html>`)
	doc := PlainExtractor{}.Extract(page)
	if !strings.Contains(doc.Text, "Hello world") {
		t.Fatalf("expected converted text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "alert") || strings.Contains(doc.Text, "p{}") {
		t.Fatalf("script/style leaked: %q", doc.Text)
	}
	if doc.Title != "T" {
		t.Fatalf("expected title, got %q", doc.Title)
	}
}

func TestDetectBlock(t *testing.T) {
	cases := map[string]string{
		"Please enable JavaScript to view this site": BlockJSRequired,
		"Complete the CAPTCHA to continue":           BlockCaptcha,
		"Subscribe to keep reading":                  BlockAuthWall,
		"Please Sign In first":                       BlockAuthWall,
		"403 Forbidden":                              BlockAccessDenied,
		"Access Denied by policy":                    BlockAccessDenied,
		"The forecast is sunny with 21 degrees":      "",
		// captcha outranks the others
		"captcha required, access denied": BlockCaptcha,
	}
	for in, want := range cases {
		if got := DetectBlock(in); got != want {
			t.Fatalf("DetectBlock(%q) = %q, want %q", in, got, want)
		}
	}
}
