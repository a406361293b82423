package app

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/webevidence/internal/pipeline"
)

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`) // [text](url)

// renderDigest formats a run as Markdown: queries, sources with links, and
// the chunks grouped under their source.
func renderDigest(prompt string, res pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Web evidence\n\nPrompt: %s\n\nRun: %s\n", strings.TrimSpace(prompt), res.RunID)
	if res.Skipped {
		fmt.Fprintf(&b, "\nSearch skipped: %s\n", res.SkipReason)
		return b.String()
	}
	b.WriteString("\n## Queries\n")
	for i, q := range res.Queries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\n## Sources\n")
	if len(res.Sources) == 0 {
		b.WriteString("No usable sources.\n")
	}
	for i, s := range res.Sources {
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, linkText(s.Title, s.URL), s.URL)
	}
	if len(res.Chunks) > 0 {
		b.WriteString("\n## Excerpts\n")
		for _, c := range res.Chunks {
			fmt.Fprintf(&b, "\n### %s\n[%s](%s)\n\n%s\n", linkText(c.Title, c.Domain), c.URL, c.URL, strings.TrimSpace(c.Text))
		}
	}
	fmt.Fprintf(&b, "\n## Cost\nSERP requests: %d (est. $%.4f)\nPlanner tokens: %d in / %d out (est. $%.4f)\nEnough evidence: %t\n",
		res.Cost.SerpRequests, res.Cost.SerpEstimatedUSD,
		res.PlannerCost.InputTokens, res.PlannerCost.OutputTokens, res.PlannerCost.EstimatedUSD,
		res.Gate.EnoughEvidence)
	return b.String()
}

func linkText(title, fallback string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		t = fallback
	}
	// Brackets would break the link syntax.
	return strings.NewReplacer("[", "(", "]", ")").Replace(t)
}

// writeSimplePDF renders a minimal PDF from Markdown text, preserving paragraphs and
// turning Markdown links [text](url) into clickable PDF links. It does not
// perform full Markdown layout.
func writeSimplePDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	// Render line by line to avoid huge paragraphs
	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			pdf.Ln(5)
			continue
		}
		if strings.HasPrefix(s, "#") {
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 8, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		parts := linkRe.FindAllStringSubmatchIndex(s, -1)
		if len(parts) == 0 {
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
			continue
		}
		pos := 0
		for _, m := range parts {
			// m: [fullStart, fullEnd, textStart, textEnd, urlStart, urlEnd]
			if m[0] > pos {
				pdf.Write(5, tr(s[pos:m[0]]))
			}
			pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
			pos = m[1]
		}
		if pos < len(s) {
			pdf.Write(5, tr(s[pos:]))
		}
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan digest: %w", err)
	}
	return pdf.OutputFileAndClose(outPath)
}
