package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yubzen/tripweaver/internal/plan"
)

// Typographic characters mapped to ASCII before anything else is stripped.
var asciiReplacer = strings.NewReplacer(
	"–", "-",
	"—", "--",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
	"•", "*",
	"★", "*",
	"✓", "v",
	"✗", "x",
	"€", "EUR",
	"£", "GBP",
	"¥", "JPY",
	"°", " degrees",
)

var (
	nonASCIIRe = regexp.MustCompile(`[^\x00-\x7F]+`)
	headerRe   = regexp.MustCompile(`(?m)^#{1,6}[ \t]*(.+?)[ \t]*$`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe   = regexp.MustCompile(`\*([^*\s][^*]*?)\*`)
	bulletRe   = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+(.+?)$`)
	blankRe    = regexp.MustCompile(`\n[ \t]*\n(\s*\n)*`)
	spacesRe   = regexp.MustCompile(`[ \t]+`)
)

// CleanText strips Markdown and non-ASCII characters, keeping paragraph
// breaks. Headers become upper-case lines.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = asciiReplacer.Replace(s)
	s = nonASCIIRe.ReplaceAllString(s, " ")
	s = headerRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(headerRe.FindStringSubmatch(m)[1])
	})
	s = bulletRe.ReplaceAllString(s, "- $1")
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = blankRe.ReplaceAllString(s, "\n\n")
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// PlainText is the document as ASCII text.
func (r *Renderer) PlainText(rec plan.Record) []byte {
	now := r.Now()
	var b bytes.Buffer

	b.WriteString("TRAVEL ITINERARY\n")
	fmt.Fprintf(&b, "%s\n%s - %s\n\n", CleanText(rec.Destination), longDate(rec.StartDate), longDate(rec.EndDate))
	b.WriteString("Trip Overview:\n")
	fmt.Fprintf(&b, "- Destination: %s\n", CleanText(rec.Destination))
	fmt.Fprintf(&b, "- Duration: %d nights\n", rec.Nights())
	fmt.Fprintf(&b, "- Travelers: %d people\n", rec.PartySize)
	fmt.Fprintf(&b, "- Budget: %s\n", titleCase(string(rec.Budget)))
	fmt.Fprintf(&b, "- Trip Style: %s\n", titleCase(string(rec.Style)))
	fmt.Fprintf(&b, "- Generated: %s\n", now.Format("January 02, 2006 at 03:04 PM"))

	for _, s := range Sections(rec) {
		title := strings.ToUpper(s.Title)
		fmt.Fprintf(&b, "\n%s\n%s\n\n%s\n", title, strings.Repeat("=", len(title)), CleanText(s.Content))
	}

	fmt.Fprintf(&b, "\nGenerated by %s on %s\n", r.AppName, longDate(now))
	return b.Bytes()
}
