package render

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	converter        = newConverter()
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

func newConverter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// normalize converts model replies that slipped into HTML back to Markdown.
// Plain Markdown is returned with only whitespace cleanup.
func normalize(content string) string {
	if hasElements(content) {
		if converted, err := converter.ConvertString(content); err == nil && strings.TrimSpace(converted) != "" {
			content = converted
		}
	}
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var markupTags = map[string]bool{
	"p": true, "br": true, "div": true, "span": true, "ul": true, "ol": true, "li": true,
	"b": true, "strong": true, "i": true, "em": true, "a": true, "table": true,
	"tr": true, "td": true, "th": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// hasElements reports whether content holds real HTML markup, as opposed to
// stray angle brackets like "<3" or "temp < 10".
func hasElements(content string) bool {
	if !strings.Contains(content, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if markupTags[string(name)] {
				return true
			}
		}
	}
}
