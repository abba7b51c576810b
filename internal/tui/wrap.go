package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// wrapToWidth soft-wraps text at width cells, breaking long words.
func wrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	wrapper := lipgloss.NewStyle().Width(width)

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		for _, wrapped := range strings.Split(wrapper.Render(line), "\n") {
			out = append(out, strings.TrimRight(wrapped, " "))
		}
	}
	return strings.Join(out, "\n")
}

// hangingIndent renders prefix followed by content, aligning continuation
// lines under the first content column.
func hangingIndent(prefix, content string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	if width <= 0 || prefixWidth >= width {
		return prefix + content
	}

	lines := strings.Split(wrapToWidth(content, width-prefixWidth), "\n")
	indent := strings.Repeat(" ", prefixWidth)
	for i := range lines {
		if i == 0 {
			lines[i] = prefix + lines[i]
		} else {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
