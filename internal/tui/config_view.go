package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/tripweaver/internal/config"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	itemStyle    = lipgloss.NewStyle().PaddingLeft(2)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// RenderConfig is the human-readable form of cfg used by `config show`.
func RenderConfig(cfg *config.Config, path string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tripweaver configuration"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(path))
	b.WriteString("\n")

	section := func(name string) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
	}
	item := func(format string, args ...any) {
		b.WriteString(itemStyle.Render(fmt.Sprintf(format, args...)))
		b.WriteString("\n")
	}

	section("Models")
	item("Fallback provider: %s", cfg.LLM.FallbackProvider)
	item("Probe timeout: %s", cfg.LLM.ProbeTimeout.Duration)
	item("Request timeout: %s", cfg.LLM.RequestTimeout.Duration)
	for i, c := range cfg.LLM.Candidates {
		item("%d. %s", i+1, c)
	}

	section("Providers")
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.LLM.Providers[name]
		key := p.KeyName
		if key == "" {
			key = "none"
		}
		item("%s: %s (model %s, key %s)", name, p.BaseURL, p.DefaultModel, key)
	}

	section("Sources")
	item("Geocoding: %s", cfg.Weather.GeocodingURL)
	item("Forecast: %s", cfg.Weather.ForecastURL)
	item("Archive: %s", cfg.Weather.ArchiveURL)
	item("Hotels: %s (enabled: %t)", cfg.Hotels.BaseURL, cfg.Hotels.Enabled)

	section("Storage")
	item("Plan archive: %s (enabled: %t)", cfg.Archive.Path, cfg.Archive.Enabled)
	item("Serve address: %s", cfg.Serve.Addr)
	return b.String()
}
