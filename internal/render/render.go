// Package render turns a finished plan.Record into a document.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yubzen/tripweaver/internal/plan"
)

// Format is an output document format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
)

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want md, json, yaml or text)", s)
	}
}

// Ext is the file extension for the format.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Section is one derived field in document order.
type Section struct {
	Field   plan.Field `json:"field" yaml:"field"`
	Title   string     `json:"title" yaml:"title"`
	Content string     `json:"content" yaml:"content"`
}

// Document is the structured form written as JSON or YAML.
type Document struct {
	Title       string      `json:"title" yaml:"title"`
	Inputs      plan.Inputs `json:"inputs" yaml:"inputs"`
	Nights      int         `json:"nights" yaml:"nights"`
	Version     int         `json:"version" yaml:"version"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	Sections    []Section   `json:"sections" yaml:"sections"`
}

var sectionTitles = []struct {
	field plan.Field
	title string
}{
	{plan.FieldVisa, "Visa Information"},
	{plan.FieldWeather, "Weather Forecast"},
	{plan.FieldItinerary, "Travel Itinerary"},
	{plan.FieldHotels, "Hotel Recommendations"},
	{plan.FieldActivities, "Suggested Activities"},
}

// Renderer writes documents. The zero value is not usable; call New.
type Renderer struct {
	Now func() time.Time
	// AppName signs the footer.
	AppName string
}

func New() *Renderer {
	return &Renderer{Now: time.Now, AppName: "tripweaver"}
}

// Sections returns the record's non-empty sections in document order.
func Sections(rec plan.Record) []Section {
	out := make([]Section, 0, len(sectionTitles))
	for _, s := range sectionTitles {
		content := strings.TrimSpace(rec.Value(s.field))
		if content == "" {
			continue
		}
		out = append(out, Section{Field: s.field, Title: s.title, Content: normalize(content)})
	}
	return out
}

// Document builds the structured form of rec.
func (r *Renderer) Document(rec plan.Record) Document {
	return Document{
		Title:       "Travel Itinerary: " + rec.Destination,
		Inputs:      rec.Inputs,
		Nights:      rec.Nights(),
		Version:     rec.Version(),
		GeneratedAt: r.Now().UTC().Truncate(time.Second),
		Sections:    Sections(rec),
	}
}

// Render writes rec in format f.
func (r *Renderer) Render(rec plan.Record, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return r.Markdown(rec), nil
	case FormatJSON:
		return r.JSON(rec)
	case FormatYAML:
		return r.YAML(rec)
	case FormatText:
		return r.PlainText(rec), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

func (r *Renderer) Markdown(rec plan.Record) []byte {
	now := r.Now()
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Travel Itinerary: %s\n\n", rec.Destination)
	fmt.Fprintf(&b, "_%s - %s_\n\n", longDate(rec.StartDate), longDate(rec.EndDate))

	b.WriteString("| Trip Overview | |\n|---|---|\n")
	rows := [][2]string{
		{"Origin", rec.Origin},
		{"Destination", rec.Destination},
		{"Duration", fmt.Sprintf("%d nights", rec.Nights())},
		{"Travelers", fmt.Sprintf("%d people", rec.PartySize)},
		{"Budget", titleCase(string(rec.Budget))},
		{"Trip Style", titleCase(string(rec.Style))},
		{"Generated", now.Format("January 02, 2006 at 03:04 PM")},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], strings.ReplaceAll(row[1], "|", `\|`))
	}

	for _, s := range Sections(rec) {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Title, s.Content)
	}

	fmt.Fprintf(&b, "\n---\n\n_Generated by %s on %s_\n", r.AppName, longDate(now))
	return b.Bytes()
}

func (r *Renderer) JSON(rec plan.Record) ([]byte, error) {
	out, err := json.MarshalIndent(r.Document(rec), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(out, '\n'), nil
}

func (r *Renderer) YAML(rec plan.Record) ([]byte, error) {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(r.Document(rec)); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return b.Bytes(), nil
}

var slugRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// FileName is travel-plan-<Destination>-<YYYYMMDD>.<ext>, dated by the
// trip's start.
func FileName(rec plan.Record, ext string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(rec.Destination, "-"), "-")
	if slug == "" {
		slug = "trip"
	}
	return fmt.Sprintf("travel-plan-%s-%s.%s", slug, rec.StartDate.Format("20060102"), strings.TrimPrefix(ext, "."))
}

func longDate(t time.Time) string {
	return t.Format("January 02, 2006")
}

// titleCase upper-cases the first letter of each hyphenated word.
func titleCase(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, "-")
}
