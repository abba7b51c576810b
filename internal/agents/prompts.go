package agents

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

//go:embed prompts
var promptFS embed.FS

var promptFuncs = template.FuncMap{
	"longDate": func(t time.Time) string { return t.Format("January 02, 2006") },
}

// requests holds each node's parsed request template.
var requests = func() map[workflow.NodeID]*template.Template {
	out := make(map[workflow.NodeID]*template.Template)
	for _, id := range workflow.NodeIDs() {
		name := path.Join("prompts", string(id), "request.tmpl")
		out[id] = template.Must(template.New(path.Base(name)).Funcs(promptFuncs).ParseFS(promptFS, name))
	}
	return out
}()

// promptData is what request templates see. Inputs and derived values of
// the record are promoted; the remaining fields are prepared by the node.
type promptData struct {
	plan.Record

	WeatherJSON      string
	WeatherContext   string
	ItineraryContext string
	HotelsJSON       string
}

// InterestList joins the record's interests, or returns fallback when none.
func (d promptData) InterestList(fallback string) string {
	interests := d.Interests()
	if len(interests) == 0 || (len(interests) == 1 && strings.TrimSpace(interests[0]) == "") {
		return fallback
	}
	return strings.Join(interests, ", ")
}

// LoadPersona returns the system prompt for a node.
func LoadPersona(id workflow.NodeID) string {
	b, err := promptFS.ReadFile(path.Join("prompts", string(id), "persona.md"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func renderRequest(id workflow.NodeID, data promptData) (string, error) {
	tmpl, ok := requests[id]
	if !ok {
		return "", fmt.Errorf("no request template for %s", id)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s request: %w", id, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
