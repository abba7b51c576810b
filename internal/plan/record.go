// Package plan holds the planning record threaded through the travel workflow.
//
// A Record is a value. Nodes never modify it; they return a Delta holding only
// the fields they own and the executor merges that delta into a new Record.
package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field names a derived field of the record.
type Field string

const (
	FieldVisa       Field = "visa_info"
	FieldWeather    Field = "weather_forecast"
	FieldItinerary  Field = "itinerary"
	FieldHotels     Field = "suggested_hotels"
	FieldActivities Field = "suggested_activities"
)

// Fields lists every derived field in render order.
func Fields() []Field {
	return []Field{FieldVisa, FieldWeather, FieldItinerary, FieldHotels, FieldActivities}
}

// Known reports whether f is one of the derived fields.
func (f Field) Known() bool {
	for _, known := range Fields() {
		if f == known {
			return true
		}
	}
	return false
}

type Budget string

const (
	BudgetLow    Budget = "budget"
	BudgetMid    Budget = "mid-range"
	BudgetLuxury Budget = "luxury"
)

type Style string

const (
	StyleAdventure Style = "adventure"
	StyleCultural  Style = "cultural"
	StyleRomantic  Style = "romantic"
	StyleFamily    Style = "family"
	StyleSolo      Style = "solo"
)

const dateLayout = "2006-01-02"

var ErrInvalidInputs = errors.New("invalid trip inputs")

// Inputs are set once before a run starts and never change afterwards.
type Inputs struct {
	Origin      string    `json:"origin" yaml:"origin"`
	Destination string    `json:"destination" yaml:"destination"`
	Budget      Budget    `json:"budget" yaml:"budget"`
	Style       Style     `json:"style" yaml:"style"`
	PartySize   int       `json:"party_size" yaml:"party_size"`
	StartDate   time.Time `json:"start_date" yaml:"start_date"`
	EndDate     time.Time `json:"end_date" yaml:"end_date"`
	Preferences string    `json:"preferences,omitempty" yaml:"preferences,omitempty"`

	// IncludeActivities is the control field read by the activities router.
	IncludeActivities bool `json:"include_activities" yaml:"include_activities"`
}

// Validate rejects inputs the workflow cannot plan for.
func (in Inputs) Validate() error {
	var problems []string
	if strings.TrimSpace(in.Origin) == "" {
		problems = append(problems, "origin is required")
	}
	if strings.TrimSpace(in.Destination) == "" {
		problems = append(problems, "destination is required")
	}
	switch in.Budget {
	case BudgetLow, BudgetMid, BudgetLuxury:
	default:
		problems = append(problems, fmt.Sprintf("unknown budget %q", in.Budget))
	}
	switch in.Style {
	case StyleAdventure, StyleCultural, StyleRomantic, StyleFamily, StyleSolo:
	default:
		problems = append(problems, fmt.Sprintf("unknown trip style %q", in.Style))
	}
	if in.PartySize < 1 {
		problems = append(problems, "party size must be at least 1")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		problems = append(problems, "start and end dates are required")
	} else if in.EndDate.Before(in.StartDate) {
		problems = append(problems, "end date is before start date")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInputs, strings.Join(problems, "; "))
	}
	return nil
}

// Nights is the number of whole days between start and end.
func (in Inputs) Nights() int {
	return int(in.EndDate.Sub(in.StartDate).Hours() / 24)
}

// Interests is the trip style followed by the comma separated preferences.
func (in Inputs) Interests() []string {
	out := []string{string(in.Style)}
	for _, item := range strings.Split(in.Preferences, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Delta is the set of derived fields a node returns.
type Delta map[Field]string

// Fields returns the delta keys in a stable order.
func (d Delta) Fields() []Field {
	out := make([]Field, 0, len(d))
	for f := range d {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Record is the planning record. The zero value has no inputs and no derived fields.
type Record struct {
	Inputs
	version int
	derived map[Field]string
}

// New returns the version 0 record for the given inputs.
func New(in Inputs) Record {
	return Record{Inputs: in}
}

// Restore rebuilds a record from archived values. Unknown fields are dropped.
func Restore(in Inputs, version int, derived map[Field]string) Record {
	r := Record{Inputs: in, version: version, derived: make(map[Field]string, len(derived))}
	for k, v := range derived {
		if k.Known() {
			r.derived[k] = v
		}
	}
	return r
}

// Version counts the merges applied to produce this record.
func (r Record) Version() int {
	return r.version
}

// Get returns a derived field and whether it is present.
func (r Record) Get(f Field) (string, bool) {
	v, ok := r.derived[f]
	return v, ok
}

// Value returns a derived field or "" when absent.
func (r Record) Value(f Field) string {
	return r.derived[f]
}

// Has reports whether the derived field is present.
func (r Record) Has(f Field) bool {
	_, ok := r.derived[f]
	return ok
}

// Derived returns a copy of every derived field present.
func (r Record) Derived() map[Field]string {
	out := make(map[Field]string, len(r.derived))
	for k, v := range r.derived {
		out[k] = v
	}
	return out
}

// Merge returns a new record with d applied. Later values overwrite earlier
// ones for the same field. The receiver is left untouched.
func (r Record) Merge(d Delta) Record {
	next := Record{
		Inputs:  r.Inputs,
		version: r.version + 1,
		derived: make(map[Field]string, len(r.derived)+len(d)),
	}
	for k, v := range r.derived {
		next.derived[k] = v
	}
	for k, v := range d {
		next.derived[k] = v
	}
	return next
}
