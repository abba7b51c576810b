// Package agents implements the travel workflow's five task nodes.
//
// Every node acquires its own model, and only a failed acquisition escapes
// the node. Lookup and invocation failures are turned into placeholder text
// for the node's field so the run can finish.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/providers"
	"github.com/yubzen/tripweaver/internal/scrub"
	"github.com/yubzen/tripweaver/internal/sources/hotels"
	"github.com/yubzen/tripweaver/internal/sources/weather"
	"github.com/yubzen/tripweaver/internal/workflow"
)

// DefaultProvider is the provider every node asks for.
const DefaultProvider = "groq"

// Sampling temperatures per node.
const (
	VisaTemperature       = 0.3
	WeatherTemperature    = 0.4
	ItineraryTemperature  = 0.7
	HotelTemperature      = 0.5
	ActivitiesTemperature = 0.7
)

var errEmptyReply = errors.New("model returned an empty reply")

// Models hands out a model per call.
type Models interface {
	GetModel(ctx context.Context, provider string, temperature float64) (llm.Handle, error)
}

// WeatherSource resolves a destination and its daily conditions.
type WeatherSource interface {
	Geocode(ctx context.Context, name string) (weather.Location, error)
	Daily(ctx context.Context, loc weather.Location, start, end time.Time) ([]weather.Day, error)
}

// HotelSource lists hotels near a city.
type HotelSource interface {
	ByCity(ctx context.Context, cityCode string) ([]hotels.Hotel, error)
}

// Deps are the collaborators shared by the nodes.
type Deps struct {
	Models Models
	// Provider defaults to DefaultProvider.
	Provider string
	Weather  WeatherSource
	// Hotels is nil when no hotel credentials are configured.
	Hotels HotelSource
	Logger *slog.Logger
}

// Nodes returns all five nodes.
func Nodes(d Deps) []workflow.Node {
	return []workflow.Node{
		NewVisa(d),
		NewWeather(d),
		NewItinerary(d),
		NewHotel(d),
		NewActivities(d),
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) provider() string {
	if strings.TrimSpace(d.Provider) == "" {
		return DefaultProvider
	}
	return d.Provider
}

func (d Deps) acquire(ctx context.Context, id workflow.NodeID, temperature float64) (llm.Handle, error) {
	if d.Models == nil {
		return nil, fmt.Errorf("%s: no model source configured", id)
	}
	h, err := d.Models.GetModel(ctx, d.provider(), temperature)
	if err != nil {
		return nil, fmt.Errorf("%s: acquire model: %w", id, err)
	}
	return h, nil
}

// invoke renders the node's prompts and calls the model. Outbound text
// is scrubbed of secrets.
func (d Deps) invoke(ctx context.Context, h llm.Handle, id workflow.NodeID, data promptData) (string, error) {
	request, err := renderRequest(id, data)
	if err != nil {
		return "", err
	}
	messages := []providers.Message{
		{Role: "system", Content: scrub.Clean(LoadPersona(id))},
		{Role: "user", Content: scrub.Clean(request)},
	}

	start := time.Now()
	reply, err := h.Invoke(ctx, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyReply
	}
	d.logger().Debug("Model replied", "node", string(id), "model", h.Candidate().String(),
		"chars", len(reply), "duration", time.Since(start))
	return reply, nil
}
