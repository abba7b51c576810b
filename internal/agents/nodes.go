package agents

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/scrub"
	"github.com/yubzen/tripweaver/internal/sources/hotels"
	"github.com/yubzen/tripweaver/internal/sources/weather"
	"github.com/yubzen/tripweaver/internal/workflow"
)

const (
	weatherContextChars   = 600
	itineraryContextChars = 500
)

// NewVisa answers entry requirements from origin to destination.
func NewVisa(d Deps) workflow.Node {
	return workflow.Node{
		ID:   workflow.NodeVisa,
		Owns: []plan.Field{plan.FieldVisa},
		Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			h, err := d.acquire(ctx, workflow.NodeVisa, VisaTemperature)
			if err != nil {
				return nil, err
			}
			reply, err := d.invoke(ctx, h, workflow.NodeVisa, promptData{Record: rec})
			if err != nil {
				d.logger().Warn("Visa lookup degraded", "destination", rec.Destination, "error", err)
				reply = VisaUnavailable(rec)
			}
			return plan.Delta{plan.FieldVisa: reply}, nil
		},
	}
}

// NewWeather briefs the traveler on conditions at the destination.
func NewWeather(d Deps) workflow.Node {
	return workflow.Node{
		ID:   workflow.NodeWeather,
		Owns: []plan.Field{plan.FieldWeather},
		Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			h, err := d.acquire(ctx, workflow.NodeWeather, WeatherTemperature)
			if err != nil {
				return nil, err
			}
			return plan.Delta{plan.FieldWeather: d.weatherBriefing(ctx, h, rec)}, nil
		},
	}
}

func (d Deps) weatherBriefing(ctx context.Context, h llm.Handle, rec plan.Record) string {
	log := d.logger().With("destination", rec.Destination)
	if d.Weather == nil {
		log.Warn("No weather source configured")
		return WeatherUnavailable(rec)
	}

	loc, err := d.Weather.Geocode(ctx, rec.Destination)
	if err != nil {
		log.Warn("Geocoding failed", "error", err)
		return WeatherUnknownDestination(rec)
	}
	days, err := d.Weather.Daily(ctx, loc, rec.StartDate, rec.EndDate)
	if err != nil {
		log.Warn("Weather lookup failed", "error", err)
		return WeatherUnavailable(rec)
	}
	if len(days) == 0 {
		return WeatherNoData(rec)
	}

	summaries := make([]weather.Summary, 0, len(days))
	for _, day := range days {
		summaries = append(summaries, day.Summarize())
	}
	raw, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return WeatherUnavailable(rec)
	}

	reply, err := d.invoke(ctx, h, workflow.NodeWeather, promptData{Record: rec, WeatherJSON: string(raw)})
	if err != nil {
		log.Warn("Weather analysis failed", "error", err)
		return WeatherAnalysisUnavailable(rec)
	}
	log.Debug("Weather briefing ready", "latitude", loc.Latitude, "longitude", loc.Longitude, "days", len(days))
	return reply
}

// NewItinerary builds the day-by-day plan.
func NewItinerary(d Deps) workflow.Node {
	return workflow.Node{
		ID:   workflow.NodeItinerary,
		Owns: []plan.Field{plan.FieldItinerary},
		Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			h, err := d.acquire(ctx, workflow.NodeItinerary, ItineraryTemperature)
			if err != nil {
				return nil, err
			}
			data := promptData{Record: rec, WeatherContext: truncate(rec.Value(plan.FieldWeather), weatherContextChars)}
			reply, err := d.invoke(ctx, h, workflow.NodeItinerary, data)
			if err != nil {
				d.logger().Warn("Itinerary degraded", "destination", rec.Destination, "error", err)
				reply = ItineraryUnavailable(rec)
			}
			return plan.Delta{plan.FieldItinerary: reply}, nil
		},
	}
}

// NewHotel recommends where to stay, using Amadeus listings when available.
func NewHotel(d Deps) workflow.Node {
	return workflow.Node{
		ID:   workflow.NodeHotel,
		Owns: []plan.Field{plan.FieldHotels},
		Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			if d.Hotels == nil {
				return plan.Delta{plan.FieldHotels: HotelsMissingCredentials()}, nil
			}
			h, err := d.acquire(ctx, workflow.NodeHotel, HotelTemperature)
			if err != nil {
				return nil, err
			}

			listing := "No real-time hotel data available"
			found, err := d.Hotels.ByCity(ctx, hotels.CityCode(rec.Destination))
			switch {
			case err != nil:
				d.logger().Warn("Hotel lookup failed", "destination", rec.Destination, "error", err)
			case len(found) > 0:
				if raw, err := json.MarshalIndent(found, "", "  "); err == nil {
					listing = string(raw)
				}
			}

			data := promptData{
				Record:           rec,
				ItineraryContext: truncate(rec.Value(plan.FieldItinerary), itineraryContextChars),
				HotelsJSON:       listing,
			}
			reply, err := d.invoke(ctx, h, workflow.NodeHotel, data)
			if err != nil {
				d.logger().Warn("Hotel recommendation degraded", "destination", rec.Destination, "error", err)
				reply = HotelsUnavailable(errors.New(scrub.Clean(err.Error())))
			}
			return plan.Delta{plan.FieldHotels: reply}, nil
		},
	}
}

// NewActivities curates activities by category.
func NewActivities(d Deps) workflow.Node {
	return workflow.Node{
		ID:   workflow.NodeActivities,
		Owns: []plan.Field{plan.FieldActivities},
		Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			h, err := d.acquire(ctx, workflow.NodeActivities, ActivitiesTemperature)
			if err != nil {
				return nil, err
			}
			reply, err := d.invoke(ctx, h, workflow.NodeActivities, promptData{Record: rec})
			if err != nil {
				d.logger().Warn("Activities degraded", "destination", rec.Destination, "error", err)
				reply = ActivitiesUnavailable(rec)
			}
			return plan.Delta{plan.FieldActivities: reply}, nil
		},
	}
}
