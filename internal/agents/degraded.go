package agents

import (
	"fmt"

	"github.com/yubzen/tripweaver/internal/plan"
)

// Placeholder texts written in place of a section that could not be produced.

func VisaUnavailable(rec plan.Record) string {
	return fmt.Sprintf("Visa information temporarily unavailable for travel from %s to %s. Please check the destination's official immigration website.", rec.Origin, rec.Destination)
}

func WeatherUnknownDestination(rec plan.Record) string {
	return fmt.Sprintf("Unable to get weather data for %s. Please check the destination name.", rec.Destination)
}

func WeatherUnavailable(rec plan.Record) string {
	return fmt.Sprintf("Weather data temporarily unavailable for %s. Please try again later.", rec.Destination)
}

func WeatherNoData(rec plan.Record) string {
	return fmt.Sprintf("No weather data available for the selected dates in %s.", rec.Destination)
}

func WeatherAnalysisUnavailable(rec plan.Record) string {
	return fmt.Sprintf("Weather analysis temporarily unavailable. Raw data available for %s from %s to %s.",
		rec.Destination, plan.FormatDate(rec.StartDate), plan.FormatDate(rec.EndDate))
}

func ItineraryUnavailable(rec plan.Record) string {
	return fmt.Sprintf("Itinerary generation temporarily unavailable for %s. Please try again later.", rec.Destination)
}

func HotelsMissingCredentials() string {
	return "Unable to fetch hotel recommendations. Please check API credentials."
}

func HotelsUnavailable(err error) string {
	return fmt.Sprintf("Hotel recommendations temporarily unavailable. Please try again later. (Error: %v)", err)
}

func ActivitiesUnavailable(rec plan.Record) string {
	return fmt.Sprintf("Activity suggestions temporarily unavailable for %s. Please try again later.", rec.Destination)
}
