// Package weather looks up destinations and daily conditions on Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultArchiveURL   = "https://archive-api.open-meteo.com/v1/archive"

	geocodeTimeout = 10 * time.Second
	lookupTimeout  = 15 * time.Second
	// Open-Meteo serves at most this many forecast days.
	maxForecastDays = 16
)

var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"rain_sum",
	"wind_speed_10m_max",
	"weather_code",
}

var ErrLocationNotFound = errors.New("location not found")

// Location is a geocoded place.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Day holds one day of conditions. Missing values are nil.
type Day struct {
	Date          string
	MaxTemp       *float64
	MinTemp       *float64
	Precipitation *float64
	Rain          *float64
	WindSpeed     *float64
	Code          *int
}

// Client talks to the Open-Meteo APIs.
type Client struct {
	HTTP         *http.Client
	GeocodingURL string
	ForecastURL  string
	ArchiveURL   string
	// Now reports the current time; it decides between forecast and archive.
	Now func() time.Time
}

// NewClient returns a client using the public Open-Meteo endpoints.
func NewClient() *Client {
	return &Client{
		HTTP:         &http.Client{},
		GeocodingURL: DefaultGeocodingURL,
		ForecastURL:  DefaultForecastURL,
		ArchiveURL:   DefaultArchiveURL,
		Now:          time.Now,
	}
}

type geocodeResponse struct {
	Results []Location `json:"results"`
}

// Geocode resolves name to its best match.
func (c *Client) Geocode(ctx context.Context, name string) (Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Location{}, ErrLocationNotFound
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.GeocodingURL, q, &resp); err != nil {
		return Location{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	if len(resp.Results) == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}
	loc := resp.Results[0]
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}
	return loc, nil
}

type dailyResponse struct {
	Daily *struct {
		Time          []string   `json:"time"`
		MaxTemp       []*float64 `json:"temperature_2m_max"`
		MinTemp       []*float64 `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_sum"`
		Rain          []*float64 `json:"rain_sum"`
		WindSpeed     []*float64 `json:"wind_speed_10m_max"`
		Code          []*int     `json:"weather_code"`
	} `json:"daily"`
}

// Daily returns conditions for each day of [start, end] at loc. Trips that
// begin after today use the forecast API; anything else uses the archive.
func (c *Client) Daily(ctx context.Context, loc Location, start, end time.Time) ([]Day, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("daily", strings.Join(dailyVariables, ","))
	q.Set("timezone", "auto")

	endpoint := c.ArchiveURL
	today := truncateDay(c.now())
	if truncateDay(start).After(today) {
		endpoint = c.ForecastURL
		q.Set("forecast_days", strconv.Itoa(ForecastDays(today, end)))
	} else {
		q.Set("start_date", start.Format(time.DateOnly))
		q.Set("end_date", end.Format(time.DateOnly))
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var resp dailyResponse
	if err := c.getJSON(ctx, endpoint, q, &resp); err != nil {
		return nil, fmt.Errorf("daily weather: %w", err)
	}
	if resp.Daily == nil {
		return nil, nil
	}

	d := resp.Daily
	from, to := start.Format(time.DateOnly), end.Format(time.DateOnly)
	days := make([]Day, 0, len(d.Time))
	for i, date := range d.Time {
		if i >= len(d.MaxTemp) || i >= len(d.MinTemp) {
			break
		}
		if date < from || date > to {
			continue
		}
		days = append(days, Day{
			Date:          date,
			MaxTemp:       d.MaxTemp[i],
			MinTemp:       d.MinTemp[i],
			Precipitation: at(d.Precipitation, i),
			Rain:          at(d.Rain, i),
			WindSpeed:     at(d.WindSpeed, i),
			Code:          at(d.Code, i),
		})
	}
	return days, nil
}

// ForecastDays is the forecast horizon needed to cover end, capped at 16.
func ForecastDays(today, end time.Time) int {
	n := int(truncateDay(end).Sub(truncateDay(today)).Hours()/24) + 1
	if n > maxForecastDays {
		return maxForecastDays
	}
	if n < 1 {
		return 1
	}
	return n
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}
