package planner

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yubzen/tripweaver/internal/agents"
	"github.com/yubzen/tripweaver/internal/config"
	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/metrics"
	"github.com/yubzen/tripweaver/internal/providers"
	"github.com/yubzen/tripweaver/internal/sources/hotels"
	"github.com/yubzen/tripweaver/internal/sources/weather"
)

// Amadeus credential names in the credential store.
const (
	AmadeusIDKey     = "amadeus_id"
	AmadeusSecretKey = "amadeus_secret"
)

var loadCredential = providers.LoadCredential

// Backends builds one OpenAI-compatible provider per configured entry.
func Backends(cfg *config.Config) llm.Backends {
	out := make(llm.Backends, len(cfg.LLM.Providers))
	for name, p := range cfg.LLM.Providers {
		prov := providers.NewOpenAI(name, p.BaseURL, p.KeyName)
		if cfg.LLM.RequestTimeout.Duration > 0 {
			prov.Client = &http.Client{Timeout: cfg.LLM.RequestTimeout.Duration}
		}
		out[name] = prov
	}
	return out
}

// NewFactory builds model acquisition from cfg. rec may be nil.
func NewFactory(cfg *config.Config, logger *slog.Logger, rec llm.OutcomeRecorder) *llm.Factory {
	backends := Backends(cfg)
	opts := []llm.FallbackOption{
		llm.WithProbeTimeout(cfg.LLM.ProbeTimeout.Duration),
		llm.WithLogger(logger),
	}
	if rec != nil {
		opts = append(opts, llm.WithRecorder(rec))
	}
	return llm.NewFactory(backends, llm.NewFallbackClient(backends, opts...), llm.FactoryConfig{
		FallbackProvider: cfg.LLM.FallbackProvider,
		Candidates:       cfg.LLM.Candidates,
		DefaultModels:    cfg.DefaultModels(),
	})
}

// NewHotelSource returns nil when hotels are disabled or the Amadeus
// credentials are missing, which the hotel node reports as a placeholder.
func NewHotelSource(cfg *config.Config, logger *slog.Logger) agents.HotelSource {
	if !cfg.Hotels.Enabled {
		return nil
	}
	id, _ := loadCredential(AmadeusIDKey)
	secret, _ := loadCredential(AmadeusSecretKey)
	client, err := hotels.NewClient(cfg.Hotels.BaseURL, id, secret)
	if err != nil {
		if errors.Is(err, hotels.ErrMissingCredentials) {
			logger.Debug("Amadeus credentials not configured; hotel search disabled")
		}
		return nil
	}
	return client
}

// NewWeatherSource is an Open-Meteo client on the configured endpoints.
func NewWeatherSource(cfg *config.Config) *weather.Client {
	c := weather.NewClient()
	if cfg.Weather.GeocodingURL != "" {
		c.GeocodingURL = cfg.Weather.GeocodingURL
	}
	if cfg.Weather.ForecastURL != "" {
		c.ForecastURL = cfg.Weather.ForecastURL
	}
	if cfg.Weather.ArchiveURL != "" {
		c.ArchiveURL = cfg.Weather.ArchiveURL
	}
	return c
}

// FromConfig builds a planner and its collaborators from cfg. m may be nil.
func FromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Planner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rec llm.OutcomeRecorder
	if m != nil {
		rec = m
	}
	deps := agents.Deps{
		Models:   NewFactory(cfg, logger, rec),
		Provider: cfg.LLM.FallbackProvider,
		Weather:  NewWeatherSource(cfg),
		Hotels:   NewHotelSource(cfg, logger),
		Logger:   logger,
	}
	return New(deps, append([]Option{WithLogger(logger), WithMetrics(m)}, opts...)...)
}
