// Package config loads tripweaver's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/providers"
	"github.com/yubzen/tripweaver/internal/sources/hotels"
	"github.com/yubzen/tripweaver/internal/sources/weather"
)

// Duration is a time.Duration written as a string ("15s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Provider is one OpenAI-compatible backend.
type Provider struct {
	BaseURL      string `toml:"base_url"`
	KeyName      string `toml:"key_name"`
	DefaultModel string `toml:"default_model"`
}

type LLM struct {
	FallbackProvider string              `toml:"fallback_provider"`
	ProbeTimeout     Duration            `toml:"probe_timeout"`
	RequestTimeout   Duration            `toml:"request_timeout"`
	Candidates       []llm.Candidate     `toml:"candidates"`
	Providers        map[string]Provider `toml:"providers"`
}

type Weather struct {
	GeocodingURL string `toml:"geocoding_url"`
	ForecastURL  string `toml:"forecast_url"`
	ArchiveURL   string `toml:"archive_url"`
}

type Hotels struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

type Archive struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Serve struct {
	Addr string `toml:"addr"`
}

type Config struct {
	LLM     LLM     `toml:"llm"`
	Weather Weather `toml:"weather"`
	Hotels  Hotels  `toml:"hotels"`
	Archive Archive `toml:"archive"`
	Serve   Serve   `toml:"serve"`
}

// GetConfigPath returns $TRIPWEAVER_CONFIG or ~/.config/tripweaver/config.toml.
func GetConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("TRIPWEAVER_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tripweaver")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config

	cfg.LLM.FallbackProvider = "groq"
	cfg.LLM.ProbeTimeout = Duration{llm.DefaultProbeTimeout}
	cfg.LLM.RequestTimeout = Duration{providers.DefaultRequestTimeout}
	cfg.LLM.Candidates = []llm.Candidate{
		{Provider: "groq", Model: "openai/gpt-oss-120b"},
		{Provider: "groq", Model: "llama-3.3-70b-versatile"},
		{Provider: "groq", Model: "llama-3.1-8b-instant"},
	}
	cfg.LLM.Providers = map[string]Provider{
		"openai": {BaseURL: providers.OpenAIBaseURL, KeyName: "openai", DefaultModel: "gpt-4o"},
		"groq":   {BaseURL: providers.GroqBaseURL, KeyName: "groq", DefaultModel: "openai/gpt-oss-120b"},
		"ollama": {BaseURL: providers.OllamaBaseURL, DefaultModel: "llama3"},
	}
	cfg.Weather = Weather{
		GeocodingURL: weather.DefaultGeocodingURL,
		ForecastURL:  weather.DefaultForecastURL,
		ArchiveURL:   weather.DefaultArchiveURL,
	}
	cfg.Hotels = Hotels{Enabled: true, BaseURL: hotels.TestBaseURL}
	cfg.Archive = Archive{Enabled: true, Path: filepath.Join(configDir(), "plans.db")}
	cfg.Serve.Addr = "127.0.0.1:8080"
	return &cfg
}

// Load reads the file at GetConfigPath.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg.ApplyEnv(os.LookupEnv)
		return cfg, nil
	}

	// decode candidates into a fresh slice so a file list replaces the defaults
	defaults := cfg.LLM.Candidates
	cfg.LLM.Candidates = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(cfg.LLM.Candidates) == 0 {
		cfg.LLM.Candidates = defaults
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies OPENAI_MODEL, GROQ_MODEL, OLLAMA_MODEL and OLLAMA_URL.
// GROQ_MODEL also becomes the first fallback candidate.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(provider, env string, apply func(*Provider, string)) {
		v, ok := lookup(env)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		p := c.LLM.Providers[provider]
		apply(&p, strings.TrimSpace(v))
		c.LLM.Providers[provider] = p
	}
	setModel := func(p *Provider, v string) { p.DefaultModel = v }

	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]Provider)
	}
	set("openai", "OPENAI_MODEL", setModel)
	set("groq", "GROQ_MODEL", setModel)
	set("ollama", "OLLAMA_MODEL", setModel)
	set("ollama", "OLLAMA_URL", func(p *Provider, v string) {
		base := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(v), "/"), "/v1")
		p.BaseURL = strings.TrimRight(base, "/") + "/v1"
	})

	if v, ok := lookup("GROQ_MODEL"); ok && strings.TrimSpace(v) != "" {
		first := llm.Candidate{Provider: "groq", Model: strings.TrimSpace(v)}
		out := []llm.Candidate{first}
		for _, cand := range c.LLM.Candidates {
			if cand != first {
				out = append(out, cand)
			}
		}
		c.LLM.Candidates = out
	}
}

// Validate checks that every candidate and the fallback provider refer to
// configured providers.
func (c *Config) Validate() error {
	var problems []string
	if _, ok := c.LLM.Providers[c.LLM.FallbackProvider]; !ok {
		problems = append(problems, fmt.Sprintf("fallback_provider %q is not configured", c.LLM.FallbackProvider))
	}
	for i, cand := range c.LLM.Candidates {
		if _, ok := c.LLM.Providers[cand.Provider]; !ok {
			problems = append(problems, fmt.Sprintf("candidate %d: provider %q is not configured", i+1, cand.Provider))
		}
		if strings.TrimSpace(cand.Model) == "" {
			problems = append(problems, fmt.Sprintf("candidate %d: model is empty", i+1))
		}
	}
	if c.LLM.ProbeTimeout.Duration <= 0 {
		problems = append(problems, "probe_timeout must be positive")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// DefaultModels maps each provider to its default model.
func (c *Config) DefaultModels() map[string]string {
	out := make(map[string]string, len(c.LLM.Providers))
	for name, p := range c.LLM.Providers {
		out[name] = p.DefaultModel
	}
	return out
}

func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
