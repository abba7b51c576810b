package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/tripweaver/internal/llm"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("OLLAMA_URL", "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.FallbackProvider)
	assert.Equal(t, 15*time.Second, cfg.LLM.ProbeTimeout.Duration)
	require.Len(t, cfg.LLM.Candidates, 3)
	assert.Equal(t, llm.Candidate{Provider: "groq", Model: "openai/gpt-oss-120b"}, cfg.LLM.Candidates[0])
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].DefaultModel)
	assert.Equal(t, "llama3", cfg.LLM.Providers["ollama"].DefaultModel)
	assert.True(t, cfg.Hotels.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("OLLAMA_URL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
probe_timeout = "3s"

[[llm.candidates]]
provider = "ollama"
model = "qwen2.5"

[[llm.candidates]]
provider = "groq"
model = "llama-3.1-8b-instant"

[hotels]
enabled = false
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.LLM.ProbeTimeout.Duration)
	assert.Equal(t, []llm.Candidate{
		{Provider: "ollama", Model: "qwen2.5"},
		{Provider: "groq", Model: "llama-3.1-8b-instant"},
	}, cfg.LLM.Candidates)
	assert.False(t, cfg.Hotels.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].DefaultModel)
	assert.NotEmpty(t, cfg.Weather.ForecastURL)
}

func TestLoadFromRejectsUnknownCandidateProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[llm.candidates]]
provider = "mystery"
model = "m"
`), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "mystery" is not configured`)
}

func TestLoadFromRejectsMalformedDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm]\nprobe_timeout = \"soon\"\n"), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_MODEL": "gpt-4o-mini",
		"GROQ_MODEL":   "llama-3.3-70b-versatile",
		"OLLAMA_MODEL": "mistral",
		"OLLAMA_URL":   "http://gpu-box:11434/",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Providers["openai"].DefaultModel)
	assert.Equal(t, "mistral", cfg.LLM.Providers["ollama"].DefaultModel)
	assert.Equal(t, "http://gpu-box:11434/v1", cfg.LLM.Providers["ollama"].BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Providers["groq"].DefaultModel)

	// GROQ_MODEL moves to the front without duplicating
	require.Len(t, cfg.LLM.Candidates, 3)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Candidates[0].Model)
	assert.Equal(t, "openai/gpt-oss-120b", cfg.LLM.Candidates[1].Model)

	untouched := Default()
	untouched.ApplyEnv(noEnv)
	assert.Equal(t, Default().LLM.Candidates, untouched.LLM.Candidates)
}

func TestApplyEnvOllamaURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"http://gpu-box:11434":     "http://gpu-box:11434/v1",
		"http://gpu-box:11434/":    "http://gpu-box:11434/v1",
		"http://gpu-box:11434/v1":  "http://gpu-box:11434/v1",
		"http://gpu-box:11434/v1/": "http://gpu-box:11434/v1",
	}
	for in, want := range tests {
		cfg := Default()
		cfg.ApplyEnv(func(k string) (string, bool) {
			if k == "OLLAMA_URL" {
				return in, true
			}
			return "", false
		})
		assert.Equal(t, want, cfg.LLM.Providers["ollama"].BaseURL, in)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("OLLAMA_URL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Serve.Addr = ":9999"
	cfg.LLM.ProbeTimeout = Duration{7 * time.Second}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Serve.Addr)
	assert.Equal(t, 7*time.Second, loaded.LLM.ProbeTimeout.Duration)
	assert.Equal(t, cfg.LLM.Candidates, loaded.LLM.Candidates)
}

func TestGetConfigPathHonorsEnv(t *testing.T) {
	t.Setenv("TRIPWEAVER_CONFIG", "/tmp/tw.toml")
	assert.Equal(t, "/tmp/tw.toml", GetConfigPath())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("OLLAMA_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[serve]\naddr = \":1\"\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	w := &Watcher{Path: path, Debounce: 50 * time.Millisecond, OnChange: func(c *Config) { changes <- c }}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("[serve]\naddr = \":2\"\n"), 0o644)
		select {
		case c := <-changes:
			return c.Serve.Addr == ":2"
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	// an invalid file keeps the previous config
	require.NoError(t, os.WriteFile(path, []byte("[llm]\nprobe_timeout = \"never\"\n"), 0o644))
	select {
	case c := <-changes:
		t.Fatalf("unexpected reload: %+v", c.Serve)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
