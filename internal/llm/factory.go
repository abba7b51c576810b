package llm

import (
	"context"
	"fmt"
	"strings"
)

// Factory implements model acquisition for the agents.
type Factory struct {
	backends         Backends
	fallback         *FallbackClient
	fallbackProvider string
	candidates       []Candidate
	defaultModels    map[string]string
}

// FactoryConfig describes how models are acquired.
type FactoryConfig struct {
	// FallbackProvider is the provider name routed through the fallback client.
	FallbackProvider string
	// Candidates are tried in order for FallbackProvider.
	Candidates []Candidate
	// DefaultModels maps every other provider to the model it is built with.
	DefaultModels map[string]string
}

// NewFactory creates a factory. fallback may be nil when no provider uses it.
func NewFactory(backends Backends, fallback *FallbackClient, cfg FactoryConfig) *Factory {
	defaults := make(map[string]string, len(cfg.DefaultModels))
	for k, v := range cfg.DefaultModels {
		defaults[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Factory{
		backends:         backends,
		fallback:         fallback,
		fallbackProvider: strings.ToLower(strings.TrimSpace(cfg.FallbackProvider)),
		candidates:       append([]Candidate(nil), cfg.Candidates...),
		defaultModels:    defaults,
	}
}

// Candidates returns a copy of the fallback candidate list.
func (f *Factory) Candidates() []Candidate {
	return append([]Candidate(nil), f.candidates...)
}

// GetModel returns a model for provider at the given temperature. The
// candidate list is resolved on every call; nothing is cached between calls.
func (f *Factory) GetModel(ctx context.Context, provider string, temperature float64) (Handle, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == f.fallbackProvider && f.fallback != nil {
		return f.fallback.Acquire(ctx, f.Candidates(), temperature)
	}

	model, ok := f.defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return f.backends.NewHandle(ctx, Candidate{Provider: provider, Model: model}, temperature)
}
