// Package llm turns configured provider backends into model handles.
//
// GetModel is the only entry point the agents use. For the fallback-capable
// provider it walks an ordered candidate list, probing each candidate and
// moving on when a probe is rate limited or fails.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yubzen/tripweaver/internal/providers"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Candidate is one backend configuration tried by the fallback client.
type Candidate struct {
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model"`
}

func (c Candidate) String() string {
	return c.Provider + "/" + c.Model
}

// Handle is a model bound to a candidate and a sampling temperature.
type Handle interface {
	Candidate() Candidate
	Temperature() float64
	Invoke(ctx context.Context, messages []providers.Message) (string, error)
	Probe(ctx context.Context) error
}

type model struct {
	candidate   Candidate
	temperature float64
	provider    providers.Provider
}

func (m *model) Candidate() Candidate { return m.candidate }

func (m *model) Temperature() float64 { return m.temperature }

func (m *model) Invoke(ctx context.Context, messages []providers.Message) (string, error) {
	return m.provider.Complete(ctx, m.candidate.Model, messages, providers.CompletionOptions{
		Temperature: providers.Float64(m.temperature),
	})
}

// Probe is the minimal liveness round trip: a one token completion.
func (m *model) Probe(ctx context.Context) error {
	_, err := m.provider.Complete(ctx, m.candidate.Model, []providers.Message{
		{Role: "user", Content: "ping"},
	}, providers.CompletionOptions{Temperature: providers.Float64(m.temperature), MaxTokens: 1})
	return err
}

// Backends resolves provider names to clients.
type Backends map[string]providers.Provider

// Lookup returns the provider registered under name.
func (b Backends) Lookup(name string) (providers.Provider, error) {
	p, ok := b[strings.ToLower(strings.TrimSpace(name))]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (b Backends) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewHandle constructs a handle for c. Construction checks that the provider
// exists and that its credentials are present; it does not talk to the backend.
func (b Backends) NewHandle(ctx context.Context, c Candidate, temperature float64) (Handle, error) {
	p, err := b.Lookup(c.Provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Model) == "" {
		return nil, fmt.Errorf("candidate %s has no model", c.Provider)
	}
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s is not ready: %w", c, err)
	}
	return &model{candidate: c, temperature: temperature, provider: p}, nil
}
