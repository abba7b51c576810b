package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Message struct {
	Role    string // "user" | "assistant" | "system"
	Content string
}

// CompletionOptions carries per-call sampling settings. A nil Temperature
// leaves the backend default in place; MaxTokens 0 means no limit is sent.
type CompletionOptions struct {
	Temperature *float64
	MaxTokens   int
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, model string, messages []Message, opts CompletionOptions) (string, error)
	Ping(ctx context.Context) error
}

type ProviderAuthError struct {
	ProviderName string
	Msg          string
}

func (e *ProviderAuthError) Error() string {
	return e.Msg
}

// RateLimitError is returned when a backend answers 429.
type RateLimitError struct {
	ProviderName string
	RetryAfter   time.Duration
	Msg          string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited (retry after %s): %s", e.ProviderName, e.RetryAfter, e.Msg)
	}
	return fmt.Sprintf("%s rate limited: %s", e.ProviderName, e.Msg)
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsAuthError reports whether err is a credential problem.
func IsAuthError(err error) bool {
	var auth *ProviderAuthError
	return errors.As(err, &auth)
}

// Float64 is a helper for CompletionOptions.Temperature.
func Float64(v float64) *float64 {
	return &v
}
