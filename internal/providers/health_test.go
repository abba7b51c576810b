package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	name   string
	errOut error
	block  bool
}

func (m MockProvider) Name() string { return m.name }
func (m MockProvider) Ping(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.errOut
}
func (m MockProvider) Complete(ctx context.Context, model string, messages []Message, opts CompletionOptions) (string, error) {
	return "", nil
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		providers []Provider
		online    []bool
		reasons   []string
	}{
		{
			name: "mixed statuses keep input order",
			providers: []Provider{
				MockProvider{name: "ok_prov"},
				MockProvider{name: "bad_prov", errOut: &ProviderAuthError{ProviderName: "bad_prov", Msg: "no key"}},
				MockProvider{name: "busy_prov", errOut: &RateLimitError{ProviderName: "busy_prov"}},
				MockProvider{name: "down_prov", errOut: errors.New("connection refused")},
			},
			online:  []bool{true, false, false, false},
			reasons: []string{"", "missing credentials", "rate limited", "unreachable"},
		},
		{
			name: "no providers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := CheckAll(context.Background(), tt.providers, time.Second)
			require.Len(t, results, len(tt.providers))
			for i, r := range results {
				assert.Equal(t, tt.providers[i].Name(), r.Name)
				assert.Equal(t, tt.online[i], r.IsOnline)
				assert.Equal(t, tt.reasons[i], r.Reason)
			}
		})
	}
}

func TestHealthCheckTimesOutSlowProviders(t *testing.T) {
	t.Parallel()

	start := time.Now()
	results := CheckAll(context.Background(), []Provider{
		MockProvider{name: "hung", block: true},
		MockProvider{name: "hung_too", block: true},
	}, 30*time.Millisecond)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.IsOnline)
		assert.Equal(t, "unreachable", r.Reason)
		assert.Contains(t, r.ErrorMsg, "deadline exceeded")
	}
}
