package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultPingTimeout bounds each provider's Ping in CheckAll.
const DefaultPingTimeout = 10 * time.Second

// HealthStatus is one provider's readiness as seen by Ping. Reason
// classifies a failed ping: "missing credentials", "rate limited" or
// "unreachable".
type HealthStatus struct {
	Name     string
	IsOnline bool
	Reason   string
	ErrorMsg string
	Latency  time.Duration
}

// CheckAll pings every provider concurrently, each under timeout, and
// returns the statuses in the order the providers were given.
func CheckAll(ctx context.Context, provs []Provider, timeout time.Duration) []HealthStatus {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	statuses := make([]HealthStatus, len(provs))

	var wg sync.WaitGroup
	for i, p := range provs {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			err := p.Ping(pingCtx)
			statuses[i] = HealthStatus{
				Name:     p.Name(),
				IsOnline: err == nil,
				Latency:  time.Since(started),
			}
			if err != nil {
				statuses[i].Reason = reason(err)
				statuses[i].ErrorMsg = err.Error()
			}
		}(i, p)
	}
	wg.Wait()
	return statuses
}

func reason(err error) string {
	switch {
	case IsAuthError(err):
		return "missing credentials"
	case IsRateLimited(err):
		return "rate limited"
	default:
		return "unreachable"
	}
}
