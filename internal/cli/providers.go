package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/config"
	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/planner"
	"github.com/yubzen/tripweaver/internal/providers"
)

// CandidateStatus is the probe result of one fallback candidate.
type CandidateStatus struct {
	Candidate llm.Candidate
	Outcome   llm.Outcome
	Latency   time.Duration
	Err       error
}

// ProbeCandidates probes every candidate in order without stopping at the
// first usable one.
func ProbeCandidates(ctx context.Context, b llm.HandleBuilder, candidates []llm.Candidate, timeout time.Duration) []CandidateStatus {
	out := make([]CandidateStatus, 0, len(candidates))
	for _, c := range candidates {
		started := time.Now()
		status := CandidateStatus{Candidate: c, Outcome: llm.OutcomeSelected}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		h, err := b.NewHandle(probeCtx, c, 0)
		if err == nil {
			err = h.Probe(probeCtx)
		}
		cancel()

		status.Latency = time.Since(started)
		if err != nil {
			status.Err = err
			status.Outcome = llm.OutcomeFailed
			if providers.IsRateLimited(err) {
				status.Outcome = llm.OutcomeRateLimited
			}
		}
		out = append(out, status)
	}
	return out
}

func NewProvidersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Check configured providers and probe each fallback candidate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			return runProviders(cmd, cfg)
		},
	}
}

func runProviders(cmd *cobra.Command, cfg *config.Config) error {
	backends := planner.Backends(cfg)
	provs := make([]providers.Provider, 0, len(backends))
	for _, name := range backends.Names() {
		provs = append(provs, backends[name])
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tDETAIL")
	for _, s := range providers.CheckAll(cmd.Context(), provs, cfg.LLM.ProbeTimeout.Duration) {
		status := "ready"
		if !s.IsOnline {
			status = s.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, status, s.ErrorMsg)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "CANDIDATE (%s)\tOUTCOME\tLATENCY\n", cfg.LLM.FallbackProvider)
	for _, s := range ProbeCandidates(cmd.Context(), backends, cfg.LLM.Candidates, cfg.LLM.ProbeTimeout.Duration) {
		detail := s.Latency.Round(time.Millisecond).String()
		if s.Err != nil {
			detail += "  " + s.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Candidate, s.Outcome, detail)
	}
	return w.Flush()
}
