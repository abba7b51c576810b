package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/config"
	"github.com/yubzen/tripweaver/internal/metrics"
	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/planner"
	"github.com/yubzen/tripweaver/internal/render"
	"github.com/yubzen/tripweaver/internal/state"
	"github.com/yubzen/tripweaver/internal/tui"
	"github.com/yubzen/tripweaver/internal/workflow"
)

// PlanRequest is the trip as given on the command line or to POST /plan.
type PlanRequest struct {
	Origin            string `json:"origin"`
	Destination       string `json:"destination"`
	Budget            string `json:"budget"`
	Style             string `json:"style"`
	People            int    `json:"people"`
	Start             string `json:"start"`
	End               string `json:"end"`
	Notes             string `json:"notes"`
	IncludeActivities bool   `json:"activities"`
}

// Record parses and validates the request into an initial record.
func (r PlanRequest) Record() (plan.Record, error) {
	start, err := plan.ParseDate(r.Start)
	if err != nil {
		return plan.Record{}, fmt.Errorf("%w: start: %v", plan.ErrInvalidInputs, err)
	}
	end, err := plan.ParseDate(r.End)
	if err != nil {
		return plan.Record{}, fmt.Errorf("%w: end: %v", plan.ErrInvalidInputs, err)
	}
	people := r.People
	if people == 0 {
		people = 1
	}
	in := plan.Inputs{
		Origin:            strings.TrimSpace(r.Origin),
		Destination:       strings.TrimSpace(r.Destination),
		Budget:            plan.Budget(strings.ToLower(strings.TrimSpace(r.Budget))),
		Style:             plan.Style(strings.ToLower(strings.TrimSpace(r.Style))),
		PartySize:         people,
		StartDate:         start,
		EndDate:           end,
		Preferences:       strings.TrimSpace(r.Notes),
		IncludeActivities: r.IncludeActivities,
	}
	if err := in.Validate(); err != nil {
		return plan.Record{}, err
	}
	return plan.New(in), nil
}

// openArchive returns nil when the archive is disabled.
func openArchive(cfg *config.Config, disabled bool) (*state.DB, error) {
	if disabled || !cfg.Archive.Enabled {
		return nil, nil
	}
	db, err := state.Connect(cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("open plan archive: %w", err)
	}
	return db, nil
}

func NewPlanCmd(app *App) *cobra.Command {
	var (
		req       PlanRequest
		format    string
		outPath   string
		noArchive bool
		noTUI     bool
	)
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip and write the itinerary document",
		Example: `  tripweaver plan --origin Canada --destination Lisbon --start 2026-11-02 --end 2026-11-06 \
    --budget mid-range --style cultural --people 2 --notes "food, museums" --activities`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			rec, err := req.Record()
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			useTUI := !noTUI && isTerminal(os.Stdout) && outPath != "-"
			logOut := cmd.ErrOrStderr()
			if useTUI && !app.Verbose {
				// the progress view owns the terminal
				logOut = io.Discard
			}
			logger := app.logger(logOut)

			archive, err := openArchive(cfg, noArchive)
			if err != nil {
				return err
			}
			var opts []planner.Option
			if archive != nil {
				defer archive.Close()
				opts = append(opts, planner.WithArchive(archive))
			}

			p, err := planner.FromConfig(cfg, logger, metrics.New(), opts...)
			if err != nil {
				return err
			}

			var final plan.Record
			if useTUI {
				final, err = tui.Run(ctx, os.Stdout, rec, cfg.LLM.FallbackProvider, planner.PlannedSteps(rec),
					func(ctx context.Context, observe workflow.Observer) (plan.Record, error) {
						res, err := p.Plan(ctx, rec, observe)
						return res.Record, err
					})
			} else {
				var res planner.Result
				res, err = p.Plan(ctx, rec, logSteps(logger))
				final = res.Record
			}
			if err != nil {
				return err
			}
			return writeDocument(cmd, final, f, outPath)
		},
	}

	flags := planCmd.Flags()
	flags.StringVar(&req.Origin, "origin", "", "Country or city you travel from")
	flags.StringVar(&req.Destination, "destination", "", "Destination city")
	flags.StringVar(&req.Budget, "budget", string(plan.BudgetMid), "budget, mid-range or luxury")
	flags.StringVar(&req.Style, "style", string(plan.StyleCultural), "adventure, cultural, romantic, family or solo")
	flags.IntVar(&req.People, "people", 1, "Number of travelers")
	flags.StringVar(&req.Start, "start", "", "Start date (YYYY-MM-DD)")
	flags.StringVar(&req.End, "end", "", "End date (YYYY-MM-DD)")
	flags.StringVar(&req.Notes, "notes", "", "Comma separated interests and preferences")
	flags.BoolVar(&req.IncludeActivities, "activities", false, "Also suggest activities")
	flags.StringVarP(&format, "format", "f", "md", "Output format: md, json, yaml or text")
	flags.StringVarP(&outPath, "out", "o", "", "Output file or directory; - for stdout (default: a file in the current directory)")
	flags.BoolVar(&noArchive, "no-archive", false, "Do not save the plan to the history archive")
	flags.BoolVar(&noTUI, "no-tui", false, "Log progress instead of showing the progress view")
	for _, name := range []string{"origin", "destination", "start", "end"} {
		_ = planCmd.MarkFlagRequired(name)
	}
	return planCmd
}

func logSteps(logger *slog.Logger) workflow.Observer {
	return func(ev workflow.StepEvent) {
		switch ev.Status {
		case workflow.StepRunning:
			logger.Info("Step started", "node", ev.Node)
		case workflow.StepDone:
			logger.Info("Step finished", "node", ev.Node, "duration", ev.Duration)
		case workflow.StepFailed:
			logger.Error("Step failed", "node", ev.Node, "duration", ev.Duration, "error", ev.Err)
		}
	}
}

// writeDocument renders rec and writes it to outPath: "-" is stdout, an
// existing directory gets the default file name, empty means the current
// directory.
func writeDocument(cmd *cobra.Command, rec plan.Record, f render.Format, outPath string) error {
	body, err := render.New().Render(rec, f)
	if err != nil {
		return err
	}
	if outPath == "-" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}

	target := outPath
	if target == "" {
		target = "."
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, render.FileName(rec, f.Ext()))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Travel plan written to %s\n", target)
	return nil
}
