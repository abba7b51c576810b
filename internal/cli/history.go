package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/render"
	"github.com/yubzen/tripweaver/internal/state"
)

func NewHistoryCmd(app *App) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List archived travel plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openHistory()
			if err != nil {
				return err
			}
			defer db.Close()

			plans, err := db.ListPlans(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived plans yet. Run `tripweaver plan` first.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tDESTINATION\tDATES\tSTEPS")
			for _, p := range plans {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\n",
					shortID(p.ID),
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
					p.Destination,
					p.StartDate, p.EndDate,
					strings.Join(p.Visited, ","))
			}
			return w.Flush()
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of plans to list (0 for all)")

	var format string
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived plan (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			db, err := app.openHistory()
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := db.GetPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r := render.New()
			r.Now = func() time.Time { return stored.CreatedAt }
			body, err := r.Render(stored.Record, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, json, yaml or text")

	historyCmd.AddCommand(showCmd)
	return historyCmd
}

func (a *App) openHistory() (*state.DB, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return state.Connect(cfg.Archive.Path)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
