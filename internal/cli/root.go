// Package cli holds tripweaver's cobra commands.
package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yubzen/tripweaver/internal/config"
)

// App carries the persistent flags shared by every command.
type App struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCmd builds the tripweaver command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}
	rootCmd := &cobra.Command{
		Use:           "tripweaver",
		Short:         "Plan a trip with a pipeline of LLM-backed agents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default $TRIPWEAVER_CONFIG or ~/.config/tripweaver/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		NewPlanCmd(app),
		NewServeCmd(app),
		NewAuthCmd(),
		NewProvidersCmd(app),
		NewHistoryCmd(app),
		NewConfigCmd(app),
		NewGraphCmd(),
	)
	return rootCmd
}

func (a *App) configPath() string {
	if p := strings.TrimSpace(a.ConfigPath); p != "" {
		return p
	}
	return config.GetConfigPath()
}

func (a *App) loadConfig() (*config.Config, error) {
	return config.LoadFrom(a.configPath())
}

// logger writes text logs to w. Info and above by default, debug with
// --verbose.
func (a *App) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if a.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
