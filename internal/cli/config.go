package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/config"
	"github.com/yubzen/tripweaver/internal/tui"
)

func NewConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	var raw bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if raw || !isTerminal(os.Stdout) {
				return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderConfig(cfg, app.configPath()))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&raw, "toml", false, "Print TOML even on a terminal")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.configPath())
		},
	}

	configCmd.AddCommand(showCmd, initCmd, pathCmd)
	return configCmd
}
