package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Olympus-chain/autocompose/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Show and edit the autocompose configuration.

Values are read from the configuration file and may be overridden with
AUTOCOMPOSE_* environment variables, e.g. AUTOCOMPOSE_DEFAULT_FORMAT=json.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			text, err := config.Show(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(app.Stdout, text)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: fmt.Sprintf(`Set a configuration value and save the file. Lists are comma separated.

Keys:
  %s`, strings.Join(config.Keys(), "\n  ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "Configuration reset to defaults in %s\n", app.manager.Path())
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Init(force); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "Configuration written to %s\n", app.manager.Path())
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(app.Stdout, app.manager.Path())
			return nil
		},
	}

	configCmd.AddCommand(showCmd, setCmd, resetCmd, initCmd, pathCmd)
	return configCmd
}
