package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/validation"
)

type validateFlags struct {
	checkBestPractices bool
	composeVersion     string
	format             string
	strict             bool
}

func newValidateCommand(app *App) *cobra.Command {
	flags := &validateFlags{}

	c := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a compose file",
		Long: `Check a compose file for structural errors, risky settings and missed
best practices.

Exit status is 1 when the file has errors and 2 when --strict is set and the
file has warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			options := validationOptions(cfg)
			if cmd.Flags().Changed("check-best-practices") {
				options.CheckBestPractices = flags.checkBestPractices
			}
			options.TargetVersion = flags.composeVersion

			report, err := validation.NewValidator(options, app.Logger).ValidateFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			text, err := validation.FormatReport(report, flags.format)
			if err != nil {
				return err
			}
			fmt.Fprint(app.Stdout, text)
			if strings.EqualFold(flags.format, validation.ReportJSON) {
				fmt.Fprintln(app.Stdout)
			}

			if err := validation.ApplyStrict(report, flags.strict); err != nil {
				if errors.Is(err, validation.ErrStrictWarnings) {
					return &ExitError{Code: ExitWarnings}
				}
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}

	c.Flags().BoolVar(&flags.checkBestPractices, "check-best-practices", true, "report best practice suggestions (default from config)")
	c.Flags().StringVar(&flags.composeVersion, "compose-version", "", "warn when the file declares another version")
	c.Flags().StringVar(&flags.format, "format", validation.ReportText, "report format: json, yaml or text")
	c.Flags().BoolVar(&flags.strict, "strict", false, "treat warnings as failures")

	return c
}
