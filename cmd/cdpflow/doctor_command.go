package main

import (
	"strings"

	"github.com/spf13/cobra"

	"cdpflow/internal/config"
	"cdpflow/internal/deps"
	"cdpflow/internal/faults"
	"cdpflow/internal/preflight"
	"cdpflow/internal/recipe"
)

type doctorReport struct {
	ConfigPath string             `json:"config_path"`
	Checks     []preflight.Result `json:"checks"`
	Tools      []deps.Status      `json:"tools"`
	Healthy    bool               `json:"healthy"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var recipePath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and CDP programs",
		Long: `Check that the staging, log, and history directories are usable and that
the CDP helper programs can be found. With --recipe, the programs named by the
recipe are checked too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var programs []string
			if path := strings.TrimSpace(recipePath); path != "" {
				r, err := recipe.Load(path)
				if err != nil {
					return err
				}
				for _, op := range r.Operations {
					programs = append(programs, op.Program)
				}
			}

			report := buildDoctorReport(cfg, ctx.configPath, programs)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report)
			}
			if !report.Healthy {
				return faults.Wrap(faults.ErrConfiguration, "cli", "doctor", "one or more checks failed", nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&recipePath, "recipe", "r", "", "Also check the programs a recipe uses")
	return cmd
}

func buildDoctorReport(cfg *config.Config, configPath string, programs []string) doctorReport {
	report := doctorReport{
		ConfigPath: configPath,
		Checks:     preflight.RunAll(cfg),
		Tools:      preflight.CheckTools(cfg, programs),
	}
	report.Healthy = len(preflight.Failed(report.Checks)) == 0 && len(deps.Missing(report.Tools)) == 0
	return report
}

func printDoctorReport(cmd *cobra.Command, report doctorReport) {
	newDoctorPrinter(cmd.OutOrStdout()).report(report)
}
