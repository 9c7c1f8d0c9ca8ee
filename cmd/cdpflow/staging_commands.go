package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdpflow/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage run workspaces under the staging directory",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List run workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			if ctx.JSONMode() {
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      jsonList(dirs),
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No run workspaces found")
				return nil
			}
			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			fmt.Fprintln(out, workspacesTable(dirs))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale run workspaces",
		Long: `Remove run workspaces left behind by interrupted or --keep-temp runs.

By default only workspaces older than pipeline.stale_after_hours are removed.
Use --older-than to pick another age, or --all to remove every workspace.
Workspaces still locked by a running cdpflow process are always skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			maxAge := time.Duration(cfg.Pipeline.StaleAfterHours) * time.Hour
			if cmd.Flags().Changed("older-than") {
				maxAge = olderThan
			}
			if cleanAll {
				maxAge = 0
			}

			result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logger)

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"removed": len(result.Removed),
					"skipped": len(result.Skipped),
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			switch {
			case len(result.Removed) == 0 && len(result.Skipped) == 0:
				fmt.Fprintln(out, "No stale workspaces found")
			default:
				fmt.Fprintf(out, "Removed %d workspaces\n", len(result.Removed))
				if len(result.Skipped) > 0 {
					fmt.Fprintf(out, "Skipped %d workspaces still in use\n", len(result.Skipped))
				}
			}
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("failed to remove %d workspaces", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every workspace that is not in use")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove workspaces older than this age")
	return cmd
}
