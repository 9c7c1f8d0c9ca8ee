package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/config"
	"cdpflow/internal/deps"
	"cdpflow/internal/dispatch"
	"cdpflow/internal/faults"
	"cdpflow/internal/history"
	"cdpflow/internal/logging"
	"cdpflow/internal/operation"
	"cdpflow/internal/pipeline"
	"cdpflow/internal/preflight"
	"cdpflow/internal/probe"
	"cdpflow/internal/recipe"
	"cdpflow/internal/resolve"
)

type runFlags struct {
	out       string
	recipe    string
	ops       []string
	keepTemp  bool
	tempDir   string
	overwrite bool
	verbose   bool
	channels  string
	format    string
}

// runSummary is the --json shape of a run.
type runSummary struct {
	RunID      string   `json:"run_id"`
	Status     string   `json:"status"`
	Output     string   `json:"output,omitempty"`
	Format     string   `json:"format,omitempty"`
	Steps      int      `json:"steps"`
	Dispatches int      `json:"dispatches"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	WorkDir    string   `json:"work_dir,omitempty"`
	Retained   []string `json:"retained,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] <input>...",
		Short: "Run a chain of operations over one or more input files",
		Long: `Run a chain of operations over one or more input files.

Operations come from a recipe file (--recipe) followed by any --op flags, in
order. Each --op is the body of a TOML inline table:

  cdpflow run -o out.wav --op 'program = "blur", mode = "blur", input = "spectral", arity = "mono_only", params = [20]' in.wav

Format conversions and stereo splits/merges are inserted automatically.
Several inputs are only accepted when some operation is multi_input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)

			ops, out, err := buildRunPlan(flags)
			if err != nil {
				return err
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			if err := checkReadiness(cfg, ops); err != nil {
				return err
			}

			disp := dispatch.New(
				dispatch.WithLogger(logger),
				dispatch.WithVerbose(cfg.Pipeline.Verbose),
				dispatch.WithProgramResolver(cfg.Binary),
			)
			prober := probe.New(disp, probe.OptionsFromConfig(cfg))
			opts := pipeline.OptionsFromConfig(cfg, logger)
			opts.TempDir = strings.TrimSpace(flags.tempDir)

			result, runErr := pipeline.New(disp, prober, opts).Run(cmd.Context(), args, ops, out)
			recordHistory(cmd.Context(), cfg, logger, args, ops, result, runErr)

			summary := summarize(result, runErr)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return runErr
			}
			printRunSummary(cmd, summary)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.out, "out", "o", "", "Output file path (extension selects the format)")
	fs.StringVarP(&flags.recipe, "recipe", "r", "", "Recipe file with [[operation]] tables")
	fs.StringArrayVar(&flags.ops, "op", nil, "Inline operation (TOML inline table body); repeatable")
	fs.BoolVar(&flags.keepTemp, "keep-temp", false, "Keep intermediate files after the run")
	fs.StringVar(&flags.tempDir, "temp-dir", "", "Use this directory for intermediates instead of a fresh staging directory")
	fs.BoolVar(&flags.overwrite, "overwrite", false, "Replace the output file if it exists")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "Echo every command and breakpoint file")
	fs.StringVar(&flags.channels, "channels", "", "Output channels: preserve, mono, or stereo")
	fs.StringVar(&flags.format, "format", "", "Output format: raw or spectral (defaults to the output extension)")
	return cmd
}

// applyRunFlags lets explicitly set flags override configuration defaults.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	fs := cmd.Flags()
	if fs.Changed("keep-temp") {
		cfg.Pipeline.KeepTemp = flags.keepTemp
	}
	if fs.Changed("overwrite") {
		cfg.Pipeline.Overwrite = flags.overwrite
	}
	if fs.Changed("verbose") {
		cfg.Pipeline.Verbose = flags.verbose
	}
}

func buildRunPlan(flags runFlags) ([]operation.Descriptor, pipeline.Output, error) {
	var (
		ops []operation.Descriptor
		out pipeline.Output
	)
	if path := strings.TrimSpace(flags.recipe); path != "" {
		r, err := recipe.Load(path)
		if err != nil {
			return nil, out, err
		}
		ops = append(ops, r.Operations...)
		out = pipeline.Output{Path: r.Output.Path, Format: r.Output.Format, Channels: r.Output.Channels}
	}
	for i, body := range flags.ops {
		desc, err := recipe.ParseInline(body)
		if err != nil {
			return nil, out, fmt.Errorf("--op %d: %w", i+1, err)
		}
		ops = append(ops, desc)
	}

	if path := strings.TrimSpace(flags.out); path != "" {
		out.Path = path
	}
	if out.Path == "" {
		return nil, out, faults.Wrap(faults.ErrConfiguration, "cli", "run", "an output path is required (--out or [output] path in the recipe)", nil)
	}
	if strings.TrimSpace(flags.format) != "" {
		format, err := audiofile.ParseFormat(flags.format)
		if err != nil {
			return nil, out, faults.Wrap(faults.ErrConfiguration, "cli", "run", "--format", err)
		}
		out.Format = format
	}
	if strings.TrimSpace(flags.channels) != "" {
		channels, err := resolve.ParseChannels(flags.channels)
		if err != nil {
			return nil, out, faults.Wrap(faults.ErrConfiguration, "cli", "run", "--channels", err)
		}
		out.Channels = channels
	}
	return ops, out, nil
}

// checkReadiness fails fast when a directory or a program the run needs is
// unusable.
func checkReadiness(cfg *config.Config, ops []operation.Descriptor) error {
	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return faults.Wrap(faults.ErrConfiguration, "cli", "preflight", strings.Join(details, "; "), nil)
	}

	programs := make([]string, 0, len(ops))
	for _, op := range ops {
		programs = append(programs, op.Program)
	}
	if missing := deps.Missing(preflight.CheckTools(cfg, programs)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, s := range missing {
			names = append(names, s.Command)
		}
		return faults.Wrap(faults.ErrConfiguration, "cli", "preflight",
			"programs not found: "+strings.Join(names, ", ")+" (set tools.bin_dir or CDP_BIN_DIR; run cdpflow doctor)", nil)
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, inputs []string, ops []operation.Descriptor, result pipeline.Result, runErr error) {
	if !cfg.History.Enabled || result.RunID == "" {
		return
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db or disable [history]"),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return
	}
	defer store.Close()

	if _, err := store.Record(context.WithoutCancel(ctx), historyRecord(inputs, ops, result, runErr)); err != nil {
		logging.WarnWithContext(logger, "failed to record run", "history_record_failed",
			logging.String("run_id", result.RunID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from cdpflow history"),
		)
	}
}

func historyRecord(inputs []string, ops []operation.Descriptor, result pipeline.Result, runErr error) history.Run {
	labels := make([]string, 0, len(ops))
	for _, op := range ops {
		labels = append(labels, op.Label())
	}
	run := history.Run{
		RunID:      result.RunID,
		Status:     history.StatusSucceeded,
		Inputs:     inputs,
		Operations: labels,
		Steps:      result.Steps,
		Dispatches: result.Dispatches,
		WorkDir:    result.WorkDir,
		Retained:   len(result.Retained),
		StartedAt:  result.Started,
		FinishedAt: result.Finished,
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.ErrorKind = faults.Kind(runErr)
		run.ErrorMessage = runErr.Error()
		return run
	}
	run.OutputPath = result.Output.Path
	run.OutputFormat = result.Output.Format.String()
	return run
}

func summarize(result pipeline.Result, runErr error) runSummary {
	summary := runSummary{
		RunID:      result.RunID,
		Status:     string(history.StatusSucceeded),
		Steps:      result.Steps,
		Dispatches: result.Dispatches,
		WorkDir:    result.WorkDir,
		Retained:   result.Retained,
	}
	if !result.Finished.IsZero() {
		summary.ElapsedMS = result.Finished.Sub(result.Started).Milliseconds()
	}
	if runErr != nil {
		summary.Status = string(history.StatusFailed)
		summary.ErrorKind = faults.Kind(runErr)
		summary.Error = runErr.Error()
		return summary
	}
	summary.Output = result.Output.Path
	summary.Format = result.Output.Format.String()
	return summary
}

func printRunSummary(cmd *cobra.Command, summary runSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%s)\n", summary.Output, summary.Format)
	fmt.Fprintf(out, "Run %s: %d steps, %d dispatches in %s\n",
		summary.RunID, summary.Steps, summary.Dispatches,
		(time.Duration(summary.ElapsedMS) * time.Millisecond).String())
	if len(summary.Retained) > 0 {
		fmt.Fprintf(out, "Kept %d intermediate files in %s\n", len(summary.Retained), summary.WorkDir)
	}
}
