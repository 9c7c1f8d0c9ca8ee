package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/config"
	"cdpflow/internal/convert"
	"cdpflow/internal/faults"
	"cdpflow/internal/fileutil"
	"cdpflow/internal/logging"
	"cdpflow/internal/operation"
	"cdpflow/internal/resolve"
	"cdpflow/internal/staging"
)

// Invoker runs one external program to completion.
type Invoker interface {
	Invoke(ctx context.Context, program string, args []string) (string, error)
}

// Prober answers metadata queries about audio files.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
	Channels(ctx context.Context, path string) (int, error)
}

// Output describes the requested final artifact.
type Output struct {
	Path string
	// Format defaults to the format implied by Path's extension.
	Format   audiofile.Format
	Channels resolve.Channels
}

// Options configures an Orchestrator.
type Options struct {
	StagingRoot string
	// TempDir, when set, is used as the run's workspace instead of a fresh
	// directory under StagingRoot.
	TempDir   string
	KeepTemp  bool
	Overwrite bool
	Verbose   bool
	Convert   convert.Options
	Logger    *slog.Logger
}

// OptionsFromConfig fills options from configuration defaults.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		StagingRoot: cfg.Paths.StagingDir,
		KeepTemp:    cfg.Pipeline.KeepTemp,
		Overwrite:   cfg.Pipeline.Overwrite,
		Verbose:     cfg.Pipeline.Verbose,
		Convert:     convert.OptionsFromConfig(cfg),
		Logger:      logger,
	}
}

// Result summarizes a run. It is populated as far as the run got, so failed
// runs still report their id, progress, and workspace.
type Result struct {
	RunID      string
	Output     audiofile.File
	Steps      int
	Dispatches int
	WorkDir    string
	Retained   []string
	Started    time.Time
	Finished   time.Time
}

// Orchestrator drives runs.
type Orchestrator struct {
	invoker Invoker
	prober  Prober
	opts    Options
	logger  *slog.Logger
}

// New constructs an orchestrator.
func New(invoker Invoker, prober Prober, opts Options) *Orchestrator {
	return &Orchestrator{
		invoker: invoker,
		prober:  prober,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

// run holds the per-run collaborators.
type run struct {
	*Orchestrator
	ws     *staging.Workspace
	conv   *convert.Converter
	state  *State
	result *Result
}

// Run executes ops over inputs and writes the final result to out.Path.
func (o *Orchestrator) Run(ctx context.Context, inputs []string, ops []operation.Descriptor, out Output) (result Result, err error) {
	result = Result{RunID: uuid.NewString(), Started: time.Now()}
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, o.logger)
	defer func() {
		result.Finished = time.Now()
	}()

	out, err = o.plan(inputs, ops, out)
	if err != nil {
		return result, err
	}

	ws, err := staging.Open(staging.Options{
		Root:   o.opts.StagingRoot,
		Dir:    o.opts.TempDir,
		RunID:  result.RunID,
		Keep:   o.opts.KeepTemp,
		Logger: o.opts.Logger,
	})
	if err != nil {
		return result, err
	}
	result.WorkDir = ws.Dir()
	defer func() {
		if o.opts.KeepTemp {
			result.Retained = ws.Registered()
		}
		if releaseErr := ws.Release(); releaseErr != nil {
			logging.WarnWithContext(logger, "failed to release workspace", "workspace_release_failed",
				logging.String("dir", ws.Dir()),
				logging.Error(releaseErr),
				logging.String(logging.FieldErrorHint, "remove the directory manually or run cdpflow staging clean"),
				logging.String(logging.FieldImpact, "intermediate files left on disk"),
			)
		}
	}()

	r := &run{
		Orchestrator: o,
		ws:           ws,
		conv:         convert.New(o.invoker, o.prober, ws, o.opts.Convert, o.opts.Logger),
		state:        &State{},
		result:       &result,
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("inputs", len(inputs)),
		logging.Int("operations", len(ops)),
		logging.String("output", out.Path),
		logging.String("workspace", ws.Dir()),
	)

	if err := r.loadInputs(ctx, inputs); err != nil {
		return result, r.fail(ctx, err)
	}
	for i, op := range ops {
		if err := r.step(ctx, i, op); err != nil {
			return result, r.fail(ctx, err)
		}
		result.Steps = i + 1
	}
	final, err := r.finalize(ctx, out)
	if err != nil {
		return result, r.fail(ctx, err)
	}
	result.Output = final

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", final.Path),
		logging.Int("dispatches", result.Dispatches),
		logging.Duration("elapsed", time.Since(result.Started).Round(time.Millisecond)),
	)
	return result, nil
}

// plan validates the request before anything touches the filesystem.
func (o *Orchestrator) plan(inputs []string, ops []operation.Descriptor, out Output) (Output, error) {
	if len(inputs) == 0 {
		return out, configError("at least one input file is required")
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return out, faults.AtStep(err, i, op.Label(), -1, "")
		}
	}
	if len(inputs) > 1 && !hasMultiInput(ops) {
		return out, configError(fmt.Sprintf("%d inputs given but no operation is multi-input; the run would produce %d outputs", len(inputs), len(inputs)))
	}

	if out.Path == "" {
		return out, configError("output path is required")
	}
	absOut, err := filepath.Abs(out.Path)
	if err != nil {
		return out, fmt.Errorf("resolve output path: %w", err)
	}
	out.Path = absOut
	if out.Format == "" {
		format, err := audiofile.FormatForPath(out.Path)
		if err != nil {
			return out, configError("output format: " + err.Error())
		}
		out.Format = format
	}
	if !out.Format.Valid() {
		return out, configError(fmt.Sprintf("unknown output format %q", out.Format))
	}
	for _, in := range inputs {
		if absIn, err := filepath.Abs(in); err == nil && absIn == out.Path {
			return out, configError("output path is also an input: " + in)
		}
	}
	if err := o.checkOverwrite(out.Path); err != nil {
		return out, err
	}
	return out, nil
}

func (o *Orchestrator) checkOverwrite(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if info.IsDir() {
		return configError("output path is a directory: " + path)
	}
	if !o.opts.Overwrite {
		return configError("output " + path + " exists; pass --overwrite to replace it")
	}
	return nil
}

func (r *run) loadInputs(ctx context.Context, inputs []string) error {
	for _, path := range inputs {
		format, err := audiofile.FormatForPath(path)
		if err != nil {
			return configError("input: " + err.Error())
		}
		handle := audiofile.File{Path: path, Format: format, Role: audiofile.RoleMono}
		if err := handle.Exists(); err != nil {
			return configError("input: " + err.Error())
		}
		channels, err := r.prober.Channels(ctx, path)
		if err != nil {
			return fmt.Errorf("probe channels of %s: %w", path, err)
		}
		var layout resolve.Layout
		switch channels {
		case 1:
			layout = resolve.LayoutMono
		case 2:
			layout = resolve.LayoutUnsplit
		default:
			return configError(fmt.Sprintf("input %s has %d channels; only mono and stereo are supported", path, channels))
		}
		g := r.state.add([]audiofile.File{handle}, resolve.State{Format: format, Layout: layout})
		logging.WithContext(ctx, r.logger).Debug("input loaded",
			logging.String("path", path),
			logging.String("format", format.String()),
			logging.String("layout", layout.String()),
			logging.Int("group", g.id),
		)
	}
	return nil
}

func (r *run) step(ctx context.Context, index int, op operation.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return faults.AtStep(err, index, op.Label(), -1, "")
	}
	ctx = logging.WithStep(ctx, index+1, op.Label())
	logger := logging.WithContext(ctx, r.logger)
	slot := fmt.Sprintf("op%02d_%s", index, fileutil.SafeName(op.Label(), "op"))
	logger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"),
		logging.String("program", op.Program),
		logging.String("requirement", op.Input.String()),
		logging.Bool("multi_input", op.MultiInput),
		logging.Int("groups", r.state.Groups()),
	)

	target := resolve.ForOperation(op.Input)
	for _, g := range r.state.groups {
		if err := r.align(ctx, g, target, slot); err != nil {
			return faults.AtStep(err, index, op.Label(), g.id, "")
		}
	}

	if op.MultiInput {
		return r.dispatchRegrouped(ctx, index, op, slot)
	}
	for _, g := range r.state.groups {
		next := make([]audiofile.File, len(g.handles))
		for idx, h := range g.handles {
			produced, err := r.dispatch(ctx, index, op, slot, []audiofile.File{h}, h.Role)
			if err != nil {
				return faults.AtStep(err, index, op.Label(), g.id, h.Role.String())
			}
			produced.Group = g.id
			next[idx] = produced
		}
		g.handles = next
		g.state.Format = op.OutputFormat
	}
	return nil
}

func (r *run) dispatchRegrouped(ctx context.Context, index int, op operation.Descriptor, slot string) error {
	shared, byIndex, err := r.state.regroup()
	if err != nil {
		return faults.AtStep(configError("multi-input operation needs matching channel layouts: "+err.Error()), index, op.Label(), -1, "")
	}
	next := make([]audiofile.File, len(byIndex))
	for idx, files := range byIndex {
		role := audiofile.RoleMono
		if shared.Layout == resolve.LayoutSplit {
			role = audiofile.RoleForIndex(idx)
		}
		produced, err := r.dispatch(ctx, index, op, slot, files, role)
		if err != nil {
			return faults.AtStep(err, index, op.Label(), -1, role.String())
		}
		next[idx] = produced
	}
	shared.Format = op.OutputFormat
	g := r.state.replaceAll(next, shared)
	logging.WithContext(ctx, r.logger).Debug("channel groups merged",
		logging.Int("group", g.id),
		logging.Int("inputs_per_channel", len(byIndex[0])),
	)
	return nil
}

// align resolves g against target and executes the planned actions.
func (r *run) align(ctx context.Context, g *group, target resolve.Target, slot string) error {
	next, actions, err := resolve.Resolve(g.state, target)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}
	logging.WithContext(ctx, r.logger).Debug("aligning channel group",
		logging.Int("group", g.id),
		logging.String("from", g.state.String()),
		logging.String("to", next.String()),
		logging.Any("actions", actions),
	)
	handles, reached, err := r.conv.Apply(ctx, g.handles, g.state, actions, slot)
	if err != nil {
		return err
	}
	if reached != next {
		return faults.Wrap(faults.ErrConversion, "pipeline", "align", fmt.Sprintf("planned %s but reached %s", next, reached), nil)
	}
	for i := range handles {
		handles[i].Group = g.id
	}
	g.handles = handles
	g.state = reached
	return nil
}

func (r *run) finalize(ctx context.Context, out Output) (audiofile.File, error) {
	if r.state.Groups() != 1 {
		return audiofile.File{}, faults.AtStep(configError(fmt.Sprintf("run ended with %d channel groups", r.state.Groups())), -1, "", -1, "")
	}
	g := r.state.groups[0]
	if err := r.align(ctx, g, resolve.ForOutput(out.Format, out.Channels), "final"); err != nil {
		return audiofile.File{}, faults.AtStep(err, -1, "", g.id, "")
	}
	if len(g.handles) != 1 {
		return audiofile.File{}, faults.AtStep(faults.Wrap(faults.ErrConversion, "pipeline", "finalize", fmt.Sprintf("expected one output handle, have %d", len(g.handles)), nil), -1, "", g.id, "")
	}
	src := g.handles[0]
	if err := src.Exists(); err != nil {
		return audiofile.File{}, faults.AtStep(faults.Wrap(faults.ErrExternalTool, "pipeline", "finalize", "final intermediate missing", err), -1, "", g.id, "")
	}
	if err := r.checkOverwrite(out.Path); err != nil {
		return audiofile.File{}, faults.AtStep(err, -1, "", g.id, "")
	}
	if err := fileutil.PlaceFile(src.Path, out.Path); err != nil {
		return audiofile.File{}, faults.AtStep(err, -1, "", g.id, "")
	}
	final := src
	final.Path = out.Path
	return final, nil
}

func (r *run) fail(ctx context.Context, err error) error {
	logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "run failed", "run_failure",
		logging.String("error_kind", faults.Kind(err)),
		logging.Int("completed_steps", r.result.Steps),
		logging.Error(err),
	)
	return err
}

func hasMultiInput(ops []operation.Descriptor) bool {
	for _, op := range ops {
		if op.MultiInput {
			return true
		}
	}
	return false
}

func configError(msg string) error {
	return faults.Wrap(faults.ErrConfiguration, "pipeline", "plan", msg, nil)
}
