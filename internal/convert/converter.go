package convert

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/config"
	"cdpflow/internal/faults"
	"cdpflow/internal/fileutil"
	"cdpflow/internal/logging"
	"cdpflow/internal/resolve"
	"cdpflow/internal/staging"
)

// Invoker runs an external program and returns its captured output.
type Invoker interface {
	Invoke(ctx context.Context, program string, args []string) (string, error)
}

// DurationProber reports file durations in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Options carries the tool names and merge policy.
type Options struct {
	Pvoc           string
	Housekeep      string
	Submix         string
	AnalysisMode   int
	MergeTolerance float64
	OnMismatch     string
}

// OptionsFromConfig derives converter options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Pvoc:           cfg.Tools.Pvoc,
		Housekeep:      cfg.Tools.Housekeep,
		Submix:         cfg.Tools.Submix,
		AnalysisMode:   cfg.Tools.AnalysisMode,
		MergeTolerance: cfg.Merge.DurationToleranceSeconds,
		OnMismatch:     cfg.Merge.OnMismatch,
	}
}

// Converter performs format conversions, splits, and merges inside one
// workspace.
type Converter struct {
	invoker Invoker
	prober  DurationProber
	ws      *staging.Workspace
	opts    Options
	logger  *slog.Logger
}

// New constructs a converter bound to a run's workspace.
func New(invoker Invoker, prober DurationProber, ws *staging.Workspace, opts Options, logger *slog.Logger) *Converter {
	if opts.Pvoc == "" {
		opts.Pvoc = "pvoc"
	}
	if opts.Housekeep == "" {
		opts.Housekeep = "housekeep"
	}
	if opts.Submix == "" {
		opts.Submix = "submix"
	}
	if opts.AnalysisMode <= 0 {
		opts.AnalysisMode = 1
	}
	if opts.OnMismatch == "" {
		opts.OnMismatch = config.MismatchFail
	}
	return &Converter{
		invoker: invoker,
		prober:  prober,
		ws:      ws,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "convert"),
	}
}

// Apply executes actions in order against one channel group. handles holds
// one file for mono and unsplit groups and LEFT, RIGHT for split groups.
func (c *Converter) Apply(ctx context.Context, handles []audiofile.File, state resolve.State, actions []resolve.Action, slot string) ([]audiofile.File, resolve.State, error) {
	cur := append([]audiofile.File(nil), handles...)
	for _, action := range actions {
		switch action.Kind {
		case resolve.ActionConvert:
			next := make([]audiofile.File, len(cur))
			for i, f := range cur {
				converted, err := c.Convert(ctx, f, action.To, slot)
				if err != nil {
					return nil, state, err
				}
				next[i] = converted
			}
			cur = next
			state.Format = action.To
		case resolve.ActionSplit:
			if err := resolve.CheckSplit(state); err != nil {
				return nil, state, err
			}
			if len(cur) != 1 {
				return nil, state, faults.Wrap(faults.ErrConversion, "convert", "split", fmt.Sprintf("expected one stereo handle, have %d", len(cur)), nil)
			}
			channels, err := c.Split(ctx, cur[0], slot)
			if err != nil {
				return nil, state, err
			}
			cur = channels
			state.Layout = resolve.LayoutSplit
		case resolve.ActionMerge:
			if err := resolve.CheckMerge(state); err != nil {
				return nil, state, err
			}
			if len(cur) != 2 {
				return nil, state, faults.Wrap(faults.ErrConversion, "convert", "merge", fmt.Sprintf("expected two channel handles, have %d", len(cur)), nil)
			}
			merged, err := c.Merge(ctx, cur[0], cur[1], slot)
			if err != nil {
				return nil, state, err
			}
			cur = []audiofile.File{merged}
			state.Layout = resolve.LayoutUnsplit
		default:
			return nil, state, faults.Wrap(faults.ErrConversion, "convert", "apply", "unknown action "+action.String(), nil)
		}
	}
	return cur, state, nil
}

// Convert changes f's representation to format. It returns f unchanged when
// the formats already match.
func (c *Converter) Convert(ctx context.Context, f audiofile.File, format audiofile.Format, slot string) (audiofile.File, error) {
	if f.Format == format {
		return f, nil
	}
	out := f
	out.Format = format
	out.Path = c.ws.Path(channelSlot(slot, f.Role)+"_"+format.Extension(), format.Extension())

	var args []string
	switch format {
	case audiofile.FormatSpectral:
		args = []string{"anal", strconv.Itoa(c.opts.AnalysisMode), f.Path, out.Path}
	case audiofile.FormatRaw:
		args = []string{"synth", f.Path, out.Path}
	default:
		return audiofile.File{}, faults.Wrap(faults.ErrConversion, "convert", "format", fmt.Sprintf("no conversion to %q", format), nil)
	}
	if err := c.run(ctx, c.opts.Pvoc, args, out.Path); err != nil {
		return audiofile.File{}, err
	}
	return out, nil
}

// Split separates a RAW stereo file into LEFT and RIGHT handles sharing f's
// group.
func (c *Converter) Split(ctx context.Context, f audiofile.File, slot string) ([]audiofile.File, error) {
	if f.Format != audiofile.FormatRaw {
		return nil, faults.Wrap(faults.ErrConversion, "convert", "split", "split requires raw data: "+f.Path, nil)
	}
	copyPath := c.ws.Path(slot+"_split", "wav")
	if err := fileutil.CopyFile(f.Path, copyPath); err != nil {
		return nil, fmt.Errorf("stage split source: %w", err)
	}

	base := strings.TrimSuffix(copyPath, filepath.Ext(copyPath))
	left := audiofile.File{Path: base + "_c1.wav", Format: audiofile.FormatRaw, Role: audiofile.RoleLeft, Group: f.Group}
	right := audiofile.File{Path: base + "_c2.wav", Format: audiofile.FormatRaw, Role: audiofile.RoleRight, Group: f.Group}
	c.ws.Register(left.Path)
	c.ws.Register(right.Path)

	if err := c.run(ctx, c.opts.Housekeep, []string{"chans", "2", copyPath}, left.Path, right.Path); err != nil {
		return nil, err
	}
	return []audiofile.File{left, right}, nil
}

// Merge interleaves a LEFT/RIGHT pair from the same group into one stereo
// file after checking their durations agree.
func (c *Converter) Merge(ctx context.Context, left, right audiofile.File, slot string) (audiofile.File, error) {
	if !audiofile.MergeCandidates(left, right) {
		return audiofile.File{}, faults.Wrap(faults.ErrConversion, "convert", "merge",
			fmt.Sprintf("%s and %s are not a left/right pair of one group", left, right), nil)
	}
	if left.Format != audiofile.FormatRaw || right.Format != audiofile.FormatRaw {
		return audiofile.File{}, faults.Wrap(faults.ErrConversion, "convert", "merge", "merge requires raw channels", nil)
	}
	if err := c.checkDurations(ctx, left, right); err != nil {
		return audiofile.File{}, err
	}

	out := audiofile.File{
		Path:   c.ws.Path(slot+"_merge", "wav"),
		Format: audiofile.FormatRaw,
		Role:   audiofile.RoleMono,
		Group:  left.Group,
	}
	if err := c.run(ctx, c.opts.Submix, []string{"interleave", left.Path, right.Path, out.Path}, out.Path); err != nil {
		return audiofile.File{}, err
	}
	return out, nil
}

func (c *Converter) checkDurations(ctx context.Context, left, right audiofile.File) error {
	if c.prober == nil || c.opts.MergeTolerance < 0 {
		return nil
	}
	l, err := c.prober.Duration(ctx, left.Path)
	if err != nil {
		return err
	}
	r, err := c.prober.Duration(ctx, right.Path)
	if err != nil {
		return err
	}
	diff := math.Abs(l - r)
	if diff <= c.opts.MergeTolerance {
		return nil
	}
	msg := fmt.Sprintf("channel durations differ by %.6fs (left %.6fs, right %.6fs, tolerance %.6fs)", diff, l, r, c.opts.MergeTolerance)
	if c.opts.OnMismatch == config.MismatchWarn {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "merging channels of different length", "merge_duration_mismatch",
			logging.Float64("left_seconds", l),
			logging.Float64("right_seconds", r),
			logging.Float64("difference_seconds", diff),
			logging.String(logging.FieldErrorHint, "check the preceding operation for per-channel length changes"),
			logging.String(logging.FieldImpact, "submix interleave output length follows its own rules"),
		)
		return nil
	}
	return faults.Wrap(faults.ErrConversion, "convert", "merge", msg, nil)
}

func (c *Converter) run(ctx context.Context, program string, args []string, outputs ...string) error {
	if _, err := c.invoker.Invoke(ctx, program, args); err != nil {
		return err
	}
	for _, out := range outputs {
		if err := (audiofile.File{Path: out}).Exists(); err != nil {
			return faults.Wrap(faults.ErrExternalTool, "convert", program, "expected output missing", err)
		}
	}
	return nil
}

func channelSlot(slot string, role audiofile.Role) string {
	if role == audiofile.RoleMono {
		return slot
	}
	return slot + "_c" + strconv.Itoa(role.Index()+1)
}
