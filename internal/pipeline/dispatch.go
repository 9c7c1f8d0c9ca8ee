package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/automation"
	"cdpflow/internal/faults"
	"cdpflow/internal/logging"
	"cdpflow/internal/operation"
)

// dispatch runs op once over inputs and returns the produced handle. Curve
// parameters are materialized right before the invocation, against the
// duration of the first input, and discarded right after it.
func (r *run) dispatch(ctx context.Context, index int, op operation.Descriptor, slot string, inputs []audiofile.File, role audiofile.Role) (audiofile.File, error) {
	if err := ctx.Err(); err != nil {
		return audiofile.File{}, err
	}
	for _, in := range inputs {
		if err := in.Exists(); err != nil {
			return audiofile.File{}, faults.Wrap(faults.ErrExternalTool, "pipeline", "dispatch", "input handle missing", err)
		}
	}
	ctx = logging.WithChannel(ctx, role.String())
	logger := logging.WithContext(ctx, r.logger)

	channelSlot := slot
	if role != audiofile.RoleMono {
		channelSlot = fmt.Sprintf("%s_c%d", slot, role.Index()+1)
	}
	out := audiofile.File{
		Path:   r.ws.Path(channelSlot, op.OutputFormat.Extension()),
		Format: op.OutputFormat,
		Role:   role,
	}

	var curveFiles []string
	defer func() {
		for _, path := range curveFiles {
			if err := r.ws.Discard(path); err != nil {
				logger.Debug("failed to discard breakpoint file", logging.String("path", path), logging.Error(err))
			}
		}
	}()

	var durations *automation.DurationCache
	if op.HasCurves() {
		durations = automation.NewDurationCache(r.prober.Duration, inputs[0].Path)
	}
	params, err := op.ResolveParams(func(paramIndex int, curve automation.Curve) (string, error) {
		duration, err := durations.Duration(ctx)
		if err != nil {
			return "", err
		}
		path := r.ws.Path(fmt.Sprintf("%s_param%d", channelSlot, paramIndex), "txt")
		curveFiles = append(curveFiles, path)
		res, err := automation.Materialize(curve, duration, path)
		if err != nil {
			return "", err
		}
		r.reportCurve(logger, paramIndex, duration, res)
		return path, nil
	})
	if err != nil {
		return audiofile.File{}, err
	}

	args := op.Args(audiofile.Paths(inputs), out.Path, params)
	if _, err := r.invoker.Invoke(ctx, op.Program, args); err != nil {
		return audiofile.File{}, err
	}
	r.result.Dispatches++

	if err := out.Exists(); err != nil {
		return audiofile.File{}, faults.Wrap(faults.ErrExternalTool, "pipeline", op.Program, "program reported success but wrote no output", err)
	}
	return out, nil
}

func (r *run) reportCurve(logger *slog.Logger, paramIndex int, duration float64, res automation.Result) {
	for _, w := range res.Warnings {
		logger.Warn("breakpoint curve warning",
			logging.String(logging.FieldEventType, "curve_"+w.Kind),
			logging.Int("param", paramIndex+1),
			logging.String("detail", w.Message),
			logging.String(logging.FieldErrorHint, "check the curve points against the input length"),
			logging.String(logging.FieldImpact, "the program may ignore or misread this point"),
		)
	}
	if !r.opts.Verbose {
		return
	}
	logger.Info("breakpoint file written",
		logging.String("path", res.Path),
		logging.Int("param", paramIndex+1),
		logging.Float64("duration_seconds", duration),
		logging.String("content", automation.Render(res.Points)),
	)
}
