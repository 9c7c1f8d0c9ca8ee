package recipe

import (
	"fmt"
	"sort"
	"strings"

	"cdpflow/internal/automation"
	"cdpflow/internal/operation"
)

// buildParam converts one decoded TOML parameter value.
func buildParam(raw any) (operation.Param, error) {
	switch v := raw.(type) {
	case int64:
		return operation.Int(int(v)), nil
	case float64:
		return operation.Float(v), nil
	case string:
		return operation.Text(v), nil
	case bool:
		return operation.Param{}, fmt.Errorf("boolean parameters are not supported")
	case map[string]any:
		curve, err := buildCurve(v)
		if err != nil {
			return operation.Param{}, err
		}
		return operation.CurveParam(curve), nil
	default:
		return operation.Param{}, fmt.Errorf("unsupported parameter type %T", raw)
	}
}

func buildCurve(table map[string]any) (automation.Curve, error) {
	for key := range table {
		switch key {
		case "name", "curve", "shape", "args":
		default:
			return automation.Curve{}, fmt.Errorf("unknown curve key %q (have %s)", key, strings.Join(keys(table), ", "))
		}
	}
	_, hasPoints := table["curve"]
	_, hasShape := table["shape"]
	if hasPoints == hasShape {
		return automation.Curve{}, fmt.Errorf("a curve parameter needs exactly one of curve or shape")
	}

	var c automation.Curve
	if name, ok := table["name"].(string); ok {
		c.Name = name
	}
	if hasShape {
		shaped, err := buildShape(table)
		if err != nil {
			return automation.Curve{}, err
		}
		shaped.Name = c.Name
		return shaped, nil
	}

	points, ok := table["curve"].([]any)
	if !ok {
		return automation.Curve{}, fmt.Errorf("curve must be an array of {at, value} tables")
	}
	for i, entry := range points {
		point, ok := entry.(map[string]any)
		if !ok {
			return automation.Curve{}, fmt.Errorf("curve point %d must be a table", i+1)
		}
		at, err := timeSpec(point["at"])
		if err != nil {
			return automation.Curve{}, fmt.Errorf("curve point %d: %w", i+1, err)
		}
		value, err := number(point["value"])
		if err != nil {
			return automation.Curve{}, fmt.Errorf("curve point %d value: %w", i+1, err)
		}
		c.Add(at, value)
	}
	return c, nil
}

func buildShape(table map[string]any) (automation.Curve, error) {
	shape, _ := table["shape"].(string)
	rawArgs, _ := table["args"].([]any)
	args := make([]float64, 0, len(rawArgs))
	for _, a := range rawArgs {
		v, err := number(a)
		if err != nil {
			return automation.Curve{}, fmt.Errorf("shape args: %w", err)
		}
		args = append(args, v)
	}
	if len(args) != 2 {
		return automation.Curve{}, fmt.Errorf("shape %q takes 2 args, got %d", shape, len(args))
	}
	switch strings.ToLower(strings.TrimSpace(shape)) {
	case "linear":
		return automation.Linear(args[0], args[1]), nil
	case "fade_in", "fade-in":
		return automation.FadeIn(args[0], args[1]), nil
	case "fade_out", "fade-out":
		return automation.FadeOut(args[0], args[1]), nil
	default:
		return automation.Curve{}, fmt.Errorf("unknown curve shape %q", shape)
	}
}

// timeSpec accepts "50%", "1.5" or a bare number of seconds.
func timeSpec(raw any) (automation.TimeSpec, error) {
	switch v := raw.(type) {
	case string:
		return automation.ParseTimeSpec(v)
	case nil:
		return automation.TimeSpec{}, fmt.Errorf("missing at")
	default:
		seconds, err := number(v)
		if err != nil {
			return automation.TimeSpec{}, fmt.Errorf("at: %w", err)
		}
		return automation.Seconds(seconds), nil
	}
}

func number(raw any) (float64, error) {
	switch v := raw.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case nil:
		return 0, fmt.Errorf("missing number")
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
