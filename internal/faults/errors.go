package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConversion marks a format or channel change with no legal action sequence.
	ErrConversion = errors.New("conversion error")
	// ErrExternalTool marks a CDP program that exited nonzero or could not start.
	ErrExternalTool = errors.New("external tool error")
	// ErrEmptyCurve marks an automation curve with no points.
	ErrEmptyCurve = errors.New("empty curve")
	// ErrDurationQuery marks a failure to learn an input's duration.
	ErrDurationQuery = errors.New("duration query error")
	// ErrConfiguration marks invalid settings, recipes, or run plans.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker. The marker should be one of the sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ToolError reports a nonzero exit from an external program.
type ToolError struct {
	Program  string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s exited with status %d", e.Program, e.ExitCode)
	if e.Err != nil && e.ExitCode < 0 {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(lastLines(out, 5))
	}
	return b.String()
}

// Is lets errors.Is(err, ErrExternalTool) match any ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrExternalTool
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// CommandLine renders the invocation the way it would be typed in a shell.
func (e *ToolError) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Program
	}
	return e.Program + " " + strings.Join(e.Args, " ")
}

// StepError locates a failure inside a pipeline run.
type StepError struct {
	Step      int
	Operation string
	Group     int
	Channel   string
	Err       error
}

func (e *StepError) Error() string {
	var b strings.Builder
	if e.Step < 0 {
		b.WriteString("finalize output")
	} else {
		fmt.Fprintf(&b, "step %d (%s)", e.Step+1, e.Operation)
	}
	if e.Group >= 0 {
		fmt.Fprintf(&b, " group %d", e.Group)
	}
	if e.Channel != "" {
		fmt.Fprintf(&b, " channel %s", e.Channel)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AtStep wraps err with step context. Existing step context is preserved.
func AtStep(err error, step int, operation string, group int, channel string) error {
	if err == nil {
		return nil
	}
	var existing *StepError
	if errors.As(err, &existing) {
		return err
	}
	return &StepError{Step: step, Operation: operation, Group: group, Channel: channel, Err: err}
}

// Kind returns a short label for the marker carried by err. Duration query
// failures report as duration_query even when a tool error is the cause.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrEmptyCurve):
		return "empty_curve"
	case errors.Is(err, ErrDurationQuery):
		return "duration_query"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return strings.Join(lines, " | ")
	}
	return strings.Join(lines[len(lines)-n:], " | ")
}
