package automation

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Resolved is a breakpoint with an absolute time.
type Resolved struct {
	Time  float64
	Value float64
}

// Warning describes a point that will be written but may confuse the
// consuming program.
type Warning struct {
	Kind    string
	Message string
}

const (
	WarnBeyondDuration = "beyond_duration"
	WarnDuplicateTime  = "duplicate_time"
)

// Result summarizes a materialized curve file.
type Result struct {
	Path     string
	Points   []Resolved
	Warnings []Warning
}

// ResolvePoints converts every point to absolute seconds and stable-sorts
// them ascending. Ties keep their declared order.
func ResolvePoints(c Curve, duration float64) ([]Resolved, []Warning, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	points := make([]Resolved, len(c.Points))
	var warnings []Warning
	for i, p := range c.Points {
		points[i] = Resolved{Time: p.At.Resolve(duration), Value: p.Value}
		if !p.At.Relative && p.At.Value > duration {
			warnings = append(warnings, Warning{
				Kind:    WarnBeyondDuration,
				Message: fmt.Sprintf("point at %s is beyond file duration %.3fs", p.At, duration),
			})
		}
	}
	slices.SortStableFunc(points, func(a, b Resolved) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})
	for i := 1; i < len(points); i++ {
		if formatTime(points[i].Time) == formatTime(points[i-1].Time) {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateTime,
				Message: fmt.Sprintf("duplicate breakpoint time %s", formatTime(points[i].Time)),
			})
		}
	}
	return points, warnings, nil
}

// Render formats resolved points as breakpoint file content.
func Render(points []Resolved) string {
	var b strings.Builder
	for _, p := range points {
		fmt.Fprintf(&b, "%.6f %.6f\n", p.Time, p.Value)
	}
	return b.String()
}

// Materialize resolves c against duration and writes the breakpoint file to
// path.
func Materialize(c Curve, duration float64, path string) (Result, error) {
	points, warnings, err := ResolvePoints(c, duration)
	if err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(path, []byte(Render(points)), 0o644); err != nil {
		return Result{}, fmt.Errorf("write breakpoint file %s: %w", path, err)
	}
	return Result{Path: path, Points: points, Warnings: warnings}, nil
}

func formatTime(t float64) string {
	return fmt.Sprintf("%.6f", t)
}
