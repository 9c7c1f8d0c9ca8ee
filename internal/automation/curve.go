package automation

import (
	"fmt"
	"strconv"
	"strings"

	"cdpflow/internal/faults"
)

// TimeSpec locates a point either relative to the input duration (Percent in
// [0,100]) or in absolute seconds.
type TimeSpec struct {
	Value    float64
	Relative bool
}

// Percent returns a relative time spec.
func Percent(p float64) TimeSpec { return TimeSpec{Value: p, Relative: true} }

// Seconds returns an absolute time spec.
func Seconds(s float64) TimeSpec { return TimeSpec{Value: s} }

// ParseTimeSpec accepts "50%" style percentages or plain seconds.
func ParseTimeSpec(raw string) (TimeSpec, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TimeSpec{}, fmt.Errorf("empty time spec")
	}
	if pct, ok := strings.CutSuffix(trimmed, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return TimeSpec{}, fmt.Errorf("parse percentage %q: %w", raw, err)
		}
		return Percent(v), nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return TimeSpec{}, fmt.Errorf("parse seconds %q: %w", raw, err)
	}
	return Seconds(v), nil
}

// Resolve converts t to absolute seconds for the given duration.
func (t TimeSpec) Resolve(duration float64) float64 {
	if t.Relative {
		return t.Value / 100 * duration
	}
	return t.Value
}

func (t TimeSpec) String() string {
	v := strconv.FormatFloat(t.Value, 'f', -1, 64)
	if t.Relative {
		return v + "%"
	}
	return v + "s"
}

// Point is one breakpoint of a curve.
type Point struct {
	At    TimeSpec
	Value float64
}

// Curve is an ordered list of breakpoints. Name is used for temp file slot
// tags and log output only.
type Curve struct {
	Name   string
	Points []Point
}

// Add appends a point and returns the curve for chaining.
func (c *Curve) Add(at TimeSpec, value float64) *Curve {
	c.Points = append(c.Points, Point{At: at, Value: value})
	return c
}

// Validate checks the structural invariants that do not depend on a duration.
func (c Curve) Validate() error {
	if len(c.Points) == 0 {
		return faults.Wrap(faults.ErrEmptyCurve, "automation", "validate", c.label()+" has no points", nil)
	}
	for i, p := range c.Points {
		if p.At.Relative && (p.At.Value < 0 || p.At.Value > 100) {
			return faults.Wrap(faults.ErrConfiguration, "automation", "validate",
				fmt.Sprintf("%s point %d: percentage %s outside [0,100]", c.label(), i, p.At), nil)
		}
		if !p.At.Relative && p.At.Value < 0 {
			return faults.Wrap(faults.ErrConfiguration, "automation", "validate",
				fmt.Sprintf("%s point %d: negative time %s", c.label(), i, p.At), nil)
		}
	}
	return nil
}

func (c Curve) label() string {
	if c.Name != "" {
		return "curve " + c.Name
	}
	return "curve"
}

func (c Curve) String() string {
	parts := make([]string, len(c.Points))
	for i, p := range c.Points {
		parts[i] = fmt.Sprintf("(%s, %s)", p.At, strconv.FormatFloat(p.Value, 'f', -1, 64))
	}
	return c.label() + " [" + strings.Join(parts, ", ") + "]"
}

// Linear ramps from start at the beginning of the file to end at its end.
func Linear(start, end float64) Curve {
	var c Curve
	c.Add(Percent(0), start).Add(Percent(100), end)
	return c
}

// FadeIn rises from zero to max over the first pct percent and then holds.
func FadeIn(pct, max float64) Curve {
	var c Curve
	c.Add(Percent(0), 0).Add(Percent(pct), max).Add(Percent(100), max)
	return c
}

// FadeOut holds value until startPct and then falls to zero at the end.
func FadeOut(startPct, value float64) Curve {
	var c Curve
	c.Add(Percent(0), value).Add(Percent(startPct), value).Add(Percent(100), 0)
	return c
}
