package operation

import (
	"fmt"
	"strconv"
	"strings"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/automation"
	"cdpflow/internal/faults"
)

// Arity is the channel layout an operation accepts.
type Arity int

const (
	// ArityAny accepts mono or stereo files.
	ArityAny Arity = iota
	// ArityMonoOnly requires single-channel files; stereo data is split first.
	ArityMonoOnly
)

func (a Arity) String() string {
	switch a {
	case ArityMonoOnly:
		return "mono_only"
	default:
		return "any"
	}
}

// ParseArity maps a recipe token to an Arity.
func ParseArity(value string) (Arity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "any":
		return ArityAny, nil
	case "mono_only", "mono-only", "mono":
		return ArityMonoOnly, nil
	default:
		return ArityAny, fmt.Errorf("unknown arity %q", value)
	}
}

// Requirement is what an operation expects of its inputs.
type Requirement struct {
	Format audiofile.Format
	Arity  Arity
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s/%s", r.Format, r.Arity)
}

// Param is one trailing argument: a literal scalar or an automation curve.
type Param struct {
	Literal string
	Curve   *automation.Curve
}

// Int returns a constant integer parameter.
func Int(v int) Param { return Param{Literal: strconv.Itoa(v)} }

// Float returns a constant floating point parameter in shortest form.
func Float(v float64) Param { return Param{Literal: strconv.FormatFloat(v, 'f', -1, 64)} }

// Text returns a literal parameter passed through unchanged, such as a flag.
func Text(v string) Param { return Param{Literal: v} }

// CurveParam returns a time-varying parameter.
func CurveParam(c automation.Curve) Param { return Param{Curve: &c} }

// IsCurve reports whether the parameter is materialized to a file.
func (p Param) IsCurve() bool { return p.Curve != nil }

func (p Param) String() string {
	if p.Curve != nil {
		return p.Curve.String()
	}
	return p.Literal
}

// Descriptor is the full description of one pipeline operation.
type Descriptor struct {
	Name         string
	Program      string
	Mode         string
	ModeParam    *int
	Input        Requirement
	OutputFormat audiofile.Format
	Params       []Param
	MultiInput   bool
}

// Label returns Name, falling back to the program and mode.
func (d Descriptor) Label() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	if d.Mode != "" {
		return d.Program + " " + d.Mode
	}
	return d.Program
}

// HasCurves reports whether any parameter needs a breakpoint file.
func (d Descriptor) HasCurves() bool {
	for _, p := range d.Params {
		if p.IsCurve() {
			return true
		}
	}
	return false
}

// Validate rejects descriptors that can never be dispatched.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Program) == "" {
		return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: program is required", d.Label()), nil)
	}
	if !d.Input.Format.Valid() {
		return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: unknown input format %q", d.Label(), d.Input.Format), nil)
	}
	if !d.OutputFormat.Valid() {
		return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: unknown output format %q", d.Label(), d.OutputFormat), nil)
	}
	if d.Input.Arity != ArityAny && d.Input.Arity != ArityMonoOnly {
		return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: unknown arity %d", d.Label(), d.Input.Arity), nil)
	}
	if d.ModeParam != nil && strings.TrimSpace(d.Mode) == "" {
		return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: mode parameter set without a mode", d.Label()), nil)
	}
	for i, p := range d.Params {
		if p.Curve == nil {
			if strings.TrimSpace(p.Literal) == "" {
				return faults.Wrap(faults.ErrConfiguration, "operation", "validate", fmt.Sprintf("%s: parameter %d is empty", d.Label(), i+1), nil)
			}
			continue
		}
		if err := p.Curve.Validate(); err != nil {
			return fmt.Errorf("%s: parameter %d: %w", d.Label(), i+1, err)
		}
	}
	return nil
}

// Args assembles the positional argument list, excluding the program itself:
//
//	[mode] [modeParam] inputs... output [params...]
//
// params are the already resolved parameter values, in declared order, with
// curve parameters replaced by their breakpoint file paths.
func (d Descriptor) Args(inputs []string, output string, params []string) []string {
	args := make([]string, 0, 2+len(inputs)+1+len(params))
	if d.Mode != "" {
		args = append(args, d.Mode)
		if d.ModeParam != nil {
			args = append(args, strconv.Itoa(*d.ModeParam))
		}
	}
	args = append(args, inputs...)
	args = append(args, output)
	args = append(args, params...)
	return args
}

// ResolveParams returns the parameter values in declared order. curveFile is
// called for each curve parameter and must return the path of its
// materialized breakpoint file.
func (d Descriptor) ResolveParams(curveFile func(index int, c automation.Curve) (string, error)) ([]string, error) {
	values := make([]string, len(d.Params))
	for i, p := range d.Params {
		if p.Curve == nil {
			values[i] = p.Literal
			continue
		}
		path, err := curveFile(i, *p.Curve)
		if err != nil {
			return nil, err
		}
		values[i] = path
	}
	return values, nil
}

// IntPtr is a small helper for ModeParam literals.
func IntPtr(v int) *int { return &v }
