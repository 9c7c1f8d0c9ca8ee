package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/faults"
	"cdpflow/internal/operation"
	"cdpflow/internal/resolve"
)

// Output holds the optional output defaults of a recipe.
type Output struct {
	Path     string
	Format   audiofile.Format
	Channels resolve.Channels
}

// Recipe is a decoded recipe file.
type Recipe struct {
	Description string
	Operations  []operation.Descriptor
	Output      Output
}

type fileSpec struct {
	Description string     `toml:"description"`
	Output      outputSpec `toml:"output"`
	Operations  []opSpec   `toml:"operation"`
}

type outputSpec struct {
	Path     string `toml:"path"`
	Format   string `toml:"format"`
	Channels string `toml:"channels"`
}

type opSpec struct {
	Name       string `toml:"name"`
	Program    string `toml:"program"`
	Mode       string `toml:"mode"`
	ModeParam  *int   `toml:"mode_param"`
	Input      string `toml:"input"`
	Arity      string `toml:"arity"`
	Output     string `toml:"output"`
	MultiInput bool   `toml:"multi_input"`
	Params     []any  `toml:"params"`
}

// Load reads and decodes the recipe at path.
func Load(path string) (Recipe, error) {
	file, err := os.Open(path)
	if err != nil {
		return Recipe{}, fmt.Errorf("open recipe: %w", err)
	}
	defer file.Close()
	r, err := Decode(file)
	if err != nil {
		return Recipe{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode parses a recipe document.
func Decode(reader io.Reader) (Recipe, error) {
	var spec fileSpec
	decoder := toml.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		return Recipe{}, configError("parse recipe", err)
	}

	out := Recipe{Description: strings.TrimSpace(spec.Description)}
	var err error
	if out.Output, err = spec.Output.build(); err != nil {
		return Recipe{}, err
	}
	for i, op := range spec.Operations {
		desc, err := op.build()
		if err != nil {
			return Recipe{}, configError(fmt.Sprintf("operation %d", i+1), err)
		}
		out.Operations = append(out.Operations, desc)
	}
	return out, nil
}

// ParseInline decodes a single operation written as the body of a TOML
// inline table, as accepted by `cdpflow run --op`:
//
//	program = "blur", mode = "blur", input = "spectral", arity = "mono_only", params = [20]
func ParseInline(body string) (operation.Descriptor, error) {
	doc := "operation = [{ " + strings.TrimSpace(body) + " }]\n"
	r, err := Decode(bytes.NewBufferString(doc))
	if err != nil {
		return operation.Descriptor{}, err
	}
	if len(r.Operations) != 1 {
		return operation.Descriptor{}, configError("inline operation", errors.New("expected exactly one operation"))
	}
	return r.Operations[0], nil
}

func (o outputSpec) build() (Output, error) {
	out := Output{Path: strings.TrimSpace(o.Path)}
	if strings.TrimSpace(o.Format) != "" {
		format, err := audiofile.ParseFormat(o.Format)
		if err != nil {
			return Output{}, configError("output", err)
		}
		out.Format = format
	}
	channels, err := resolve.ParseChannels(o.Channels)
	if err != nil {
		return Output{}, configError("output", err)
	}
	out.Channels = channels
	return out, nil
}

func (o opSpec) build() (operation.Descriptor, error) {
	input, err := audiofile.ParseFormat(defaultString(o.Input, string(audiofile.FormatRaw)))
	if err != nil {
		return operation.Descriptor{}, fmt.Errorf("input: %w", err)
	}
	arity, err := operation.ParseArity(o.Arity)
	if err != nil {
		return operation.Descriptor{}, err
	}
	output := input
	if strings.TrimSpace(o.Output) != "" {
		if output, err = audiofile.ParseFormat(o.Output); err != nil {
			return operation.Descriptor{}, fmt.Errorf("output: %w", err)
		}
	}

	desc := operation.Descriptor{
		Name:         strings.TrimSpace(o.Name),
		Program:      strings.TrimSpace(o.Program),
		Mode:         strings.TrimSpace(o.Mode),
		ModeParam:    o.ModeParam,
		Input:        operation.Requirement{Format: input, Arity: arity},
		OutputFormat: output,
		MultiInput:   o.MultiInput,
	}
	for i, raw := range o.Params {
		param, err := buildParam(raw)
		if err != nil {
			return operation.Descriptor{}, fmt.Errorf("%s: parameter %d: %w", desc.Label(), i+1, err)
		}
		desc.Params = append(desc.Params, param)
	}
	if err := desc.Validate(); err != nil {
		return operation.Descriptor{}, err
	}
	return desc, nil
}

func configError(operationName string, err error) error {
	if errors.Is(err, faults.ErrConfiguration) || errors.Is(err, faults.ErrEmptyCurve) {
		return fmt.Errorf("%s: %w", operationName, err)
	}
	return faults.Wrap(faults.ErrConfiguration, "recipe", operationName, "", err)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
