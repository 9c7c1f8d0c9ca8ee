package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/automation"
	"cdpflow/internal/faults"
	"cdpflow/internal/operation"
	"cdpflow/internal/resolve"
)

const sampleRecipe = `
description = "blur then fade"

[output]
path = "out.wav"
channels = "stereo"

[[operation]]
name = "blur"
program = "blur"
mode = "blur"
input = "spectral"
arity = "mono_only"
params = [{ name = "amount", curve = [{ at = "0%", value = 1 }, { at = 1.5, value = 50 }, { at = "100%", value = 2.5 }] }]

[[operation]]
program = "modify"
mode = "loudness"
mode_param = 1
input = "raw"
params = [0.5, 3, "-x", { shape = "fade_out", args = [80, 1] }]

[[operation]]
name = "mix"
program = "submix"
mode = "mergemany"
multi_input = true
`

func TestDecodeRecipe(t *testing.T) {
	r, err := Decode(strings.NewReader(sampleRecipe))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r.Description != "blur then fade" {
		t.Fatalf("description = %q", r.Description)
	}
	if r.Output.Path != "out.wav" || r.Output.Channels != resolve.ChannelsStereo || r.Output.Format != "" {
		t.Fatalf("unexpected output defaults %+v", r.Output)
	}
	if len(r.Operations) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(r.Operations))
	}

	blur := r.Operations[0]
	if blur.Input.Format != audiofile.FormatSpectral || blur.Input.Arity != operation.ArityMonoOnly {
		t.Fatalf("unexpected requirement %+v", blur.Input)
	}
	if blur.OutputFormat != audiofile.FormatSpectral {
		t.Fatalf("output format should default to the input format, got %s", blur.OutputFormat)
	}
	if len(blur.Params) != 1 || !blur.Params[0].IsCurve() {
		t.Fatalf("expected a single curve param, got %+v", blur.Params)
	}
	curve := blur.Params[0].Curve
	if curve.Name != "amount" {
		t.Fatalf("curve name = %q", curve.Name)
	}
	want := []automation.Point{
		{At: automation.Percent(0), Value: 1},
		{At: automation.Seconds(1.5), Value: 50},
		{At: automation.Percent(100), Value: 2.5},
	}
	if !reflect.DeepEqual(curve.Points, want) {
		t.Fatalf("points = %+v, want %+v", curve.Points, want)
	}

	modify := r.Operations[1]
	if modify.ModeParam == nil || *modify.ModeParam != 1 {
		t.Fatalf("mode param = %v", modify.ModeParam)
	}
	if modify.Label() != "modify loudness" {
		t.Fatalf("label = %q", modify.Label())
	}
	literals := []string{modify.Params[0].Literal, modify.Params[1].Literal, modify.Params[2].Literal}
	if !reflect.DeepEqual(literals, []string{"0.5", "3", "-x"}) {
		t.Fatalf("literals = %v", literals)
	}
	fade := modify.Params[3].Curve
	if fade == nil || !reflect.DeepEqual(fade.Points, automation.FadeOut(80, 1).Points) {
		t.Fatalf("fade curve = %+v", fade)
	}

	mix := r.Operations[2]
	if !mix.MultiInput || mix.Input.Format != audiofile.FormatRaw || mix.Input.Arity != operation.ArityAny {
		t.Fatalf("unexpected mix descriptor %+v", mix)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown key", "[[operation]]\nprogram = \"x\"\nbogus = 1\n", faults.ErrConfiguration},
		{"missing program", "[[operation]]\nmode = \"x\"\n", faults.ErrConfiguration},
		{"bad format", "[[operation]]\nprogram = \"x\"\ninput = \"mp3\"\n", faults.ErrConfiguration},
		{"bad arity", "[[operation]]\nprogram = \"x\"\narity = \"quad\"\n", faults.ErrConfiguration},
		{"empty curve", "[[operation]]\nprogram = \"x\"\nparams = [{ curve = [] }]\n", faults.ErrEmptyCurve},
		{"curve and shape", "[[operation]]\nprogram = \"x\"\nparams = [{ curve = [], shape = \"linear\", args = [0, 1] }]\n", faults.ErrConfiguration},
		{"bad shape", "[[operation]]\nprogram = \"x\"\nparams = [{ shape = \"spiral\", args = [0, 1] }]\n", faults.ErrConfiguration},
		{"shape arg count", "[[operation]]\nprogram = \"x\"\nparams = [{ shape = \"linear\", args = [1] }]\n", faults.ErrConfiguration},
		{"percent out of range", "[[operation]]\nprogram = \"x\"\nparams = [{ curve = [{ at = \"120%\", value = 1 }] }]\n", faults.ErrConfiguration},
		{"boolean param", "[[operation]]\nprogram = \"x\"\nparams = [true]\n", faults.ErrConfiguration},
		{"bad channels", "[output]\nchannels = \"quad\"\n", faults.ErrConfiguration},
		{"mode param without mode", "[[operation]]\nprogram = \"x\"\nmode_param = 2\n", faults.ErrConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseInline(t *testing.T) {
	desc, err := ParseInline(`program = "specfold", mode = "specfold", mode_param = 1, input = "spectral", arity = "mono", params = [1, 4, 3]`)
	if err != nil {
		t.Fatalf("ParseInline failed: %v", err)
	}
	args := desc.Args([]string{"input.ana"}, "output.ana", []string{desc.Params[0].Literal, desc.Params[1].Literal, desc.Params[2].Literal})
	want := []string{"specfold", "1", "input.ana", "output.ana", "1", "4", "3"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	if desc.Input.Arity != operation.ArityMonoOnly {
		t.Fatalf("arity = %v", desc.Input.Arity)
	}

	if _, err := ParseInline(`program = `); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error for malformed inline op, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.toml")
	if err := os.WriteFile(path, []byte(sampleRecipe), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(r.Operations) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(r.Operations))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing recipe")
	}
}
