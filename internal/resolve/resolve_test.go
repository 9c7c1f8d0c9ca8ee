package resolve

import (
	"errors"
	"reflect"
	"testing"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/faults"
	"cdpflow/internal/operation"
)

var (
	raw      = audiofile.FormatRaw
	spectral = audiofile.FormatSpectral
)

func TestResolvePlans(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		target    Target
		wantState State
		want      []Action
	}{
		{
			name:      "no-op",
			state:     State{Format: raw, Layout: LayoutMono},
			target:    Target{Format: raw},
			wantState: State{Format: raw, Layout: LayoutMono},
		},
		{
			name:      "analyse unsplit stereo for any-arity op",
			state:     State{Format: raw, Layout: LayoutUnsplit},
			target:    Target{Format: spectral},
			wantState: State{Format: spectral, Layout: LayoutUnsplit},
			want:      []Action{{Kind: ActionConvert, From: raw, To: spectral}},
		},
		{
			name:      "split then analyse for mono-only spectral op",
			state:     State{Format: raw, Layout: LayoutUnsplit},
			target:    Target{Format: spectral, Arity: operation.ArityMonoOnly},
			wantState: State{Format: spectral, Layout: LayoutSplit},
			want:      []Action{{Kind: ActionSplit}, {Kind: ActionConvert, From: raw, To: spectral}},
		},
		{
			name:      "synthesize before split",
			state:     State{Format: spectral, Layout: LayoutUnsplit},
			target:    Target{Format: raw, Arity: operation.ArityMonoOnly},
			wantState: State{Format: raw, Layout: LayoutSplit},
			want:      []Action{{Kind: ActionConvert, From: spectral, To: raw}, {Kind: ActionSplit}},
		},
		{
			name:      "spectral split round trips through raw",
			state:     State{Format: spectral, Layout: LayoutUnsplit},
			target:    Target{Format: spectral, Arity: operation.ArityMonoOnly},
			wantState: State{Format: spectral, Layout: LayoutSplit},
			want: []Action{
				{Kind: ActionConvert, From: spectral, To: raw},
				{Kind: ActionSplit},
				{Kind: ActionConvert, From: raw, To: spectral},
			},
		},
		{
			name:      "split group stays split for any-arity op",
			state:     State{Format: spectral, Layout: LayoutSplit},
			target:    Target{Format: raw},
			wantState: State{Format: raw, Layout: LayoutSplit},
			want:      []Action{{Kind: ActionConvert, From: spectral, To: raw}},
		},
		{
			name:      "closing merge synthesizes first",
			state:     State{Format: spectral, Layout: LayoutSplit},
			target:    ForOutput(raw, ChannelsPreserve),
			wantState: State{Format: raw, Layout: LayoutUnsplit},
			want:      []Action{{Kind: ActionConvert, From: spectral, To: raw}, {Kind: ActionMerge}},
		},
		{
			name:      "closing merge before analysis",
			state:     State{Format: raw, Layout: LayoutSplit},
			target:    ForOutput(spectral, ChannelsStereo),
			wantState: State{Format: spectral, Layout: LayoutUnsplit},
			want:      []Action{{Kind: ActionMerge}, {Kind: ActionConvert, From: raw, To: spectral}},
		},
		{
			name:      "closing unsplit stereo needs nothing",
			state:     State{Format: raw, Layout: LayoutUnsplit},
			target:    ForOutput(raw, ChannelsStereo),
			wantState: State{Format: raw, Layout: LayoutUnsplit},
		},
		{
			name:      "closing mono converts only",
			state:     State{Format: spectral, Layout: LayoutMono},
			target:    ForOutput(raw, ChannelsMono),
			wantState: State{Format: raw, Layout: LayoutMono},
			want:      []Action{{Kind: ActionConvert, From: spectral, To: raw}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, actions, err := Resolve(tt.state, tt.target)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.wantState {
				t.Fatalf("state = %v, want %v", got, tt.wantState)
			}
			if !reflect.DeepEqual(actions, tt.want) {
				t.Fatalf("actions = %v, want %v", actions, tt.want)
			}
		})
	}
}

func TestResolveConversionErrors(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		target Target
	}{
		{name: "stereo from mono", state: State{Format: raw, Layout: LayoutMono}, target: ForOutput(raw, ChannelsStereo)},
		{name: "mono from unsplit", state: State{Format: raw, Layout: LayoutUnsplit}, target: ForOutput(raw, ChannelsMono)},
		{name: "mono from split", state: State{Format: spectral, Layout: LayoutSplit}, target: ForOutput(raw, ChannelsMono)},
		{name: "unknown format", state: State{Format: "mp3", Layout: LayoutMono}, target: Target{Format: raw}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Resolve(tt.state, tt.target); !errors.Is(err, faults.ErrConversion) {
				t.Fatalf("expected ErrConversion, got %v", err)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	formats := []audiofile.Format{raw, spectral}
	layouts := []Layout{LayoutMono, LayoutUnsplit, LayoutSplit}
	var targets []Target
	for _, f := range formats {
		targets = append(targets,
			Target{Format: f, Arity: operation.ArityAny},
			Target{Format: f, Arity: operation.ArityMonoOnly},
			ForOutput(f, ChannelsPreserve),
			ForOutput(f, ChannelsMono),
			ForOutput(f, ChannelsStereo),
		)
	}
	for _, f := range formats {
		for _, l := range layouts {
			for _, target := range targets {
				state := State{Format: f, Layout: l}
				first, _, err := Resolve(state, target)
				if err != nil {
					continue
				}
				second, actions, err := Resolve(first, target)
				if err != nil {
					t.Fatalf("second resolve of %v -> %+v failed: %v", state, target, err)
				}
				if len(actions) != 0 || second != first {
					t.Fatalf("resolve not idempotent for %v -> %+v: %v then %v (%v)", state, target, first, second, actions)
				}
			}
		}
	}
}

func TestMergeAndSplitNeverTouchSpectralData(t *testing.T) {
	formats := []audiofile.Format{raw, spectral}
	layouts := []Layout{LayoutMono, LayoutUnsplit, LayoutSplit}
	targets := []Target{
		{Format: spectral, Arity: operation.ArityMonoOnly},
		{Format: raw, Arity: operation.ArityMonoOnly},
		ForOutput(spectral, ChannelsPreserve),
		ForOutput(spectral, ChannelsStereo),
	}
	for _, f := range formats {
		for _, l := range layouts {
			for _, target := range targets {
				cur := State{Format: f, Layout: l}
				_, actions, err := Resolve(cur, target)
				if err != nil {
					continue
				}
				for _, a := range actions {
					switch a.Kind {
					case ActionConvert:
						cur.Format = a.To
					case ActionSplit:
						if err := CheckSplit(cur); err != nil {
							t.Fatalf("illegal split planned from %v: %v", cur, err)
						}
						cur.Layout = LayoutSplit
					case ActionMerge:
						if err := CheckMerge(cur); err != nil {
							t.Fatalf("illegal merge planned from %v: %v", cur, err)
						}
						cur.Layout = LayoutUnsplit
					}
				}
			}
		}
	}
}

func TestCheckMergeRejectsSpectral(t *testing.T) {
	if err := CheckMerge(State{Format: spectral, Layout: LayoutSplit}); !errors.Is(err, faults.ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	if err := CheckMerge(State{Format: raw, Layout: LayoutMono}); !errors.Is(err, faults.ErrConversion) {
		t.Fatalf("expected ErrConversion for mono merge, got %v", err)
	}
	if err := CheckMerge(State{Format: raw, Layout: LayoutSplit}); err != nil {
		t.Fatalf("CheckMerge: %v", err)
	}
}

func TestParseChannels(t *testing.T) {
	for input, want := range map[string]Channels{"": ChannelsPreserve, "Mono": ChannelsMono, "stereo": ChannelsStereo} {
		got, err := ParseChannels(input)
		if err != nil || got != want {
			t.Fatalf("ParseChannels(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseChannels("quad"); err == nil {
		t.Fatal("expected error")
	}
}
