package probe

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"cdpflow/internal/config"
	"cdpflow/internal/dispatch"
	"cdpflow/internal/faults"
	"cdpflow/internal/testsupport"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{name: "sndinfo line", output: "DURATION: 1.917333 secs samples 184064\n", want: 1.917333},
		{name: "with preamble", output: "INFILE: a.wav\nDURATION: 2.000000 secs\n", want: 2},
		{name: "missing", output: "CHANNELS: 2\n", wantErr: true},
		{name: "garbled number", output: "DURATION: abc secs", wantErr: true},
		{name: "no value", output: "DURATION:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDurationViaSndinfo(t *testing.T) {
	fake := &testsupport.FakeExecutor{Duration: 3.25}
	p := New(dispatch.New(dispatch.WithExecutor(fake)), Options{})

	got, err := p.Duration(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if got != 3.25 {
		t.Fatalf("duration = %v", got)
	}
	calls := fake.CallsFor("sndinfo")
	if len(calls) != 1 || calls[0].Args[0] != "len" || calls[0].Args[1] != "in.wav" {
		t.Fatalf("unexpected calls %+v", fake.Calls())
	}
}

func TestDurationFailureIsDurationQueryError(t *testing.T) {
	fake := &testsupport.FakeExecutor{Fail: func(testsupport.Call) error { return &testsupport.ExitError{Code: 1} }}
	p := New(dispatch.New(dispatch.WithExecutor(fake)), Options{})
	_, err := p.Duration(context.Background(), "in.wav")
	if !errors.Is(err, faults.ErrDurationQuery) {
		t.Fatalf("expected ErrDurationQuery, got %v", err)
	}
	if !errors.Is(err, faults.ErrExternalTool) {
		t.Fatalf("expected tool error cause, got %v", err)
	}
}

func TestHeaderSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	testsupport.WriteWAV(t, path, 2, 8000, 1.5)

	fake := &testsupport.FakeExecutor{}
	p := New(dispatch.New(dispatch.WithExecutor(fake)), Options{
		DurationSource: config.DurationSourceHeader,
		ChannelSource:  config.ChannelSourceHeader,
	})

	seconds, err := p.Duration(context.Background(), path)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(seconds-1.5) > 0.001 {
		t.Fatalf("duration = %v, want 1.5", seconds)
	}
	channels, err := p.Channels(context.Background(), path)
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if channels != 2 {
		t.Fatalf("channels = %d", channels)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("header probes should not run programs: %+v", fake.Calls())
	}
}

func TestChannelsViaSfprops(t *testing.T) {
	fake := &testsupport.FakeExecutor{Channels: 1}
	p := New(dispatch.New(dispatch.WithExecutor(fake)), Options{ChannelSource: config.ChannelSourceSfprops})
	got, err := p.Channels(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if got != 1 {
		t.Fatalf("channels = %d", got)
	}
	if len(fake.CallsFor("sfprops")) != 1 {
		t.Fatalf("expected sfprops call, got %+v", fake.Calls())
	}
}

func TestAnalysisFilesAreMono(t *testing.T) {
	p := New(dispatch.New(dispatch.WithExecutor(&testsupport.FakeExecutor{})), Options{})
	got, err := p.Channels(context.Background(), "voice.ana")
	if err != nil || got != 1 {
		t.Fatalf("Channels(.ana) = %d, %v", got, err)
	}
}

func TestReadHeaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	testsupport.WriteFile(t, path, 64)
	if _, err := ReadHeader(path); err == nil {
		t.Fatal("expected error for non-WAV content")
	}
}
