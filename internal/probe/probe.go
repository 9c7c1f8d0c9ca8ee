package probe

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/wav"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/config"
	"cdpflow/internal/faults"
)

// Invoker runs an external program and returns its captured output.
type Invoker interface {
	Invoke(ctx context.Context, program string, args []string) (string, error)
}

// Options selects the probe sources and program names.
type Options struct {
	Sndinfo        string
	Sfprops        string
	DurationSource string
	ChannelSource  string
}

// OptionsFromConfig derives probe options from the tools section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Sndinfo:        cfg.Tools.Sndinfo,
		Sfprops:        cfg.Tools.Sfprops,
		DurationSource: cfg.Tools.DurationSource,
		ChannelSource:  cfg.Tools.ChannelSource,
	}
}

// Prober answers duration and channel queries.
type Prober struct {
	invoker Invoker
	opts    Options
}

// New constructs a prober. Blank options fall back to the CDP defaults.
func New(invoker Invoker, opts Options) *Prober {
	if opts.Sndinfo == "" {
		opts.Sndinfo = "sndinfo"
	}
	if opts.Sfprops == "" {
		opts.Sfprops = "sfprops"
	}
	if opts.DurationSource == "" {
		opts.DurationSource = config.DurationSourceSndinfo
	}
	if opts.ChannelSource == "" {
		opts.ChannelSource = config.ChannelSourceHeader
	}
	return &Prober{invoker: invoker, opts: opts}
}

// Duration returns the file's length in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	if p.opts.DurationSource == config.DurationSourceHeader && isWAV(path) {
		header, err := ReadHeader(path)
		if err != nil {
			return 0, faults.Wrap(faults.ErrDurationQuery, "probe", "duration", path, err)
		}
		return header.Seconds, nil
	}
	out, err := p.invoker.Invoke(ctx, p.opts.Sndinfo, []string{"len", path})
	if err != nil {
		return 0, faults.Wrap(faults.ErrDurationQuery, "probe", "sndinfo len", path, err)
	}
	seconds, err := ParseDuration(out)
	if err != nil {
		return 0, faults.Wrap(faults.ErrDurationQuery, "probe", "sndinfo len", path, err)
	}
	return seconds, nil
}

// Channels returns the channel count of the file. Analysis files report 1.
func (p *Prober) Channels(ctx context.Context, path string) (int, error) {
	if !isWAV(path) {
		return 1, nil
	}
	if p.opts.ChannelSource == config.ChannelSourceSfprops {
		out, err := p.invoker.Invoke(ctx, p.opts.Sfprops, []string{"-c", path})
		if err != nil {
			return 0, fmt.Errorf("sfprops -c %s: %w", path, err)
		}
		count, err := strconv.Atoi(strings.TrimSpace(out))
		if err != nil {
			return 0, fmt.Errorf("sfprops -c %s: unexpected output %q", path, strings.TrimSpace(out))
		}
		return count, nil
	}
	header, err := ReadHeader(path)
	if err != nil {
		return 0, err
	}
	return header.Channels, nil
}

// ParseDuration extracts the number following "DURATION:" in sndinfo output,
// e.g. "DURATION: 1.917333 secs samples 184064".
func ParseDuration(output string) (float64, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		for i, field := range fields {
			if field != "DURATION:" || i+1 >= len(fields) {
				continue
			}
			seconds, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return 0, fmt.Errorf("parse duration %q: %w", fields[i+1], err)
			}
			if seconds < 0 {
				return 0, fmt.Errorf("negative duration %v", seconds)
			}
			return seconds, nil
		}
	}
	return 0, fmt.Errorf("no DURATION line in output %q", strings.TrimSpace(output))
}

// Header is the subset of WAV header fields cdpflow uses.
type Header struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Seconds    float64
}

// ReadHeader decodes the WAV header at path without reading sample data.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Header{}, fmt.Errorf("%s: invalid WAV file", path)
	}
	header := Header{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	if err := dec.FwdToPCM(); err != nil {
		return Header{}, fmt.Errorf("locate wav data %s: %w", path, err)
	}
	bytesPerSecond := header.SampleRate * header.Channels * header.BitDepth / 8
	if bytesPerSecond <= 0 {
		return Header{}, fmt.Errorf("%s: wav header reports no audio data rate", path)
	}
	header.Seconds = float64(dec.PCMLen()) / float64(bytesPerSecond)
	return header, nil
}

func isWAV(path string) bool {
	format, err := audiofile.FormatForPath(path)
	return err == nil && format == audiofile.FormatRaw
}
