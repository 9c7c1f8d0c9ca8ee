package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Call records one executor invocation.
type Call struct {
	Binary string
	Args   []string
}

// Program returns the base name of the invoked binary.
func (c Call) Program() string {
	return filepath.Base(c.Binary)
}

// ExitError mimics *exec.ExitError for injected failures.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func (e *ExitError) ExitCode() int { return e.Code }

// FakeExecutor stands in for the CDP programs. It records every call and
// simulates the file side effects the pipeline depends on:
//
//   - housekeep chans 2 x.wav writes x_c1.wav and x_c2.wav
//   - sndinfo len x prints "DURATION: <d> secs"
//   - sfprops -c x prints the channel count
//   - any other missing .wav/.ana argument is created as an output
//
// Outputs copy the content of the first existing audio argument so WAV
// headers survive through the chain.
type FakeExecutor struct {
	mu    sync.Mutex
	calls []Call

	// Duration answers sndinfo queries. Zero means 2 seconds.
	Duration float64
	// DurationFor overrides Duration per path when set.
	DurationFor func(path string) float64
	// Channels answers sfprops queries. Zero means 2.
	Channels int
	// Fail, when set, is consulted before each call; a non-nil error aborts
	// the call without side effects.
	Fail func(call Call) error
}

// Run implements the dispatch executor contract.
func (f *FakeExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	call := Call{Binary: binary, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Fail != nil {
		if err := f.Fail(call); err != nil {
			if onOutput != nil {
				onOutput("simulated failure in " + call.Program())
			}
			return err
		}
	}

	emit := func(line string) {
		if onOutput != nil {
			onOutput(line)
		}
	}

	switch {
	case call.Program() == "sndinfo" && len(args) >= 2 && args[0] == "len":
		emit(fmt.Sprintf("INFILE: %s", args[1]))
		emit(fmt.Sprintf("DURATION: %.6f secs", f.durationFor(args[1])))
		return nil
	case call.Program() == "sfprops" && len(args) >= 2 && args[0] == "-c":
		channels := f.Channels
		if channels == 0 {
			channels = 2
		}
		emit(strconv.Itoa(channels))
		return nil
	case call.Program() == "housekeep" && len(args) >= 3 && args[0] == "chans":
		src := args[len(args)-1]
		base := strings.TrimSuffix(src, filepath.Ext(src))
		for _, suffix := range []string{"_c1", "_c2"} {
			if err := copyOrTouch(src, base+suffix+filepath.Ext(src)); err != nil {
				return err
			}
		}
		return nil
	}

	source := ""
	for _, arg := range args {
		if !isAudioPath(arg) {
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			if source == "" {
				source = arg
			}
			continue
		}
		if err := copyOrTouch(source, arg); err != nil {
			return err
		}
	}
	return nil
}

// Calls returns a copy of every recorded call.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded calls whose binary base name is program.
func (f *FakeExecutor) CallsFor(program string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if call.Program() == program {
			out = append(out, call)
		}
	}
	return out
}

func (f *FakeExecutor) durationFor(path string) float64 {
	if f.DurationFor != nil {
		return f.DurationFor(path)
	}
	if f.Duration == 0 {
		return 2
	}
	return f.Duration
}

func isAudioPath(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	return ext == ".wav" || ext == ".ana"
}

func copyOrTouch(src, dst string) error {
	data := []byte("fake audio\n")
	if src != "" {
		if content, err := os.ReadFile(src); err == nil {
			data = content
		}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("fake output %s: %w", dst, err)
	}
	return nil
}
