package dispatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"cdpflow/internal/faults"
	"cdpflow/internal/logging"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(d *Dispatcher) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithLogger sets the logger used for command echo and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithVerbose promotes the command echo from debug to info.
func WithVerbose(verbose bool) Option {
	return func(d *Dispatcher) {
		d.verbose = verbose
	}
}

// WithProgramResolver maps program names to executable paths, typically
// config.Config.Binary.
func WithProgramResolver(resolve func(string) string) Option {
	return func(d *Dispatcher) {
		if resolve != nil {
			d.resolve = resolve
		}
	}
}

// Dispatcher invokes external programs one at a time.
type Dispatcher struct {
	exec    Executor
	logger  *slog.Logger
	verbose bool
	resolve func(string) string
}

// New constructs a dispatcher that runs real processes unless overridden.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
		resolve: func(name string) string { return name },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Invoke runs program with args and returns the captured output.
func (d *Dispatcher) Invoke(ctx context.Context, program string, args []string) (string, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		return "", faults.Wrap(faults.ErrConfiguration, "dispatch", "invoke", "program name is empty", nil)
	}
	binary := d.resolve(program)
	logger := logging.WithContext(ctx, d.logger)

	level := slog.LevelDebug
	if d.verbose {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "running command",
		logging.String("program", program),
		logging.String("command", CommandLine(binary, args)),
	)

	var (
		mu  sync.Mutex
		out strings.Builder
	)
	err := d.exec.Run(ctx, binary, args, func(line string) {
		mu.Lock()
		out.WriteString(line)
		out.WriteByte('\n')
		mu.Unlock()
	})
	output := out.String()
	if err == nil {
		return output, nil
	}

	toolErr := &faults.ToolError{
		Program:  program,
		Args:     append([]string(nil), args...),
		ExitCode: exitCode(err),
		Output:   output,
		Err:      err,
	}
	logger.Debug("command failed",
		logging.String("program", program),
		logging.Int("exit_code", toolErr.ExitCode),
		logging.Error(err),
	)
	return output, toolErr
}

// CommandLine renders an invocation for logs and verbose echo.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"'") {
		return fmt.Sprintf("%q", arg)
	}
	return arg
}

type exitCoder interface {
	ExitCode() int
}

// exitCode extracts the process exit status, or -1 when the process never ran.
func exitCode(err error) int {
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
