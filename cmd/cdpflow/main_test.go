package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cdpflow/internal/config"
	"cdpflow/internal/faults"
	"cdpflow/internal/history"
	"cdpflow/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	binDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithDurationSource(config.DurationSourceHeader),
	)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteScript(t, filepath.Join(cfg.Tools.BinDir, "pvoc"), `case "$1" in
anal) cp "$3" "$4" ;;
synth) cp "$2" "$3" ;;
esac`)
	testsupport.WriteScript(t, filepath.Join(cfg.Tools.BinDir, "gain"), `cp "$1" "$2"`)
	testsupport.WriteScript(t, filepath.Join(cfg.Tools.BinDir, "broken"), "echo 'cannot open input' >&2\nexit 1")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, binDir: cfg.Tools.BinDir}
}

func (e *cliTestEnv) input(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "in", name)
	testsupport.WriteWAV(t, path, 1, 8000, 0.25)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
staging_dir = %q
history_db = %q

[tools]
bin_dir = %q
duration_source = %q
`,
		cfg.Paths.StagingDir,
		cfg.Paths.HistoryDB,
		cfg.Tools.BinDir,
		cfg.Tools.DurationSource,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func listHistory(t *testing.T, env *cliTestEnv, extra ...string) []history.Run {
	t.Helper()
	out, _, err := runCLI(t, append([]string{"--json", "history"}, extra...), env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	return runs
}

func TestRunCommandWritesOutputAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.input(t, "voice.wav")
	out := filepath.Join(env.baseDir, "out", "voice-gain.wav")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCLI(t, []string{"run", "--out", out, "--op", `program = "gain", params = [2]`, in}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "Wrote "+out)
	requireContains(t, stdout, "1 steps, 1 dispatches")

	want, _ := os.ReadFile(in)
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("output should be the gain stub's copy of the input")
	}

	runs := listHistory(t, env)
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Status != history.StatusSucceeded || runs[0].OutputPath != out || runs[0].Dispatches != 1 {
		t.Fatalf("unexpected history row %#v", runs[0])
	}
	if len(runs[0].Operations) != 1 || runs[0].Operations[0] != "gain" {
		t.Fatalf("unexpected operations %v", runs[0].Operations)
	}

	detail, _, err := runCLI(t, []string{"history", "show", runs[0].RunID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, detail, "Status:     succeeded")
}

func TestRunCommandJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.input(t, "voice.wav")
	out := filepath.Join(env.baseDir, "voice.ana")

	stdout, _, err := runCLI(t, []string{"--json", "run", "-o", out, "--keep-temp", in}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, stdout)
	}
	if summary.Status != "succeeded" || summary.Format != "spectral" || summary.Output != out {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Retained) == 0 {
		t.Fatal("expected retained intermediates with --keep-temp")
	}
	if _, err := os.Stat(summary.WorkDir); err != nil {
		t.Fatalf("kept workspace missing: %v", err)
	}
}

func TestRunCommandFailureIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.input(t, "voice.wav")
	out := filepath.Join(env.baseDir, "never.wav")

	_, stderr, err := runCLI(t, []string{"run", "-o", out, "--op", `program = "gain"`, "--op", `program = "broken"`, in}, env.configPath)
	if !errors.Is(err, faults.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if exitCode(err) != 3 {
		t.Fatalf("exit code = %d", exitCode(err))
	}
	requireContains(t, err.Error(), "step 2")
	requireContains(t, stderr, "run failed")
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output must not exist, stat err = %v", statErr)
	}

	runs := listHistory(t, env, "--failed")
	if len(runs) != 1 || runs[0].ErrorKind != "external_tool" || runs[0].Steps != 1 {
		t.Fatalf("unexpected failed history %#v", runs)
	}
}

func TestRunCommandConfigurationErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.input(t, "voice.wav")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing output", []string{"run", in}, "output path is required"},
		{"missing program", []string{"run", "-o", filepath.Join(env.baseDir, "x.wav"), "--op", `program = "nonexistent-cdp-tool"`, in}, "programs not found"},
		{"bad channels", []string{"run", "-o", filepath.Join(env.baseDir, "x.wav"), "--channels", "quad", in}, "--channels"},
		{"bad inline op", []string{"run", "-o", filepath.Join(env.baseDir, "x.wav"), "--op", `program =`, in}, "--op 1"},
		{"two inputs", []string{"run", "-o", filepath.Join(env.baseDir, "x.wav"), in, in}, "no operation is multi-input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, env.configPath)
			if !errors.Is(err, faults.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			requireContains(t, err.Error(), tc.want)
			if exitCode(err) != 2 {
				t.Fatalf("exit code = %d", exitCode(err))
			}
		})
	}
}

func TestRunCommandUsesRecipe(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.input(t, "voice.wav")
	out := filepath.Join(env.baseDir, "from-recipe.wav")
	recipePath := filepath.Join(env.baseDir, "chain.toml")
	body := fmt.Sprintf("[output]\npath = %q\n\n[[operation]]\nprogram = \"gain\"\nparams = [1]\n\n[[operation]]\nname = \"again\"\nprogram = \"gain\"\nparams = [3]\n", out)
	if err := os.WriteFile(recipePath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCLI(t, []string{"run", "--recipe", recipePath, in}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "2 steps, 2 dispatches")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("recipe output missing: %v", err)
	}
}

func TestDoctorReportsReady(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "== Programs ==")
	requireContains(t, stdout, "[OK] "+filepath.Join(env.binDir, "pvoc"))
	requireContains(t, stdout, "[OK] ready")
}

func TestDoctorFailsForMissingRecipeProgram(t *testing.T) {
	env := setupCLITestEnv(t)
	recipePath := filepath.Join(env.baseDir, "chain.toml")
	if err := os.WriteFile(recipePath, []byte("[[operation]]\nprogram = \"distort\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := runCLI(t, []string{"--json", "doctor", "--recipe", recipePath}, env.configPath)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var report doctorReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Healthy {
		t.Fatal("report should not be healthy")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, env.binDir)
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.StagingDir, "run-stale")
	testsupport.WriteFile(t, filepath.Join(stale, "op00_blur_0001.ana"), 64)
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "run-stale")

	out, _, err = runCLI(t, []string{"staging", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 1 workspaces")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale workspace should be removed, stat err = %v", err)
	}
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{faults.Wrap(faults.ErrConfiguration, "cli", "run", "bad", nil), 2},
		{&faults.ToolError{Program: "blur", ExitCode: 1}, 3},
		{faults.Wrap(faults.ErrConversion, "resolve", "merge", "bad", nil), 4},
		{errors.New("boom"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
