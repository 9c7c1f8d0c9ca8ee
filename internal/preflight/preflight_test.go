package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"cdpflow/internal/config"
	"cdpflow/internal/deps"
	"cdpflow/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte floor, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for an impossible floor")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for a missing path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StagingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.History.Enabled = true

	results := RunAll(cfg)
	// staging access + free space + history directory
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Passed {
		t.Errorf("staging directory check failed: %s", results[0].Detail)
	}
	if !results[2].Passed {
		t.Errorf("history directory check failed: %s", results[2].Detail)
	}
}

func TestRunAll_MissingStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false
	failed := Failed(RunAll(cfg))
	if len(failed) != 2 {
		t.Fatalf("expected access and free space checks to fail, got %#v", failed)
	}
}

func TestCheckToolsResolvesBinDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("pvoc", "housekeep", "submix", "sndinfo", "blur"))
	t.Setenv("PATH", t.TempDir())

	statuses := CheckTools(cfg, []string{"blur", "distort", "blur", ""})
	byName := make(map[string]deps.Status, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
	}
	for _, name := range []string{"pvoc", "housekeep", "submix", "sndinfo", "blur"} {
		if !byName[name].Available {
			t.Errorf("expected %s to be available, got %#v", name, byName[name])
		}
	}
	if _, ok := byName["sfprops"]; ok {
		t.Error("sfprops should not be required with header channel source")
	}
	if byName["distort"].Available {
		t.Error("expected distort to be missing")
	}
	missing := deps.Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "distort" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}

func TestCheckToolsHeaderSourcesSkipProbes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDurationSource(config.DurationSourceHeader))
	for _, s := range CheckTools(cfg, nil) {
		if s.Name == "sndinfo" || s.Name == "sfprops" {
			t.Fatalf("unexpected probe requirement %s", s.Name)
		}
	}
}
