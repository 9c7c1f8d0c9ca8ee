package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cdpflow/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldRunDirectories(t *testing.T) {
	root := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldDir := filepath.Join(root, "run-old")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(oldDir, "op00_blur_0001.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(root, "run-recent")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	foreign := filepath.Join(root, "not-a-run")
	if err := os.Mkdir(foreign, 0o755); err != nil {
		t.Fatalf("create foreign dir: %v", err)
	}
	if err := os.Chtimes(foreign, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("removed = %v, want [%s]", result.Removed, oldDir)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("directories without the run prefix should be left alone")
	}
}

func TestCleanStaleSkipsLockedWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(Options{Root: root, RunID: "busy"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ws.Release()

	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(ws.Dir(), oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("locked workspace removed: %v", result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != ws.Dir() {
		t.Fatalf("skipped = %v", result.Skipped)
	}
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(Options{Root: root, RunID: "listed", Keep: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(ws.Path("slot", "wav"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 dir, got %d", len(dirs))
	}
	if dirs[0].Size != 5 || dirs[0].Files != 1 || !dirs[0].InUse {
		t.Fatalf("unexpected info %+v", dirs[0])
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	dirs, err = ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].InUse {
		t.Fatalf("expected retained, unlocked dir, got %+v", dirs)
	}
}
