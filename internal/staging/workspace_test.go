package staging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cdpflow/internal/faults"
	"cdpflow/internal/logging"
)

func TestOwnedWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(Options{Root: root, RunID: "abc-123", Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ws.Dir() != filepath.Join(root, "run-abc-123") {
		t.Fatalf("dir = %s", ws.Dir())
	}

	first := ws.Path("op00 Blur", "wav")
	second := ws.Path("op00 Blur", "wav")
	if first == second {
		t.Fatal("paths must not collide")
	}
	if filepath.Base(first) != "op00_blur_0001.wav" || filepath.Base(second) != "op00_blur_0002.wav" {
		t.Fatalf("unexpected names %s %s", filepath.Base(first), filepath.Base(second))
	}
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := ws.Registered(); len(got) != 2 {
		t.Fatalf("registered = %v", got)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected owned dir removed, stat err = %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestExternalWorkspaceKeepsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mine")
	ws, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p := ws.Path("op01_pvoc", "ana")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("registered file should be gone, stat err = %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unregistered file should survive: %v", err)
	}
}

func TestRetentionKeepsEverything(t *testing.T) {
	ws, err := Open(Options{Root: t.TempDir(), RunID: "keep", Keep: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var paths []string
	for i := 0; i < 3; i++ {
		p := ws.Path("slot", "wav")
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	if err := ws.Discard(paths[0]); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s retained: %v", p, err)
		}
	}
}

func TestDiscardRemovesEarly(t *testing.T) {
	ws, err := Open(Options{Root: t.TempDir(), RunID: "discard"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ws.Release()

	curve := ws.Path("blur_param1", "txt")
	if err := os.WriteFile(curve, []byte("0 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Discard(curve); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(curve); !os.IsNotExist(err) {
		t.Fatalf("expected curve removed, stat err = %v", err)
	}
	if len(ws.Registered()) != 0 {
		t.Fatalf("expected nothing registered, got %v", ws.Registered())
	}
}

func TestWorkspaceLockPreventsSharing(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = Open(Options{Dir: dir})
	if !errors.Is(err, faults.ErrConfiguration) || !strings.Contains(err.Error(), "in use") {
		t.Fatalf("expected in-use configuration error, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open after release: %v", err)
	}
	_ = again.Release()
}

func TestOpenRequiresRoot(t *testing.T) {
	if _, err := Open(Options{}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
