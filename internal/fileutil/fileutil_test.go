package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	dst := filepath.Join(dir, "dst.wav")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileVerifiedRecordsDigest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.ana")
	dst := filepath.Join(dir, "dst.ana")
	content := make([]byte, 64*1024+3)
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := copyInto(src, dst, true)
	if err != nil {
		t.Fatalf("copyInto: %v", err)
	}
	if stats.size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", stats.size, len(content))
	}
	onDisk, err := hashFile(dst)
	if err != nil {
		t.Fatalf("hashFile: %v", err)
	}
	if string(onDisk) != string(stats.sum) {
		t.Fatal("digest of the written file differs from the streamed digest")
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatal("verified copy content mismatch")
	}
}

func TestPlaceFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "work", "final_0007.wav")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "result.wav")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PlaceFile(src, dst); err != nil {
		t.Fatalf("PlaceFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("dst = %q, want new", got)
	}
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the output in %s, found %d entries", filepath.Dir(dst), len(entries))
	}
}

func TestPlaceFileMissingSourceLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "result.wav")
	if err := PlaceFile(filepath.Join(dir, "missing.wav"), dst); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, found %d entries", len(entries))
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "blur", want: "blur"},
		{in: "Spec Fold", want: "spec_fold"},
		{in: "  Écho / délai ", want: "echo_delai"},
		{in: "pitch-shift!!", want: "pitch-shift"},
		{in: "***", want: "op"},
		{in: "", want: "op"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in, "op"); got != tt.want {
			t.Fatalf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
