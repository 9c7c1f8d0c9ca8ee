package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	_, err := copyInto(src, dst, false)
	return err
}

// CopyFileVerified copies src to dst, flushes dst to stable storage, and
// re-reads it to confirm size and SHA-256 match what was read from src. dst is
// removed on mismatch.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	copied, err := copyInto(src, dst, true)
	if err != nil {
		return err
	}
	if copied.size != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), copied.size)
	}
	onDisk, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: %w", err)
	}
	if !bytes.Equal(copied.sum, onDisk) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: destination differs from source")
	}
	return nil
}

type copyStats struct {
	size int64
	sum  []byte
}

// copyInto hashes src while writing it to dst. With durable set, dst is
// fsynced before it is closed.
func copyInto(src, dst string, durable bool) (copyStats, error) {
	in, err := os.Open(src)
	if err != nil {
		return copyStats{}, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return copyStats{}, err
	}
	defer out.Close()

	hasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, hasher))
	if err != nil {
		return copyStats{}, err
	}
	if durable {
		if err := out.Sync(); err != nil {
			return copyStats{}, fmt.Errorf("sync %s: %w", dst, err)
		}
	}
	if err := out.Close(); err != nil {
		return copyStats{}, err
	}
	return copyStats{size: written, sum: hasher.Sum(nil)}, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}

// PlaceFile copies src next to dst under a temporary name and renames it into
// place, so dst is either absent, untouched, or complete.
func PlaceFile(src, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := CopyFileVerified(src, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("copy output: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
