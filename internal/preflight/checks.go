package preflight

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"cdpflow/internal/config"
	"cdpflow/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	available, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %d MiB free, need %d MiB)", path, available>>20, minBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, available>>20)}
}

// FreeBytes reports the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs: %w", err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckTools reports the CDP helper programs every run may need plus the
// given operation programs, resolved through tools.bin_dir.
func CheckTools(cfg *config.Config, programs []string) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "pvoc",
			Command:     cfg.Binary(cfg.Tools.Pvoc),
			Description: "Converts between raw and spectral files",
		},
		{
			Name:        "housekeep",
			Command:     cfg.Binary(cfg.Tools.Housekeep),
			Description: "Splits stereo files into channels",
		},
		{
			Name:        "submix",
			Command:     cfg.Binary(cfg.Tools.Submix),
			Description: "Interleaves channels into stereo files",
		},
	}
	if cfg.Tools.DurationSource != config.DurationSourceHeader {
		requirements = append(requirements, deps.Requirement{
			Name:        "sndinfo",
			Command:     cfg.Binary(cfg.Tools.Sndinfo),
			Description: "Reports file durations for automation curves",
		})
	}
	if cfg.Tools.ChannelSource == config.ChannelSourceSfprops {
		requirements = append(requirements, deps.Requirement{
			Name:        "sfprops",
			Command:     cfg.Binary(cfg.Tools.Sfprops),
			Description: "Reports input channel counts",
		})
	}

	extra := make([]string, 0, len(programs))
	for _, p := range programs {
		if p = strings.TrimSpace(p); p != "" {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	for _, p := range extra {
		requirements = append(requirements, deps.Requirement{
			Name:        p,
			Command:     cfg.Binary(p),
			Description: "Operation program",
		})
	}
	return deps.CheckBinaries(deps.Dedupe(requirements))
}
