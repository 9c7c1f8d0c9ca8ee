package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"cdpflow/internal/faults"
	"cdpflow/internal/fileutil"
	"cdpflow/internal/logging"
)

const (
	// LockFileName is the advisory lock held inside every active workspace.
	LockFileName = ".cdpflow.lock"
	// RunDirPrefix prefixes run directories created under the staging root.
	RunDirPrefix = "run-"
)

// Options configures a workspace.
type Options struct {
	// Root is the staging root under which an owned run directory is created.
	Root string
	// Dir, when set, is used as-is instead of creating a run directory.
	Dir string
	// RunID names the owned run directory.
	RunID string
	// Keep leaves registered files in place on Release.
	Keep   bool
	Logger *slog.Logger
}

// Workspace is the scoped registry of one run's intermediate files.
type Workspace struct {
	dir    string
	owned  bool
	keep   bool
	lock   *flock.Flock
	logger *slog.Logger

	mu         sync.Mutex
	seq        int
	registered []string
	index      map[string]int
	released   bool
}

// Open prepares and locks the workspace directory.
func Open(opts Options) (*Workspace, error) {
	logger := logging.NewComponentLogger(opts.Logger, "staging")

	dir := opts.Dir
	owned := false
	if dir == "" {
		if opts.Root == "" {
			return nil, faults.Wrap(faults.ErrConfiguration, "staging", "open", "staging root not configured", nil)
		}
		if err := os.MkdirAll(opts.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create staging root: %w", err)
		}
		name := RunDirPrefix + fileutil.SafeName(opts.RunID, "run")
		dir = filepath.Join(opts.Root, name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil, faults.Wrap(faults.ErrConfiguration, "staging", "open", "run directory already exists: "+dir, nil)
			}
			return nil, fmt.Errorf("create run directory: %w", err)
		}
		owned = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		if owned {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrConfiguration, "staging", "open", "workspace "+dir+" is in use by another run", nil)
	}

	logger.Debug("workspace opened",
		logging.String("dir", dir),
		logging.Bool("owned", owned),
		logging.Bool("keep", opts.Keep),
	)
	return &Workspace{
		dir:    dir,
		owned:  owned,
		keep:   opts.Keep,
		lock:   lock,
		logger: logger,
		index:  make(map[string]int),
	}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Keep reports whether files are retained on Release.
func (w *Workspace) Keep() bool {
	return w.keep
}

// Path returns a fresh registered path "<slot>_<seq>.<ext>". Sequence numbers
// increase monotonically within the workspace so names never collide.
func (w *Workspace) Path(slot, ext string) string {
	w.mu.Lock()
	w.seq++
	name := fmt.Sprintf("%s_%04d.%s", fileutil.SafeName(slot, "tmp"), w.seq, ext)
	w.mu.Unlock()

	path := filepath.Join(w.dir, name)
	w.Register(path)
	return path
}

// Register adds an externally created path to the cleanup set.
func (w *Workspace) Register(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.index[path]; ok {
		return
	}
	w.index[path] = len(w.registered)
	w.registered = append(w.registered, path)
}

// Registered returns the registered paths in registration order.
func (w *Workspace) Registered() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.index))
	for _, p := range w.registered {
		if _, ok := w.index[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Discard releases one path early. With retention on, the file stays on disk
// and stays registered.
func (w *Workspace) Discard(path string) error {
	if w.keep {
		return nil
	}
	w.mu.Lock()
	delete(w.index, path)
	w.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", path, err)
	}
	return nil
}

// Release removes every registered path unless retention is on, removes an
// owned run directory once it is empty, and drops the lock. It is safe to
// call more than once.
func (w *Workspace) Release() error {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return nil
	}
	w.released = true
	paths := make([]string, 0, len(w.index))
	for _, p := range w.registered {
		if _, ok := w.index[p]; ok {
			paths = append(paths, p)
		}
	}
	w.mu.Unlock()

	var errs []error
	if !w.keep {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			}
		}
	}

	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
	}
	if !w.keep {
		_ = os.Remove(w.lock.Path())
		if w.owned {
			if err := os.RemoveAll(w.dir); err != nil {
				errs = append(errs, fmt.Errorf("remove run directory: %w", err))
			}
		}
	}

	if w.keep {
		w.logger.Info("intermediate files retained",
			logging.String("dir", w.dir),
			logging.Int("files", len(paths)),
		)
	} else {
		w.logger.Debug("workspace released",
			logging.String("dir", w.dir),
			logging.Int("removed", len(paths)),
		)
	}
	return errors.Join(errs...)
}
