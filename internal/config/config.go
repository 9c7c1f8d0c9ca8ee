package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	HistoryDB  string `toml:"history_db"`
}

// Tools describes how the external CDP programs are located and probed.
type Tools struct {
	BinDir    string `toml:"bin_dir"`
	Pvoc      string `toml:"pvoc"`
	Housekeep string `toml:"housekeep"`
	Submix    string `toml:"submix"`
	Sndinfo   string `toml:"sndinfo"`
	Sfprops   string `toml:"sfprops"`
	// DurationSource selects the duration collaborator: "sndinfo" runs
	// `sndinfo len`, "header" reads the WAV header in-process.
	DurationSource string `toml:"duration_source"`
	// ChannelSource selects how input channel counts are discovered:
	// "header" reads the WAV header, "sfprops" runs `sfprops -c`.
	ChannelSource string `toml:"channel_source"`
	// AnalysisMode is the numeric mode passed to `pvoc anal`.
	AnalysisMode int `toml:"analysis_mode"`
}

// Pipeline contains run defaults that CLI flags may override.
type Pipeline struct {
	KeepTemp        bool `toml:"keep_temp"`
	Verbose         bool `toml:"verbose"`
	Overwrite       bool `toml:"overwrite"`
	StaleAfterHours int  `toml:"stale_after_hours"`
}

// Merge controls the channel-duration check performed before a stereo merge.
type Merge struct {
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	// OnMismatch is "fail" or "warn".
	OnMismatch string `toml:"on_mismatch"`
}

// History controls the SQLite run history.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cdpflow.
//
// Configuration sections by subsystem:
//   - Paths: staging root, log directory, history database
//   - Tools: CDP program names, bin directory, probe sources
//   - Pipeline: retention, verbosity, overwrite defaults
//   - Merge: pre-merge channel duration policy
//   - History: run history persistence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Pipeline Pipeline `toml:"pipeline"`
	Merge    Merge    `toml:"merge"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cdpflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the staging root and, when configured, the log
// directory and the history database parent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	if c.History.Enabled && c.Paths.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Binary resolves a CDP program name against the configured bin directory.
// Names that already contain a path separator are returned unchanged.
func (c *Config) Binary(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || c.Tools.BinDir == "" || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join(c.Tools.BinDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
