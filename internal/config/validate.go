package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.History.Enabled && strings.TrimSpace(c.Paths.HistoryDB) == "" {
		return errors.New("paths.history_db must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateTools() error {
	switch c.Tools.DurationSource {
	case DurationSourceSndinfo, DurationSourceHeader:
	default:
		return fmt.Errorf("tools.duration_source: unsupported value %q (want %q or %q)", c.Tools.DurationSource, DurationSourceSndinfo, DurationSourceHeader)
	}
	switch c.Tools.ChannelSource {
	case ChannelSourceHeader, ChannelSourceSfprops:
	default:
		return fmt.Errorf("tools.channel_source: unsupported value %q (want %q or %q)", c.Tools.ChannelSource, ChannelSourceHeader, ChannelSourceSfprops)
	}
	if c.Tools.AnalysisMode < 1 || c.Tools.AnalysisMode > 3 {
		return errors.New("tools.analysis_mode must be between 1 and 3")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.DurationToleranceSeconds < 0 {
		return errors.New("merge.duration_tolerance_seconds must be >= 0")
	}
	switch c.Merge.OnMismatch {
	case MismatchFail, MismatchWarn:
	default:
		return fmt.Errorf("merge.on_mismatch: unsupported value %q (want %q or %q)", c.Merge.OnMismatch, MismatchFail, MismatchWarn)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
