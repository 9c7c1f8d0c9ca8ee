package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeMerge()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	if c.Tools.BinDir == "" {
		if value, ok := os.LookupEnv("CDP_BIN_DIR"); ok {
			c.Tools.BinDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Tools.BinDir, err = expandPath(strings.TrimSpace(c.Tools.BinDir)); err != nil {
		return fmt.Errorf("tools.bin_dir: %w", err)
	}
	c.Tools.Pvoc = defaultIfBlank(c.Tools.Pvoc, defaultPvocBinary)
	c.Tools.Housekeep = defaultIfBlank(c.Tools.Housekeep, defaultHousekeepBinary)
	c.Tools.Submix = defaultIfBlank(c.Tools.Submix, defaultSubmixBinary)
	c.Tools.Sndinfo = defaultIfBlank(c.Tools.Sndinfo, defaultSndinfoBinary)
	c.Tools.Sfprops = defaultIfBlank(c.Tools.Sfprops, defaultSfpropsBinary)
	c.Tools.DurationSource = strings.ToLower(defaultIfBlank(c.Tools.DurationSource, defaultDurationSource))
	c.Tools.ChannelSource = strings.ToLower(defaultIfBlank(c.Tools.ChannelSource, defaultChannelSource))
	if c.Tools.AnalysisMode == 0 {
		c.Tools.AnalysisMode = defaultAnalysisMode
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.StaleAfterHours <= 0 {
		c.Pipeline.StaleAfterHours = defaultStaleAfterHours
	}
}

func (c *Config) normalizeMerge() {
	c.Merge.OnMismatch = strings.ToLower(defaultIfBlank(c.Merge.OnMismatch, defaultMergeOnMismatch))
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultIfBlank(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
