// Package config loads, normalizes, and validates cdpflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CDP_BIN_DIR. The Config type centralizes every knob the pipeline engine and
// CLI need: where intermediates are staged, how the CDP programs are located,
// how durations and channel counts are probed, and how logs are emitted.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
