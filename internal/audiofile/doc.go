// Package audiofile defines the handle type that flows through a cdpflow run.
//
// A File names one on-disk artifact together with its representation (RAW
// time-domain or SPECTRAL analysis data), its channel role, and the channel
// group it was derived from. Handles are plain values; the pipeline replaces
// them after every dispatch instead of mutating them in place.
package audiofile
