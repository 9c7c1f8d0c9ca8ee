// Package pipeline runs a declared sequence of CDP operations over one or
// more input files.
//
// The Orchestrator keeps an arena of channel groups, one per logical input,
// each holding its per-channel handles, current format, and layout. Before
// every operation each group is resolved to the operation's requirement and
// the planned conversions are executed. Ordinary operations then run once per
// channel handle of every group; multi-input operations regroup handles
// across all groups by channel index and run once per index, collapsing the
// arena into a single group. After the last operation the remaining group is
// resolved to the requested output shape and copied to the output path.
//
// Runs are strictly sequential. Any failure aborts the run; intermediate files
// are always released, and nothing is written to the output path unless every
// step succeeded.
package pipeline
