// Package staging manages the per-run working directory where intermediate
// audio files and breakpoint files live.
//
// A Workspace either owns a fresh run directory under the configured staging
// root or borrows a caller-supplied directory. Either way the directory is
// held under an advisory file lock for the lifetime of the run, every
// generated path is registered, and Release removes what was registered
// unless retention was requested. CleanStale sweeps run directories that were
// abandoned by crashed or killed runs.
package staging
