// Package resolve plans the format conversions and channel splits or merges
// needed to bring a channel group into the shape an operation expects.
//
// Resolve is pure: it inspects a State and a Target and returns the State the
// group will be in after the returned Actions run. Executing the actions is
// the caller's job (see package convert). Split and merge only ever operate
// on RAW data, so a SPECTRAL group is synthesized before a split and a merged
// group is analysed only after the merge. Resolving the returned state again
// against the same target yields no actions.
package resolve
