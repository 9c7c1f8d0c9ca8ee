// Package automation models time-varying operation parameters and writes them
// as breakpoint files.
//
// A Curve is a list of (time, value) points whose times are either a
// percentage of the input's duration or absolute seconds. Materialize resolves
// every point against a concrete duration, stable-sorts by resolved time and
// writes one "<seconds> <value>" line per point with six decimals. Points are
// never deduplicated or dropped; suspicious input produces warnings instead.
//
// DurationCache wraps the external duration query so that a single dispatch
// asks for its input's duration at most once, however many curve parameters it
// carries.
package automation
