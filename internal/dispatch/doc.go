// Package dispatch runs external CDP programs.
//
// Invoke blocks until the child process exits and returns its combined
// stdout/stderr. A nonzero exit becomes a *faults.ToolError carrying the
// program, arguments, exit code, and captured output. Process execution sits
// behind the Executor interface so tests can substitute a recorder.
package dispatch
