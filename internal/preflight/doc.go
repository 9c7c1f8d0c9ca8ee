// Package preflight provides readiness checks for the filesystem paths and
// external programs cdpflow depends on.
//
// These checks run in two contexts:
//   - `cdpflow run` calls RunAll and CheckTools before opening a workspace.
//     A failed check aborts the run before any program is dispatched.
//   - `cdpflow doctor` renders every result so setup problems can be fixed.
package preflight
