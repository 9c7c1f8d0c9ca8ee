// Package history persists a record of every pipeline run in SQLite.
//
// Each run, successful or failed, is stored with its inputs, the operation
// labels it executed, the final output, dispatch counts, and the failure
// classification when it did not complete. The store backs `cdpflow history`.
package history
