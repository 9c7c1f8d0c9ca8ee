// Package faults defines the error taxonomy shared by the pipeline engine.
//
// Failures are tagged with one of the exported sentinel markers so callers can
// classify them with errors.Is, while typed errors (ToolError, StepError) carry
// the structured context a user needs to locate the failure: the external
// program and its exit status, or the pipeline step and channel that failed.
package faults
