// Package convert executes resolver actions with the CDP housekeeping tools.
//
// RAW to SPECTRAL runs `pvoc anal`, SPECTRAL to RAW runs `pvoc synth`, a
// stereo split copies the file into the workspace and runs `housekeep chans 2`
// on the copy, and a merge runs `submix interleave`. Before interleaving, the
// two channel durations are compared; a mismatch beyond the configured
// tolerance fails the run unless the policy is set to warn.
package convert
