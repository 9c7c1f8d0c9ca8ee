// Package operation describes one external processing step.
//
// A Descriptor is a closed record: every operation, whether bundled in a
// recipe or declared ad hoc on the command line, is the same shape. It names
// the program to run, the optional mode token and numeric mode parameter, the
// representation and channel arity the program accepts, the representation it
// produces, and the ordered trailing parameters. Args builds the positional
// argument list that CDP programs expect.
package operation
