// Command cdpflow runs chains of CDP sound-processing programs over audio
// files.
//
// `cdpflow run` takes input files, an ordered list of operations from a
// recipe file or --op flags, and an output path. It inserts the format
// conversions and channel splits/merges each program needs, writes
// automation curves to breakpoint files, and leaves only the final output
// behind. The remaining subcommands check the installation (`doctor`),
// browse past runs (`history`), manage leftover workspaces (`staging`), and
// work with the configuration file (`config`).
package main
