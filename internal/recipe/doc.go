// Package recipe loads operation descriptors from TOML.
//
// A recipe is an ordered list of [[operation]] tables. Each table names the
// external program, its mode, the input requirement, the output format, and
// positional parameters. A parameter is a literal (number or string) or an
// automation curve given either as explicit points or as a named shape:
//
//	[[operation]]
//	name = "blur"
//	program = "blur"
//	mode = "blur"
//	input = "spectral"
//	arity = "mono_only"
//	params = [{ curve = [{ at = "0%", value = 1 }, { at = "100%", value = 50 }] }]
//
//	[[operation]]
//	program = "modify"
//	mode = "loudness"
//	mode_param = 1
//	input = "raw"
//	params = [{ shape = "fade_out", args = [80, 1] }]
//
// An optional [output] table supplies defaults for the output path, format,
// and channel mode.
package recipe
