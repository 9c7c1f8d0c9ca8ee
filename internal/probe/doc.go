// Package probe answers the two metadata questions a run asks about audio
// files: how long they are and how many channels they carry.
//
// Durations come either from the CDP `sndinfo len` command or from the WAV
// header; channel counts come from the WAV header or `sfprops -c`. Analysis
// (.ana) files are always treated as mono.
package probe
