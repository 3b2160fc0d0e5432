// Package logs reads per-run log files for the CLI.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// polls from a byte offset until the context ends, so `reconciler logs
// --follow` can watch a run that is still in progress.
package logs
