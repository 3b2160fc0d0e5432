// Package preflight checks that a run can start: the data and log
// directories are accessible, the database opens with a matching schema, and
// the registry answers. Results are plain values so both the status command
// and run --preflight can render them.
package preflight
