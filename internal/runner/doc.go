// Package runner assembles one reconciliation run: it takes the per-data-dir
// run lock, opens the record store and registry client, tees logs into a
// per-run file, journals reports, and sends run notifications around the
// controller loop.
package runner
