// Command reconciler drives unattended reconciliation of a local record table
// against an external registry.
//
// Subcommands:
//
//	run [--preflight]              reconcile until exhausted, cancelled, or the failure limit
//	records import|list|reset      manage the SQLite record table
//	history, report <run-id>       inspect journaled runs
//	status                         configuration, readiness checks, record counts
//	config init|validate           sample configuration and validation
package main
