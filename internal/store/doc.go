// Package store keeps the record table and run history in SQLite.
//
// The Store satisfies the scanner's record source (ListFrom, ReadKey,
// MarkResolved, Open), the annotation sink (WriteNote stages text, Commit
// appends it to the record's note), and session.Session so the multiplexer can
// focus it. Runs and their resolution reports are journaled for the history
// and report commands; the journal is an audit trail and never a resume point.
package store
