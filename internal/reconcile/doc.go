// Package reconcile implements the continuation controller: the loop that
// scans the next key block, resolves it against the registry, annotates the
// record, and advances the in-memory checkpoint.
//
// RunState and the scanner checkpoint are plain values passed into and
// returned from each Step. The consecutive failure counter resets on every
// committed annotation; reaching the configured limit stops the run with
// StopFailureLimit. An empty scan stops it with StopExhausted, and a cancelled
// context with StopCanceled. Per-record failures never escape as errors; they
// are recorded on the ResolutionReport.
package reconcile
