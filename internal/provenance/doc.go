// Package provenance extracts the status and document reference from a chosen
// registry candidate, with a single bounded retry when the detail view is stale.
package provenance
