// Package services defines shared utilities consumed by the reconciliation
// components and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, record keys, controller states, and
//     source positions for logging.
//   - Structured error markers plus the Wrap helper so lookup, stale-view, and
//     annotation failures can be told apart after they cross package lines.
//
// Use these helpers when wiring new collaborators so failure classification
// stays uniform across the run.
package services
