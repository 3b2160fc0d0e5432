// Package registry defines the candidate and detail types exchanged with the
// external registry, and the search client that classifies every lookup as
// Found, NotFound, or Unavailable.
package registry
