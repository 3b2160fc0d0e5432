// Package matching implements the candidate disambiguator that chooses which
// registry search result corresponds to a record key.
package matching
