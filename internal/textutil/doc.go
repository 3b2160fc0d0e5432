// Package textutil provides the text normalization used to compare record keys
// against registry candidate names.
//
// Normalize produces the canonical comparison key. Letters and LettersInCommon
// reduce strings to their distinct-letter sets for the overlap score used when
// neither an exact nor a containment match exists.
package textutil
