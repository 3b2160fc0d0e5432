// Package scanner walks the record source in positional order and yields
// contiguous same-key rows as one unit of work, together with the in-memory
// checkpoint that points past the block.
package scanner
