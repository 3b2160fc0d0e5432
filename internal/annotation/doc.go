// Package annotation composes outcome notes and commits them onto the
// originating record.
package annotation
