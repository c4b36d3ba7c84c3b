// Package logs reads the worker's log file for `vecna logs`.
//
// Tail returns the last N lines (negative offset) or everything written after
// a byte offset, optionally waiting for new lines. Lines can be narrowed to a
// single entity with ForEntity, which understands both the console and JSON
// log formats.
package logs
