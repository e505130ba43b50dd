// Package logs implements the tail engine shared by the daemon and CLI.
//
// Reader fetches the last N lines of a file by scanning fixed-size chunks
// backwards from its end, so memory stays proportional to one chunk plus the
// lines kept. Detector watches a file for growth from a known offset and emits
// the appended bytes, truncation, or failure; Assembler turns those byte runs
// into complete lines. None of the types here know about viewers: the
// subscription package composes them per viewer and file.
//
// Files are reached through Source, so the engine runs equally against the
// host filesystem and in-memory fixtures.
package logs
