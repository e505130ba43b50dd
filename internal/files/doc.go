// Package files manages the flat directory of files viewers can tail.
//
// Store resolves bare file names against a root on an afero filesystem,
// rejecting anything that could escape it, and serves the read side of the
// tail engine (logs.Source) alongside the management operations exposed by
// the daemon API: list, upload, delete, and raw download.
package files
