// Package api defines wire-format types, converters, and the client for the
// daemon's HTTP and websocket surface.
//
// # Key Types
//
// FileEntry/FileListResponse: served directory listing.
//
// TailCommand: inbound viewer command on the websocket channel.
//
// TailEvent: outbound viewer event (initial-batch, new-line, error, stopped).
//
// DaemonStatus: running state, served directory, and live subscriptions.
//
// # Client
//
// Client wraps the HTTP routes for the CLI and follows a file over the
// websocket channel until its context is cancelled.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Timestamps use
// RFC3339 with milliseconds.
package api
