// Package daemon coordinates the long-running logtail process.
//
// It wires configuration, the files store and the subscription registry into
// a single lifecycle with flock-based locking to prevent multiple instances.
// The daemon serves the management HTTP API (list, upload, delete, one-shot
// tail, raw download, status) and the websocket channel viewers use to
// subscribe to live file growth.
//
// Keep orchestration here: tailing mechanics live in internal/logs and
// subscription bookkeeping in internal/subscription.
package daemon
