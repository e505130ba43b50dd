// Package subscription binds viewers to followed files.
//
// A Subscription pairs one viewer with one file: it sends the file's last N
// lines, then forwards every complete appended line until it stops. Each
// subscription owns its own detector and line assembler, so viewers of the
// same file never share partial-line state or read offsets.
//
// Registry tracks live subscriptions by (viewer, file). Subscribing again
// with the same identity replaces the prior instance; disconnects and file
// deletions stop every matching subscription. The registry lock only guards
// its map and is never held across file reads or sink writes.
package subscription
