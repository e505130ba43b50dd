// Command logtail is the command-line client for the logtail daemon.
//
// It manages the served files directory (list, upload, delete), prints the
// last lines of a file once or follows it live over the daemon's websocket
// channel, reports daemon status, and can run the daemon in the foreground.
package main
