// Package daemonctl starts, stops and restarts a background logtail daemon
// from the CLI. Liveness is probed through the daemon's HTTP status endpoint;
// stopping signals the pid it reports, escalating to SIGKILL after a grace
// period.
package daemonctl
