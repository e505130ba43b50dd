// Package testsupport holds fixtures shared by daemon and CLI tests:
// temp-directory configs, served-file helpers and in-process daemons.
package testsupport
