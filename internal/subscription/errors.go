package subscription

import (
	"errors"

	"logtail/internal/logs"
)

var (
	// ErrInvalidCommand reports a malformed viewer command.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrAlreadyStopped is returned when starting or stopping a finished subscription.
	ErrAlreadyStopped = errors.New("subscription already stopped")
	// ErrRegistryClosed is returned by Subscribe after Close.
	ErrRegistryClosed = errors.New("registry closed")
)

// Error codes carried by EventError.
const (
	CodeNotFound       = "not_found"
	CodeIOError        = "io_error"
	CodeInvalidCommand = "invalid_command"
)

// ErrorClassifier allows errors to declare the code reported to viewers.
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrorCode maps an error to the code sent in an error event.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, logs.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidCommand):
		return CodeInvalidCommand
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return CodeIOError
}
