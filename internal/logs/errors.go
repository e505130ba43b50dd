package logs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound reports that the tailed file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrTruncated signals that a followed file shrank below the last read offset.
	ErrTruncated = errors.New("file truncated")
	// ErrDetectorStarted is returned when Start is called on a detector twice.
	ErrDetectorStarted = errors.New("detector already started")

	errIsDir  = errors.New("is a directory")
	errShrunk = errors.New("file shrank during read")
)

// IOError wraps a failed filesystem operation on a tailed file.
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for the viewer-facing error code.
func (e *IOError) ErrorKind() string { return "io_error" }

func statError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &IOError{Op: "stat", Name: name, Err: err}
}

func readError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &IOError{Op: "read", Name: name, Err: err}
}
