package subscription

// EventKind names the events delivered to a viewer.
type EventKind string

const (
	EventInitialBatch EventKind = "initial-batch"
	EventNewLine      EventKind = "new-line"
	EventError        EventKind = "error"
	EventStopped      EventKind = "stopped"
)

// LineEvent is one message for a viewer about one file.
type LineEvent struct {
	Kind EventKind
	File string
	// Lines is set for EventInitialBatch, oldest first.
	Lines []string
	// Line is set for EventNewLine.
	Line string
	// Code and Message are set for EventError.
	Code    string
	Message string
}

// Sink delivers events to one viewer. Implementations must be safe for
// concurrent use; a viewer's subscriptions send independently. A returned
// error is treated as the viewer having gone away.
type Sink interface {
	Send(LineEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(LineEvent) error

func (f SinkFunc) Send(evt LineEvent) error { return f(evt) }

func errorEvent(file string, err error) LineEvent {
	return LineEvent{Kind: EventError, File: file, Code: ErrorCode(err), Message: err.Error()}
}
