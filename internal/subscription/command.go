package subscription

import (
	"fmt"

	"logtail/internal/files"
)

// Action is the verb of a viewer command.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
)

// Command is a decoded viewer request.
type Command struct {
	Action Action
	File   string
	// Lines is the requested initial batch size; nil selects the default.
	Lines *int
}

// Validate reports ErrInvalidCommand for unknown actions, unsafe file names
// and negative line counts.
func (c Command) Validate() error {
	switch c.Action {
	case ActionSubscribe, ActionUnsubscribe:
	case "":
		return fmt.Errorf("%w: missing command", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, c.Action)
	}
	if err := files.ValidateName(c.File); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if c.Lines != nil && *c.Lines < 0 {
		return fmt.Errorf("%w: lines must not be negative", ErrInvalidCommand)
	}
	return nil
}
