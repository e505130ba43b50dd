package api

import (
	"strings"
	"time"

	"logtail/internal/files"
	"logtail/internal/subscription"
)

// FromEntries converts store entries to their API representation.
func FromEntries(entries []files.Entry) []FileEntry {
	out := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FileEntry{
			Name:     entry.Name,
			Size:     entry.Size,
			Modified: formatTime(entry.Modified),
		})
	}
	return out
}

// FromKeys converts registry keys to their API representation.
func FromKeys(keys []subscription.Key) []Subscription {
	out := make([]Subscription, 0, len(keys))
	for _, key := range keys {
		out = append(out, Subscription{ViewerID: key.ViewerID, File: key.File})
	}
	return out
}

// FromLineEvent converts a subscription event to its wire frame.
func FromLineEvent(evt subscription.LineEvent) TailEvent {
	out := TailEvent{
		Type:    string(evt.Kind),
		File:    evt.File,
		Line:    evt.Line,
		Code:    evt.Code,
		Message: evt.Message,
	}
	if evt.Kind == subscription.EventInitialBatch {
		out.Lines = evt.Lines
		if out.Lines == nil {
			out.Lines = []string{}
		}
	}
	return out
}

// ToCommand converts a wire command to a subscription command. Validation
// happens in the subscription package.
func (c TailCommand) ToCommand() subscription.Command {
	return subscription.Command{
		Action: subscription.Action(strings.ToLower(strings.TrimSpace(c.Command))),
		File:   c.File,
		Lines:  c.Lines,
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
