package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FileEntry describes one served file.
type FileEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
}

// FileListResponse is returned by GET /api/files.
type FileListResponse struct {
	Files []FileEntry `json:"files"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// DeleteResponse is returned by DELETE /api/files/{name}.
type DeleteResponse struct {
	Message              string `json:"message"`
	StoppedSubscriptions int    `json:"stoppedSubscriptions"`
}

// TailResponse is returned by GET /api/tail/{name}.
type TailResponse struct {
	Lines []string `json:"lines"`
}

// ErrorResponse carries a failed request's message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Subscription identifies one live viewer subscription.
type Subscription struct {
	ViewerID string `json:"viewerId"`
	File     string `json:"file"`
}

// DaemonStatus aggregates runtime information.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	FilesDir      string         `json:"filesDir"`
	LockFilePath  string         `json:"lockFilePath"`
	StartedAt     string         `json:"startedAt,omitempty"`
	Viewers       int            `json:"viewers"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// TailCommand is an inbound websocket frame.
type TailCommand struct {
	Command string `json:"command"`
	File    string `json:"file"`
	Lines   *int   `json:"lines,omitempty"`
}

// TailEvent is an outbound websocket frame.
type TailEvent struct {
	Type    string   `json:"type"`
	File    string   `json:"file,omitempty"`
	Lines   []string `json:"lines,omitzero"`
	Line    string   `json:"line,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
}
