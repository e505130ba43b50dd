package logs

import "io/fs"

// Source is the read side of the directory the engine tails from.
// Names are flat file names; Source implementations resolve them.
type Source interface {
	Stat(name string) (fs.FileInfo, error)
	// ReadRange returns up to length bytes starting at offset. A short
	// result means the file ended before offset+length.
	ReadRange(name string, offset int64, length int) ([]byte, error)
}

// LocalPather is implemented by sources backed by the host filesystem.
// Detector uses it to subscribe to change notifications.
type LocalPather interface {
	LocalPath(name string) (string, bool)
}
