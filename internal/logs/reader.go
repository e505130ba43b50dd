package logs

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// DefaultChunkSize is the backwards read step used when none is configured.
const DefaultChunkSize = 64 * 1024

const maxShrinkRetries = 3

// TailResult holds the lines returned by LastLines.
type TailResult struct {
	// Lines are oldest first.
	Lines []string
	// Offset is the file size the read was anchored at. Bytes at or past
	// Offset were not considered and belong to whoever follows the file.
	Offset int64
}

// Reader returns trailing lines of files in a Source.
type Reader struct {
	src       Source
	chunkSize int
}

// NewReader builds a Reader. A non-positive chunkSize selects DefaultChunkSize.
func NewReader(src Source, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{src: src, chunkSize: chunkSize}
}

// LastLines returns up to n trailing non-empty lines of name with surrounding
// whitespace trimmed. An unterminated final line counts as a line.
func (r *Reader) LastLines(name string, n int) (TailResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := r.lastLines(name, n)
		if !errors.Is(err, errShrunk) {
			return result, err
		}
		if attempt >= maxShrinkRetries {
			return TailResult{}, &IOError{Op: "read", Name: name, Err: io.ErrUnexpectedEOF}
		}
	}
}

func (r *Reader) lastLines(name string, n int) (TailResult, error) {
	info, err := r.src.Stat(name)
	if err != nil {
		return TailResult{}, statError(name, err)
	}
	if info.IsDir() {
		return TailResult{}, &IOError{Op: "stat", Name: name, Err: errIsDir}
	}

	size := info.Size()
	result := TailResult{Lines: []string{}, Offset: size}
	if n <= 0 || size == 0 {
		return result, nil
	}

	// newest first until the final reversal
	collected := make([]string, 0, min(n, 1024))
	var carry []byte
	pos := size
	for pos > 0 && len(collected) < n {
		length := min(int64(r.chunkSize), pos)
		pos -= length

		chunk, err := r.src.ReadRange(name, pos, int(length))
		if err != nil {
			return TailResult{}, readError(name, err)
		}
		if int64(len(chunk)) < length {
			return TailResult{}, errShrunk
		}

		data := append(chunk, carry...)
		pieces := bytes.Split(data, []byte{'\n'})
		// pieces[0] may continue into the previous chunk
		carry = pieces[0]
		for i := len(pieces) - 1; i >= 1 && len(collected) < n; i-- {
			if line := strings.TrimSpace(string(pieces[i])); line != "" {
				collected = append(collected, line)
			}
		}
	}
	if pos == 0 && len(collected) < n {
		if line := strings.TrimSpace(string(carry)); line != "" {
			collected = append(collected, line)
		}
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	result.Lines = collected
	return result, nil
}
