package logs

import (
	"bytes"
	"strings"
)

// Assembler splits a stream of appended bytes into complete lines, holding
// back a trailing fragment until its newline arrives. The zero value is ready
// to use. Assembler is not safe for concurrent use.
type Assembler struct {
	pending []byte
}

// Feed appends p and returns the complete, non-empty, trimmed lines it closed.
func (a *Assembler) Feed(p []byte) []string {
	if len(p) == 0 {
		return nil
	}
	last := bytes.LastIndexByte(p, '\n')
	if last < 0 {
		a.pending = append(a.pending, p...)
		return nil
	}

	var lines []string
	emit := func(raw []byte) {
		if line := strings.TrimSpace(string(raw)); line != "" {
			lines = append(lines, line)
		}
	}

	complete := p[:last]
	first := bytes.IndexByte(complete, '\n')
	if first < 0 {
		first = len(complete)
	}
	emit(append(a.pending, complete[:first]...))
	if first < len(complete) {
		for _, raw := range bytes.Split(complete[first+1:], []byte{'\n'}) {
			emit(raw)
		}
	}

	a.pending = append(a.pending[:0], p[last+1:]...)
	return lines
}

// Reset discards any held-back fragment.
func (a *Assembler) Reset() { a.pending = nil }
