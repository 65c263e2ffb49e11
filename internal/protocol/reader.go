package protocol

import (
	"bufio"
	"bytes"
	"io"
)

// Reader yields request lines from the protocol input stream. Lines are
// unbounded: write and sudo_write carry whole files as base64 in a
// single line, so a fixed token limit would reject legitimate requests.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps the protocol input stream, normally stdin.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next non-blank line with surrounding whitespace
// trimmed, or io.EOF when the stream is exhausted. A final line without
// a trailing newline is still delivered.
func (r *Reader) Next() ([]byte, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
