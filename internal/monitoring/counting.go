package monitoring

import "io"

// CountingWriter feeds the bytes-out counter as protocol lines leave.
type CountingWriter struct {
	w io.Writer
	m *Metrics
}

// NewCountingWriter wraps the protocol output stream.
func NewCountingWriter(w io.Writer, m *Metrics) *CountingWriter {
	return &CountingWriter{w: w, m: m}
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.m.AddBytesOut(n)
	}
	return n, err
}
