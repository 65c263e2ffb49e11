package protocol

import (
	"bufio"
	"io"
	"sync"

	"github.com/bytedance/sonic"
)

// Result is a terminal success payload. It is always an object on the
// wire; an empty Result serializes as {} and must still be sent.
type Result map[string]interface{}

// Message shapes carry exactly one payload tag each. Separate structs
// (rather than one struct with omitempty) keep empty results from
// vanishing and guarantee a response never carries two tags.
type dataMsg struct {
	ID uint64      `json:"id"`
	D  interface{} `json:"d"`
}

type resultMsg struct {
	ID uint64 `json:"id"`
	R  Result `json:"r"`
}

type errorMsg struct {
	ID uint64 `json:"id"`
	E  string `json:"e"`
}

type readyMsg struct {
	ID uint64 `json:"id"`
	OK bool   `json:"ok"`
	V  int    `json:"v"`
}

// Writer emits protocol lines. A single mutex covers marshal-to-flush so
// concurrent senders (the request loop and process output pumps) never
// interleave bytes of different lines.
type Writer struct {
	mu  sync.Mutex
	out *bufio.Writer
}

// NewWriter wraps the protocol output stream, normally stdout.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// Ready sends the startup banner. It is the first line the peer reads.
func (w *Writer) Ready() error {
	return w.send(readyMsg{ID: 0, OK: true, V: Version})
}

// Data sends a progress chunk for an in-flight request.
func (w *Writer) Data(id uint64, d interface{}) error {
	return w.send(dataMsg{ID: id, D: d})
}

// Result sends the terminal success line for a request.
func (w *Writer) Result(id uint64, r Result) error {
	if r == nil {
		r = Result{}
	}
	return w.send(resultMsg{ID: id, R: r})
}

// Error sends the terminal error line for a request.
func (w *Writer) Error(id uint64, msg string) error {
	return w.send(errorMsg{ID: id, E: msg})
}

func (w *Writer) send(msg interface{}) error {
	line, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(line); err != nil {
		return err
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return err
	}
	return w.out.Flush()
}
