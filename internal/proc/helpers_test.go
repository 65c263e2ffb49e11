package proc

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/monitoring"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// syncBuffer collects writer output. Pumps write from goroutines while
// tests poll, so access is locked.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func newTestSupervisor(t *testing.T) (*Supervisor, *syncBuffer) {
	t.Helper()
	resolver, err := paths.NewResolver()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Proc.Shell = "/bin/sh"

	buf := &syncBuffer{}
	sup := New(protocol.NewWriter(buf), resolver, cfg, logging.NewNop(), monitoring.NewMetrics())
	t.Cleanup(sup.Shutdown)
	return sup, buf
}

func parseLines(data []byte) []map[string]interface{} {
	var msgs []map[string]interface{}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		if sonic.Unmarshal(line, &m) == nil {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// terminalFor waits for the terminal line of a supervised request.
func terminalFor(t *testing.T, buf *syncBuffer, id uint64) map[string]interface{} {
	t.Helper()
	var term map[string]interface{}
	require.Eventually(t, func() bool {
		for _, m := range parseLines(buf.Snapshot()) {
			if mid, ok := m["id"].(float64); !ok || uint64(mid) != id {
				continue
			}
			if _, ok := m["r"]; ok {
				term = m
				return true
			}
			if _, ok := m["e"]; ok {
				term = m
				return true
			}
		}
		return false
	}, 10*time.Second, 10*time.Millisecond, "no terminal line for id %d", id)
	return term
}

// collectStream concatenates the decoded chunks of one output stream.
func collectStream(t *testing.T, buf *syncBuffer, id uint64, key string) []byte {
	t.Helper()
	var out []byte
	for _, m := range parseLines(buf.Snapshot()) {
		if mid, ok := m["id"].(float64); !ok || uint64(mid) != id {
			continue
		}
		d, ok := m["d"].(map[string]interface{})
		if !ok {
			continue
		}
		b64, ok := d[key].(string)
		if !ok {
			continue
		}
		chunk, err := protocol.Decode64(b64)
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	return out
}

func exitCodeOf(t *testing.T, term map[string]interface{}) int {
	t.Helper()
	r, ok := term["r"].(map[string]interface{})
	require.True(t, ok, "expected a result terminal, got %v", term)
	code, ok := r["code"].(float64)
	require.True(t, ok)
	return int(code)
}
