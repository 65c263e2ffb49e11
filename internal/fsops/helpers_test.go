package fsops

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// newTestOps builds a handler set writing protocol lines into a buffer.
func newTestOps(t *testing.T) (*Ops, *bytes.Buffer) {
	t.Helper()
	resolver, err := paths.NewResolver()
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := protocol.NewWriter(&buf)
	return New(resolver, writer, config.Default(), logging.NewNop()), &buf
}

// canon resolves symlinks the way the path resolver does, so expected
// paths compare equal on platforms where TMPDIR is itself a symlink.
func canon(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

// collectChunks decodes every emitted data line and returns the
// reassembled payload plus the chunk count.
func collectChunks(t *testing.T, buf *bytes.Buffer) ([]byte, int) {
	t.Helper()

	var payload []byte
	count := 0
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var msg struct {
			ID uint64                 `json:"id"`
			D  map[string]interface{} `json:"d"`
		}
		require.NoError(t, sonic.Unmarshal(line, &msg))
		b64, ok := msg.D["data"].(string)
		require.True(t, ok, "data chunk missing data field: %s", line)
		chunk, err := protocol.Decode64(b64)
		require.NoError(t, err)
		payload = append(payload, chunk...)
		count++
	}
	return payload, count
}
