package fsops

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

func TestReadStreamsWholeFile(t *testing.T) {
	ops, buf := newTestOps(t)
	path := filepath.Join(t.TempDir(), "data.txt")
	content := []byte("hello from the other side")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	res, err := ops.Read(7, protocol.Params{"path": path})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), res["size"])

	payload, chunks := collectChunks(t, buf)
	assert.Equal(t, content, payload)
	assert.Equal(t, 1, chunks)
}

func TestReadChunksLargePayload(t *testing.T) {
	resolver, err := paths.NewResolver()
	require.NoError(t, err)
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Stream.ChunkSize = 8
	ops := New(resolver, protocol.NewWriter(&buf), cfg, logging.NewNop())

	path := filepath.Join(t.TempDir(), "big.txt")
	content := []byte(strings.Repeat("abcdefgh", 3) + "xy")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	res, err := ops.Read(1, protocol.Params{"path": path})
	require.NoError(t, err)
	assert.Equal(t, int64(26), res["size"])

	payload, chunks := collectChunks(t, &buf)
	assert.Equal(t, content, payload)
	assert.Equal(t, 4, chunks)
}

func TestReadWindow(t *testing.T) {
	ops, buf := newTestOps(t)
	path := filepath.Join(t.TempDir(), "window.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789abcdef"), 0o644))

	res, err := ops.Read(1, protocol.Params{"path": path, "off": 4, "len": 6})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res["size"])

	payload, _ := collectChunks(t, buf)
	assert.Equal(t, []byte("456789"), payload)
}

func TestReadZeroLenMeansUnbounded(t *testing.T) {
	ops, buf := newTestOps(t)
	path := filepath.Join(t.TempDir(), "all.txt")
	require.NoError(t, os.WriteFile(path, []byte("everything"), 0o644))

	res, err := ops.Read(1, protocol.Params{"path": path, "len": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res["size"])

	payload, _ := collectChunks(t, buf)
	assert.Equal(t, []byte("everything"), payload)
}

func TestReadOffsetPastEnd(t *testing.T) {
	ops, buf := newTestOps(t)
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	res, err := ops.Read(1, protocol.Params{"path": path, "off": 100})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res["size"])

	_, chunks := collectChunks(t, buf)
	assert.Equal(t, 0, chunks)
}

func TestReadRejectsDirectory(t *testing.T) {
	ops, _ := newTestOps(t)
	_, err := ops.Read(1, protocol.Params{"path": t.TempDir()})
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	ops, _ := newTestOps(t)
	_, err := ops.Read(1, protocol.Params{"path": filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestWriteCreatesFile(t *testing.T) {
	ops, _ := newTestOps(t)
	path := filepath.Join(t.TempDir(), "fresh.txt")

	res, err := ops.Write(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("brand new")),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, res["size"])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("brand new"), content)
}

func TestWritePreservesExistingMode(t *testing.T) {
	ops, _ := newTestOps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	_, err := ops.Write(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("new contents")),
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new contents"), content)
}

func TestWriteLeavesNoTempSibling(t *testing.T) {
	ops, _ := newTestOps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "only.txt")

	_, err := ops.Write(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("x")),
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "only.txt", entries[0].Name())
}

func TestWriteRejectsBadBase64(t *testing.T) {
	ops, _ := newTestOps(t)
	_, err := ops.Write(1, protocol.Params{
		"path": filepath.Join(t.TempDir(), "f"),
		"data": "not base64!!!",
	})
	assert.ErrorContains(t, err, "invalid base64")
}

func TestAppend(t *testing.T) {
	ops, _ := newTestOps(t)
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("line1\n"), 0o644))

	res, err := ops.Append(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("line2\n")),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res["size"])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("line1\nline2\n"), content)
}

func TestAppendCreatesMissingFile(t *testing.T) {
	ops, _ := newTestOps(t)
	path := filepath.Join(t.TempDir(), "new.log")

	_, err := ops.Append(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("first")),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), content)
}

func TestTruncate(t *testing.T) {
	ops, _ := newTestOps(t)
	path := filepath.Join(t.TempDir(), "t.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	_, err := ops.Truncate(1, protocol.Params{"path": path, "len": 4})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), content)

	// Extending pads with zeros.
	_, err = ops.Truncate(1, protocol.Params{"path": path, "len": 6})
	require.NoError(t, err)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{'0', '1', '2', '3', 0, 0}, content)
}

func TestTruncateRequiresLen(t *testing.T) {
	ops, _ := newTestOps(t)
	path := filepath.Join(t.TempDir(), "t.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	_, err := ops.Truncate(1, protocol.Params{"path": path})
	assert.ErrorContains(t, err, "missing param: len")
}
