package fsops

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// newSudoOps builds a handler set whose sudo command is a shell script,
// so the tee/chmod/chown plumbing runs without privileges.
func newSudoOps(t *testing.T, script string) *Ops {
	t.Helper()
	resolver, err := paths.NewResolver()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fake-sudo")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	cfg := config.Default()
	cfg.Proc.SudoCmd = path
	var buf bytes.Buffer
	return New(resolver, protocol.NewWriter(&buf), cfg, logging.NewNop())
}

const passthroughSudo = `#!/bin/sh
cmd="$1"; shift
if [ "$cmd" = "tee" ]; then
    exec tee "$@" > /dev/null
fi
exec "$cmd" "$@"
`

func TestSudoWrite(t *testing.T) {
	ops := newSudoOps(t, passthroughSudo)
	path := filepath.Join(t.TempDir(), "rooty.conf")

	res, err := ops.SudoWrite(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("setting=1\n")),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res["size"])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("setting=1\n"), content)
}

func TestSudoWriteAppliesMode(t *testing.T) {
	ops := newSudoOps(t, passthroughSudo)
	path := filepath.Join(t.TempDir(), "locked.conf")

	_, err := ops.SudoWrite(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("x")),
		"mode": 0o600,
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSudoWriteAppliesOwnership(t *testing.T) {
	ops := newSudoOps(t, passthroughSudo)
	path := filepath.Join(t.TempDir(), "owned.conf")

	// Chowning to the current ids exercises the chown step without root.
	_, err := ops.SudoWrite(1, protocol.Params{
		"path": path,
		"data": protocol.Encode64([]byte("x")),
		"uid":  os.Getuid(),
		"gid":  os.Getgid(),
	})
	assert.NoError(t, err)
}

func TestSudoWriteSurfacesTeeFailure(t *testing.T) {
	ops := newSudoOps(t, `#!/bin/sh
echo "not in sudoers" >&2
exit 1
`)
	_, err := ops.SudoWrite(1, protocol.Params{
		"path": filepath.Join(t.TempDir(), "f"),
		"data": protocol.Encode64([]byte("x")),
	})
	assert.EqualError(t, err, "sudo tee failed: not in sudoers")
}
