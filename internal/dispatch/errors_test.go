package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatePrefixes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		prefix string
	}{
		{
			name:   "permission",
			err:    &fs.PathError{Op: "open", Path: "/etc/shadow", Err: syscall.EACCES},
			prefix: "permission denied: ",
		},
		{
			name:   "not found",
			err:    &fs.PathError{Op: "open", Path: "/tmp/ghost", Err: syscall.ENOENT},
			prefix: "not found: ",
		},
		{
			name:   "is a directory",
			err:    &fs.PathError{Op: "read", Path: "/tmp", Err: syscall.EISDIR},
			prefix: "is a directory: ",
		},
		{
			name:   "not a directory",
			err:    &fs.PathError{Op: "rmdir", Path: "/etc/hosts", Err: syscall.ENOTDIR},
			prefix: "not a directory: ",
		},
		{
			name:   "other os error",
			err:    &os.LinkError{Op: "rename", Old: "/a", New: "/b", Err: syscall.EXDEV},
			prefix: "os error: ",
		},
		{
			name:   "bare errno",
			err:    syscall.EMFILE,
			prefix: "os error: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			assert.Equal(t, tt.prefix+tt.err.Error(), got)
		})
	}
}

func TestTranslatePassesShapedMessagesThrough(t *testing.T) {
	for _, msg := range []string{
		"cancelled",
		"process not found",
		"command not found: frobnicate",
		"unsupported algo: crc32",
		"empty path",
	} {
		assert.Equal(t, msg, Translate(errors.New(msg)))
	}
	assert.Equal(t, "missing param: path", Translate(fmt.Errorf("missing param: %s", "path")))
}

func TestTranslatePermissionWinsOverPathError(t *testing.T) {
	// EACCES is both a PathError and a permission error; the more
	// specific prefix must win.
	err := &fs.PathError{Op: "mkdir", Path: "/root/x", Err: syscall.EACCES}
	assert.Equal(t, "permission denied: "+err.Error(), Translate(err))
}
