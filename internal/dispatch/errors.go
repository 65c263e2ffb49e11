package dispatch

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

// Translate maps handler errors onto the wire taxonomy peers match on.
// Pre-shaped messages ("cancelled", "process not found", "command not
// found: ...") pass through untouched; OS failures gain a classifying
// prefix, most specific first.
func Translate(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied: " + err.Error()
	case errors.Is(err, fs.ErrNotExist):
		return "not found: " + err.Error()
	case errors.Is(err, syscall.EISDIR):
		return "is a directory: " + err.Error()
	case errors.Is(err, syscall.ENOTDIR):
		return "not a directory: " + err.Error()
	case isOSError(err):
		return "os error: " + err.Error()
	}
	return err.Error()
}

// isOSError reports whether the error came out of a syscall rather
// than the agent's own validation.
func isOSError(err error) bool {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	var sysErr *os.SyscallError
	var errno syscall.Errno
	return errors.As(err, &pathErr) ||
		errors.As(err, &linkErr) ||
		errors.As(err, &sysErr) ||
		errors.As(err, &errno)
}
