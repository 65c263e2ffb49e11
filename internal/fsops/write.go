package fsops

import (
	"os"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Write replaces file contents atomically: the bytes land in a temp
// sibling, get fsynced, inherit the destination's mode when it already
// exists, and are renamed into place. A crash never leaves a partial
// destination.
func (o *Ops) Write(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	data, err := p.Bytes("data")
	if err != nil {
		return nil, err
	}

	if err := atomicReplace(path, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	}); err != nil {
		return nil, err
	}

	return protocol.Result{"size": len(data)}, nil
}

// Append appends to a file, creating it if needed, and fsyncs.
func (o *Ops) Append(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	data, err := p.Bytes("data")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, err
	}

	return protocol.Result{"size": len(data)}, nil
}

// Truncate truncates or extends a file to len bytes.
func (o *Ops) Truncate(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	length, err := p.Int64("len")
	if err != nil {
		return nil, err
	}

	if err := os.Truncate(path, length); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

// tempSibling returns a unique temp path next to dst so the final
// rename never crosses a filesystem boundary.
func tempSibling(dst string) string {
	return dst + ".hostlink-" + uuid.NewString()
}

// atomicReplace writes dst through a temp sibling: fill writes the
// content, then fsync, mode preservation, and rename. The temp file is
// removed on every failure path.
func atomicReplace(dst string, fill func(*os.File) error) error {
	var mode os.FileMode
	hasMode := false
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode()
		hasMode = true
	}

	tmp := tempSibling(dst)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return err
	}
	// No-op once the rename succeeds.
	defer os.Remove(tmp)

	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if hasMode {
		if err := os.Chmod(tmp, mode); err != nil {
			return err
		}
	}

	return os.Rename(tmp, dst)
}
