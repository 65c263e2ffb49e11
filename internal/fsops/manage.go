package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Rm removes a file. Directories are rejected so a stray rm can never
// take out a tree.
func (o *Ops) Rm(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "unlink", Path: path, Err: syscall.EISDIR}
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

// Rmdir removes an empty directory.
func (o *Ops) Rmdir(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "rmdir", Path: path, Err: syscall.ENOTDIR}
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

// Mkdir creates a directory; parents=true creates the whole chain and
// tolerates an existing directory.
func (o *Ops) Mkdir(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}

	if p.OptBool("parents", false) {
		err = os.MkdirAll(path, 0o777)
	} else {
		err = os.Mkdir(path, 0o777)
	}
	if err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

// Mv moves or renames a file or directory. Moving into an existing
// directory targets a child entry; cross-device moves fall back to
// copy-then-remove so /tmp to /etc saves work.
func (o *Ops) Mv(id uint64, p protocol.Params) (protocol.Result, error) {
	src, err := o.resolvePath(p, "from")
	if err != nil {
		return nil, err
	}
	dst, err := o.resolvePath(p, "to")
	if err != nil {
		return nil, err
	}

	if info, serr := os.Stat(dst); serr == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
		if _, lerr := os.Lstat(dst); lerr == nil {
			return nil, fmt.Errorf("destination path '%s' already exists", dst)
		}
	}

	if err := os.Rename(src, dst); err != nil {
		if !isCrossDevice(err) {
			return nil, err
		}
		if merr := moveAcrossDevices(src, dst); merr != nil {
			return nil, merr
		}
	}
	return protocol.Result{}, nil
}

// Cp copies a file, preserving mode and mtime. Copying onto an
// existing directory targets a child entry.
func (o *Ops) Cp(id uint64, p protocol.Params) (protocol.Result, error) {
	src, err := o.resolvePath(p, "from")
	if err != nil {
		return nil, err
	}
	dst, err := o.resolvePath(p, "to")
	if err != nil {
		return nil, err
	}

	if info, serr := os.Stat(dst); serr == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}

	if _, err := copyFile(src, dst); err != nil {
		return nil, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}
	return protocol.Result{"size": info.Size()}, nil
}

// Chmod sets permissions from a numeric unix mode.
func (o *Ops) Chmod(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	mode, err := p.Int64("mode")
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(path, toFileMode(mode)); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

func isCrossDevice(err error) bool {
	var le *os.LinkError
	return errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV)
}

func moveAcrossDevices(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := copyTree(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	if _, err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies contents and carries over mode and mtime.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, &fs.PathError{Op: "read", Path: src, Err: syscall.EISDIR}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	if err := os.Chmod(dst, info.Mode()); err != nil {
		return n, err
	}
	mtime := info.ModTime()
	return n, os.Chtimes(dst, mtime, mtime)
}

// copyTree copies a directory recursively, preserving symlinks. The
// walk is serial: parents must exist before their children land.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, ierr := d.Info()
			if ierr != nil {
				return ierr
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, lerr := os.Readlink(path)
			if lerr != nil {
				return lerr
			}
			return os.Symlink(link, target)
		default:
			_, cerr := copyFile(path, target)
			return cerr
		}
	})
}
