package fsops

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Stat reports file metadata. link (default true) follows symlinks;
// the link field then reflects whether the named node itself is one.
func (o *Ops) Stat(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	follow := p.OptBool("link", true)

	var info os.FileInfo
	if follow {
		info, err = os.Stat(path)
	} else {
		info, err = os.Lstat(path)
	}
	if err != nil {
		return nil, err
	}

	isLink := false
	if follow {
		if li, lerr := os.Lstat(path); lerr == nil {
			isLink = li.Mode()&os.ModeSymlink != 0
		}
	}

	mode, uid, gid := unixMeta(info)
	return protocol.Result{
		"size":  info.Size(),
		"mtime": info.ModTime().Unix(),
		"mode":  mode,
		"uid":   uid,
		"gid":   gid,
		"dir":   info.IsDir(),
		"file":  info.Mode().IsRegular(),
		"link":  isLink,
	}, nil
}

// Ls lists a directory. Type flags follow symlinks while size, mtime
// and mode describe the entry itself; unreadable entries are skipped.
func (o *Ops) Ls(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	entries := make([]map[string]interface{}, 0, len(dirEntries))
	for _, de := range dirEntries {
		lst, lerr := de.Info()
		if lerr != nil {
			continue
		}

		full := filepath.Join(path, de.Name())
		isLink := lst.Mode()&os.ModeSymlink != 0

		var isDir, isFile, linkDir bool
		if isLink {
			// Broken links report neither dir nor file.
			if ti, terr := os.Stat(full); terr == nil {
				isDir = ti.IsDir()
				isFile = ti.Mode().IsRegular()
				linkDir = isDir
			}
		} else {
			isDir = lst.IsDir()
			isFile = lst.Mode().IsRegular()
		}

		mode, _, _ := unixMeta(lst)
		entries = append(entries, map[string]interface{}{
			"name":     de.Name(),
			"path":     full,
			"dir":      isDir,
			"file":     isFile,
			"link":     isLink,
			"link_dir": linkDir,
			"size":     lst.Size(),
			"mtime":    lst.ModTime().Unix(),
			"mode":     mode,
		})
	}

	return protocol.Result{"entries": entries}, nil
}

// Realpath returns the canonical absolute path.
func (o *Ops) Realpath(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	return protocol.Result{"path": path}, nil
}

// Exists reports whether a path exists. It never errors: anything that
// prevents the check counts as absent.
func (o *Ops) Exists(id uint64, p protocol.Params) (protocol.Result, error) {
	raw, err := p.Str("path")
	if err != nil {
		return nil, err
	}

	path, err := o.resolver.Resolve(raw)
	if err != nil {
		return protocol.Result{"exists": false}, nil
	}
	_, err = os.Stat(path)
	return protocol.Result{"exists": err == nil}, nil
}

// Info reports the agent's process environment.
func (o *Ops) Info(id uint64, p protocol.Params) (protocol.Result, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return protocol.Result{
		"home": o.resolver.Home(),
		"cwd":  cwd,
	}, nil
}

// unixMeta extracts the raw unix mode (type bits included), uid and
// gid. The raw mode matters on the wire: peers hand it back to
// sudo_write and chmod unchanged.
func unixMeta(info os.FileInfo) (mode, uid, gid uint32) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint32(st.Mode), st.Uid, st.Gid
	}
	return uint32(info.Mode().Perm()), 0, 0
}

// toFileMode maps a raw unix mode to the os package's bit layout.
func toFileMode(m int64) os.FileMode {
	mode := os.FileMode(m & 0o777)
	if m&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if m&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if m&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode
}
