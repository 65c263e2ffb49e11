package fsops

import (
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Read streams file contents as base64 chunks, then reports the total
// size. off seeks before reading; len bounds the read when positive.
func (o *Ops) Read(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	off, _ := p.OptInt64("off")
	length, hasLen := p.OptInt64("len")
	limited := hasLen && length > 0

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Opening a directory succeeds on some platforms; fail it uniformly.
	if info, serr := f.Stat(); serr == nil && info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: path, Err: syscall.EISDIR}
	}

	if off != 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			return nil, err
		}
	}

	var total int64
	buf := make([]byte, o.chunk)
	for {
		toRead := int64(o.chunk)
		if limited {
			if remaining := length - total; remaining < toRead {
				toRead = remaining
			}
		}
		if toRead <= 0 {
			break
		}

		n, rerr := f.Read(buf[:toRead])
		if n > 0 {
			total += int64(n)
			chunk := map[string]interface{}{"data": protocol.Encode64(buf[:n])}
			if werr := o.writer.Data(id, chunk); werr != nil {
				return nil, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
		if limited && total >= length {
			break
		}
	}

	return protocol.Result{"size": total}, nil
}
